package server

import "sync"

// Subscriber abstracts a streaming client
type Subscriber interface {
	ID() string
	Send([]byte) error
	Close()
}

// Hub manages live result subscriptions by scenario
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	stopOnce  sync.Once
}

// message couples payload with scenario
type message struct {
	scenario string
	payload  []byte
}

// subscription defines register/unregister requests
type subscription struct {
	scenario string
	client   Subscriber
}

// NewHub creates an initialized Hub and starts its loop
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = make(map[string]map[Subscriber]struct{})
			h.mu.Unlock()
			return
		case sub := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[sub.scenario]; !ok {
				h.clients[sub.scenario] = make(map[Subscriber]struct{})
			}
			h.clients[sub.scenario][sub.client] = struct{}{}
			h.mu.Unlock()
		case sub := <-h.unreg:
			h.mu.Lock()
			h.removeLocked(sub.scenario, sub.client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[msg.scenario] {
				if err := c.Send(msg.payload); err != nil {
					c.Close()
					h.removeLocked(msg.scenario, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(scenario string, client Subscriber) {
	if clients, ok := h.clients[scenario]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, scenario)
		}
	}
}

// Register adds a client to a scenario stream
func (h *Hub) Register(scenario string, client Subscriber) {
	select {
	case h.register <- subscription{scenario: scenario, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(scenario string, client Subscriber) {
	select {
	case h.unreg <- subscription{scenario: scenario, client: client}:
	case <-h.done:
	}
}

// Broadcast sends payload to all scenario clients
func (h *Hub) Broadcast(scenario string, payload []byte) {
	select {
	case h.broadcast <- message{scenario: scenario, payload: payload}:
	case <-h.done:
	}
}

// Count returns the number of subscribers for scenario
func (h *Hub) Count(scenario string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[scenario])
}

// Scenarios returns the scenarios that currently have subscribers
func (h *Hub) Scenarios() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients))
	for scenario := range h.clients {
		out = append(out, scenario)
	}
	return out
}

// Stop closes every subscriber and ends the loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
