package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/results"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var (
	errClientClosed = errors.New("websocket client closed")
	errSlowClient   = errors.New("websocket client too slow")
)

// wsClient represents a websocket subscriber
type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func newWSClient(conn *websocket.Conn, logger *zap.Logger) *wsClient {
	id := uuid.NewString()
	return &wsClient{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("client", id)),
	}
}

func (c *wsClient) ID() string { return c.id }

// Send queues payload without blocking. A full queue drops the client.
func (c *wsClient) Send(payload []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSlowClient
	}
}

// Close terminates the connection
func (c *wsClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("websocket send failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages and returns once the peer goes away
func (c *wsClient) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleWS streams the snapshot sequence of a scenario to a websocket and
// keeps the client subscribed to fresh final snapshots as results change.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	scenario := chi.URLParam(r, "scenario")
	if !s.agg.HasScenario(scenario) {
		writeError(w, http.StatusBadRequest, "unknown scenario: "+scenario)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWSClient(conn, s.logger)
	s.metrics.wsClients.Inc()
	defer s.metrics.wsClients.Dec()

	go client.writePump()
	go client.readPump()

	ctx, cancel := context.WithCancel(s.baseContext())
	defer cancel()
	go func() {
		select {
		case <-client.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.hub.Register(scenario, client)
	defer s.hub.Unregister(scenario, client)

	final, err := s.agg.Scenario(ctx, scenario, func(snap results.ScenarioSnapshot) {
		s.sendJSON(client, snap)
	})
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		final.Scenario = scenario
		final.Error = err.Error()
	}
	s.sendJSON(client, final)

	select {
	case <-client.done:
	case <-ctx.Done():
		client.Close()
	}
}

func (s *Server) sendJSON(client Subscriber, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	if err := client.Send(payload); err != nil {
		client.Close()
	}
}
