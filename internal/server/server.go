package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/erfi/loadcompare/internal/results"
)

// Config holds listener and limiter settings
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Options wires the server's collaborators
type Options struct {
	Config   Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
}

// Server exposes aggregated results over HTTP and websockets
type Server struct {
	agg      *results.Aggregator
	hub      *Hub
	limiter  *RateLimiter
	metrics  *httpMetrics
	registry *prometheus.Registry
	logger   *zap.Logger
	config   Config
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	base context.Context
}

// New creates a server over agg
func New(agg *results.Aggregator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Config.ShutdownTimeout <= 0 {
		opts.Config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		agg:      agg,
		hub:      NewHub(),
		metrics:  newHTTPMetrics(opts.Registry),
		registry: opts.Registry,
		logger:   opts.Logger,
		config:   opts.Config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		base: context.Background(),
	}
	if opts.Config.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(opts.Config.RateLimitRPS, opts.Config.RateLimitBurst, 10*time.Minute)
	}
	return s
}

// Handler returns the routed handler, accepting HTTP/2 without TLS
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/scenarios", s.handleScenarios)
		r.Get("/results", s.handleAll)
		r.Get("/results/{scenario}", s.handleScenario)
	})

	r.With(s.rateLimit).Get("/ws/results/{scenario}", s.handleWS)

	return h2c.NewHandler(r, &http2.Server{})
}

// Notify pushes a fresh final snapshot for each scenario to its websocket
// subscribers. It is the results watcher callback.
func (s *Server) Notify(scenarios []string) {
	ctx := s.baseContext()
	for _, scenario := range scenarios {
		if s.hub.Count(scenario) == 0 {
			continue
		}
		final, err := s.agg.Scenario(ctx, scenario, nil)
		if err != nil {
			s.logger.Warn("failed to refresh scenario", zap.String("scenario", scenario), zap.Error(err))
			continue
		}
		s.broadcastJSON(scenario, final)
	}
}

func (s *Server) broadcastJSON(scenario string, snap results.ScenarioSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	s.hub.Broadcast(scenario, payload)
}

func (s *Server) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Close disconnects websocket subscribers and stops background loops
func (s *Server) Close() {
	s.hub.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
