package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erfi/loadcompare/internal/results"
)

// ndjsonStream writes one JSON document per line, flushing after each
type ndjsonStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  *zap.Logger
	started bool
}

func newNDJSONStream(w http.ResponseWriter, logger *zap.Logger) *ndjsonStream {
	flusher, _ := w.(http.Flusher)
	return &ndjsonStream{w: w, flusher: flusher, logger: logger}
}

func (s *ndjsonStream) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "application/x-ndjson")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

// partial writes v followed by a newline
func (s *ndjsonStream) partial(v any) {
	s.write(v, true)
}

// final writes v with no trailing newline
func (s *ndjsonStream) final(v any) {
	s.write(v, false)
}

func (s *ndjsonStream) write(v any, newline bool) {
	s.start()

	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}
	if newline {
		payload = append(payload, '\n')
	}
	if _, err := s.w.Write(payload); err != nil {
		s.logger.Debug("stream write failed", zap.Error(err))
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// handleScenario streams partial snapshots for one scenario as each target
// resolves, then the final snapshot.
func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	scenario := chi.URLParam(r, "scenario")
	if !s.agg.HasScenario(scenario) {
		writeError(w, http.StatusBadRequest, "unknown scenario: "+scenario)
		return
	}

	stream := newNDJSONStream(w, s.logger)
	final, err := s.agg.Scenario(r.Context(), scenario, func(snap results.ScenarioSnapshot) {
		stream.partial(snap)
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("scenario aggregation failed", zap.String("scenario", scenario), zap.Error(err))
		final = results.ScenarioSnapshot{
			Scenario:  scenario,
			Results:   results.ScenarioResults{},
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		}
	}
	stream.final(final)
}

// handleAll streams snapshots across every scenario
func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	stream := newNDJSONStream(w, s.logger)
	final, err := s.agg.All(r.Context(), func(snap results.AllSnapshot) {
		stream.partial(snap)
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("aggregation failed", zap.Error(err))
		final = results.AllSnapshot{
			Results:   results.AllResults{},
			Timestamp: time.Now().UTC(),
			Error:     err.Error(),
		}
	}
	stream.final(final)
}

// handleScenarios lists the configured scenarios and targets
func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"scenarios": s.agg.Scenarios(),
		"targets":   s.agg.Targets(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes JSON response with status code
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
