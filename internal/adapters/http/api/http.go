// Package api serves the read-only status surface of a batch: health,
// Prometheus metrics, service statistics and stored run results.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/dengue/internal/adapters/repository"
	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/pkg/logger"
)

// StatsFunc returns a JSON-encodable snapshot of the running service.
type StatsFunc func(ctx context.Context) any

// RunReader reads finished runs from the results store.
type RunReader interface {
	Run(ctx context.Context, runID string) (model.RunResult, error)
}

// Server wires HTTP routes for the status API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	runsHandler   *RunsHandler
	logger        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a status server. runs may be nil when no store is
// configured; /runs then answers 404.
func NewServer(stats StatsFunc, runs RunReader, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(stats),
		runsHandler:   NewRunsHandler(runs),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("GET /metrics", s.instrument("metrics", s.healthHandler.HandleMetrics))
	mux.HandleFunc("GET /stats", s.instrument("stats", s.statsHandler.HandleStats))
	mux.HandleFunc("GET /runs/{id}", s.instrument("runs", s.runsHandler.HandleGetRun))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNoStore)
}
