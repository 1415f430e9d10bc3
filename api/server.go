// Package api exposes the pricing engine as a small HTTP projection
// service: callers POST a simulation input and receive the itemized
// invoice the engine would bill for it.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"metercost/db/postgres"
	"metercost/pricing"
)

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
	CORSOrigins    []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024,
		CORSOrigins:    []string{"*"},
	}
}

// Server is the HTTP projection server. The run store is optional;
// without one, simulations are computed and returned but not recorded.
type Server struct {
	httpServer *http.Server
	simulator  *pricing.Simulator
	runStore   *postgres.Store
	config     *Config
	log        zerolog.Logger
}

// NewServer creates a projection server. store may be nil.
func NewServer(store *postgres.Store, cfg *Config, log zerolog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		simulator: pricing.NewSimulator(),
		runStore:  store,
		config:    cfg,
		log:       log,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/api/v1/invoices/simulate", s.handleSimulate)
	mux.HandleFunc("/api/v1/runs", s.handleListRuns)

	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Int("port", s.config.Port).Msg("projection server starting")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and drains on SIGINT or
// SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// SimulateRequest is the projection request body.
type SimulateRequest struct {
	pricing.SimulationInput
	Record bool `json:"record,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	for i, item := range req.UsageItems {
		if err := item.PriceConfig.Validate(); err != nil {
			s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("usageItems[%d].priceConfig: %v", i, err))
			return
		}
	}

	invoice, err := s.simulator.Simulate(req.SimulationInput)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("simulation failed: %v", err))
		return
	}

	if req.Record && s.runStore != nil {
		if err := s.recordRun(r.Context(), req.CustomerID, invoice); err != nil {
			s.log.Error().Err(err).Msg("record simulation run")
		}
	}

	s.jsonResponse(w, http.StatusOK, invoice)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.runStore == nil {
		s.jsonError(w, http.StatusNotFound, "run store not configured")
		return
	}

	runs, err := s.runStore.ListRuns(r.Context(), r.URL.Query().Get("scenario"), 50)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, fmt.Sprintf("list runs: %v", err))
		return
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) recordRun(ctx context.Context, customerID string, invoice *pricing.Invoice) error {
	payload, err := json.Marshal(invoice)
	if err != nil {
		return err
	}
	return s.runStore.SaveRun(ctx, postgres.Run{
		ID:        uuid.New(),
		Scenario:  fmt.Sprintf("api:%s", customerID),
		Status:    postgres.StatusCompleted,
		Result:    payload,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
