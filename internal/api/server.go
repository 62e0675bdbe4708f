// Package api serves the calculator and run history over JSON/HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/rshade/hosting-emissions/internal/config"
	"github.com/rshade/hosting-emissions/internal/runs"
	"github.com/rshade/hosting-emissions/internal/store"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Server is the HTTP front end.
type Server struct {
	cfg      config.ServerConfig
	repo     *runs.Repository
	store    *store.Store
	logger   zerolog.Logger
	gatherer prometheus.Gatherer
	now      func() time.Time
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used for calculated_at and run stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithGatherer sets the registry served on /metrics. Defaults to
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer wires the routes and middleware.
func NewServer(cfg config.ServerConfig, repo *runs.Repository, st *store.Store, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		repo:     repo,
		store:    st,
		logger:   logger,
		gatherer: prometheus.DefaultGatherer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/calculate", s.handleCalculate).Methods(http.MethodPost)
	r.HandleFunc("/api/runs", s.handleGetRun).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", s.handleSaveRun).Methods(http.MethodPost)
	r.HandleFunc("/api/runs/list", s.handleListRuns).Methods(http.MethodGet)
	r.HandleFunc("/api/reports/{tenant_id}/{period}", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/tenants/{tenant_id}/factors", s.handleGetFactors).Methods(http.MethodGet)
	r.HandleFunc("/api/tenants/{tenant_id}/factors", s.handlePutFactors).Methods(http.MethodPut)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, msgNotFound)
	})

	s.handler = chain(r,
		hlog.NewHandler(logger),
		RequestID,
		AccessLog(),
		Recovery,
		CORS(cfg.CORS),
	)
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		shutdownDone <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
