// Package web provides the HTTP API over the pipeline document and tables.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/aperture/internal/config"
	"github.com/JonMunkholm/aperture/internal/logging"
	"github.com/JonMunkholm/aperture/internal/tables"
	apimw "github.com/JonMunkholm/aperture/internal/web/middleware"
)

// TableStore is the subset of *tables.Store the API uses.
type TableStore interface {
	ReadAll(ctx context.Context, t tables.Table) ([]tables.Row, error)
	QueryDateRange(ctx context.Context, from, to time.Time) ([]tables.Row, error)
	QueryFlagsByFlagID(ctx context.Context, flagID int64, limit int) ([]tables.Flag, error)
	Seed(ctx context.Context, t tables.Table, r io.Reader, opts tables.SeedOptions) (*tables.Report, error)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the pipeline API.
type Server struct {
	cfg config.ServerConfig

	// docMu guards doc; a Document is not safe for concurrent use.
	docMu sync.Mutex
	doc   *config.Document

	store   TableStore
	limiter *tables.Limiter
	pinger  Pinger
	logger  *slog.Logger

	router *chi.Mux
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithPinger enables the database check in /api/health.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = logging.OrDiscard(l) }
}

// NewServer creates a Server. store may be nil when no database is
// configured; table routes then answer 503.
func NewServer(cfg config.ServerConfig, doc *config.Document, store TableStore, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		doc:     doc,
		store:   store,
		limiter: tables.NewLimiter(cfg.SeedMaxConcurrent, cfg.SeedMaxWait),
		logger:  slog.Default(),
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(apimw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Column bounds
		r.Get("/bounds", s.handleListBounds)
		r.Get("/bounds/{column}", s.handleGetBounds)
		r.Post("/bounds/{column}/check", s.handleCheckBounds)

		// Pipeline document
		r.Get("/config", s.handleGetConfig)

		// Document and table changes
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAPIKey(s.cfg.APIKey))
			r.Put("/bounds/{column}", s.handleSetBounds)
			r.Post("/config/save", s.handleSaveConfig)
			r.Post("/tables/{table}/seed", s.handleSeedTable)
		})

		// Tables
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{table}/rows", s.handleTableRows)
		r.Get("/ctran/range", s.handleCtranRange)
		r.Get("/flags", s.handleFlags)
	})
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
}

// Run serves on l until ctx is done, then shuts down. It returns only once
// in-flight requests and running seeds have finished or shutdownTimeout has
// passed. A non-positive shutdownTimeout waits without limit.
func (s *Server) Run(ctx context.Context, l net.Listener, shutdownTimeout time.Duration) error {
	s.server = s.httpServer()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", l.Addr().String())
		serveErr <- s.server.Serve(l)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx := context.Background()
	if shutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, shutdownTimeout)
		defer cancel()
	}
	shutdownErr := s.Shutdown(shutdownCtx)

	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return shutdownErr
}

// Shutdown gracefully stops the server, then waits for running seeds.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if n := s.limiter.Active(); n > 0 {
		s.logger.Info("waiting for seeds to complete", "active", n)
	}
	return s.limiter.Drain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// withDocument runs fn while holding the document lock.
func (s *Server) withDocument(fn func(doc *config.Document) error) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	return fn(s.doc)
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
