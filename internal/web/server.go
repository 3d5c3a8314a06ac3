// Package web provides the HTTP server, JSON API and upload pages.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/casesync/internal/config"
	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/metrics"
	"github.com/JonMunkholm/casesync/internal/shiphero"
	appmw "github.com/JonMunkholm/casesync/internal/web/middleware"
)

// TokenRefresher exchanges a ShipHero refresh token for an access token.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*shiphero.Token, error)
}

// RunHistory lists recorded processing runs, newest first.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]core.RunRecord, error)
}

// Pinger reports backend health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithPresets enables the /api/presets routes.
func WithPresets(p *core.Presets) Option {
	return func(s *Server) { s.presets = p }
}

// WithHistory enables /api/history.
func WithHistory(h RunHistory) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics records HTTP metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPinger adds a dependency check to /healthz.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// Server is the HTTP server for casesync.
type Server struct {
	cfg     *config.Config
	service *core.Service
	auth    TokenRefresher
	stash   *core.FileStash

	presets *core.Presets
	history RunHistory
	metrics *metrics.Metrics
	pinger  Pinger

	rateLimiter *appmw.RateLimiter
	done        chan struct{}

	router *chi.Mux
	server *http.Server
}

// NewServer wires routes and middleware. auth and stash are required.
func NewServer(cfg *config.Config, service *core.Service, auth TokenRefresher, stash *core.FileStash, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		auth:    auth,
		stash:   stash,
		done:    make(chan struct{}),
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(chimw.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.rateLimiter = appmw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst, 3*time.Minute)
		go s.rateLimiter.Run(s.done)
		s.router.Use(s.rateLimiter.Handler)
	}
}

// setupRoutes registers every route. Processing routes run outside the
// request timeout because a run is bounded by PROCESS_TIMEOUT instead.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
		r.Get("/", s.handleUploadPage)
		r.Post("/upload", s.handleUploadForm)
	})
	s.router.Post("/files/{fileID}/process", s.handleProcessForm)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(appmw.APIKeyAuth(&s.cfg.Security))

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Post("/parse", s.handleParse)
			r.Get("/files/{fileID}", s.handleGetFile)
			r.Delete("/files/{fileID}", s.handleDiscardFile)

			r.Post("/shiphero/auth/refresh", s.handleRefreshToken)

			r.Get("/limiter", s.handleLimiterStatus)
			r.Get("/history", s.handleHistory)

			r.Get("/presets", s.handleListPresets)
			r.Get("/presets/match", s.handleMatchPresets)
			r.Post("/presets", s.handleCreatePreset)
			r.Delete("/presets/{id}", s.handleDeletePreset)
		})

		r.Post("/process-csv", s.handleProcessCSV)
		r.Post("/files/{fileID}/process", s.handleProcessFile)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Tokens are posted through these pages.
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v with the given status. Encoding errors are only
// logged because the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
