// Package server exposes the pivot pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz               liveness check
//	GET  /version               build information
//	POST /v1/render             compute a view, return it with all artifacts
//	POST /v1/render/{format}    compute a view, return one raw artifact
//	POST /v1/distinct           list the values of a field for filter menus
//
// Remote sources must name one of the configured backends; file sources are
// resolved inside the data directory.
//
// Request bodies carry [pipeline.Options] as JSON. Errors are answered with
// the status from errors.HTTPStatus and a {"code", "message"} body.
//
// [pipeline.Options]: github.com/matzehuels/pivotview/pkg/pipeline.Options
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pivotview/pkg/cache"
	"github.com/matzehuels/pivotview/pkg/errors"
	"github.com/matzehuels/pivotview/pkg/pipeline"
)

const (
	// DefaultAddr is the listen address when Config.Addr is empty.
	DefaultAddr = ":8080"

	// TenantHeader scopes cache keys per tenant.
	TenantHeader = "X-Tenant"

	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Config configures a [Server].
type Config struct {
	Addr   string
	Runner *pipeline.Runner
	Logger *log.Logger

	// DataDir enables file sources: relative payload paths in requests are
	// resolved against it. Empty disables file sources.
	DataDir string

	// Backends lists the origins (scheme://host[:port]) that remote sources
	// may name. Empty disables remote sources.
	Backends []string

	// Headers are added to requests to the allowed backends (e.g.
	// Authorization).
	Headers map[string]string
	// Timeout bounds one backend request.
	Timeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	backends map[string]bool
	router   chi.Router
}

// New returns a server for cfg. A nil Runner runs without a cache.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	s := &Server{cfg: cfg, backends: make(map[string]bool, len(cfg.Backends))}
	for _, b := range cfg.Backends {
		if o, ok := origin(b); ok {
			s.backends[o] = true
		} else {
			cfg.Logger.Warn("ignoring invalid backend", "backend", b)
		}
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/render", s.handleRender)
		r.Post("/render/{format}", s.handleRenderFormat)
		r.Post("/distinct", s.handleDistinct)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runnerFor returns a runner whose cache keys are scoped to the request's
// tenant, if any.
func (s *Server) runnerFor(r *http.Request) *pipeline.Runner {
	tenant := r.Header.Get(TenantHeader)
	if tenant == "" {
		return s.cfg.Runner
	}
	return &pipeline.Runner{
		Cache:  s.cfg.Runner.Cache,
		Keyer:  cache.NewScopedKeyer(s.cfg.Runner.Keyer, tenant),
		Logger: s.cfg.Runner.Logger,
	}
}

// prepare resolves the request's source and applies server-side settings.
func (s *Server) prepare(opts *pipeline.Options) error {
	if opts.Source == "" {
		return errors.New(errors.ErrCodeInvalidInput, "source is required")
	}
	if pipeline.IsRemote(opts.Source) {
		o, ok := origin(opts.Source)
		if !ok || !s.backends[o] {
			return errors.New(errors.ErrCodeInvalidInput, "backend %q is not allowed on this server", opts.Source)
		}
		opts.Headers = s.cfg.Headers
		opts.Timeout = s.cfg.Timeout
		return nil
	}
	if s.cfg.DataDir == "" {
		return errors.New(errors.ErrCodeUnsupported, "file sources are disabled on this server")
	}
	if err := errors.ValidatePath(opts.Source); err != nil {
		return err
	}
	opts.Source = filepath.Join(s.cfg.DataDir, opts.Source)
	return nil
}

// origin returns the normalized scheme://host[:port] of rawURL. Default
// ports are dropped and URLs carrying credentials are rejected.
func origin(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || u.User != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return scheme + "://" + host, true
	}
	return scheme + "://" + net.JoinHostPort(host, port), true
}
