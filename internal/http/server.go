// Package http serves the expense tracker's HTML interface.
package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
	appweb "expenses/web"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server renders on top of.
type Deps struct {
	Logger   *applog.Logger
	Identity *services.IdentityService
	Expenses *services.ExpenseService
	Limits   *services.LimitService
	Store    Pinger

	RateLimitPerMinute  int
	SessionCookieSecure bool
}

type Server struct {
	http.Server

	logger    *applog.Logger
	templates templates
	identity  *services.IdentityService
	expenses  *services.ExpenseService
	limits    *services.LimitService
	store     Pinger

	cookieSecure bool
	now          func() time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	metrics     appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	started          time.Time
	expensesCreated  atomic.Int64
	expensesUpdated  atomic.Int64
	expensesDeleted  atomic.Int64
	limitRejections  atomic.Int64
	logins           atomic.Int64
	failedLogins     atomic.Int64
	registrations    atomic.Int64
	exports          atomic.Int64
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, deps Deps) (*Server, error) {
	tmpl, err := parseTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		logger:       logger.WithComponent(applog.ComponentHTTP),
		templates:    tmpl,
		identity:     deps.Identity,
		expenses:     deps.Expenses,
		limits:       deps.Limits,
		store:        deps.Store,
		cookieSecure: deps.SessionCookieSecure,
		now:          time.Now,
		detector:     security.NewDetector(),
	}
	s.metrics.started = time.Now()
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: deps.RateLimitPerMinute,
		Methods:           []string{http.MethodPost},
	})
	s.tracer = trace.NewMiddleware(s.detector.ClientIP)

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}

	var handler http.Handler = mux
	handler = applog.Middleware(s.logger, trace.RequestID)(handler)
	handler = s.rateLimiter.Middleware(s.detector.ClientIP)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssets(3600)(http.StripPrefix("/static/", http.FileServerFS(static))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.Handle("GET /{$}", s.requireSession(s.handleIndex))
	mux.Handle("GET /add", s.requireSession(s.handleAddForm))
	mux.Handle("POST /add", s.requireSession(s.handleAdd))
	mux.Handle("GET /edit/{id}", s.requireSession(s.handleEditForm))
	mux.Handle("POST /edit/{id}", s.requireSession(s.handleEdit))
	mux.Handle("POST /delete/{id}", s.requireSession(s.handleDelete))
	mux.Handle("GET /summary", s.requireSession(s.handleSummary))
	mux.Handle("GET /monthly", s.requireSession(s.handleMonthly))
	mux.Handle("GET /export/{month}", s.requireSession(s.handleExport))
	mux.Handle("GET /set_limit", s.requireSession(s.handleSetLimitForm))
	mux.Handle("POST /set_limit", s.requireSession(s.handleSetLimit))
	return nil
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
