package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dotproduct/internal/activity"
	"dotproduct/internal/api"
	"dotproduct/internal/charts"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
	"dotproduct/internal/middleware/ratelimit"
	"dotproduct/internal/middleware/security"
	"dotproduct/internal/middleware/trace"
	"dotproduct/internal/session"
	"dotproduct/internal/transactions"
	appweb "dotproduct/web"
)

// Backend is the part of the REST gateway the handlers call directly.
type Backend interface {
	Health(ctx context.Context) error
	ListCategories(ctx context.Context, tokens api.Tokens, typ core.EntryType) ([]core.Category, error)
	CreateCategory(ctx context.Context, tokens api.Tokens, in core.CategoryInput) (core.Category, error)
	GetTransaction(ctx context.Context, tokens api.Tokens, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tokens api.Tokens, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tokens api.Tokens, id int64, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, tokens api.Tokens, id int64) error
	CreateBudget(ctx context.Context, tokens api.Tokens, in core.BudgetInput) (core.Budget, error)
}

// Options wires the server's collaborators.
type Options struct {
	Addr     string
	Backend  Backend
	Sessions *session.Manager
	Registry *transactions.Registry
	Charts   *charts.Loader
	// Activity is optional; nil discards events.
	Activity           *activity.Backend
	RateLimitPerMinute int
	Logger             *log.Logger
}

type appMetrics struct {
	uptime           time.Time
	mutations        atomic.Int64
	activityRecorded atomic.Int64
	activityFailed   atomic.Int64
}

type Server struct {
	http.Server
	templates *template.Template
	backend   Backend
	sessions  *session.Manager
	registry  *transactions.Registry
	charts    *charts.Loader
	activity  *activity.Backend
	logger    *log.Logger
	access    *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Backend == nil || opts.Sessions == nil || opts.Registry == nil || opts.Charts == nil {
		return nil, errors.New("server: backend, sessions, registry and charts are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	act := opts.Activity
	if act == nil {
		act = &activity.Backend{Type: activity.BackendNone, Recorder: activity.Discard{}}
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector(logger)
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:        t,
		backend:          opts.Backend,
		sessions:         opts.Sessions,
		registry:         opts.Registry,
		charts:           opts.Charts,
		activity:         act,
		logger:           logger,
		access:           log.NewStructuredLogger(logger),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost},
			Logger:            logger,
		}),
		appMetrics: &appMetrics{uptime: time.Now()},
	}

	s.Handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, session.RequireAuth(h))
	}
	protected("GET /dashboard", s.handleDashboard)
	protected("GET /ui/summary-chart", s.handleSummaryChart)
	protected("GET /ui/budget-chart", s.handleBudgetChart)
	protected("GET /ui/category-summary", s.handleCategorySummary)
	protected("GET /ui/activity", s.handleActivityFeed)

	protected("GET /transactions", s.handleTransactionsPage)
	protected("GET /ui/transactions", s.handleTransactionsList)
	protected("GET /transactions/new", s.handleNewTransaction)
	protected("POST /transactions", s.handleCreateTransaction)
	protected("GET /transactions/{id}/edit", s.handleEditTransaction)
	protected("POST /transactions/{id}", s.handleUpdateTransaction)
	protected("GET /transactions/{id}/delete", s.handleConfirmDelete)
	protected("POST /transactions/{id}/delete", s.handleDeleteTransaction)

	protected("GET /budgets/new", s.handleNewBudget)
	protected("POST /budgets", s.handleCreateBudget)
	protected("GET /categories/new", s.handleNewCategory)
	protected("POST /categories", s.handleCreateCategory)
	protected("GET /ui/category-options", s.handleCategoryOptions)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	// Outermost first.
	return chain(mux,
		s.traceMiddleware.Middleware,
		s.traceMiddleware.Recover,
		s.securityDetector.Middleware,
		headers.Middleware,
		limit,
		s.sessions.Middleware,
	)
}

func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
