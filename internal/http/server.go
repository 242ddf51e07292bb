// Package http exposes the budget service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	sentryhttp "github.com/getsentry/sentry-go/http"

	"budgetplan/internal/identity"
	applog "budgetplan/internal/log"
	"budgetplan/internal/middleware/ratelimit"
	"budgetplan/internal/middleware/security"
	"budgetplan/internal/middleware/trace"
	"budgetplan/internal/services"
)

// Options tune the server. The zero value is usable.
type Options struct {
	UserHeader         string
	RateLimitPerMinute int
	Logger             *applog.Logger
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	// Sentry attaches a per-request hub and reports panics.
	Sentry bool
}

type Server struct {
	http.Server
	svc      *services.BudgetService
	validate *validator.Validate
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	ready    func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.BudgetService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		svc:      svc,
		validate: newValidator(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(extractClientIP, logger),
		ready:    opts.Ready,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger, chimw.GetReqID))
	if opts.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(identity.Middleware(opts.UserHeader))
	r.Use(s.limiter.Middleware(extractClientIP, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/plan", func(r chi.Router) {
			r.Get("/", s.handleGetPlan)
			r.Put("/", s.handleSavePlan)
			r.Get("/summary", s.handlePlanSummary)
			r.Put("/exchange-rate", s.handleExchangeRate)
			r.Delete("/savings/{id}", s.handleRemoveSavings)
		})
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleSaveSettings)
			r.Post("/apply-rules", s.handleApplyRules)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Get("/years", s.handleYears)
			r.Get("/{year}", s.handleYearComparison)
			r.Get("/{year}/half/{half}", s.handleHalfYearComparison)
			r.Get("/{year}/{month}", s.handleMonth)
			r.Post("/{year}/{month}/snapshot", s.handleSnapshot)
			r.Put("/{year}/{month}/actual", s.handleSaveActual)
			r.Delete("/{year}/{month}", s.handleDeleteReport)
		})
		r.Route("/savings", func(r chi.Router) {
			r.Get("/", s.handleSavings)
			r.Get("/transactions", s.handleTransactions)
			r.Post("/withdrawals", s.handleAddWithdrawal)
			r.Delete("/withdrawals/{id}", s.handleDeleteWithdrawal)
			r.Get("/balances", s.handleBalances)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Metrics returns request counters from the trace middleware.
func (s *Server) Metrics() trace.Metrics { return s.tracer.GetMetrics() }

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
