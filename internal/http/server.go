package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LiftThanakorn/income-expense-tracker/internal/auth"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/middleware/ratelimit"
	"github.com/LiftThanakorn/income-expense-tracker/internal/middleware/security"
	"github.com/LiftThanakorn/income-expense-tracker/internal/middleware/trace"
	"github.com/LiftThanakorn/income-expense-tracker/internal/services"
)

// Deps are the services the API serves. Slips and Reports may be nil, in
// which case their routes answer 503.
type Deps struct {
	Ledger  *services.LedgerService
	Auth    *auth.Authenticator
	Slips   *services.SlipService
	Reports *services.ReportService

	// Ping checks the persistence backend for /readyz.
	Ping func(context.Context) error
}

// Options tunes the server.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	Location           *time.Location
}

type Server struct {
	http.Server

	router  *gin.Engine
	deps    Deps
	loc     *time.Location
	logger  *log.Logger
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = services.MaxSlipBytes + 1<<20

	s := &Server{
		router:  router,
		deps:    deps,
		loc:     opts.Location,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
	}
	s.routes()

	detector := security.NewDetector(logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, detector.ExtractClientIP)

	var handler http.Handler = router
	handler = s.limiter.Middleware(detector.ExtractClientIP, logger)(handler)
	handler = headers.Middleware(handler)
	handler = detector.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)

	api := r.Group("/api")
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)

	owned := api.Group("")
	owned.Use(s.requireOwner())
	{
		owned.POST("/auth/logout", s.handleLogout)

		owned.GET("/transactions", s.handleListTransactions)
		owned.POST("/transactions", s.handleCreateTransaction)
		owned.PUT("/transactions/:id", s.handleUpdateTransaction)
		owned.DELETE("/transactions/:id", s.handleDeleteTransaction)

		owned.GET("/categories", s.handleListCategories)
		owned.POST("/categories", s.handleCreateCategory)
		owned.PUT("/categories/:id", s.handleUpdateCategory)
		owned.DELETE("/categories/:id", s.handleDeleteCategory)

		owned.GET("/budgets", s.handleListBudgets)
		owned.PUT("/budgets", s.handleUpsertBudget)
		owned.DELETE("/budgets/:id", s.handleDeleteBudget)

		owned.GET("/goals", s.handleListGoals)
		owned.POST("/goals", s.handleCreateGoal)
		owned.PUT("/goals/:id", s.handleUpdateGoal)
		owned.DELETE("/goals/:id", s.handleDeleteGoal)
		owned.POST("/goals/:id/quick-add", s.handleQuickAdd)

		owned.GET("/proposals", s.handleListProposals)
		owned.POST("/proposals/:id/confirm", s.handleConfirmProposal)
		owned.POST("/proposals/:id/decline", s.handleDeclineProposal)

		owned.GET("/dashboard", s.handleDashboard)

		owned.POST("/slips", s.handleImportSlip)
		owned.POST("/reports", s.handleRequestReport)
		owned.GET("/reports/:id", s.handleGetReport)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
