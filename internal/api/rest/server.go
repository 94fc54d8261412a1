package rest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/approval"
	"github.com/expenseflow/go-core/internal/audit"
	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/metrics"
	"github.com/expenseflow/go-core/internal/notify"
	"github.com/expenseflow/go-core/internal/policy"
	"github.com/expenseflow/go-core/internal/ratelimit"
	"github.com/expenseflow/go-core/internal/rates"
	"github.com/expenseflow/go-core/internal/scope"
	"github.com/expenseflow/go-core/internal/store"
)

// Server is the REST API server
type Server struct {
	config     Config
	deps       Deps
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
	startTime  time.Time
}

// Config configures the REST API server
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableCORS   bool
	Version      string
}

// DefaultConfig returns default REST server configuration
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		EnableCORS:   true,
		Version:      "1.0.0",
	}
}

// Deps carries the services the server routes to. Store, Auth,
// AuthMiddleware, Scopes, Approvals and Policies are required; the rest
// degrade to no-ops when nil.
type Deps struct {
	Store          store.Store
	Auth           *auth.Service
	AuthMiddleware *auth.Middleware
	Scopes         *scope.Resolver
	Approvals      *approval.Service
	Policies       *policy.Engine
	Notifier       *notify.Service
	Rates          *rates.Client
	Metrics        metrics.Metrics
	Audit          audit.Logger

	// AuthLimiter throttles the unauthenticated auth endpoints. Nil
	// disables limiting.
	AuthLimiter ratelimit.Limiter
}

// New creates a REST API server
func New(cfg Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.AuthMiddleware == nil {
		return nil, fmt.Errorf("auth middleware is required")
	}
	if deps.Scopes == nil {
		return nil, fmt.Errorf("scope resolver is required")
	}
	if deps.Approvals == nil {
		return nil, fmt.Errorf("approval service is required")
	}
	if deps.Policies == nil {
		return nil, fmt.Errorf("policy engine is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoOp()
	}
	if deps.Audit == nil {
		disabled := audit.Config{Enabled: false}
		deps.Audit, _ = audit.NewLogger(&disabled)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		router:    mux.NewRouter(),
		logger:    logger,
		startTime: time.Now(),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}

	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/status", s.statusHandler).Methods("GET")
	s.router.Handle("/metrics", s.deps.Metrics.HTTPHandler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.withAuthLimit(s.registerHandler)).Methods("POST")
	api.HandleFunc("/auth/login", s.withAuthLimit(s.loginHandler)).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.deps.AuthMiddleware.Handler)

	protected.HandleFunc("/auth/me", s.meHandler).Methods("GET")

	protected.HandleFunc("/expenses", s.createExpenseHandler).Methods("POST")
	protected.HandleFunc("/expenses", s.listExpensesHandler).Methods("GET")
	protected.HandleFunc("/expenses/pending", s.pendingExpensesHandler).Methods("GET")
	protected.HandleFunc("/expenses/{id}", s.getExpenseHandler).Methods("GET")
	protected.HandleFunc("/expenses/{id}/approve", s.approveExpenseHandler).Methods("POST")

	protected.HandleFunc("/users", s.listUsersHandler).Methods("GET")
	protected.HandleFunc("/users", s.createUserHandler).Methods("POST")
	protected.HandleFunc("/users/{id}", s.getUserHandler).Methods("GET")
	protected.HandleFunc("/users/{id}", s.updateUserHandler).Methods("PUT")
	protected.HandleFunc("/users/{id}", s.deactivateUserHandler).Methods("DELETE")

	protected.HandleFunc("/policies", s.listPoliciesHandler).Methods("GET")
	protected.HandleFunc("/policies", s.createPolicyHandler).Methods("POST")
	protected.HandleFunc("/policies/{id}", s.updatePolicyHandler).Methods("PUT")
	protected.HandleFunc("/policies/{id}", s.deletePolicyHandler).Methods("DELETE")

	protected.HandleFunc("/budgets", s.listBudgetsHandler).Methods("GET")
	protected.HandleFunc("/budgets", s.createBudgetHandler).Methods("POST")

	protected.HandleFunc("/notifications", s.listNotificationsHandler).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", s.markNotificationReadHandler).Methods("POST")

	protected.HandleFunc("/dashboard/stats", s.dashboardStatsHandler).Methods("GET")
	protected.HandleFunc("/categories", s.categoriesHandler).Methods("GET")
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server",
		zap.Int("port", s.config.Port),
		zap.Bool("cors_enabled", s.config.EnableCORS),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the REST API server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// loggingMiddleware logs HTTP requests and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		s.deps.Metrics.IncActiveRequests()
		next.ServeHTTP(wrapped, r)
		s.deps.Metrics.DecActiveRequests()

		duration := time.Since(start)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.deps.Metrics.RecordHTTPRequest(r.Method, route, wrapped.statusCode, duration)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", duration),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// recoveryMiddleware recovers from panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withAuthLimit throttles unauthenticated endpoints by client IP.
// Credential guessing hits login far faster than any human would.
func (s *Server) withAuthLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.AuthLimiter == nil {
			next(w, r)
			return
		}
		res, err := s.deps.AuthLimiter.Allow(r.Context(), "auth:"+clientIP(r))
		if err != nil {
			s.logger.Error("rate limit check failed", zap.Error(err))
			WriteError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		if !res.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			WriteError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

// clientIP extracts the caller's address, honoring X-Forwarded-For
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		Version:   s.config.Version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
