// Package main provides the entry point for the expense server
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/expenseflow/go-core/internal/api/rest"
	"github.com/expenseflow/go-core/internal/approval"
	"github.com/expenseflow/go-core/internal/audit"
	"github.com/expenseflow/go-core/internal/auth"
	"github.com/expenseflow/go-core/internal/cache"
	"github.com/expenseflow/go-core/internal/db"
	"github.com/expenseflow/go-core/internal/metrics"
	"github.com/expenseflow/go-core/internal/notify"
	"github.com/expenseflow/go-core/internal/policy"
	"github.com/expenseflow/go-core/internal/ratelimit"
	"github.com/expenseflow/go-core/internal/rates"
	"github.com/expenseflow/go-core/internal/scope"
	"github.com/expenseflow/go-core/internal/store"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		httpPort        = flag.Int("http-port", 8080, "HTTP server port")
		dsn             = flag.String("db-dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (empty runs the in-memory store)")
		migrateUp       = flag.Bool("migrate", true, "Run pending migrations on startup")
		jwtSecret       = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "HS256 token secret")
		tokenTTL        = flag.Duration("token-ttl", 24*time.Hour, "Access token lifetime")
		redisHost       = flag.String("redis-host", os.Getenv("REDIS_HOST"), "Redis host (empty uses the in-process LRU cache)")
		redisPort       = flag.Int("redis-port", 6379, "Redis port")
		cacheTTL        = flag.Duration("cache-ttl", 5*time.Minute, "Rates cache TTL")
		scopeCacheTTL   = flag.Duration("scope-cache-ttl", 30*time.Second, "Scope set cache TTL")
		policyDefaults  = flag.String("policy-defaults", "", "YAML file with default expense policies (hot reloaded)")
		ratesURL        = flag.String("rates-url", rates.DefaultBaseURL, "Exchange rate API base URL")
		auditType       = flag.String("audit", "stdout", "Audit output (stdout, file, off)")
		auditPath       = flag.String("audit-file", "audit/audit.log", "Audit log path for file output")
		logLevel        = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat       = flag.String("log-format", "json", "Log format (json, console)")
		enableCORS      = flag.Bool("cors", true, "Enable CORS headers")
		showVersion     = flag.Bool("version", false, "Show version information")
		gracefulTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("expense-server %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	logger, err := initLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *jwtSecret == "" {
		logger.Fatal("JWT secret is required (flag -jwt-secret or env JWT_SECRET)")
	}

	logger.Info("Starting expense server",
		zap.String("version", Version),
		zap.Int("http_port", *httpPort),
	)

	// Persistence: Postgres when a DSN is given, in-memory otherwise.
	var st store.Store
	if *dsn != "" {
		conn, err := db.Open(db.DefaultConnConfig(*dsn))
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer conn.Close()

		if *migrateUp {
			runner, err := db.NewMigrationRunner(conn, logger)
			if err != nil {
				logger.Fatal("Failed to create migration runner", zap.Error(err))
			}
			if err := runner.Up(); err != nil {
				logger.Fatal("Migrations failed", zap.Error(err))
			}
		}

		pg, err := store.NewPostgres(conn)
		if err != nil {
			logger.Fatal("Failed to create store", zap.Error(err))
		}
		st = pg
		logger.Info("Using Postgres store")
	} else {
		st = store.NewMemory()
		logger.Warn("Using in-memory store; data is lost on shutdown")
	}

	// Shared byte cache for rate lookups.
	var byteCache cache.Cache
	if *redisHost != "" {
		redisCfg := cache.DefaultRedisConfig()
		redisCfg.Host = *redisHost
		redisCfg.Port = *redisPort
		redisCfg.TTL = *cacheTTL
		redisCache, err := cache.NewRedis(redisCfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		byteCache = redisCache
		logger.Info("Using Redis cache", zap.String("host", *redisHost))
	} else {
		byteCache = cache.NewLRU(10000, *cacheTTL)
	}

	// Default policies with hot reload.
	defaults := policy.NewDefaults(logger)
	var watcher *policy.FileWatcher
	if *policyDefaults != "" {
		if err := defaults.LoadFile(*policyDefaults); err != nil {
			logger.Fatal("Failed to load default policies", zap.Error(err))
		}
		watcher, err = policy.NewFileWatcher(*policyDefaults, defaults, logger)
		if err != nil {
			logger.Fatal("Failed to create policy watcher", zap.Error(err))
		}
		if err := watcher.Watch(context.Background()); err != nil {
			logger.Fatal("Failed to watch policy file", zap.Error(err))
		}
		defer watcher.Stop()
	}

	auditCfg := audit.DefaultConfig()
	auditCfg.Type = *auditType
	auditCfg.FilePath = *auditPath
	if *auditType == "off" {
		auditCfg.Enabled = false
		auditCfg.Type = "stdout"
	}
	auditLogger, err := audit.NewLogger(&auditCfg)
	if err != nil {
		logger.Fatal("Failed to create audit logger", zap.Error(err))
	}
	defer auditLogger.Close()

	promMetrics := metrics.NewPrometheus("expenseflow")

	tokens, err := auth.NewTokenService(auth.JWTConfig{
		Secret:   *jwtSecret,
		TokenTTL: *tokenTTL,
	})
	if err != nil {
		logger.Fatal("Failed to create token service", zap.Error(err))
	}
	authSvc, err := auth.NewService(st, tokens, defaults, logger)
	if err != nil {
		logger.Fatal("Failed to create auth service", zap.Error(err))
	}
	authMW, err := auth.NewMiddleware(tokens, st, logger)
	if err != nil {
		logger.Fatal("Failed to create auth middleware", zap.Error(err))
	}

	scopeCfg := scope.DefaultConfig()
	scopeCfg.CacheTTL = *scopeCacheTTL
	scopeCfg.Metrics = promMetrics
	scopes, err := scope.NewResolver(scopeCfg, st, logger)
	if err != nil {
		logger.Fatal("Failed to create scope resolver", zap.Error(err))
	}

	notifier, err := notify.NewService(st, st, logger)
	if err != nil {
		logger.Fatal("Failed to create notifier", zap.Error(err))
	}
	approvals, err := approval.NewService(st, scopes, notifier, logger)
	if err != nil {
		logger.Fatal("Failed to create approval service", zap.Error(err))
	}
	engine, err := policy.NewEngine(st, logger)
	if err != nil {
		logger.Fatal("Failed to create policy engine", zap.Error(err))
	}

	ratesClient := rates.NewClient(rates.Config{BaseURL: *ratesURL}, byteCache, logger)

	// Auth endpoint throttling: shared over Redis when available.
	var authLimiter ratelimit.Limiter
	if *redisHost != "" {
		authLimiter, err = ratelimit.NewRedis(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", *redisHost, *redisPort),
		}, ratelimit.DefaultConfig(), logger)
		if err != nil {
			logger.Fatal("Failed to create rate limiter", zap.Error(err))
		}
	} else {
		authLimiter = ratelimit.NewMemory(ratelimit.DefaultConfig())
	}
	defer authLimiter.Close()

	restCfg := rest.DefaultConfig()
	restCfg.Port = *httpPort
	restCfg.EnableCORS = *enableCORS
	restCfg.Version = Version

	srv, err := rest.New(restCfg, rest.Deps{
		Store:          st,
		Auth:           authSvc,
		AuthMiddleware: authMW,
		Scopes:         scopes,
		Approvals:      approvals,
		Policies:       engine,
		Notifier:       notifier,
		Rates:          ratesClient,
		Metrics:        promMetrics,
		Audit:          auditLogger,
		AuthLimiter:    authLimiter,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create REST server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), *gracefulTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

// initLogger initializes the zap logger
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	return config.Build()
}
