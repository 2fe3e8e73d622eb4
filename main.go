package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/audit"
	"github.com/bestcars/dealership-engine/pkg/auth"
	"github.com/bestcars/dealership-engine/pkg/cache"
	"github.com/bestcars/dealership-engine/pkg/config"
	"github.com/bestcars/dealership-engine/pkg/database"
	"github.com/bestcars/dealership-engine/pkg/handlers"
	"github.com/bestcars/dealership-engine/pkg/logging"
	"github.com/bestcars/dealership-engine/pkg/middleware"
	"github.com/bestcars/dealership-engine/pkg/repositories"
	"github.com/bestcars/dealership-engine/pkg/retry"
	"github.com/bestcars/dealership-engine/pkg/services"
	"github.com/bestcars/dealership-engine/pkg/upstream"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("backend_url", logging.SanitizeURL(cfg.Upstream.BackendURL)),
		zap.String("sentiment_analyzer_url", logging.SanitizeURL(cfg.Upstream.SentimentAnalyzerURL)),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connString := cfg.Database.ConnectionString()

	// The database may still be starting when the server comes up.
	db, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            connString,
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migrate(connString, logger); err != nil {
		return err
	}

	seeds, err := services.LoadCatalogFixture()
	if err != nil {
		return err
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)

	// Upstream services
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Upstream.MaxRetries
	upstreamClient := upstream.NewClient(upstream.Config{
		BackendURL:           cfg.Upstream.BackendURL,
		SentimentAnalyzerURL: cfg.Upstream.SentimentAnalyzerURL,
		Timeout:              cfg.Upstream.Timeout,
		Retry:                retryCfg,
		BreakerThreshold:     cfg.Upstream.BreakerThreshold,
		BreakerCooldown:      cfg.Upstream.BreakerCooldown,
	}, logger)

	var sentiment services.SentimentAnalyzer = upstreamClient
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	switch {
	case err != nil:
		logger.Warn("Sentiment cache disabled", zap.Error(err))
	case redisClient != nil:
		defer func() { _ = redisClient.Close() }()
		sentiment = services.NewCachingSentimentAnalyzer(upstreamClient,
			cache.NewSentimentCache(redisClient, cfg.Redis.SentimentTTL), logger)
		logger.Info("Sentiment cache enabled", zap.Duration("ttl", cfg.Redis.SentimentTTL))
	}

	// Services
	accountService := services.NewAccountService(userRepo, auth.DefaultPasswordCost, logger)
	catalogService := services.NewCatalogService(catalogRepo, seeds, logger)
	dealerService := services.NewDealerService(upstreamClient, sentiment, cfg.Upstream.SentimentConcurrency, logger)

	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.MaxAge, cfg.Session.Secure)
	auditor := audit.NewSecurityAuditor(logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewAccountHandler(accountService, sessions, auditor, logger.Named("accounts")).RegisterRoutes(mux)
	handlers.NewCarsHandler(catalogService, logger.Named("cars")).RegisterRoutes(mux)
	handlers.NewDealersHandler(dealerService, auditor, logger.Named("dealers")).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Middleware, innermost first.
	var handler http.Handler = mux
	handler = middleware.RateLimit(middleware.RateLimitConfig{
		Requests: cfg.RateLimit.AuthRequests,
		Window:   cfg.RateLimit.AuthWindow,
		Disabled: cfg.RateLimit.Disabled,
		Paths:    []string{"/djangoapp/login", "/djangoapp/register"},
	}, logger.Named("ratelimit"))(handler)
	handler = auth.NewMiddleware(sessions, logger).LoadUser(handler)
	handler = middleware.Metrics(mux)(handler)
	handler = chimiddleware.Recoverer(handler)
	handler = middleware.RequestLogger(logger.Named("http"))(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = chimiddleware.StripSlashes(handler)
	handler = chimiddleware.RealIP(handler)
	handler = chimiddleware.RequestID(handler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting dealership-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func migrate(connString string, logger *zap.Logger) error {
	sqlDB, err := database.OpenSQL(connString)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
