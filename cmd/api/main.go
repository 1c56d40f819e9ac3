package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/upi-guard/internal/checks"
	"github.com/richxcame/upi-guard/internal/feed"
	"github.com/richxcame/upi-guard/internal/fraud"
	"github.com/richxcame/upi-guard/internal/reports"
	"github.com/richxcame/upi-guard/internal/transactions"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/database"
	"github.com/richxcame/upi-guard/pkg/eventbus"
	"github.com/richxcame/upi-guard/pkg/health"
	"github.com/richxcame/upi-guard/pkg/logger"
	"github.com/richxcame/upi-guard/pkg/ratelimit"
	redisClient "github.com/richxcame/upi-guard/pkg/redis"
	"github.com/richxcame/upi-guard/pkg/secrets"
	"github.com/richxcame/upi-guard/pkg/storage"
	"github.com/richxcame/upi-guard/pkg/tracing"
	ws "github.com/richxcame/upi-guard/pkg/websocket"
	"go.uber.org/zap"
)

const serviceName = "upi-guard-api"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := resolveSecrets(ctx, cfg); err != nil {
		logger.Fatal("Failed to resolve secrets", zap.Error(err))
	}

	sentryEnabled := initSentry(cfg)
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.Server.Version)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(&cfg.Database); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	sqlDB, err := database.NewSQLDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open sql connection", zap.Error(err))
	}
	defer sqlDB.Close()

	rc, err := redisClient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rc.Close()

	var (
		bus       *eventbus.Bus
		publisher eventbus.Publisher
	)
	if cfg.NATS.Enabled {
		bus, err = eventbus.Connect(ctx, cfg.NATS, serviceName)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()
		publisher = bus
	}

	registry, err := fraud.LoadRegistry(ctx, cfg.Registry.Source, bucketOpener(cfg.Storage))
	if err != nil {
		logger.Fatal("Failed to load fraud registry", zap.Error(err), zap.String("source", cfg.Registry.Source))
	}
	logger.Info("Fraud registry loaded",
		zap.String("source", cfg.Registry.Source),
		zap.Int("issuers", len(registry.Issuers())),
		zap.Int("patterns", len(registry.Patterns())),
		zap.Int("keywords", len(registry.Keywords())),
	)

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	dbPolicy := database.NewPolicy("postgres", cfg.Resilience)

	txService := transactions.NewService(transactions.NewRepository(pool), dbPolicy)
	reportService := reports.NewService(reports.NewRepository(pool), dbPolicy, publisher)

	checkService := checks.NewService(checks.NewRepository(pool), fraud.NewClassifier(registry), dbPolicy)
	checkService.SetCache(checks.NewCache(rc, cfg.Cache, redisClient.NewPolicy(cfg.Resilience)))
	checkService.SetDetailSources(txService, reportService)

	readiness := readinessChecks(health.PingFunc(pool.Ping), sqlDB, rc.Client)

	if bus != nil {
		checkService.SetEventPublisher(publisher)
		if err := feed.NewService(hub).Start(ctx, bus); err != nil {
			logger.Fatal("Failed to start live feed", zap.Error(err))
		}
		readiness["nats"] = health.StatusChecker(bus)
	} else {
		logger.Warn("NATS disabled, live feed will not receive events")
	}

	router := setupRouter(routerDeps{
		cfg:           cfg,
		sentry:        sentryEnabled,
		checks:        checks.NewHandler(checkService),
		reports:       reports.NewHandler(reportService),
		transactions:  transactions.NewHandler(txService),
		feed:          feed.NewHandler(hub, cfg.Server.AllowedOrigins()),
		limiter:       ratelimit.NewLimiter(rc.Client, cfg.RateLimit),
		readinessDeps: readiness,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting API server",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// resolveSecrets replaces the database password and JWT secret with values
// from the configured secret backend, when references are set.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	if cfg.Secrets.Provider == "" {
		return nil
	}

	mgr, err := secrets.NewManager(ctx, secrets.ConfigFromEnv(cfg.Secrets))
	if err != nil {
		return err
	}
	defer mgr.Close()

	cfg.Database.Password, err = secrets.Resolve(ctx, mgr, "database", secrets.SecretDatabase, cfg.Secrets.DatabasePassRef, cfg.Database.Password)
	if err != nil {
		return fmt.Errorf("database password: %w", err)
	}
	cfg.JWT.Secret, err = secrets.Resolve(ctx, mgr, "jwt", secrets.SecretJWT, cfg.Secrets.JWTSecretRef, cfg.JWT.Secret)
	if err != nil {
		return fmt.Errorf("jwt secret: %w", err)
	}
	return nil
}

// initSentry reports whether error reporting is enabled
func initSentry(cfg *config.Config) bool {
	if cfg.Sentry.DSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Server.Environment,
		Release:          serviceName + "@" + cfg.Server.Version,
		EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	})
	if err != nil {
		logger.Warn("Sentry initialization failed, continuing without it", zap.Error(err))
		return false
	}
	return true
}

// bucketOpener adapts the S3 opener to the registry loader
func bucketOpener(cfg config.StorageConfig) fraud.BucketOpener {
	open := storage.Opener(cfg)
	return func(ctx context.Context, bucket string) (fraud.ObjectReader, error) {
		store, err := open(ctx, bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
