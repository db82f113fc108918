// Command server serves the sales ledger over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/backup"
	"github.com/ledger/backend/internal/infrastructure/cache"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/currency"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/migration"
	"github.com/ledger/backend/internal/infrastructure/persistence"
	"github.com/ledger/backend/internal/infrastructure/scheduler"
	"github.com/ledger/backend/internal/infrastructure/settings"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/ledger/backend/internal/interfaces/http/handler"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"github.com/ledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	ctx := context.Background()

	// Telemetry: every provider is inert when telemetry is disabled
	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp := &telemetry.LoggerProvider{}
	if cfg.Telemetry.LogsEnabled {
		if lp, err = telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log); err != nil {
			log.Fatal("Failed to initialize log export", zap.Error(err))
		}
		log = lp.Bridge(log, zapcore.InfoLevel)
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	log.Info("Starting ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.HTTP.Port),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	var dbMetrics *telemetry.MeterProvider
	if mp.IsEnabled() {
		dbMetrics = mp
	}
	dbPlugin, err := telemetry.NewDBPlugin(telemetry.DBConfig{
		Tracing:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Database.SlowThreshold,
	}, dbMetrics, log)
	if err == nil {
		err = dbPlugin.Register(db.DB)
	}
	if err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	if cfg.Database.AutoMigrate || cfg.Database.IsInMemory() {
		if err := migrate(db, log); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Ledger runtime: futures resolve on the owner, store calls run on the pool
	owner := async.NewOwner(logger.Component(log, "owner"))
	pool, err := async.NewPool(cfg.Async.PoolSize, log)
	if err != nil {
		log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	l := ledger.New(ledger.Stores{
		Products:      persistence.NewGormProductStore(db.DB),
		Customers:     persistence.NewGormCustomerStore(db.DB),
		Queues:        persistence.NewGormQueueStore(db.DB),
		ProductOrders: persistence.NewGormProductOrderStore(db.DB),
		Tx:            db,
	}, ledger.Runtime{Owner: owner, Pool: pool, Logger: logger.Component(log, "ledger")})

	ledgerMetrics, err := telemetry.NewLedgerMetrics(mp.Meter("ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	detachMetrics := l.ObserveMetrics(ledgerMetrics)

	clock := shared.NewSystemClock(cfg.App.Location())

	// User settings
	settingsStore, err := settings.Open(cfg.Settings.Path, language.Make(cfg.App.Locale), log)
	if err != nil {
		log.Fatal("Failed to open settings", zap.Error(err))
	}

	// Backups run on the scheduler and can be triggered over the API
	sched := scheduler.New(scheduler.Config{
		Location:   clock.Location(),
		JobTimeout: 10 * time.Minute,
		Retries:    2,
		RetryDelay: time.Minute,
	}, log)
	var backups *backup.Service
	if cfg.Backup.Enabled && !cfg.Database.IsInMemory() {
		backups = backup.NewService(db, settingsStore, backup.Config{
			Dir:           cfg.Backup.Dir,
			RetentionDays: cfg.Backup.RetentionDays,
		}, clock, log)
		if err := sched.Register(cfg.Backup.Schedule, backups); err != nil {
			log.Fatal("Failed to schedule backups", zap.Error(err))
		}
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Idempotency keys for create requests
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Cache,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()

	// Middleware order matters:
	// 1. RequestID before the logger so request logs carry it
	// 2. Tracing and span enrichment
	// 3. Logger and recovery
	// 4. Metrics and profiling labels
	// 5. Security headers, CORS and body limit
	engine.Use(middleware.RequestID())
	if tp.IsEnabled() {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanEnricher())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.HTTPMetrics(mp, log))
	engine.Use(middleware.Profiling(profiler.IsEnabled()))
	engine.Use(middleware.Secure())
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	formatter := currency.NewFormatter(log)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	var jobs handler.JobTrigger
	var lister handler.BackupLister
	if backups != nil {
		jobs, lister = sched, backups
	}
	handlers := router.Handlers{
		Products:  handler.NewProductHandler(l.Products, settingsStore),
		Customers: handler.NewCustomerHandler(l.Customers, l.Queues, settingsStore),
		Queues:    handler.NewQueueHandler(l, clock, settingsStore),
		Dashboard: handler.NewDashboardHandler(l, clock, formatter, settingsStore),
		Settings:  handler.NewSettingsHandler(settingsStore, lister, jobs),
		System:    systemHandler,
	}
	idempotency := middleware.Idempotency(idempotencyStore, cfg.Cache.IdempotencyTTL, log)
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.LedgerGroups(handlers, idempotency)...).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sched.Stop(ctx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}
	detachMetrics()
	// Pending writes finish on the pool before the owner drains their
	// completions
	if err := pool.ReleaseTimeout(10 * time.Second); err != nil {
		log.Error("Worker pool did not drain", zap.Error(err))
	}
	if err := owner.Close(ctx); err != nil {
		log.Error("Owner did not drain", zap.Error(err))
	}
	if err := idempotencyStore.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if err := settingsStore.Close(); err != nil {
		log.Error("Error closing settings", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	shutdownTelemetry(ctx, log, tp, mp, lp, profiler)

	log.Info("Server exited gracefully")
}

func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func shutdownTelemetry(ctx context.Context, log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider, profiler *telemetry.Profiler) {
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Warn("Meter shutdown failed", zap.Error(err))
	}
	if err := lp.Shutdown(ctx); err != nil {
		log.Warn("Log exporter shutdown failed", zap.Error(err))
	}
}
