package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giftflow/giftflow/internal/auth"
	"github.com/giftflow/giftflow/internal/config"
	"github.com/giftflow/giftflow/internal/event"
	handler "github.com/giftflow/giftflow/internal/handler/http"
	"github.com/giftflow/giftflow/internal/mailer"
	mailmock "github.com/giftflow/giftflow/internal/mailer/mock"
	mailsmtp "github.com/giftflow/giftflow/internal/mailer/smtp"
	"github.com/giftflow/giftflow/internal/processor"
	procmock "github.com/giftflow/giftflow/internal/processor/mock"
	procstripe "github.com/giftflow/giftflow/internal/processor/stripe"
	"github.com/giftflow/giftflow/internal/repository/postgres"
	"github.com/giftflow/giftflow/internal/service"
	"github.com/giftflow/giftflow/internal/storage"
	memstorage "github.com/giftflow/giftflow/internal/storage/memory"
	s3storage "github.com/giftflow/giftflow/internal/storage/s3"
	"github.com/giftflow/giftflow/migrations"
	"github.com/giftflow/giftflow/pkg/database"
	"github.com/giftflow/giftflow/pkg/health"
	pkgkafka "github.com/giftflow/giftflow/pkg/kafka"
	"github.com/giftflow/giftflow/pkg/tracing"
)

// App wires together all dependencies and runs the giftflow service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "giftflow",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "giftflow")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Parse JWT expiry durations.
	accessExpiry, err := time.ParseDuration(cfg.JWTAccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT access expiry %q: %w", cfg.JWTAccessExpiry, err)
	}
	refreshExpiry, err := time.ParseDuration(cfg.JWTRefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT refresh expiry %q: %w", cfg.JWTRefreshExpiry, err)
	}

	proc, err := newProcessor(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	mail := newMailer(cfg, logger)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, accessExpiry, refreshExpiry)
	userRepo := postgres.NewUserRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	onboardingService := service.NewOnboardingService(userRepo, eventRepo, proc, store, mail, jwtManager, eventProducer, cfg, logger)
	kycService := service.NewKYCService(userRepo, proc, mail, eventProducer, logger)
	eventService := service.NewEventService(eventRepo, userRepo, store, eventProducer, cfg, logger)
	paymentService := service.NewPaymentService(eventRepo, paymentRepo, proc, store, eventProducer, cfg, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	// Events are published best-effort; an unreachable broker degrades the
	// instance but does not take it out of rotation.
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterDeps{
		Onboarding: onboardingService,
		KYC:        kycService,
		Events:     eventService,
		Payments:   paymentService,
		Processor:  proc,
		JWT:        jwtManager,
		Health:     healthHandler,
		Logger:     logger,
		CORS: handler.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newProcessor selects the payment processor backend and wraps it in a
// circuit breaker.
func newProcessor(cfg *config.Config, logger *slog.Logger) (processor.Processor, error) {
	var proc processor.Processor
	switch cfg.ProcessorName {
	case "stripe":
		proc = procstripe.New(cfg.StripeAPIKey, cfg.StripeWebhookSecret, logger)
	case "mock":
		proc = procmock.New()
	default:
		return nil, fmt.Errorf("unknown processor backend %q", cfg.ProcessorName)
	}
	logger.Info("payment processor initialized", slog.String("backend", cfg.ProcessorName))
	timeout := time.Duration(cfg.ProcessorTimeoutSecs) * time.Second
	return processor.WithBreaker(proc, uint32(cfg.ProcessorBreakerMaxReq), timeout, logger), nil
}

// newStorage selects the object storage backend.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "s3":
		store, err := s3storage.New(ctx, s3storage.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		logger.Info("s3 storage initialized", slog.String("bucket", cfg.S3Bucket))
		return store, nil
	case "memory":
		logger.Warn("using in-memory storage; uploads are lost on restart")
		return memstorage.New(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newMailer picks SMTP when a host is configured, otherwise the logging mock.
func newMailer(cfg *config.Config, logger *slog.Logger) mailer.Mailer {
	if cfg.SMTPHost == "" {
		logger.Warn("no SMTP host configured; emails are logged, not sent")
		return mailmock.New(logger)
	}
	return mailsmtp.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, logger)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer (2s budget).
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
