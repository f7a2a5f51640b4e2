package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	billingapp "github.com/fablab/backend/internal/application/billing"
	memberapp "github.com/fablab/backend/internal/application/member"
	printingapp "github.com/fablab/backend/internal/application/printing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/auth"
	infrabilling "github.com/fablab/backend/internal/infrastructure/billing"
	"github.com/fablab/backend/internal/infrastructure/cache"
	"github.com/fablab/backend/internal/infrastructure/config"
	"github.com/fablab/backend/internal/infrastructure/event"
	"github.com/fablab/backend/internal/infrastructure/logger"
	"github.com/fablab/backend/internal/infrastructure/persistence"
	"github.com/fablab/backend/internal/infrastructure/printing"
	"github.com/fablab/backend/internal/infrastructure/telemetry"
	"github.com/fablab/backend/internal/interfaces/http/handler"
	"github.com/fablab/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Fab-Lab backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version))

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if logsProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, logsProvider, zapcore.InfoLevel)
		log = telemetry.BridgeLogger(log, otelCore)
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Webhook dedupe lives in Redis so restarts and replicas share it;
	// without Redis an in-process store still guards a single instance.
	var processedEvents shared.IdempotencyStore
	if cfg.Redis.Host != "" {
		store, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		processedEvents = store
	} else {
		log.Warn("Redis not configured, webhook deduplication is process-local")
		processedEvents = cache.NewInMemoryIdempotencyStore()
	}

	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	if meterProvider.IsEnabled() {
		billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("fablab.billing"), log)
		if err != nil {
			log.Fatal("Failed to create billing metrics", zap.Error(err))
		}
		eventBus.Subscribe(billingMetrics)
	}

	profileRepo := persistence.NewGormProfileRepository(db)
	planRepo := persistence.NewGormPlanRepository(db)
	couponRepo := persistence.NewGormCouponRepository(db)
	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	scheduleRepo := persistence.NewGormPaymentScheduleRepository(db)

	gateway, err := infrabilling.NewStripeAdapter(&infrabilling.StripeConfig{
		SecretKey:      cfg.Stripe.SecretKey,
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		Currency:       cfg.Stripe.Currency,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	tokens := auth.NewTokenService(cfg.JWT)

	renderer := newRenderer(cfg, log)
	defer func() {
		_ = renderer.Close()
	}()
	pdfStorage, err := newPDFStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize document archive", zap.Error(err))
	}
	documents := printing.NewDocumentService(renderer, pdfStorage, log)

	invoiceSvc := billingapp.NewInvoiceService(invoiceRepo, eventBus, log)
	scheduleSvc := billingapp.NewScheduleService(billingapp.ScheduleServiceConfig{
		ScheduleRepo: scheduleRepo,
		PlanRepo:     planRepo,
		CouponRepo:   couponRepo,
		ProfileRepo:  profileRepo,
		Gateway:      gateway,
		EventBus:     eventBus,
		Logger:       log,
	})
	paymentSvc := billingapp.NewPaymentService(billingapp.PaymentServiceConfig{
		ScheduleRepo: scheduleRepo,
		InvoiceRepo:  invoiceRepo,
		Gateway:      gateway,
		EventBus:     eventBus,
		Logger:       log,
	})
	webhookSvc := billingapp.NewStripeWebhookService(cfg.Stripe.WebhookSecret, paymentSvc, processedEvents, log)
	authSvc := memberapp.NewAuthService(profileRepo, tokens, log)
	documentSvc := printingapp.NewDocumentService(printingapp.DocumentServiceConfig{
		InvoiceRepo:  invoiceRepo,
		ScheduleRepo: scheduleRepo,
		PlanRepo:     planRepo,
		ProfileRepo:  profileRepo,
		Documents:    documents,
		Logger:       log,
	})

	if cfg.Printing.Enabled {
		archiver := printingapp.NewInvoiceArchiver(documentSvc, log)
		eventBus.Subscribe(event.NewIdempotentHandler(archiver, processedEvents, log))
	}

	engine := router.Setup(cfg, tokens, router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc, log),
		Invoice:  handler.NewInvoiceHandler(invoiceSvc, documentSvc, log),
		Schedule: handler.NewScheduleHandler(scheduleSvc, paymentSvc, documentSvc, log),
		Webhook:  handler.NewWebhookHandler(webhookSvc, log),
		System:   handler.NewSystemHandler(db, version, log),
	}, log)

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler shutdown failed", zap.Error(err))
	}
	if err := processedEvents.Close(); err != nil {
		log.Error("Idempotency store shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Shutdown complete")
}

// openDatabase connects to Postgres with the configured pool limits and,
// when enabled, query tracing.
func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := persistence.NewDatabaseWithOptions(&cfg.Database, persistence.Options{
		Logger:  logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
		Tracing: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
	})
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}

// newRenderer picks the PDF renderer: headless Chrome when printing is
// enabled, a renderer that refuses otherwise.
func newRenderer(cfg *config.Config, log *zap.Logger) printing.PDFRenderer {
	if !cfg.Printing.Enabled {
		log.Info("PDF rendering disabled")
		return printing.DisabledRenderer{}
	}

	renderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Printing.RenderTimeout,
		NoSandbox:      true,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	return renderer
}

// newPDFStorage selects the archive backend from configuration
func newPDFStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (printing.PDFStorage, error) {
	if cfg.Storage.Driver == "s3" {
		store, err := printing.NewS3Storage(&cfg.Storage, log)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return printing.NewFileSystemStorage(cfg.Storage.ArchiveDir, log)
}
