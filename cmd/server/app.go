package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	identityapp "github.com/ribotflow/backend/internal/application/identity"
	"github.com/ribotflow/backend/internal/application/listing"
	partnerapp "github.com/ribotflow/backend/internal/application/partner"
	purchasingapp "github.com/ribotflow/backend/internal/application/purchasing"
	salesapp "github.com/ribotflow/backend/internal/application/sales"
	transcriptionapp "github.com/ribotflow/backend/internal/application/transcription"
	"github.com/ribotflow/backend/internal/infrastructure/ai"
	"github.com/ribotflow/backend/internal/infrastructure/auth"
	"github.com/ribotflow/backend/internal/infrastructure/cache"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/ribotflow/backend/internal/infrastructure/event"
	"github.com/ribotflow/backend/internal/infrastructure/mail"
	"github.com/ribotflow/backend/internal/infrastructure/persistence"
	"github.com/ribotflow/backend/internal/infrastructure/printing"
	"github.com/ribotflow/backend/internal/infrastructure/realtime"
	"github.com/ribotflow/backend/internal/infrastructure/scheduler"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"github.com/ribotflow/backend/internal/interfaces/http/handler"
	"github.com/ribotflow/backend/internal/interfaces/http/middleware"
	"github.com/ribotflow/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// app owns everything the server process opens
type app struct {
	engine    *gin.Engine
	hub       *realtime.Hub
	scheduler *scheduler.Scheduler
	closers   []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// close releases resources in reverse order of acquisition
func (a *app) close(log *zap.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			log.Error("Error closing "+c.name, zap.Error(err))
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close(log)
		}
	}()

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}
	a.onClose("tracer", func() error { return shutdown(tracer.Shutdown) })

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}
	a.onClose("profiler", profiler.Stop)
	if profiler.IsEnabled() {
		tracer.EnableSpanProfiles()
	}

	metrics := telemetry.NewMetrics()

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.onClose("database", db.Close)
	if sqlDB, err := db.DB.DB(); err == nil {
		if err := metrics.RegisterDBStats(sqlDB, cfg.Database.DBName); err != nil {
			log.Warn("Failed to export connection pool stats", zap.Error(err))
		}
	}
	log.Info("Database connected")

	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}

	// Redis backs revocations, idempotency and list caching; without it every
	// store falls back to process memory
	var (
		revocations auth.Revocations
		idempotency cache.IdempotencyStore
		listCache   cache.ListCache
	)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.onClose("redis", client.Close)
		revocations = auth.NewRedisRevocations(client)
		idempotency = cache.NewRedisIdempotencyStore(client)
		listCache = cache.NewRedisListCache(client, cfg.Redis.ListTTL)
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: pinger(client)})
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		revocations = auth.NewMemoryRevocations()
		memIdempotency := cache.NewMemoryIdempotencyStore(time.Minute)
		a.onClose("idempotency store", memIdempotency.Close)
		idempotency = memIdempotency
		listCache = cache.NewMemoryListCache(cfg.Redis.ListTTL)
		log.Warn("Redis disabled, using in-process stores")
	}
	lists := listing.NewLists(listCache, metrics, log)

	store, err := newObjectStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSender(cfg.Mail, log)
	if err != nil {
		return nil, err
	}

	printer := printing.NewDocumentPrinter(
		printing.NewChromedpRenderer(cfg.Printing, log),
		printing.ParsePaperSize(cfg.Printing.PaperSize),
		log,
	)
	a.onClose("printer", printer.Close)

	generator, err := ai.NewGenAIGenerator(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		log.Warn("AI disabled; extraction and transcription are unavailable")
	case err != nil:
		return nil, err
	}
	var ocr ai.TextRecognizer
	if cfg.AI.OCREnabled {
		if ocr, err = ai.NewTextRecognizer(cfg.AI.OCRLanguages); err != nil {
			log.Warn("OCR unavailable, extracting without it", zap.Error(err))
			ocr = nil
		}
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Observe(metrics.ObserveEvent)
	if err := bus.Start(ctx); err != nil {
		return nil, err
	}
	a.onClose("event bus", func() error { return shutdown(bus.Stop) })

	a.hub = realtime.NewHub(cfg.Realtime, log)
	a.hub.OnConnectionChange(metrics.AddRealtimeConnections)
	if cfg.Realtime.Enabled {
		bus.Subscribe(a.hub)
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	taxRepo := persistence.NewGormTaxRateRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	numbers := persistence.NewGormNumberSequence(db.DB)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)
	audioRepo := persistence.NewGormAudioJobRepository(db.DB)

	// Services
	jwtService := auth.NewJWTService(cfg.JWT)
	authConfig := identityapp.DefaultAuthServiceConfig()
	if cfg.JWT.MaxLoginAttempts > 0 {
		authConfig.MaxLoginAttempts = cfg.JWT.MaxLoginAttempts
	}
	if cfg.JWT.LockDuration > 0 {
		authConfig.LockDuration = cfg.JWT.LockDuration
	}
	authConfig.RefreshTTL = cfg.JWT.RefreshTokenExpiration
	authService := identityapp.NewAuthService(userRepo, tenantRepo, jwtService, revocations, authConfig, log)
	taxRateService := salesapp.NewTaxRateService(taxRepo, bus, lists, log)
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, log, taxRateService)
	userService := identityapp.NewUserService(userRepo, log)

	contactService := partnerapp.NewContactService(contactRepo, supplierRepo, quoteRepo, invoiceRepo, bus, lists)
	supplierService := partnerapp.NewSupplierService(supplierRepo, contactRepo, expenseRepo, bus, lists)

	delivery := salesapp.NewDocumentDelivery(printer, mailer, store, tenantRepo, contactRepo, metrics, log)
	quoteService := salesapp.NewQuoteService(quoteRepo, invoiceRepo, contactRepo, taxRepo, numbers, delivery, bus, lists, log)
	invoiceService := salesapp.NewInvoiceService(invoiceRepo, contactRepo, taxRepo, numbers, delivery, bus, lists, log)
	totalsService := salesapp.NewTotalsService(taxRepo)

	expenseService := purchasingapp.NewExpenseService(expenseRepo, supplierRepo, store, purchasingapp.FileLimits{
		MaxUploadBytes: cfg.HTTP.MaxUploadSize,
		URLExpiration:  cfg.Storage.PresignExpiration,
	}, bus, lists, log)
	extractionService := purchasingapp.NewExtractionService(
		ai.NewDocumentExtractor(generator, cfg.AI, ocr, log),
		supplierRepo, cfg.HTTP.MaxUploadSize, metrics, log,
	)

	audioService := transcriptionapp.NewAudioService(audioRepo, contactRepo, store, transcriptionapp.Limits{
		MaxAudioBytes: cfg.AI.MaxAudioBytes,
		URLExpiration: cfg.Storage.PresignExpiration,
	}, bus, lists, log)
	worker := transcriptionapp.NewWorker(
		audioRepo, store, ai.NewAudioTranscriber(generator, cfg.AI, log),
		cfg.AI.MaxAudioBytes, cfg.Scheduler.AudioBatchSize, metrics, bus, lists, log,
	)

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(cfg.Scheduler.JobTimeout, log)
		a.scheduler.Observe(metrics.ObserveJob)
		jobs := scheduler.Jobs{Quotes: quoteService, Invoices: invoiceService}
		if generator != nil {
			jobs.Audio = worker
		}
		if err := scheduler.RegisterJobs(a.scheduler, cfg.Scheduler, jobs); err != nil {
			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Tenant:   handler.NewTenantHandler(tenantService),
		User:     handler.NewUserHandler(userService),
		Contact:  handler.NewContactHandler(contactService),
		Supplier: handler.NewSupplierHandler(supplierService),
		Quote:    handler.NewQuoteHandler(quoteService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		TaxRate:  handler.NewTaxRateHandler(taxRateService, totalsService),
		Expense:  handler.NewExpenseHandler(expenseService, extractionService),
		Audio:    handler.NewAudioHandler(audioService),
		System:   handler.NewSystemHandler(cfg.App.Name, version, checks...),
	}
	if cfg.Realtime.Enabled {
		handlers.Realtime = handler.NewRealtimeHandler(a.hub)
	}

	opts := router.Options{
		Logger:        log,
		Metrics:       metrics,
		Authenticator: authService,
		Idempotency:   idempotency,
		CORS:          corsConfig(cfg.HTTP),
		Security:      middleware.DefaultSecurityConfig(),
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracer.IsEnabled(),
			SkipPaths:   probePaths,
		},
		Profiling: middleware.ProfilingConfig{
			Enabled:   profiler.IsEnabled(),
			SkipPaths: probePaths,
		},
		Swagger: middleware.SwaggerConfig{
			Enabled:    cfg.HTTP.SwaggerEnabled,
			AllowedIPs: cfg.HTTP.SwaggerAllowIPs,
		},
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		MaxUploadSize:  cfg.HTTP.MaxUploadSize,
	}
	opts.Security.HSTSEnabled = cfg.App.IsProduction()
	if cfg.RateLimit.Enabled {
		opts.APILimiter = middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSec), cfg.RateLimit.Burst, cfg.RateLimit.CleanupAfter)
		opts.AuthLimiter = middleware.NewPerMinuteLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.CleanupAfter)
		a.onClose("api rate limiter", opts.APILimiter.Close)
		a.onClose("auth rate limiter", opts.AuthLimiter.Close)
	}

	if a.engine, err = router.NewEngine(handlers, opts); err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return a, nil
}

var probePaths = []string{"/health", "/ready", "/metrics"}

func newObjectStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (storage.ObjectStore, error) {
	if cfg.Driver == "memory" {
		log.Warn("Using in-memory object storage; files are lost on restart")
		return storage.NewMemoryStore(""), nil
	}
	s3, err := storage.NewS3Store(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	if err := s3.EnsureBuckets(ctx); err != nil {
		return nil, fmt.Errorf("prepare buckets: %w", err)
	}
	return s3, nil
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

func pinger(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func shutdown(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx)
}
