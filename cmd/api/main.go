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

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"nashcrm_backend/internal/auth"
	"nashcrm_backend/internal/clients"
	"nashcrm_backend/internal/email"
	"nashcrm_backend/internal/events"
	apphttp "nashcrm_backend/internal/http"
	"nashcrm_backend/internal/http/router"
	"nashcrm_backend/internal/leads"
	"nashcrm_backend/internal/mailimport"
	"nashcrm_backend/internal/notification"
	"nashcrm_backend/internal/pipeline"
	"nashcrm_backend/internal/reports"
	"nashcrm_backend/internal/scheduler"
	"nashcrm_backend/internal/storage"
	"nashcrm_backend/internal/whatsapp"
	"nashcrm_backend/platform/cache"
	"nashcrm_backend/platform/config"
	"nashcrm_backend/platform/db"
	"nashcrm_backend/platform/logger"
	"nashcrm_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	store, err := cache.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize report cache", "error", err)
		panic("failed to initialize report cache: " + err.Error())
	}
	defer store.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	sender := email.NewSender(cfg)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	whatsappClient := whatsapp.NewClient(cfg, log)
	notificationModule := notification.NewModule(sender, whatsappClient, log)
	notificationModule.RegisterHandlers(eventBus)

	authModule := auth.NewModule(pool, cfg, val, log)
	notificationModule.SetManagerDirectory(authModule.Service())

	leadsModule := leads.NewModule(pool, eventBus, val, log)
	clientsModule := clients.NewModule(pool, eventBus, val, log)
	leadsModule.Service().SetClientDirectory(clientsModule.Service())

	if cfg.IsMinIOEnabled() {
		objectStore, err := storage.NewMinIOStore(cfg)
		if err != nil {
			log.Error("failed to initialize object storage", "error", err)
			panic("failed to initialize object storage: " + err.Error())
		}
		bucket := cfg.GetMinioBucketLeadFiles()
		if err := withRetry(ctx, log, "ensure lead files bucket", 5, 2*time.Second, func() error {
			return objectStore.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		leadsModule.Service().SetFileStore(objectStore, bucket)
		log.Info("object storage initialized", "bucket", bucket)
	} else {
		log.Warn("MinIO not configured; lead attachments disabled")
	}

	reportsModule := reports.NewModule(pool, store, log)

	pipelineModule := pipeline.NewModule(leadsModule.Service(), clientsModule.Service(), store, log)
	pipelineModule.RegisterHandlers(eventBus)

	var schedulerClient *scheduler.Client
	if c, err := scheduler.NewClient(cfg); err != nil {
		log.Warn("job queue disabled", "error", err)
	} else {
		schedulerClient = c
		defer schedulerClient.Close()
	}
	schedulerModule := scheduler.NewModule(schedulerClient, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			clientsModule,
			reportsModule,
			notificationModule,
			schedulerModule,
		},
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.New(app),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		importer := mailimport.New(cfg, mailimport.NewSettingsRepository(pool), leadsModule.Service(), log)
		err := importer.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
