package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/ribotflow/backend/docs"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/ribotflow/backend/internal/infrastructure/logger"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			RibotFlow API
//	@version		1.0
//	@description	Multi-tenant CRM, quoting, invoicing and expense API

//	@contact.name	RibotFlow

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Log level changes in config.toml apply without a restart
	var current atomic.Pointer[logger.Logger]
	cfg, err := config.LoadAndWatch(func(next *config.Config) {
		if l := current.Load(); l != nil {
			l.SetLevel(next.Log.Level)
			l.Info("Log level reloaded", zap.String("level", next.Log.Level))
		}
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	// Traces and logs leave the process over OTLP when telemetry is enabled
	logs, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog.Logger)
	if err != nil {
		return err
	}
	log := bootLog
	if logs.IsEnabled() {
		if log, err = newLogger(cfg, logs.Core(logger.ParseLevel(cfg.Log.Level))); err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
	}
	current.Store(log)
	defer func() { _ = log.Sync() }()

	log.Info("Starting RibotFlow",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := newApp(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer app.close(log.Logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := logs.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log exporter", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        app.engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if app.scheduler != nil {
		g.Go(func() error {
			return app.scheduler.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		// Websocket clients hold hijacked connections that Shutdown does not wait for
		app.hub.Close()
		if app.scheduler != nil {
			if err := app.scheduler.Stop(shutdownCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	log.Info("Server exited")
	return nil
}

func newLogger(cfg *config.Config, extra ...zapcore.Core) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, extra...)
}
