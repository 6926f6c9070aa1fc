package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/kirillkom/document-requests/internal/adapters/http"
	"github.com/kirillkom/document-requests/internal/bootstrap"
	"github.com/kirillkom/document-requests/internal/config"
	"github.com/kirillkom/document-requests/internal/infrastructure/resilience"
	"github.com/kirillkom/document-requests/internal/observability/logging"
	"github.com/kirillkom/document-requests/internal/observability/metrics"
)

const serviceName = "document-requests-api"

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:  serviceName,
		Observer: httpMetrics,
		ResilienceHooks: resilience.Hooks{
			OnRetry:       httpMetrics.RecordNotifyRetry,
			OnStateChange: httpMetrics.RecordBreakerStateChange,
		},
	})
	if err != nil {
		return err
	}
	defer app.Close()

	identity, err := app.RequireIdentity()
	if err != nil {
		return err
	}
	router, err := httpadapter.NewRouter(cfg, httpadapter.Services{
		Catalog:   app.Catalog,
		Lifecycle: app.Lifecycle,
		Clearance: app.Clearance,
		Identity:  identity,
	}, httpMetrics)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api listening", "addr", server.Addr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("api shutdown error", "error", err)
		}
		return nil
	})
	return g.Wait()
}
