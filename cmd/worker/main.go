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

	"github.com/kirillkom/document-requests/internal/bootstrap"
	"github.com/kirillkom/document-requests/internal/config"
	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/observability/logging"
	"github.com/kirillkom/document-requests/internal/observability/metrics"
)

const (
	serviceName   = "document-requests-worker"
	handleTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", "error", err)
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

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName})
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Notifications == nil {
		return errors.New("NATS_URL is required to run the worker")
	}

	repaired, err := app.Clearance.ReconcileClearance(ctx)
	if err != nil {
		return err
	}
	workerMetrics.AddReconciled(repaired)
	slog.Info("clearance reconciliation finished", "repaired", repaired)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("worker subscribed", "subject", cfg.NATSSubject)
		return app.Notifications.SubscribeNotifications(gctx, func(handlerCtx context.Context, n domain.Notification) error {
			workerMetrics.StartNotification()
			started := time.Now()
			if !n.CreatedAt.IsZero() {
				workerMetrics.ObserveDeliveryLag(started.Sub(n.CreatedAt))
			}

			recordCtx, cancel := context.WithTimeout(handlerCtx, handleTimeout)
			defer cancel()
			err := app.Inbox.Record(recordCtx, n)
			workerMetrics.FinishNotification(string(n.Kind), time.Since(started), err)
			return err
		})
	})
	return g.Wait()
}
