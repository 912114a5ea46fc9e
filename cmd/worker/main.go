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

	"github.com/joho/godotenv"

	"github.com/kirillkom/document-classifier/internal/bootstrap"
	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/observability/logging"
)

const serviceName = "worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer worker.Close()

	var metricsServer *http.Server
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", worker.Metrics.Handler())
		metricsServer = &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("worker_metrics_server_error", "error", err)
			}
		}()
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = worker.Subscriber.SubscribeClassified(ctx, func(handlerCtx context.Context, event domain.ClassificationEvent) error {
		recordCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		done := worker.Metrics.TrackEvent(event, time.Now())
		err := worker.Recorder.Record(recordCtx, event)
		done(err)
		if err == nil {
			logger.Info("classification_recorded", "event_id", event.ID, "status", event.Status, "document_type", event.DocumentType)
		}
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_error", "error", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
}
