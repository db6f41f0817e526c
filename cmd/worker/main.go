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

	"github.com/unimate/docqa/internal/bootstrap"
	"github.com/unimate/docqa/internal/config"
	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/infrastructure/resilience"
	"github.com/unimate/docqa/internal/observability/logging"
	"github.com/unimate/docqa/internal/observability/metrics"
)

const indexJobTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logging.Setup("docqa-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewWorkerMetrics("docqa-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(m),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentStored(ctx, func(handlerCtx context.Context, documentID string) error {
		return indexDocument(handlerCtx, app, m, documentID)
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}

func indexDocument(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, documentID string) error {
	m.JobStarted()
	defer m.JobDone()

	started := time.Now()
	attempt := 0
	// Each attempt gets a fresh timeout; the pipeline itself never retries.
	err := app.Resilience.Execute(ctx, "worker.index", func(attemptCtx context.Context) error {
		attempt++
		if attempt > 1 {
			m.RecordRetry()
		}
		jobCtx, cancel := context.WithTimeout(attemptCtx, indexJobTimeout)
		defer cancel()
		return app.IndexUC.IndexByID(jobCtx, documentID)
	}, classifyIndexError)

	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		// Deleted before the worker got to it.
		outcome = "skipped"
		err = nil
	default:
		outcome = "failed"
	}
	m.RecordJob("docqa-worker", outcome, time.Since(started))

	if err != nil {
		slog.Error("index job failed", "document_id", documentID, "attempts", attempt, "error", err)
		return err
	}
	slog.Info("index job done", "document_id", documentID, "outcome", outcome, "elapsed_ms", time.Since(started).Milliseconds())
	return nil
}

func classifyIndexError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrEmptyInput),
		domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrIngestion):
		// Permanent: another attempt would extract the same bytes again.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
