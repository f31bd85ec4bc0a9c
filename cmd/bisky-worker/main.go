package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bisky/internal/cli"
	"bisky/internal/config"
	"bisky/internal/log"
	"bisky/internal/metrics"
	gsheet "bisky/internal/sheets/google"
	"bisky/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err == nil {
		err = cfg.ValidateWorker()
	}
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting bisky-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("bisky-worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer res.Close()

	credentialsFile := cfg.GoogleServiceAccountFile
	if credentialsFile == "" {
		credentialsFile = cfg.GoogleApplicationCredFile
	}
	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: credentialsFile,
	})
	if err != nil {
		return fmt.Errorf("google sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := cli.ConnectAMQP(ctx, cfg, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		return fmt.Errorf("amqp client: %w", err)
	}
	defer amqpClient.Close()

	m := metrics.New()
	w := worker.NewMirrorWorker(res.Backend, sheetsClient, cfg.SyncInterval, m)

	// A failed startup sync is retried by the periodic loop.
	if err := w.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.RunPeriodic(gctx)
	})
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.WorkerMetricsPort != "" {
		srv := metricsServer(":"+cfg.WorkerMetricsPort, m)
		g.Go(func() error {
			logger.Info("Serving metrics", "port", cfg.WorkerMetricsPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func metricsServer(addr string, m *metrics.Metrics) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
