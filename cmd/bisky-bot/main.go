package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bisky/internal/bot"
	"bisky/internal/cli"
	"bisky/internal/config"
	"bisky/internal/core"
	apphttp "bisky/internal/http"
	"bisky/internal/log"
	"bisky/internal/metrics"
	"bisky/internal/middleware/ratelimit"
	"bisky/internal/services"
)

const (
	apiRequestsPerMinute = 60
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("bisky-bot stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("bisky-bot stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	token, err := cfg.ResolveTelegramToken()
	if err != nil {
		return err
	}

	m := metrics.New()
	// Only a throwaway memory ledger may start without `bisky init`.
	balance := cli.StartingBalanceFunc(cli.NoPrompt)
	if cfg.Backend == config.BackendMemory {
		balance = func() (decimal.Decimal, error) { return decimal.Zero, nil }
	}
	manager, res, err := cli.OpenLedger(ctx, cfg, logger, core.SystemClock, balance)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	logger.Info("Ledger loaded", log.FieldBackend, cfg.Backend, "location", res.Location, log.FieldRows, manager.Len())

	opts := []services.Option{services.WithMetrics(m), services.WithCloser(res)}
	publisher, err := cli.ConnectAMQP(ctx, cfg, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Warn("Ledger events disabled", log.FieldError, err)
	}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher), services.WithCloser(publisher))
	}
	svc := services.NewLedgerService(manager, opts...)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	api, err := bot.NewAPI(token)
	if err != nil {
		return err
	}
	logger.Info("Telegram login ok", "username", api.Self.UserName)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.BotRatePerMinute})
	defer limiter.Stop()

	b := bot.New(svc,
		bot.WithAllowList(cfg.ChatAllowed),
		bot.WithLimiter(limiter),
		bot.WithMetrics(m),
		bot.WithLogger(logger),
	)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.HTTPPort,
		Service:           svc,
		Metrics:           m,
		Logger:            logger,
		RequestsPerMinute: apiRequestsPerMinute,
		Ready: func(ctx context.Context) error {
			_, err := res.Backend.Exists(ctx)
			return err
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx, api)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
