// Package cli provides common initialization shared by cmd/bisky,
// cmd/bisky-bot and cmd/bisky-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"bisky/internal/amqp"
	"bisky/internal/backend"
	"bisky/internal/config"
	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/log"
)

// ErrNotInitialized is returned when the store is missing and the caller
// cannot ask for a starting balance.
var ErrNotInitialized = errors.New("ledger not initialized; run `bisky init` first")

// SetupLogger builds the process logger at level and makes it the slog
// default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend creates the configured ledger store.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	storeLogger := logger.WithComponent(log.ComponentStorage)
	return backend.NewFactory(storeLogger.Logger).CreateBackend(ctx, bcfg)
}

// StartingBalanceFunc supplies the balance written to a new ledger's seed
// row.
type StartingBalanceFunc func() (decimal.Decimal, error)

// NoPrompt refuses to create a ledger; used by non-interactive processes.
func NoPrompt() (decimal.Decimal, error) {
	return decimal.Zero, ErrNotInitialized
}

// EnsureLedger writes the seed row when the store does not exist yet. It
// reports whether it created the ledger.
func EnsureLedger(ctx context.Context, b backend.Backend, clock core.Clock, balance StartingBalanceFunc) (bool, error) {
	exists, err := b.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	if exists {
		return false, nil
	}
	start, err := balance()
	if err != nil {
		return false, err
	}
	if err := b.Init(ctx, core.SeedEntry(core.Today(clock), start)); err != nil {
		return false, fmt.Errorf("init ledger: %w", err)
	}
	return true, nil
}

// OpenLedger opens the store, creating it when needed, and loads the
// manager. The caller closes the returned result.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, clock core.Clock, balance StartingBalanceFunc) (*ledger.Manager, *backend.BackendResult, error) {
	res, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	created, err := EnsureLedger(ctx, res.Backend, clock, balance)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	if created {
		logger.InfoContext(ctx, "Ledger created", log.FieldBackend, cfg.Backend, "location", res.Location)
	}
	m, err := ledger.NewManager(ctx, res.Backend, clock)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	return m, res, nil
}

// ConnectAMQP dials AMQP when AMQP_URL is set. It returns nil, nil
// when AMQP is not configured.
func ConnectAMQP(ctx context.Context, cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.InfoContext(ctx, "AMQP_URL not set, ledger events will not be published")
		return nil, nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
