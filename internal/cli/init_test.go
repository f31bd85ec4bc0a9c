package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bisky/internal/config"
	"bisky/internal/core"
	"bisky/internal/log"
	"bisky/internal/storage/memory"
)

var nov6 = core.FixedClock(time.Date(2020, 11, 6, 12, 0, 0, 0, time.UTC))

func TestEnsureLedgerCreatesSeedRow(t *testing.T) {
	store := memory.New(nil)
	created, err := EnsureLedger(context.Background(), store, nov6, func() (decimal.Decimal, error) {
		return decimal.RequireFromString("100"), nil
	})
	if err != nil || !created {
		t.Fatalf("EnsureLedger = %v, %v", created, err)
	}
	rows, _ := store.Load(context.Background())
	if len(rows) != 1 || rows[0].Date.String() != "2020-11-06" || !rows[0].Balance.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("seed = %+v", rows)
	}

	created, err = EnsureLedger(context.Background(), store, nov6, func() (decimal.Decimal, error) {
		t.Fatal("an existing ledger must not prompt")
		return decimal.Zero, nil
	})
	if err != nil || created {
		t.Fatalf("second EnsureLedger = %v, %v", created, err)
	}
}

func TestEnsureLedgerNoPrompt(t *testing.T) {
	_, err := EnsureLedger(context.Background(), memory.New(nil), nov6, NoPrompt)
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestOpenLedgerCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	cfg := &config.Config{Backend: config.BackendCSV, CSVPath: path}
	logger := log.New(log.Config{Output: io.Discard})

	m, res, err := OpenLedger(context.Background(), cfg, logger, nov6, func() (decimal.Decimal, error) {
		return decimal.NewFromInt(50), nil
	})
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer res.Close()

	if m.Len() != 1 || !m.Balance().Equal(decimal.NewFromInt(50)) {
		t.Fatalf("len=%d balance=%s", m.Len(), m.Balance())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("store file not written: %v", err)
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("HTTP_PORT", "9090")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}
	if cfg.Backend != "memory" || cfg.HTTPPort != "9090" {
		t.Fatalf("cfg = %+v", cfg)
	}

	t.Setenv("LEDGER_BACKEND", "excel")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Fatal("invalid backend should fail validation")
	}
}

func TestConnectAMQPDisabled(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	client, err := ConnectAMQP(context.Background(), &config.Config{}, logger)
	if err != nil || client != nil {
		t.Fatalf("ConnectAMQP = %v, %v", client, err)
	}
}
