package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
	"bisky/internal/ledger"

	_ "modernc.org/sqlite"
)

const metaInitialized = "initialized"

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.Store       = (*SQLiteRepository)(nil)
	_ ledger.Initializer = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; the ledger is rewritten in a single transaction.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Exists reports whether the ledger has been initialized. A cleared ledger
// still exists.
func (r *SQLiteRepository) Exists(ctx context.Context) (bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = ?`, metaInitialized).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read ledger meta: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) Init(ctx context.Context, seed core.Entry) error {
	ok, err := r.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return errors.New("init ledger: already initialized")
	}
	return r.Save(ctx, []core.Entry{seed})
}

// Load implements ledger.Store
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_date, category, credit, debit, remark, balance
		FROM ledger_entries
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var date, category, credit, debit, remark, balance string
		if err := rows.Scan(&date, &category, &credit, &debit, &remark, &balance); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e, err := toEntry(date, category, credit, debit, remark, balance)
		if err != nil {
			return nil, fmt.Errorf("decode ledger entry %d: %w", len(out), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

// Save implements ledger.Store. The table is replaced in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, entries []core.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries`); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_entries (position, entry_date, category, credit, debit, remark, balance)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		_, err := stmt.ExecContext(ctx, i,
			e.Date.String(),
			e.Category,
			e.Credit.String(),
			e.Debit.String(),
			e.Remark,
			e.Balance.Decimal.Round(2).StringFixed(2))
		if err != nil {
			return fmt.Errorf("insert ledger entry %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		metaInitialized, "true", time.Now().UTC()); err != nil {
		return fmt.Errorf("update ledger meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite", "rows", len(entries))
	return nil
}

func toEntry(date, category, credit, debit, remark, balance string) (core.Entry, error) {
	e := core.Entry{Category: category, Remark: remark}
	if date != "" {
		t, err := time.Parse(core.DateLayout, date)
		if err != nil {
			return e, fmt.Errorf("%w: %q", core.ErrInvalidDate, date)
		}
		e.Date = core.DateOf(t)
	}
	var err error
	if e.Credit, err = decimal.NewFromString(credit); err != nil {
		return e, fmt.Errorf("%w: credit %q", core.ErrInvalidAmount, credit)
	}
	if e.Debit, err = decimal.NewFromString(debit); err != nil {
		return e, fmt.Errorf("%w: debit %q", core.ErrInvalidAmount, debit)
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return e, fmt.Errorf("%w: balance %q", core.ErrInvalidAmount, balance)
	}
	e.Balance = decimal.NewNullDecimal(b)
	return e, nil
}
