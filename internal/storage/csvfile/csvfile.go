// Package csvfile stores the ledger table as a comma-separated file:
//
//	date,category,credit,debit,remark,balance
//	2020-11-05,,0.00,0.00,,100.00
//
// The file is read whole and rewritten whole; every write goes to a
// temporary sibling that is renamed over the original.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
	"bisky/internal/ledger"
)

// Header is the first line of every store file.
var Header = []string{"date", "category", "credit", "debit", "remark", "balance"}

var ErrMalformedRow = errors.New("malformed ledger row")

type Store struct {
	path string
}

var (
	_ ledger.Store       = (*Store)(nil)
	_ ledger.Initializer = (*Store)(nil)
)

func New(path string) *Store {
	return &Store{path: path}
}

// Path is the file backing the store.
func (s *Store) Path() string { return s.path }

func (s *Store) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat ledger file: %w", err)
}

// Init writes a new file holding only seed. It refuses to overwrite.
func (s *Store) Init(ctx context.Context, seed core.Entry) error {
	ok, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("init ledger file: %s already exists", s.path)
	}
	if err := s.Save(ctx, []core.Entry{seed}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "New csv file has been created", "path", s.path)
	return nil
}

func (s *Store) Load(_ context.Context) ([]core.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (s *Store) Save(_ context.Context, rows []core.Entry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := Encode(tmp, rows); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

// Encode writes the header and one record per entry.
func Encode(w io.Writer, rows []core.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range rows {
		if err := cw.Write(Record(e)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	return nil
}

// Record is the CSV form of one entry.
func Record(e core.Entry) []string {
	balance := ""
	if e.Balance.Valid {
		balance = e.Balance.Decimal.StringFixed(2)
	}
	return []string{
		e.Date.String(),
		e.Category,
		core.FormatAmount(e.Credit),
		core.FormatAmount(e.Debit),
		e.Remark,
		balance,
	}
}

// Decode reads a store file. The first line is always treated as the header.
func Decode(r io.Reader) ([]core.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	rows := make([]core.Entry, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue
		}
		e, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, e)
	}
	return rows, nil
}

func parseRecord(rec []string) (core.Entry, error) {
	var e core.Entry
	if rec[0] != "" {
		t, err := time.Parse(core.DateLayout, rec[0])
		if err != nil {
			return e, fmt.Errorf("%w: %q", core.ErrInvalidDate, rec[0])
		}
		e.Date = core.DateOf(t)
	}
	e.Category = rec[1]
	e.Remark = rec[4]

	var err error
	if e.Credit, err = parseOptional(rec[2]); err != nil {
		return e, err
	}
	if e.Debit, err = parseOptional(rec[3]); err != nil {
		return e, err
	}
	if rec[5] == "" {
		return e, fmt.Errorf("%w: missing balance", ErrMalformedRow)
	}
	b, err := core.ParseAmount(rec[5])
	if err != nil {
		return e, err
	}
	e.Balance = decimal.NewNullDecimal(b.Round(2))
	return e, nil
}

func parseOptional(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(s)
}
