package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
)

func TestDecodeSampleFile(t *testing.T) {
	in := "date,category,credit,debit,remark,balance\n" +
		"2020-11-05,,0.0,0.0,,100.00\n" +
		"2020-11-06,Breakfast,0.0,4.50,Breakfast,95.50\n"
	rows, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Category != "" || !rows[0].Balance.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected seed row: %+v", rows[0])
	}
	if rows[1].Date.String() != "2020-11-06" || rows[1].Remark != "Breakfast" {
		t.Fatalf("unexpected row: %+v", rows[1])
	}
	if !rows[1].Debit.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("debit = %s", rows[1].Debit)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"bad date":        {"2020/11/05,,0,0,,1\n", core.ErrInvalidDate},
		"bad amount":      {"2020-11-05,,x,0,,1\n", core.ErrInvalidAmount},
		"missing balance": {"2020-11-05,,0,0,,\n", ErrMalformedRow},
		"short row":       {"2020-11-05,,0\n", ErrMalformedRow},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(strings.Join(Header, ",") + "\n" + tc.body))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.csv")
	s := New(path)

	b := decimal.RequireFromString("95.499")
	rows := []core.Entry{
		core.SeedEntry(core.NewDate(2020, 11, 5), decimal.NewFromInt(100)),
		core.NewEntry(core.NewDate(2020, 11, 6), "Breakfast", decimal.Zero, decimal.RequireFromString("4.5"), "with, comma", &b),
	}
	if err := s.Save(ctx, rows); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("rows = %d", len(got))
	}
	for i := range rows {
		w, g := rows[i], got[i]
		if !w.Date.Equal(g.Date.Time) || w.Category != g.Category || w.Remark != g.Remark ||
			!w.Credit.Equal(g.Credit) || !w.Debit.Equal(g.Debit) {
			t.Fatalf("row %d: got %+v, want %+v", i, g, w)
		}
		if !g.Balance.Decimal.Equal(w.Balance.Decimal.Round(2)) {
			t.Fatalf("row %d balance = %s", i, g.Balance.Decimal)
		}
	}

	raw, _ := os.ReadFile(path)
	want := "date,category,credit,debit,remark,balance\n" +
		"2020-11-05,,0.00,0.00,,100.00\n" +
		"2020-11-06,Breakfast,0.00,4.50,\"with, comma\",95.50\n"
	if string(raw) != want {
		t.Fatalf("file content:\n%s\nwant:\n%s", raw, want)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "data.csv"))
	for i := 0; i < 3; i++ {
		if err := s.Save(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "data.csv" {
		t.Fatalf("unexpected directory content: %v", entries)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "data.csv"))
	if string(raw) != "date,category,credit,debit,remark,balance\n" {
		t.Fatalf("empty table should leave only the header, got %q", raw)
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "nested", "data.csv"))
	if ok, _ := s.Exists(ctx); ok {
		t.Fatalf("should not exist yet")
	}
	seed := core.SeedEntry(core.NewDate(2020, 11, 5), decimal.NewFromInt(100))
	if err := s.Init(ctx, seed); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Init(ctx, seed); err == nil {
		t.Fatalf("second init should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
