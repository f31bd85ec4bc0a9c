package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
	"bisky/internal/ledger"
)

func TestPeriodTitle(t *testing.T) {
	if got := PeriodTitle(ledger.Period{Year: 2020, Month: 11}); got != "November 2020" {
		t.Fatalf("got %q", got)
	}
}

func TestEntriesTable(t *testing.T) {
	b := decimal.RequireFromString("95.5")
	e := core.Meal(core.Breakfast, decimal.RequireFromString("4.5"), core.NewDate(2020, 11, 6))
	e.Balance = decimal.NewNullDecimal(b)
	out := EntriesTable([]ledger.Row{{Index: 3, Entry: e}})
	for _, want := range []string{"date", "balance", "2020-11-06", "Breakfast", "4.50", "95.50", " 3 "} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestUsageTable(t *testing.T) {
	days := []ledger.DayUsage{
		{DailyBalance: ledger.DailyBalance{Date: core.NewDate(2020, 11, 1), Balance: decimal.NewFromInt(100)}},
		{DailyBalance: ledger.DailyBalance{Date: core.NewDate(2020, 11, 2), Balance: decimal.NewFromInt(130)}, Usage: "+30.0"},
	}
	out := UsageTable(days)
	if !strings.Contains(out, "+30.0") || !strings.Contains(out, "usage") || !strings.Contains(out, "130.00") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestWritePlot(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlot(&buf, nil); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}

	series := []ledger.DailyBalance{
		{Date: core.NewDate(2020, 11, 5), Balance: decimal.NewFromInt(100)},
		{Date: core.NewDate(2020, 11, 6), Balance: decimal.RequireFromString("95.5")},
		{Date: core.NewDate(2020, 11, 7), Balance: decimal.RequireFromString("95.5"), Filled: true},
	}
	if err := WritePlot(&buf, series); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}
}

func TestWritePlotSingleDay(t *testing.T) {
	var buf bytes.Buffer
	series := []ledger.DailyBalance{{Date: core.NewDate(2020, 11, 5), Balance: decimal.NewFromInt(1)}}
	if err := WritePlot(&buf, series); err != nil {
		t.Fatalf("plot: %v", err)
	}
}
