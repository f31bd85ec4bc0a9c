package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
)

type (
	// DailyBalance is the closing balance of one calendar day. Filled marks
	// days without entries whose balance was carried forward.
	DailyBalance struct {
		Date    core.Date
		Balance decimal.Decimal
		Filled  bool
	}

	// DayUsage is a DailyBalance plus the formatted change since the
	// previous day. The first day of a series has an empty Usage.
	DayUsage struct {
		DailyBalance
		Delta decimal.Decimal
		Usage string
	}
)

func filterPeriod(rows []core.Entry, p Period) []Row {
	var out []Row
	for i, e := range rows {
		if p.Contains(e.Date) {
			out = append(out, Row{Index: i, Entry: e})
		}
	}
	return out
}

// groupLastByDate keeps the balance of the last row recorded on each date,
// ordered by date.
func groupLastByDate(rows []Row) []DailyBalance {
	byDate := make(map[string]int)
	var out []DailyBalance
	for _, r := range rows {
		if !r.Balance.Valid {
			continue
		}
		key := r.Date.String()
		if i, ok := byDate[key]; ok {
			out[i].Balance = r.Balance.Decimal
			continue
		}
		byDate[key] = len(out)
		out = append(out, DailyBalance{Date: r.Date, Balance: r.Balance.Decimal})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

// forwardFill produces one point per day from..to inclusive, carrying the
// most recent known balance into days without one. It never fills backwards.
func forwardFill(points []DailyBalance, from, to core.Date) ([]DailyBalance, error) {
	if len(points) == 0 || to.Before(from.Time) {
		return nil, nil
	}
	known := make(map[string]decimal.Decimal, len(points))
	for _, p := range points {
		known[p.Date.String()] = p.Balance
	}

	var (
		out  []DailyBalance
		last decimal.Decimal
		have bool
	)
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		if b, ok := known[d.String()]; ok {
			last, have = b, true
			out = append(out, DailyBalance{Date: d, Balance: b})
			continue
		}
		if !have {
			return nil, fmt.Errorf("%w: nothing recorded on or before %s", ErrNoDataForMonth, d)
		}
		out = append(out, DailyBalance{Date: d, Balance: last, Filled: true})
	}
	return out, nil
}

func dailyBalances(rows []core.Entry, p Period) ([]DailyBalance, error) {
	grouped := groupLastByDate(filterPeriod(rows, p))
	if len(grouped) == 0 {
		return nil, nil
	}
	return forwardFill(grouped, grouped[0].Date, grouped[len(grouped)-1].Date)
}

func usage(series []DailyBalance) []DayUsage {
	out := make([]DayUsage, len(series))
	for i, day := range series {
		out[i] = DayUsage{DailyBalance: day}
		if i == 0 {
			continue
		}
		delta := day.Balance.Sub(series[i-1].Balance).Round(2)
		out[i].Delta = delta
		out[i].Usage = core.FormatUsage(delta)
	}
	return out
}
