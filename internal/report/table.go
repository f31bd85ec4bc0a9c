// Package report turns ledger query results into something a person can
// read: text tables for the console and chat, PNG charts for plots.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"bisky/internal/core"
	"bisky/internal/ledger"
)

var cell = lipgloss.NewStyle().Padding(0, 1)

// PeriodTitle is "November 2020".
func PeriodTitle(p ledger.Period) string {
	return fmt.Sprintf("%s %d", time.Month(p.Month), p.Year)
}

// EntriesTable renders rows with their table index, the index Remove takes.
func EntriesTable(rows []ledger.Row) string {
	records := make([][]string, len(rows))
	for i, r := range rows {
		balance := ""
		if r.Balance.Valid {
			balance = r.Balance.Decimal.StringFixed(2)
		}
		records[i] = []string{
			strconv.Itoa(r.Index),
			r.Date.String(),
			r.Category,
			core.FormatAmount(r.Credit),
			core.FormatAmount(r.Debit),
			r.Remark,
			balance,
		}
	}
	return render([]string{"#", "date", "category", "credit", "debit", "remark", "balance"}, records)
}

// UsageTable renders the daily balance series with its usage column.
func UsageTable(days []ledger.DayUsage) string {
	records := make([][]string, len(days))
	for i, d := range days {
		records[i] = []string{d.Date.String(), d.Balance.StringFixed(2), d.Usage}
	}
	return render([]string{"date", "balance", "usage"}, records)
}

func render(headers []string, records [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Headers(headers...).
		Rows(records...)
	return t.String()
}
