package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bisky/internal/ledger"
)

// ErrEmptySeries means the period has no entries; callers show "Nothing
// to show" rather than failing.
var ErrEmptySeries = errors.New("nothing to show")

// NothingToShow is what adapters print for ErrEmptySeries and empty views.
const NothingToShow = "Nothing to show"

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// WritePlot draws the daily balance series as a PNG line chart with one
// x tick per day of month.
func WritePlot(w io.Writer, series []ledger.DailyBalance) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}

	first := series[0].Date
	p := plot.New()
	p.Title.Text = PeriodTitle(ledger.Period{Year: first.Year(), Month: first.Month()})
	p.X.Label.Text = "Day of month"
	p.Y.Label.Text = "Balance"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(series))
	ticks := make([]plot.Tick, len(series))
	for i, day := range series {
		x := float64(day.Date.Day())
		pts[i].X = x
		pts[i].Y = day.Balance.InexactFloat64()
		ticks[i] = plot.Tick{Value: x, Label: strconv.Itoa(day.Date.Day())}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build balance line: %w", err)
	}
	p.Add(line)
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("prepare plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}
