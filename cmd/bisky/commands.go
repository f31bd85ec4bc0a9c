package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/log"
	"bisky/internal/report"
)

const (
	msgAdded          = "Added entry."
	msgDeletedOne     = "Deleted entry."
	msgDeletedMany    = "Deleted specified entries."
	msgCleared        = "Cleared entries."
	msgNoChanges      = "No changes made."
	defaultPlotOutput = "plot.png"
)

func (a *app) initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the ledger with a starting balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.svc.Manager()
			a.prompt.Notice("Balance: " + core.FormatAmount(m.Balance()))
			return nil
		},
	}
	cmd.Flags().StringVar(&a.startBalance, "balance", "", "starting balance; prompts when empty")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var credit, debit, category, remark, date string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a credit or debit entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := optionalAmount(credit)
			if err != nil {
				return err
			}
			d, err := optionalAmount(debit)
			if err != nil {
				return err
			}
			when, err := a.date(date)
			if err != nil {
				return err
			}
			return a.add(cmd, core.NewEntry(when, category, c, d, remark, nil))
		},
	}
	cmd.Flags().StringVar(&credit, "credit", "", "amount credited")
	cmd.Flags().StringVar(&debit, "debit", "", "amount debited")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&remark, "remark", "", "free text note")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD or yesterday (default today)")
	return cmd
}

func (a *app) mealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meal <breakfast|lunch|dinner|coffee> <amount> [date]",
		Short: "Add a meal expense",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := core.PresetByName(args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return err
			}
			when, err := a.date(argAt(args, 2))
			if err != nil {
				return err
			}
			return a.add(cmd, core.Meal(p, amount, when))
		},
	}
}

func (a *app) foodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "food <amount> <remark> [date]",
		Short: "Add a food expense with a remark",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			when, err := a.date(argAt(args, 2))
			if err != nil {
				return err
			}
			return a.add(cmd, core.FoodEntry(amount, args[1], when))
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>...",
		Short: "Remove entries by table index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args))
			for _, arg := range args {
				i, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid index %q", arg)
				}
				indices = append(indices, i)
			}
			if _, err := a.svc.Remove(cmd.Context(), indices...); err != nil {
				return err
			}
			if len(indices) == 1 {
				a.prompt.Success(msgDeletedOne)
			} else {
				a.prompt.Success(msgDeletedMany)
			}
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry, seed row included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.svc.Clear(cmd.Context(), a.prompt)
			if err != nil {
				return err
			}
			if ok {
				a.prompt.Success(msgCleared)
			} else {
				a.prompt.Notice(msgNoChanges)
			}
			return nil
		},
	}
}

func (a *app) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [n]",
		Short: "Show the entries of the view month, optionally only the last n",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			last := ledger.AllRows
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("invalid count %q", args[0])
				}
				last = n
			}
			m := a.svc.Manager()
			rows := m.View(last)
			if len(rows) == 0 {
				a.prompt.Notice(report.NothingToShow)
				return nil
			}
			a.prompt.Notice(report.PeriodTitle(m.Period()))
			a.prompt.Notice(report.EntriesTable(rows))
			return nil
		},
	}
}

func (a *app) usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the daily balance and day-over-day usage of the view month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.svc.Manager()
			days, err := m.Usage()
			if err != nil {
				return err
			}
			if len(days) == 0 {
				a.prompt.Notice(report.NothingToShow)
				return nil
			}
			a.prompt.Notice(report.PeriodTitle(m.Period()))
			a.prompt.Notice(report.UsageTable(days))
			return nil
		},
	}
}

func (a *app) plotCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Write the daily balance chart of the view month as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			err := a.svc.Plot(&buf)
			if errors.Is(err, report.ErrEmptySeries) {
				a.prompt.Notice(report.NothingToShow)
				return nil
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write plot: %w", err)
			}
			a.prompt.Success("Saved " + output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", defaultPlotOutput, "PNG file to write")
	return cmd
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the current balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.prompt.Notice("Balance: " + core.FormatAmount(a.svc.Manager().Balance()))
			return nil
		},
	}
}

func (a *app) add(cmd *cobra.Command, e core.Entry) error {
	added, err := a.svc.Add(cmd.Context(), e)
	if err != nil {
		return err
	}
	a.prompt.Success(msgAdded)
	a.logger.DebugContext(cmd.Context(), "Entry added",
		log.FieldDate, added.Date.String(), log.FieldCategory, added.Category,
		log.FieldBalance, core.FormatAmount(added.Balance.Decimal))
	return nil
}

// date resolves a --date style value; empty means today.
func (a *app) date(s string) (core.Date, error) {
	today := core.Today(a.clock)
	if strings.TrimSpace(s) == "" {
		return today, nil
	}
	return core.ParseDate(s, today)
}

func optionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(s)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
