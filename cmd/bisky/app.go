package main

import (
	"context"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bisky/internal/amqp"
	"bisky/internal/cli"
	"bisky/internal/config"
	"bisky/internal/console"
	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/log"
	"bisky/internal/services"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	clock  core.Clock
	prompt *console.Prompter

	store string
	month int
	year  int
	// startBalance is set by `init --balance` to skip the prompt.
	startBalance string

	logger *log.Logger
	svc    *services.LedgerService
}

func newApp(in io.Reader, out io.Writer, clock core.Clock) *app {
	return &app{in: in, out: out, clock: clock, prompt: console.New(in, out)}
}

func (a *app) rootCmd() *cobra.Command {
	in, out := a.in, a.out

	root := &cobra.Command{
		Use:           "bisky",
		Short:         "Personal expense ledger",
		Long:          `Keep a running balance of dated credits and debits in a CSV file, and look at it month by month.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == cobra.ShellCompRequestCmd {
				return nil
			}
			return a.open(cmd)
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.store, "store", "", "ledger location (overrides LEDGER_CSV_PATH or LEDGER_SQLITE_PATH)")
	root.PersistentFlags().IntVar(&a.month, "month", 0, "view month, 1-12 (default current month)")
	root.PersistentFlags().IntVar(&a.year, "year", 0, "view year (default current year)")

	root.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.mealCmd(),
		a.foodCmd(),
		a.removeCmd(),
		a.clearCmd(),
		a.viewCmd(),
		a.usageCmd(),
		a.plotCmd(),
		a.balanceCmd(),
	)
	return root
}

// open loads configuration, creates the ledger when it is missing and
// applies the view period flags.
func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.store != "" {
		switch cfg.Backend {
		case config.BackendSQLite:
			cfg.SQLitePath = a.store
		default:
			cfg.CSVPath = a.store
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.logger = log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Output: os.Stderr})
	ctx := cmd.Context()

	manager, res, err := cli.OpenLedger(ctx, cfg, a.logger, a.clock, a.startingBalance)
	if err != nil {
		return err
	}
	if err := applyPeriod(cmd, manager, a.month, a.year); err != nil {
		res.Close()
		return err
	}

	opts := []services.Option{services.WithClock(a.clock), services.WithCloser(res)}
	publisher, err := cli.ConnectAMQP(ctx, cfg, a.logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		a.logger.WarnContext(ctx, "Ledger events disabled", log.FieldError, err)
	}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher), services.WithCloser(publisher))
	}
	a.svc = services.NewLedgerService(manager, opts...)
	return nil
}

// execute runs one command line and releases the ledger whether or not
// the command failed.
func (a *app) execute(ctx context.Context, args []string) error {
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) close() error {
	if a.svc == nil {
		return nil
	}
	svc := a.svc
	a.svc = nil
	return svc.Close()
}

func (a *app) startingBalance() (decimal.Decimal, error) {
	if a.startBalance != "" {
		return core.ParseAmount(a.startBalance)
	}
	return a.prompt.StartingBalance()
}

func applyPeriod(cmd *cobra.Command, m *ledger.Manager, month, year int) error {
	if cmd.Flags().Changed("year") {
		if err := m.SetYear(year); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("month") {
		if err := m.SetMonth(month); err != nil {
			return err
		}
	}
	return nil
}

var _ services.EventPublisher = (*amqp.Client)(nil)
