package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"bisky/internal/amqp"
	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/metrics"
	"bisky/internal/report"
)

// EventPublisher announces ledger mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger mutations, event publishing and
// metrics. Publishing is best effort: the ledger write has already
// succeeded when it runs.
type LedgerService struct {
	manager   *ledger.Manager
	publisher EventPublisher
	metrics   *metrics.Metrics
	clock     core.Clock
	closers   []io.Closer
}

type Option func(*LedgerService)

// WithPublisher enables event publishing. A nil publisher disables it.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithClock(c core.Clock) Option {
	return func(s *LedgerService) { s.clock = c }
}

// WithCloser registers resources released by Close, in order.
func WithCloser(c io.Closer) Option {
	return func(s *LedgerService) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

func NewLedgerService(manager *ledger.Manager, opts ...Option) *LedgerService {
	s := &LedgerService{manager: manager, clock: core.SystemClock}
	for _, opt := range opts {
		opt(s)
	}
	s.observe()
	return s
}

// Manager exposes the read side of the ledger.
func (s *LedgerService) Manager() *ledger.Manager {
	return s.manager
}

// Add saves an entry and publishes entry_added.
func (s *LedgerService) Add(ctx context.Context, e core.Entry) (core.Entry, error) {
	added, err := s.manager.Add(ctx, e)
	if err != nil {
		s.persistFailed("add")
		return core.Entry{}, fmt.Errorf("add entry: %w", err)
	}
	if s.metrics != nil {
		s.metrics.EntriesAdded.Inc()
	}
	s.changed(ctx, amqp.KindEntryAdded)
	return added, nil
}

// Remove drops rows by table index and publishes entries_removed when at
// least one row went away.
func (s *LedgerService) Remove(ctx context.Context, indices ...int) (int, error) {
	n, err := s.manager.Remove(ctx, indices...)
	if err != nil {
		s.persistFailed("remove")
		return 0, fmt.Errorf("remove entries: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if s.metrics != nil {
		s.metrics.EntriesRemoved.Add(float64(n))
	}
	s.changed(ctx, amqp.KindEntriesRemoved)
	return n, nil
}

// Clear empties the ledger when confirmer agrees and publishes
// ledger_cleared.
func (s *LedgerService) Clear(ctx context.Context, confirmer ledger.Confirmer) (bool, error) {
	ok, err := s.manager.Clear(ctx, confirmer)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotConfirmed) {
			s.persistFailed("clear")
		}
		return false, fmt.Errorf("clear ledger: %w", err)
	}
	if !ok {
		return false, nil
	}
	if s.metrics != nil {
		s.metrics.LedgerClears.Inc()
	}
	s.changed(ctx, amqp.KindLedgerCleared)
	return true, nil
}

// Plot renders the daily balance chart of the view period.
func (s *LedgerService) Plot(w io.Writer) error {
	return s.PlotOf(w, s.manager.Period())
}

// PlotOf renders the chart of an explicit period.
func (s *LedgerService) PlotOf(w io.Writer, p ledger.Period) error {
	series, err := s.manager.DailyBalancesOf(p)
	if err != nil {
		return fmt.Errorf("daily balances: %w", err)
	}
	return report.WritePlot(w, series)
}

func (s *LedgerService) changed(ctx context.Context, kind amqp.EventKind) {
	s.observe()
	if s.publisher == nil {
		return
	}
	ev := amqp.NewLedgerEvent(kind, s.manager.Balance(), s.manager.Len(), s.clock.Now())
	err := s.publisher.PublishLedgerEvent(ctx, ev)
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(string(kind), metrics.Result(err)).Inc()
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"id", ev.ID,
			"kind", kind,
			"error", err)
	}
}

func (s *LedgerService) observe() {
	if s.metrics == nil {
		return
	}
	s.metrics.Balance.Set(s.manager.Balance().InexactFloat64())
	s.metrics.Rows.Set(float64(s.manager.Len()))
}

func (s *LedgerService) persistFailed(op string) {
	if s.metrics != nil {
		s.metrics.PersistErrors.WithLabelValues(op).Inc()
	}
}

// Close releases the registered resources
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
