package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
)

// ClearQuestion is asked before the table is truncated.
const ClearQuestion = "Are you sure? y/n"

var (
	ErrMonthOutOfRange = errors.New("month out of range")
	ErrYearOutOfRange  = errors.New("year out of range")
	ErrNoDataForMonth  = errors.New("no data for month")
	// ErrNotConfirmed wraps a confirmer failure; nothing was written.
	ErrNotConfirmed = errors.New("clear not confirmed")
)

type (
	// Period is the year and month the query operations look at.
	Period struct {
		Year  int
		Month int
	}

	// Row is an entry together with its position in the table. Positions
	// are what Remove takes.
	Row struct {
		Index int
		core.Entry
	}
)

// Contains reports whether d falls inside the period.
func (p Period) Contains(d core.Date) bool {
	return !d.IsZero() && d.Year() == p.Year && d.Month() == p.Month
}

// Validate checks the period the same way SetMonth and SetYear do.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: %d", ErrMonthOutOfRange, p.Month)
	}
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, p.Year)
	}
	return nil
}

// Start is the first day of the period.
func (p Period) Start() core.Date {
	return core.NewDate(p.Year, p.Month, 1)
}

// Manager owns the in-memory ledger table and keeps the store in step with
// it. All methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	store    Store
	clock    core.Clock
	rows     []core.Entry
	balance  decimal.Decimal
	view     Period
	revision uint64
}

// NewManager loads the table from store. The view period starts at the
// current month.
func NewManager(ctx context.Context, store Store, clock core.Clock) (*Manager, error) {
	if clock == nil {
		clock = core.SystemClock
	}
	rows, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	today := core.Today(clock)
	m := &Manager{
		store: store,
		clock: clock,
		rows:  normalize(rows),
		view:  Period{Year: today.Year(), Month: today.Month()},
	}
	m.balance = lastBalance(m.rows)
	return m, nil
}

// Add appends e, deriving its balance from the current one when unset, and
// rewrites the store.
func (m *Manager) Add(ctx context.Context, e core.Entry) (core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Date.IsZero() {
		e.Date = core.Today(m.clock)
	}
	if !e.Balance.Valid {
		e.Balance = decimal.NewNullDecimal(m.balance.Add(e.Delta()))
	}

	next := make([]core.Entry, len(m.rows), len(m.rows)+1)
	copy(next, m.rows)
	next = append(next, e)
	if err := m.persist(ctx, next); err != nil {
		return core.Entry{}, err
	}
	slog.DebugContext(ctx, "Entry added",
		"date", e.Date.String(),
		"category", e.Category,
		"balance", m.balance.StringFixed(2))
	return m.rows[len(m.rows)-1], nil
}

// Remove drops the rows at the given table positions. Positions that do
// not exist are ignored. It returns how many rows were dropped.
func (m *Manager) Remove(ctx context.Context, indices ...int) (int, error) {
	if len(indices) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(m.rows) {
			drop[i] = struct{}{}
		}
	}
	next := make([]core.Entry, 0, len(m.rows))
	for i, e := range m.rows {
		if _, ok := drop[i]; ok {
			continue
		}
		next = append(next, e)
	}
	if err := m.persist(ctx, next); err != nil {
		return 0, err
	}
	return len(drop), nil
}

// Clear truncates the table, seed row included, once confirmer agrees.
func (m *Manager) Clear(ctx context.Context, confirmer Confirmer) (bool, error) {
	ok, err := confirmer.Confirm(ClearQuestion)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrNotConfirmed, err)
	}
	if !ok {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persist(ctx, []core.Entry{}); err != nil {
		return false, err
	}
	return true, nil
}

// SetMonth changes the view month. Values outside 1-12 leave it unchanged.
func (m *Manager) SetMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrMonthOutOfRange, month)
	}
	m.mu.Lock()
	m.view.Month = month
	m.mu.Unlock()
	return nil
}

// SetYear changes the view year.
func (m *Manager) SetYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, year)
	}
	m.mu.Lock()
	m.view.Year = year
	m.mu.Unlock()
	return nil
}

// Period returns the current view period.
func (m *Manager) Period() Period {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Balance is the balance recorded on the last row, or zero for an empty table.
func (m *Manager) Balance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// Len counts table rows, seed row included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Revision increases on every successful mutation.
func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Entries returns a copy of the whole table.
func (m *Manager) Entries() []core.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Entry(nil), m.rows...)
}

// AllRows asks View for every row of the period.
const AllRows = -1

// View returns the final last rows of the view period, or all of them when
// last is negative. View(0) is empty.
func (m *Manager) View(last int) []Row {
	return m.ViewOf(m.Period(), last)
}

// ViewOf is View for an explicit period. The view period is left alone.
func (m *Manager) ViewOf(p Period, last int) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := filterPeriod(m.rows, p)
	if last >= 0 && last < len(rows) {
		rows = rows[len(rows)-last:]
	}
	return rows
}

// DailyBalances is the one-balance-per-day series of the view period.
func (m *Manager) DailyBalances() ([]DailyBalance, error) {
	return m.DailyBalancesOf(m.Period())
}

func (m *Manager) DailyBalancesOf(p Period) ([]DailyBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return dailyBalances(m.rows, p)
}

// Usage is DailyBalances with the day-over-day change of each day.
func (m *Manager) Usage() ([]DayUsage, error) {
	return m.UsageOf(m.Period())
}

func (m *Manager) UsageOf(p Period) ([]DayUsage, error) {
	series, err := m.DailyBalancesOf(p)
	if err != nil {
		return nil, err
	}
	return usage(series), nil
}

// persist must be called with mu held. On failure the table is left as it
// was before the mutation.
func (m *Manager) persist(ctx context.Context, next []core.Entry) error {
	next = normalize(next)
	if err := m.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	m.rows = next
	m.balance = lastBalance(next)
	m.revision++
	return nil
}

// normalize rounds balances to cents and truncates dates to calendar days.
func normalize(rows []core.Entry) []core.Entry {
	for i := range rows {
		if rows[i].Balance.Valid {
			rows[i].Balance.Decimal = rows[i].Balance.Decimal.Round(2)
		}
		if !rows[i].Date.IsZero() {
			rows[i].Date = core.DateOf(rows[i].Date.Time)
		}
	}
	return rows
}

func lastBalance(rows []core.Entry) decimal.Decimal {
	if len(rows) == 0 {
		return decimal.Zero
	}
	return rows[len(rows)-1].Balance.Decimal
}
