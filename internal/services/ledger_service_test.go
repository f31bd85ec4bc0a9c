package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"bisky/internal/amqp"
	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/metrics"
	"bisky/internal/report"
	"bisky/internal/storage/memory"
)

var nov6 = core.FixedClock(time.Date(2020, 11, 6, 12, 0, 0, 0, time.UTC))

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newService(t *testing.T, pub EventPublisher) (*LedgerService, *memory.Store, *metrics.Metrics) {
	t.Helper()
	store := memory.New([]core.Entry{core.SeedEntry(core.NewDate(2020, 11, 5), decimal.NewFromInt(100))})
	m, err := ledger.NewManager(context.Background(), store, nov6)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	mx := metrics.New()
	return NewLedgerService(m, WithPublisher(pub), WithMetrics(mx), WithClock(nov6)), store, mx
}

func TestLedgerService_AddPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc, _, mx := newService(t, pub)

	if _, err := svc.Add(context.Background(), core.Meal(core.Lunch, decimal.NewFromInt(10), core.Date{})); err != nil {
		t.Fatalf("add: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Kind != amqp.KindEntryAdded || ev.Rows != 2 || !ev.Balance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("unexpected event %+v", ev)
	}
	if got := testutil.ToFloat64(mx.EntriesAdded); got != 1 {
		t.Errorf("EntriesAdded = %v", got)
	}
	if got := testutil.ToFloat64(mx.Balance); got != 90 {
		t.Errorf("Balance gauge = %v", got)
	}
}

func TestLedgerService_PublishFailureIsNotReturned(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, store, mx := newService(t, pub)

	if _, err := svc.Add(context.Background(), core.Meal(core.Coffee, decimal.NewFromInt(2), core.Date{})); err != nil {
		t.Fatalf("add should succeed when publishing fails: %v", err)
	}
	if rows, _ := store.Load(context.Background()); len(rows) != 2 {
		t.Fatalf("entry was not stored")
	}
	if got := testutil.ToFloat64(mx.EventsPublished.WithLabelValues("entry_added", "error")); got != 1 {
		t.Errorf("failed publishes = %v", got)
	}
}

func TestLedgerService_PersistFailure(t *testing.T) {
	pub := &fakePublisher{}
	svc, store, mx := newService(t, pub)
	store.FailNextSave()

	_, err := svc.Add(context.Background(), core.Meal(core.Dinner, decimal.NewFromInt(5), core.Date{}))
	if !errors.Is(err, memory.ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Error("nothing should be published after a failed write")
	}
	if got := testutil.ToFloat64(mx.PersistErrors.WithLabelValues("add")); got != 1 {
		t.Errorf("PersistErrors = %v", got)
	}
}

func TestLedgerService_RemoveAndClear(t *testing.T) {
	pub := &fakePublisher{}
	svc, _, _ := newService(t, pub)
	ctx := context.Background()

	if n, err := svc.Remove(ctx, 7); err != nil || n != 0 {
		t.Fatalf("remove missing = %d, %v", n, err)
	}
	if len(pub.events) != 0 {
		t.Fatal("a no-op remove should not publish")
	}
	if n, err := svc.Remove(ctx, 0); err != nil || n != 1 {
		t.Fatalf("remove seed = %d, %v", n, err)
	}

	no := ledger.ConfirmFunc(func(string) (bool, error) { return false, nil })
	if ok, err := svc.Clear(ctx, no); err != nil || ok {
		t.Fatalf("declined clear = %v, %v", ok, err)
	}
	yes := ledger.ConfirmFunc(func(string) (bool, error) { return true, nil })
	if ok, err := svc.Clear(ctx, yes); err != nil || !ok {
		t.Fatalf("clear = %v, %v", ok, err)
	}

	kinds := []amqp.EventKind{amqp.KindEntriesRemoved, amqp.KindLedgerCleared}
	if len(pub.events) != len(kinds) {
		t.Fatalf("published %d events", len(pub.events))
	}
	for i, k := range kinds {
		if pub.events[i].Kind != k {
			t.Errorf("event %d kind = %s, want %s", i, pub.events[i].Kind, k)
		}
	}
}

func TestLedgerService_ClearErrorsCounting(t *testing.T) {
	svc, store, mx := newService(t, &fakePublisher{})
	ctx := context.Background()

	broken := ledger.ConfirmFunc(func(string) (bool, error) { return false, errors.New("read stdin") })
	if _, err := svc.Clear(ctx, broken); err == nil {
		t.Fatal("expected confirmer error")
	}
	if got := testutil.ToFloat64(mx.PersistErrors.WithLabelValues("clear")); got != 0 {
		t.Fatalf("confirmer failure counted as persist error: %v", got)
	}

	store.FailNextSave()
	yes := ledger.ConfirmFunc(func(string) (bool, error) { return true, nil })
	if _, err := svc.Clear(ctx, yes); !errors.Is(err, memory.ErrInjected) {
		t.Fatalf("expected injected save failure, got %v", err)
	}
	if got := testutil.ToFloat64(mx.PersistErrors.WithLabelValues("clear")); got != 1 {
		t.Fatalf("persist errors = %v", got)
	}
}

func TestLedgerService_WithoutPublisher(t *testing.T) {
	svc, _, _ := newService(t, nil)
	if _, err := svc.Add(context.Background(), core.Meal(core.Lunch, decimal.NewFromInt(1), core.Date{})); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func TestLedgerService_Plot(t *testing.T) {
	svc, _, _ := newService(t, nil)
	var buf bytes.Buffer
	if err := svc.Plot(&buf); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty plot")
	}

	err := svc.PlotOf(&buf, ledger.Period{Year: 2020, Month: 1})
	if !errors.Is(err, report.ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestLedgerService_Close(t *testing.T) {
	var order []string
	svc := NewLedgerService(nil,
		WithCloser(closerFunc(func() error { order = append(order, "store"); return nil })),
		WithCloser(closerFunc(func() error { order = append(order, "amqp"); return errors.New("boom") })),
	)
	if err := svc.Close(); err == nil {
		t.Fatal("expected the closer error")
	}
	if len(order) != 2 || order[0] != "store" {
		t.Fatalf("close order = %v", order)
	}
}
