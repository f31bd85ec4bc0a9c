package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"bisky/internal/amqp"
	"bisky/internal/core"
	"bisky/internal/metrics"
	"bisky/internal/storage/memory"
)

type fakeMirror struct {
	calls   atomic.Int32
	mu      sync.Mutex
	last    []core.Entry
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeMirror) Replace(_ context.Context, rows []core.Entry) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.last = rows
	f.mu.Unlock()
	return f.err
}

func seededStore() *memory.Store {
	return memory.New([]core.Entry{core.SeedEntry(core.NewDate(2020, 11, 5), decimal.NewFromInt(100))})
}

func TestHandleLedgerEventMirrorsStore(t *testing.T) {
	mirror := &fakeMirror{}
	mx := metrics.New()
	w := NewMirrorWorker(seededStore(), mirror, 0, mx)

	ev := amqp.NewLedgerEvent(amqp.KindEntryAdded, decimal.NewFromInt(100), 1, time.Now())
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if mirror.calls.Load() != 1 || len(mirror.last) != 1 {
		t.Fatalf("calls=%d rows=%d", mirror.calls.Load(), len(mirror.last))
	}
	if got := testutil.ToFloat64(mx.SheetSyncs.WithLabelValues(TriggerEvent, "ok")); got != 1 {
		t.Errorf("SheetSyncs = %v", got)
	}
	if got := testutil.ToFloat64(mx.EventsConsumed.WithLabelValues("entry_added", "ok")); got != 1 {
		t.Errorf("EventsConsumed = %v", got)
	}
}

func TestSyncReturnsMirrorError(t *testing.T) {
	boom := errors.New("quota")
	w := NewMirrorWorker(seededStore(), &fakeMirror{err: boom}, 0, nil)
	if err := w.StartupSync(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected mirror error, got %v", err)
	}
}

func TestConcurrentSyncsCoalesce(t *testing.T) {
	mirror := &fakeMirror{release: make(chan struct{}), started: make(chan struct{}, 1)}
	w := NewMirrorWorker(seededStore(), mirror, 0, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = w.Sync(context.Background(), TriggerEvent)
	}()
	<-mirror.started

	const waiters = 5
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Sync(context.Background(), TriggerEvent)
		}()
	}
	// let the waiters reach the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(mirror.release)
	wg.Wait()

	if got := mirror.calls.Load(); got != 1 {
		t.Fatalf("mirror called %d times, want 1", got)
	}
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(seededStore(), mirror, 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := w.RunPeriodic(ctx); err != nil {
		t.Fatalf("RunPeriodic: %v", err)
	}
	if mirror.calls.Load() == 0 {
		t.Fatal("expected at least one periodic sync")
	}
}
