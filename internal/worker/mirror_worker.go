package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"bisky/internal/amqp"
	"bisky/internal/ledger"
	"bisky/internal/metrics"
	"bisky/internal/sheets"
)

// Sync triggers, used as log and metric labels.
const (
	TriggerEvent    = "event"
	TriggerStartup  = "startup"
	TriggerPeriodic = "periodic"
)

// MirrorWorker copies the whole ledger store into a sheets.Mirror. Events
// carry no rows, so every sync reloads the store; overlapping requests
// share one run.
type MirrorWorker struct {
	store    ledger.Store
	mirror   sheets.Mirror
	metrics  *metrics.Metrics
	interval time.Duration
	group    singleflight.Group
}

func NewMirrorWorker(store ledger.Store, mirror sheets.Mirror, interval time.Duration, m *metrics.Metrics) *MirrorWorker {
	return &MirrorWorker{
		store:    store,
		mirror:   mirror,
		metrics:  m,
		interval: interval,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"id", ev.ID,
		"kind", ev.Kind,
		"rows", ev.Rows)

	err := w.Sync(ctx, TriggerEvent)
	if w.metrics != nil {
		w.metrics.EventsConsumed.WithLabelValues(string(ev.Kind), metrics.Result(err)).Inc()
	}
	return err
}

// Sync mirrors the store now. Callers arriving while a run is in flight
// wait for it and get its result.
func (w *MirrorWorker) Sync(ctx context.Context, trigger string) error {
	_, err, shared := w.group.Do("mirror", func() (any, error) {
		return nil, w.sync(ctx, trigger)
	})
	if shared {
		slog.DebugContext(ctx, "Joined in-flight sync", "trigger", trigger)
	}
	return err
}

func (w *MirrorWorker) sync(ctx context.Context, trigger string) error {
	start := time.Now()
	rows, err := w.store.Load(ctx)
	if err == nil {
		err = w.mirror.Replace(ctx, rows)
	}
	if w.metrics != nil {
		w.metrics.SheetSyncs.WithLabelValues(trigger, metrics.Result(err)).Inc()
		w.metrics.SheetSyncTime.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger mirrored",
		"trigger", trigger,
		"rows", len(rows),
		"duration", time.Since(start))
	return nil
}

// StartupSync mirrors once at startup, covering events missed while the
// worker was down.
func (w *MirrorWorker) StartupSync(ctx context.Context) error {
	return w.Sync(ctx, TriggerStartup)
}

// RunPeriodic resyncs every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (w *MirrorWorker) RunPeriodic(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sync(ctx, TriggerPeriodic); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
