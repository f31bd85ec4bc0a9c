package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	// Ledger metrics
	EntriesAdded   prometheus.Counter
	EntriesRemoved prometheus.Counter
	LedgerClears   prometheus.Counter
	Balance        prometheus.Gauge
	Rows           prometheus.Gauge
	PersistErrors  *prometheus.CounterVec

	// Bot metrics
	BotCommands   *prometheus.CounterVec
	BotRateLimits prometheus.Counter

	// Messaging metrics
	EventsPublished *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec
	SheetSyncs      *prometheus.CounterVec
	SheetSyncTime   prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates all metrics on a fresh registry, so several instances can
// live side by side in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		EntriesAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "bisky_entries_added_total",
			Help: "Total number of ledger entries added",
		}),
		EntriesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "bisky_entries_removed_total",
			Help: "Total number of ledger entries removed",
		}),
		LedgerClears: f.NewCounter(prometheus.CounterOpts{
			Name: "bisky_ledger_clears_total",
			Help: "Total number of confirmed ledger clears",
		}),
		Balance: f.NewGauge(prometheus.GaugeOpts{
			Name: "bisky_balance",
			Help: "Current ledger balance",
		}),
		Rows: f.NewGauge(prometheus.GaugeOpts{
			Name: "bisky_ledger_rows",
			Help: "Number of rows in the ledger table",
		}),
		PersistErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bisky_persist_errors_total",
				Help: "Total number of failed ledger writes by operation",
			},
			[]string{"operation"},
		),

		BotCommands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bisky_bot_commands_total",
				Help: "Total bot commands by command and result",
			},
			[]string{"command", "result"},
		),
		BotRateLimits: f.NewCounter(prometheus.CounterOpts{
			Name: "bisky_bot_rate_limited_total",
			Help: "Total bot messages dropped by the rate limiter",
		}),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bisky_events_published_total",
				Help: "Total ledger events published by kind and result",
			},
			[]string{"kind", "result"},
		),
		EventsConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bisky_events_consumed_total",
				Help: "Total ledger events consumed by kind and result",
			},
			[]string{"kind", "result"},
		),
		SheetSyncs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bisky_sheet_syncs_total",
				Help: "Total spreadsheet mirror runs by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		SheetSyncTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bisky_sheet_sync_duration_seconds",
			Help:    "Duration of spreadsheet mirror runs",
			Buckets: prometheus.DefBuckets,
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bisky_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bisky_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
