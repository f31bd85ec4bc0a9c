package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/log"
	"bisky/internal/metrics"
	"bisky/internal/services"
	"bisky/internal/storage/memory"
)

var nov6 = core.FixedClock(time.Date(2020, 11, 6, 12, 0, 0, 0, time.UTC))

func newTestServer(t *testing.T, ready func(context.Context) error) (*Server, *services.LedgerService) {
	t.Helper()
	store := memory.New([]core.Entry{core.SeedEntry(core.NewDate(2020, 11, 5), decimal.NewFromInt(100))})
	m, err := ledger.NewManager(context.Background(), store, nov6)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	svc := services.NewLedgerService(m)
	if _, err := svc.Add(context.Background(), core.Meal(core.Breakfast, decimal.RequireFromString("4.5"), core.Date{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	s := NewServer(Options{
		Service:           svc,
		Metrics:           metrics.New(),
		Logger:            log.New(log.Config{Output: io.Discard}),
		RequestsPerMinute: 1000,
		Ready:             ready,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, svc
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, nil)
	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("/healthz = %d", rec.Code)
	}
	if rec := get(t, s, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("/readyz = %d", rec.Code)
	}

	failing, _ := newTestServer(t, func(context.Context) error { return errors.New("disk gone") })
	rec := get(t, failing, "/readyz")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "disk gone") {
		t.Fatalf("/readyz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestBalance(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s, "/api/v1/balance")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Balance string `json:"balance"`
		Rows    int    `json:"rows"`
	}
	decode(t, rec, &body)
	if body.Balance != "95.50" || body.Rows != 2 {
		t.Fatalf("body = %+v", body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestEntries(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var body struct {
		Entries []entryJSON `json:"entries"`
	}
	decode(t, get(t, s, "/api/v1/entries?last=1"), &body)
	if len(body.Entries) != 1 || body.Entries[0].Index != 1 || body.Entries[0].Debit != "4.50" {
		t.Fatalf("entries = %+v", body.Entries)
	}

	body.Entries = nil
	decode(t, get(t, s, "/api/v1/entries?month=10&year=2020"), &body)
	if len(body.Entries) != 0 {
		t.Fatalf("October should be empty, got %+v", body.Entries)
	}

	for _, target := range []string{"/api/v1/entries?month=13", "/api/v1/entries?year=x", "/api/v1/entries?last=-1"} {
		if rec := get(t, s, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, rec.Code)
		}
	}
}

func TestUsage(t *testing.T) {
	s, _ := newTestServer(t, nil)
	var body struct {
		Days []dayJSON `json:"days"`
	}
	decode(t, get(t, s, "/api/v1/usage"), &body)
	if len(body.Days) != 2 {
		t.Fatalf("days = %+v", body.Days)
	}
	if body.Days[0].Usage != "" || body.Days[1].Usage != "-4.5" {
		t.Fatalf("usage = %q, %q", body.Days[0].Usage, body.Days[1].Usage)
	}
}

func TestPlot(t *testing.T) {
	s, svc := newTestServer(t, nil)

	rec := get(t, s, "/api/v1/plot.png")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("plot = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if s.plots.Size() != 1 {
		t.Fatalf("plot should be cached")
	}
	get(t, s, "/api/v1/plot.png")
	if s.plots.Size() != 1 {
		t.Fatalf("second request should hit the cache")
	}

	if _, err := svc.Add(context.Background(), core.Meal(core.Coffee, decimal.NewFromInt(2), core.Date{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	get(t, s, "/api/v1/plot.png")
	if s.plots.Size() != 2 {
		t.Fatalf("a mutation should produce a new cache key, size = %d", s.plots.Size())
	}

	if rec := get(t, s, "/api/v1/plot.png?month=1"); rec.Code != http.StatusNotFound {
		t.Fatalf("empty month = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	get(t, s, "/api/v1/balance")
	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "bisky_http_requests_total") {
		t.Fatalf("/metrics = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	store := memory.New(nil)
	m, _ := ledger.NewManager(context.Background(), store, nov6)
	s := NewServer(Options{
		Service:           services.NewLedgerService(m),
		Logger:            log.New(log.Config{Output: io.Discard}),
		RequestsPerMinute: 1,
	})
	defer s.Shutdown(context.Background())

	if rec := get(t, s, "/api/v1/balance"); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	rec := get(t, s, "/api/v1/balance")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second = %d", rec.Code)
	}
	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("probes are not rate limited, got %d", rec.Code)
	}
}
