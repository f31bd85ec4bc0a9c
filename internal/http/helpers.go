package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bisky/internal/ledger"
)

// parsePeriod reads ?year= and ?month=, falling back to def for either.
func parsePeriod(r *http.Request, def ledger.Period) (ledger.Period, error) {
	p := def
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: %q", ledger.ErrYearOutOfRange, v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: %q", ledger.ErrMonthOutOfRange, v)
		}
		p.Month = m
	}
	return p, p.Validate()
}

func parseLast(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("last"))
	if v == "" {
		return ledger.AllRows, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("last must be a non-negative integer, got %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
