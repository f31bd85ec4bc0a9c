package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bisky/internal/core"
	"bisky/internal/ledger"
	"bisky/internal/log"
	"bisky/internal/report"
)

type (
	periodJSON struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}

	entryJSON struct {
		Index    int    `json:"index"`
		Date     string `json:"date"`
		Category string `json:"category"`
		Credit   string `json:"credit"`
		Debit    string `json:"debit"`
		Remark   string `json:"remark"`
		Balance  string `json:"balance"`
	}

	dayJSON struct {
		Date    string `json:"date"`
		Balance string `json:"balance"`
		Filled  bool   `json:"filled"`
		Usage   string `json:"usage"`
	}
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the ledger dependencies
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]string{"ledger": "ok"}

	if s.svc == nil {
		checks["ledger"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, _ *http.Request) {
	m := s.svc.Manager()
	p := m.Period()
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": core.FormatAmount(m.Balance()),
		"rows":    m.Len(),
		"period":  periodJSON{Year: p.Year, Month: p.Month},
	})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.svc.Manager().Period())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	last, err := parseLast(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := s.svc.Manager().ViewOf(p, last)
	out := make([]entryJSON, len(rows))
	for i, row := range rows {
		out[i] = entryJSON{
			Index:    row.Index,
			Date:     row.Date.String(),
			Category: row.Category,
			Credit:   core.FormatAmount(row.Credit),
			Debit:    core.FormatAmount(row.Debit),
			Remark:   row.Remark,
		}
		if row.Balance.Valid {
			out[i].Balance = core.FormatAmount(row.Balance.Decimal)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":  periodJSON{Year: p.Year, Month: p.Month},
		"entries": out,
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.svc.Manager().Period())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := s.svc.Manager().UsageOf(p)
	if errors.Is(err, ledger.ErrNoDataForMonth) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	out := make([]dayJSON, len(days))
	for i, d := range days {
		out[i] = dayJSON{
			Date:    d.Date.String(),
			Balance: core.FormatAmount(d.Balance),
			Filled:  d.Filled,
			Usage:   d.Usage,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period": periodJSON{Year: p.Year, Month: p.Month},
		"days":   out,
	})
}

// handlePlot serves the balance chart. Renders are cached per period and
// ledger revision, so any mutation invalidates them.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r, s.svc.Manager().Period())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%04d-%02d@%d", p.Year, p.Month, s.svc.Manager().Revision())
	png, hit, err := s.plots.GetOrCompute(key, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := s.svc.PlotOf(&buf, p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	switch {
	case errors.Is(err, report.ErrEmptySeries):
		writeError(w, http.StatusNotFound, report.NothingToShow)
		return
	case errors.Is(err, ledger.ErrNoDataForMonth):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Plot served", "cache_hit", hit, "bytes", len(png))
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
