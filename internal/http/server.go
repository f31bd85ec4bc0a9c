// Package http serves the read-only ledger API, health probes and
// Prometheus metrics.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bisky/internal/cache"
	"bisky/internal/log"
	"bisky/internal/metrics"
	"bisky/internal/middleware/ratelimit"
	"bisky/internal/middleware/security"
	"bisky/internal/middleware/trace"
	"bisky/internal/services"
)

type Server struct {
	http.Server
	svc     *services.LedgerService
	ready   func(context.Context) error
	limiter *ratelimit.Limiter
	plots   *cache.LRUCache[[]byte]
	started time.Time

	shutdownOnce sync.Once
}

type Options struct {
	Addr    string
	Service *services.LedgerService
	Metrics *metrics.Metrics
	Logger  *log.Logger
	// RequestsPerMinute limits /api/v1 per client IP.
	RequestsPerMinute int
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(context.Context) error
}

func NewServer(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		svc:     opts.Service,
		ready:   opts.Ready,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		plots:   cache.NewLRUCache[[]byte](24, 10*time.Minute),
		started: time.Now(),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Metrics, opts.Logger.WithComponent(log.ComponentHTTP)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(m *metrics.Metrics, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(log.Middleware(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(trace.Metrics(m))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}))
		r.Get("/balance", s.handleBalance)
		r.Get("/entries", s.handleEntries)
		r.Get("/usage", s.handleUsage)
		r.Get("/plot.png", s.handlePlot)
	})
	return r
}

// clientIP is the rate limit key. RealIP has already folded proxy headers
// into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Shutdown stops the limiter and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
