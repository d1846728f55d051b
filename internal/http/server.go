// Package http exposes the transaction store and its derived views over a
// JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"onetouch/internal/core"
	applog "onetouch/internal/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TransactionStore is the store surface the handlers need. *ledger.Store
// satisfies it.
type TransactionStore interface {
	Add(ctx context.Context, d core.Draft) (core.Transaction, error)
	Remove(ctx context.Context, id string)
	Transactions() []core.Transaction
	Expenses() []core.Transaction
	Incomes() []core.Transaction
	Loading() bool
}

type Server struct {
	http.Server
	store       TransactionStore
	logger      *applog.Logger
	rateLimiter *rateLimiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. gatherer may
// be nil when metrics are not wired.
func NewServer(addr string, store TransactionStore, gatherer prometheus.Gatherer, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       store,
		logger:      logger,
		rateLimiter: newRateLimiter(),
		started:     time.Now(),
	}

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("GET /api/profitloss", s.withMiddleware(s.handleProfitLoss))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

// withMiddleware adds request tracing, security headers and rate limiting on
// mutations.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ip := clientIP(r)

		s.logger.Debug("Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", ip)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			s.logger.Warn("Rate limit exceeded", "client_ip", ip, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		next(w, r)

		s.logger.Info("Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// Shutdown stops the rate limiter cleanup goroutine before draining the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Per-client sliding window rate limiter for mutating requests.
type rateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientInfo
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

const requestsPerMinute = 60

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[ip]
	if !exists || now.Sub(client.lastRequest) > time.Minute {
		rl.clients[ip] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= requestsPerMinute
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
