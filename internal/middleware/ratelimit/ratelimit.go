package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter provides fixed-window rate limiting per client IP.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	requestsPerMinute int
	cleanupInterval   time.Duration
	methods           map[string]bool

	totalHits int64
}

type clientInfo struct {
	windowStart time.Time
	lastRequest time.Time
	requests    int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods limits only these HTTP methods. Empty limits every method.
	Methods []string
}

// DefaultConfig limits invoice, customer and receipt writes.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut},
	}
}

// NewLimiter creates a new rate limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	rl := &Limiter{
		clients:           make(map[string]*clientInfo),
		stopCleanup:       make(chan struct{}),
		now:               time.Now,
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
	}
	if len(config.Methods) > 0 {
		rl.methods = make(map[string]bool, len(config.Methods))
		for _, m := range config.Methods {
			rl.methods[m] = true
		}
	}
	go rl.startCleanup()
	return rl
}

// Allow checks if a request from the given IP should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{windowStart: now, lastRequest: now, requests: 1}
		return true
	}

	client.lastRequest = now
	if now.Sub(client.windowStart) >= time.Minute {
		client.windowStart = now
		client.requests = 1
		return true
	}

	client.requests++
	if client.requests > rl.requestsPerMinute {
		atomic.AddInt64(&rl.totalHits, 1)
		return false
	}
	return true
}

// Limits reports whether requests with the given method are counted.
func (rl *Limiter) Limits(method string) bool {
	return rl.methods == nil || rl.methods[method]
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.cleanupStaleEntries(); n > 0 {
				slog.Debug("Rate limiter cleanup completed", "clients_removed", n)
			}
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes clients idle for more than 10 minutes.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	removed := 0
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.totalHits),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware creates HTTP middleware for rate limiting. onLimit writes the
// rejection; nil writes a plain 429.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Limits(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := extractIP(r)
			if !rl.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP,
					"method", r.Method,
					"path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(60))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
