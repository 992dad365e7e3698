package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows a fixed number of requests per client within a window.
// Database-backed endpoints sit behind it so a polling dashboard cannot
// starve the simulation writer.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	remaining int
	opened    time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow reports whether the client may make another request, consuming
// one slot when it may.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[client]
	if !ok || now.Sub(w.opened) >= rl.period {
		rl.windows[client] = &window{remaining: rl.limit - 1, opened: now}
		return rl.limit > 0
	}
	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// RetryAfter returns the whole seconds until the client's window reopens.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[client]
	if !ok {
		return 0
	}
	left := rl.period - rl.now().Sub(w.opened)
	if left <= 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

// sweep drops windows idle for two periods. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if len(rl.windows) < 1024 {
		return
	}
	for client, w := range rl.windows {
		if now.Sub(w.opened) > 2*rl.period {
			delete(rl.windows, client)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware wraps a handler with rate limiting. Returns 429 if exceeded.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
