package httpmiddleware

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig bounds how many requests one client may send per window.
// Clients are told apart by their api_key header when present, otherwise by
// client IP, so every storefront integration gets its own budget.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// bucket counts a client's requests in the current window and remembers the
// previous window's count for sliding-window weighting.
type bucket struct {
	windowStart time.Time
	count       int
	prevCount   int
}

type clientLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// RateLimit returns a middleware enforcing a per-client sliding window
// limit. Rejected requests get 429 with the API error envelope, and every
// response carries X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset. Stale clients are evicted in the background until ctx
// is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := &clientLimiter{
		max:     cfg.Max,
		window:  cfg.Window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	go rl.evictLoop(ctx)
	return rl.middleware
}

func (rl *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, resetAt, ok := rl.take(clientKey(r))

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			wait := time.Until(resetAt)
			if wait < 0 {
				wait = 0
			}
			h.Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"code":429,"message":"rate limit exceeded"}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take records one request for the client and reports whether it fits the
// budget. The previous window is weighted by its remaining overlap so the
// limit cannot be doubled by straddling a window edge.
func (rl *clientLimiter) take(key string) (remaining int, resetAt time.Time, ok bool) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, found := rl.buckets[key]
	if !found {
		b = &bucket{windowStart: now}
		rl.buckets[key] = b
	}

	if age := now.Sub(b.windowStart); age >= rl.window {
		if age >= 2*rl.window {
			b.prevCount = 0
		} else {
			b.prevCount = b.count
		}
		b.count = 0
		b.windowStart = now
	}

	overlap := 1 - float64(now.Sub(b.windowStart))/float64(rl.window)
	used := float64(b.count) + float64(b.prevCount)*overlap
	resetAt = b.windowStart.Add(rl.window)

	if used >= float64(rl.max) {
		return 0, resetAt, false
	}

	b.count++
	if remaining = rl.max - int(used) - 1; remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

func (rl *clientLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

// evictStale drops buckets idle for two full windows.
func (rl *clientLimiter) evictStale() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= 2*rl.window {
			delete(rl.buckets, key)
		}
	}
}

// clientKey identifies the caller: the API key when one is presented,
// otherwise the client IP (honouring X-Forwarded-For from the edge proxy).
func clientKey(r *http.Request) string {
	if key := r.Header.Get("api_key"); key != "" {
		return "key:" + key
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
