package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedHandler(t *testing.T, max int, window time.Duration) (*clientLimiter, http.Handler) {
	t.Helper()

	rl := &clientLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	h := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return rl, h
}

func limitedRequest(h http.Handler, apiKey, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	if apiKey != "" {
		req.Header.Set("api_key", apiKey)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	_, h := newLimitedHandler(t, 3, time.Minute)

	for i := range 3 {
		rec := limitedRequest(h, "store-key", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := limitedRequest(h, "store-key", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
	assert.Equal(t, "rate limit exceeded", body.Message)
}

func TestRateLimit_BudgetPerAPIKey(t *testing.T) {
	// Two integrations behind the same proxy IP must not share a budget.
	_, h := newLimitedHandler(t, 1, time.Minute)

	require.Equal(t, http.StatusOK, limitedRequest(h, "key-a", "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusTooManyRequests, limitedRequest(h, "key-a", "10.0.0.1:1234").Code)

	assert.Equal(t, http.StatusOK, limitedRequest(h, "key-b", "10.0.0.1:1234").Code)
}

func TestRateLimit_FallsBackToClientIP(t *testing.T) {
	_, h := newLimitedHandler(t, 1, time.Minute)

	require.Equal(t, http.StatusOK, limitedRequest(h, "", "10.0.0.1:1111").Code)
	require.Equal(t, http.StatusTooManyRequests, limitedRequest(h, "", "10.0.0.1:2222").Code,
		"same IP, different port is the same client")

	assert.Equal(t, http.StatusOK, limitedRequest(h, "", "10.0.0.2:1111").Code)
}

func TestRateLimit_XForwardedForWins(t *testing.T) {
	_, h := newLimitedHandler(t, 1, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req2.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	req2.RemoteAddr = "10.0.0.2:9999"
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code,
		"the forwarded client, not the proxy hop, is the client")
}

func TestRateLimit_WindowSlides(t *testing.T) {
	rl, h := newLimitedHandler(t, 2, time.Minute)

	base := time.Now()
	clock := base
	rl.now = func() time.Time { return clock }

	require.Equal(t, http.StatusOK, limitedRequest(h, "k", "").Code)
	require.Equal(t, http.StatusOK, limitedRequest(h, "k", "").Code)
	require.Equal(t, http.StatusTooManyRequests, limitedRequest(h, "k", "").Code)

	// Just past the window edge the previous window still weighs in, so the
	// budget is not instantly doubled.
	clock = base.Add(time.Minute + time.Second)
	require.Equal(t, http.StatusTooManyRequests, limitedRequest(h, "k", "").Code)

	// Deep into the next window the old requests have aged out.
	clock = base.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, limitedRequest(h, "k", "").Code)
}

func TestRateLimit_EvictsStaleClients(t *testing.T) {
	rl, h := newLimitedHandler(t, 5, time.Minute)

	base := time.Now()
	clock := base
	rl.now = func() time.Time { return clock }

	limitedRequest(h, "old-key", "")
	require.Len(t, rl.buckets, 1)

	clock = base.Add(3 * time.Minute)
	rl.evictStale()
	assert.Empty(t, rl.buckets)
}

func TestRateLimit_CancelStopsEviction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mw := RateLimit(ctx, RateLimitConfig{Max: 1, Window: time.Millisecond})
	cancel()

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	assert.Equal(t, http.StatusOK, limitedRequest(h, "k", "").Code)
}
