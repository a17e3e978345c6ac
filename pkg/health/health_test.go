package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) probeStatus {
	t.Helper()
	var s probeStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	return s
}

func TestReadyEndpoint_GatedOnSetReady(t *testing.T) {
	svc := New()

	rec := httptest.NewRecorder()
	svc.ReadyEndpoint(rec, nil)
	require.Equal(t, 503, rec.Code)
	assert.Equal(t, "not ready", decodeStatus(t, rec).Failed["service"])

	svc.SetReady(true)

	rec = httptest.NewRecorder()
	svc.ReadyEndpoint(rec, nil)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", decodeStatus(t, rec).Status)
}

func TestFailingProbeReportedByName(t *testing.T) {
	svc := New()
	svc.SetReady(true)
	svc.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	svc.AddLivenessCheck("goroutines", time.Second, func(context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 10*time.Millisecond)
	defer svc.Stop()

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, nil)
		return rec.Code == 503
	}, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	svc.ReadyEndpoint(rec, nil)
	status := decodeStatus(t, rec)
	assert.Equal(t, "unavailable", status.Status)
	assert.Equal(t, "connection refused", status.Failed["postgres"])

	// The failing readiness probe must not poison /livez.
	rec = httptest.NewRecorder()
	svc.LiveEndpoint(rec, nil)
	assert.Equal(t, 200, rec.Code)
}

func TestProbeTimeoutFailsCheck(t *testing.T) {
	svc := New()
	svc.SetReady(true)
	svc.AddReadinessCheck("slow", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 10*time.Millisecond)
	defer svc.Stop()

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, nil)
		return rec.Code == 503 && decodeStatus(t, rec).Failed["slow"] != ""
	}, time.Second, 5*time.Millisecond)
}

func TestRecoveryWithoutHysteresis(t *testing.T) {
	var healthy atomic.Bool
	svc := New()
	svc.SetReady(true)
	svc.AddReadinessCheck("flaky", time.Second, func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("down")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 10*time.Millisecond)
	defer svc.Stop()

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, nil)
		return rec.Code == 503
	}, time.Second, 5*time.Millisecond)

	// A single passing evaluation is enough to serve traffic again.
	healthy.Store(true)
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		svc.ReadyEndpoint(rec, nil)
		return rec.Code == 200
	}, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	svc := New()
	svc.Start(context.Background(), time.Minute)
	svc.Stop()
	svc.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(fakePinger{})(context.Background()))

	wantErr := errors.New("no route to host")
	assert.ErrorIs(t, PingCheck(fakePinger{err: wantErr})(context.Background()), wantErr)
}
