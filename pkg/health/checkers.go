package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by connection pools that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a readiness probe that verifies the dependency answers
// a ping within the probe timeout.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// GoroutineCountCheck returns a liveness probe that fails once the process
// exceeds the given goroutine count, a cheap proxy for leaks.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("goroutine count %d exceeds limit %d", n, limit)
		}
		return nil
	}
}
