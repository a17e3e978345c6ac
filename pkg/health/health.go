// Package health serves the /livez and /readyz probes.
//
// Probes are registered once during startup and evaluated together on a
// single background ticker. The HTTP endpoints only read cached verdicts,
// so a slow dependency can never stall a probe response.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports whether one dependency is healthy. A nil return means
// healthy.
type CheckFunc func(ctx context.Context) error

type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service evaluates registered probes in the background and answers
// liveness and readiness requests from the cached results.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []probe
	readiness []probe
	verdicts  map[string]error
	cancel    context.CancelFunc
}

// New returns a Service with no probes and readiness off. Call SetReady
// once initialization finishes.
func New() *Service {
	return &Service{verdicts: make(map[string]error)}
}

// AddLivenessCheck registers a probe that gates /livez. Register all probes
// before calling Start.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, probe{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a probe that gates /readyz.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, probe{name: name, timeout: timeout, fn: fn})
}

// Start evaluates every probe immediately and then again at each interval
// until the context is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.evaluate(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evaluate(ctx)
			}
		}
	}()
}

// Stop cancels the background evaluation. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Shutdown sets it to false so
// the load balancer drains the instance before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// evaluate runs every registered probe once, each under its own timeout,
// and replaces the verdict cache.
func (s *Service) evaluate(ctx context.Context) {
	s.mu.RLock()
	probes := make([]probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.RUnlock()

	verdicts := make(map[string]error, len(probes))
	for _, p := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		verdicts[p.name] = p.fn(probeCtx)
		cancel()
	}

	s.mu.Lock()
	s.verdicts = verdicts
	s.mu.Unlock()
}

// failuresOf returns name -> message for every failing probe in the set.
func (s *Service) failuresOf(probes []probe) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failures := make(map[string]string)
	for _, p := range probes {
		if err, ok := s.verdicts[p.name]; ok && err != nil {
			failures[p.name] = err.Error()
		}
	}
	return failures
}

type probeStatus struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// LiveEndpoint answers /livez: 200 while every liveness probe passes,
// otherwise 503 listing the failures.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := s.liveness
	s.mu.RUnlock()

	writeStatus(w, s.failuresOf(probes))
}

// ReadyEndpoint answers /readyz: 200 only when the service was marked
// ready and every readiness probe passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := s.readiness
	s.mu.RUnlock()

	failures := s.failuresOf(probes)
	if !s.ready.Load() {
		failures["service"] = "not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := probeStatus{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = probeStatus{Status: "unavailable", Failed: failures}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
