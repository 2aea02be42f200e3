// File: internal/autofix/breaker.go
package autofix

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// BreakerRegistry tracks per-module failure counts and opens a breaker once a
// module fails too often. An open breaker makes the orchestrator skip issues
// routed to that module until the reset window elapses, at which point the
// breaker half-opens: the counter clears and the module gets one fresh chance.
type BreakerRegistry struct {
	mu        sync.Mutex
	states    map[string]*breakerState
	threshold int
	reset     time.Duration
	logger    *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

type breakerState struct {
	failures    int
	open        bool
	lastFailure time.Time
}

// NewBreakerRegistry builds a registry with the given trip threshold and
// reset window.
func NewBreakerRegistry(threshold int, reset time.Duration, logger *zap.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		states:    make(map[string]*breakerState),
		threshold: threshold,
		reset:     reset,
		logger:    logger.Named("breaker"),
		now:       time.Now,
	}
}

// Allow reports whether work may be routed to the module. An open breaker
// whose reset window has elapsed half-opens here as a side effect.
func (r *BreakerRegistry) Allow(moduleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[moduleID]
	if !ok || !state.open {
		return true
	}
	if r.now().Sub(state.lastFailure) < r.reset {
		return false
	}

	// Half-open: clear the slate and retry the module.
	state.failures = 0
	state.open = false
	r.logger.Info("Circuit breaker half-open; retrying module.", zap.String("module_id", moduleID))
	return true
}

// RecordSuccess decrements the failure counter (floored at zero) and closes
// the breaker.
func (r *BreakerRegistry) RecordSuccess(moduleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[moduleID]
	if !ok {
		return
	}
	if state.failures > 0 {
		state.failures--
	}
	state.open = false
}

// RecordFailure increments the failure counter and opens the breaker once the
// threshold is crossed.
func (r *BreakerRegistry) RecordFailure(moduleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[moduleID]
	if !ok {
		state = &breakerState{}
		r.states[moduleID] = state
	}
	state.failures++
	state.lastFailure = r.now()
	if state.failures >= r.threshold && !state.open {
		state.open = true
		r.logger.Warn("Circuit breaker opened for failing module.",
			zap.String("module_id", moduleID),
			zap.Int("failures", state.failures))
	}
}

// Failures returns the current failure count for a module.
func (r *BreakerRegistry) Failures(moduleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[moduleID]; ok {
		return state.failures
	}
	return 0
}

// Open reports whether the breaker for a module is currently open, ignoring
// the reset window.
func (r *BreakerRegistry) Open(moduleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[moduleID]; ok {
		return state.open
	}
	return false
}
