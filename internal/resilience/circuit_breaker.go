// Package resilience guards calls to the external training service. A
// breaker that trips after repeated failures keeps a dead trainer from
// absorbing every retrain attempt while it recovers.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/logger"
)

var ErrCircuitOpen = errors.New("circuit open: upstream unavailable")

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// CircuitBreaker trips open after MaxFailures consecutive failures. Once the
// cooldown elapses it admits probe calls; ProbeQuota consecutive successes
// close it again, a single probe failure reopens it.
type CircuitBreaker struct {
	name       string
	threshold  int
	cooldown   time.Duration
	probeQuota int

	mu           sync.RWMutex
	state        State
	consecFails  int
	probeSuccess int
	openedAt     time.Time
}

type CircuitBreakerConfig struct {
	Name        string
	MaxFailures int
	Timeout     time.Duration
	ProbeQuota  int
}

// Snapshot is a point-in-time view of the breaker for status reporting.
type Snapshot struct {
	Name     string    `json:"name"`
	State    State     `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ProbeQuota <= 0 {
		cfg.ProbeQuota = 3
	}

	return &CircuitBreaker{
		name:       cfg.Name,
		threshold:  cfg.MaxFailures,
		cooldown:   cfg.Timeout,
		probeQuota: cfg.ProbeQuota,
		state:      StateClosed,
	}
}

// Execute runs fn unless the circuit is open, and feeds the outcome back
// into the breaker state.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) <= cb.cooldown {
			return false
		}
		cb.shift(StateHalfOpen)
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.consecFails = 0
	case StateHalfOpen:
		cb.probeSuccess++
		if cb.probeSuccess >= cb.probeQuota {
			cb.shift(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.consecFails++
		if cb.consecFails >= cb.threshold {
			cb.openedAt = time.Now()
			cb.shift(StateOpen)
		}
	case StateHalfOpen:
		cb.openedAt = time.Now()
		cb.shift(StateOpen)
	}
}

// shift changes state and resets the counters. Caller holds the lock.
func (cb *CircuitBreaker) shift(next State) {
	prev := cb.state
	cb.state = next
	cb.consecFails = 0
	cb.probeSuccess = 0

	logger.WithFields(map[string]interface{}{
		"breaker": cb.name,
		"from":    prev,
		"to":      next,
	}).Warn("Circuit breaker state change")
}

func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed, clearing all failure history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.consecFails = 0
	cb.probeSuccess = 0
}

func (cb *CircuitBreaker) Stats() Snapshot {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	snap := Snapshot{
		Name:     cb.name,
		State:    cb.state,
		Failures: cb.consecFails,
	}
	if cb.state == StateOpen {
		snap.OpenedAt = cb.openedAt
	}
	return snap
}
