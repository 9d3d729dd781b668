package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func trip(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errors.New("trainer down") })
	}
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name      string
		config    CircuitBreakerConfig
		setup     func(cb *CircuitBreaker)
		wantState State
	}{
		{
			name:      "success keeps the circuit closed",
			config:    CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup:     func(cb *CircuitBreaker) { cb.Execute(func() error { return nil }) },
			wantState: StateClosed,
		},
		{
			name:   "failures below threshold keep the circuit closed",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *CircuitBreaker) {
				trip(cb, 2)
			},
			wantState: StateClosed,
		},
		{
			name:   "threshold failures open the circuit",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *CircuitBreaker) {
				trip(cb, 3)
			},
			wantState: StateOpen,
		},
		{
			name:   "cooldown admits a probe and moves to half open",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: 50 * time.Millisecond, ProbeQuota: 2},
			setup: func(cb *CircuitBreaker) {
				trip(cb, 3)
				time.Sleep(100 * time.Millisecond)
				cb.Execute(func() error { return nil })
			},
			wantState: StateHalfOpen,
		},
		{
			name:   "enough probe successes close the circuit",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: 50 * time.Millisecond, ProbeQuota: 2},
			setup: func(cb *CircuitBreaker) {
				trip(cb, 3)
				time.Sleep(100 * time.Millisecond)
				cb.Execute(func() error { return nil })
				cb.Execute(func() error { return nil })
			},
			wantState: StateClosed,
		},
		{
			name:   "probe failure reopens the circuit",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: 50 * time.Millisecond, ProbeQuota: 2},
			setup: func(cb *CircuitBreaker) {
				trip(cb, 3)
				time.Sleep(100 * time.Millisecond)
				cb.Execute(func() error { return errors.New("still down") })
			},
			wantState: StateOpen,
		},
		{
			name:   "reset forces the circuit closed",
			config: CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Hour},
			setup: func(cb *CircuitBreaker) {
				trip(cb, 3)
				cb.Reset()
			},
			wantState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(tt.config)

			tt.setup(cb)

			assert.Equal(t, tt.wantState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenRejectsCalls(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour})
	trip(cb, 2)

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "trainer", MaxFailures: 3, Timeout: time.Hour})
	trip(cb, 2)

	snap := cb.Stats()

	assert.Equal(t, "trainer", snap.Name)
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 2, snap.Failures)
	assert.True(t, snap.OpenedAt.IsZero())

	trip(cb, 1)
	snap = cb.Stats()

	assert.Equal(t, StateOpen, snap.State)
	assert.False(t, snap.OpenedAt.IsZero())
}
