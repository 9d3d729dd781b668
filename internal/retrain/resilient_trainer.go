package retrain

import (
	"context"
	"time"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/resilience"
)

// ResilientTrainer wraps a Trainer with retries and a circuit breaker so a
// flapping training service does not hammer itself into the ground.
type ResilientTrainer struct {
	trainer        Trainer
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientTrainerConfig struct {
	Trainer       Trainer
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func NewResilientTrainer(cfg ResilientTrainerConfig) *ResilientTrainer {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "trainer",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.Timeout,
	})

	return &ResilientTrainer{
		trainer:        cfg.Trainer,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (t *ResilientTrainer) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	var result *TrainResult
	var lastErr error

	err := t.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= t.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			result, err = t.trainer.Train(ctx, req)
			if err == nil {
				return nil
			}

			lastErr = err
			logger.WithRun(req.RunID).Warnf(
				"Training attempt %d/%d failed: %v",
				attempt, t.retryAttempts, err,
			)

			if attempt < t.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(t.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (t *ResilientTrainer) HealthCheck(ctx context.Context) error {
	return t.trainer.HealthCheck(ctx)
}

func (t *ResilientTrainer) Close() error {
	return t.trainer.Close()
}

func (t *ResilientTrainer) CircuitState() resilience.State {
	return t.circuitBreaker.State()
}

func (t *ResilientTrainer) ResetCircuit() {
	t.circuitBreaker.Reset()
}
