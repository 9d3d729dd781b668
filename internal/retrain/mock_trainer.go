package retrain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/pkg/models"
)

// MockTrainer fabricates candidates without an external service. Used by
// tests and the simulator.
type MockTrainer struct {
	mu        sync.Mutex
	calls     int
	Delay     time.Duration
	Err       error
	TrainFunc func(ctx context.Context, req TrainRequest) (*TrainResult, error)

	// CandidateAccuracy sets the accuracy of fabricated candidates.
	CandidateAccuracy float64
	// BaseRate sets the fabricated training base rate.
	BaseRate float64
	// Bins is the histogram resolution of fabricated references.
	Bins int
}

func NewMockTrainer() *MockTrainer {
	return &MockTrainer{
		CandidateAccuracy: 0.82,
		BaseRate:          0.27,
		Bins:              10,
	}
}

func (t *MockTrainer) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	t.mu.Lock()
	t.calls++
	calls := t.calls
	t.mu.Unlock()

	if t.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.Delay):
		}
	}

	if t.TrainFunc != nil {
		return t.TrainFunc(ctx, req)
	}
	if t.Err != nil {
		return nil, t.Err
	}

	version := fmt.Sprintf("mock-v%d", calls)
	training := []*models.PredictionRecord{
		models.NewPredictionRecord(models.FeatureVector{"tenure": 12.0, "contract": "monthly"}, 0, 0.2, version),
		models.NewPredictionRecord(models.FeatureVector{"tenure": 40.0, "contract": "yearly"}, 1, 0.7, version),
	}
	bins := t.Bins
	if bins <= 0 {
		bins = 10
	}
	ref, err := drift.BuildReference(version, training, bins)
	if err != nil {
		return nil, err
	}

	return &TrainResult{
		Version:   version,
		Metrics:   map[string]float64{"accuracy": t.CandidateAccuracy, "f1": t.CandidateAccuracy - 0.05},
		BaseRate:  t.BaseRate,
		Reference: ref,
	}, nil
}

func (t *MockTrainer) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *MockTrainer) HealthCheck(ctx context.Context) error {
	return nil
}

func (t *MockTrainer) Close() error {
	return nil
}
