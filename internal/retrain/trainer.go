// Package retrain runs the retraining workflow: train a candidate model,
// compare it against the active one, and promote or reject it.
package retrain

import (
	"context"
	"errors"
	"time"

	"github.com/churnwatch/churnwatch/pkg/models"
)

var (
	ErrTrainingFailed  = errors.New("training failed")
	ErrTimeout         = errors.New("training timeout")
	ErrInvalidResponse = errors.New("invalid response from training service")
)

// TrainRequest tells the training service what to train on.
type TrainRequest struct {
	RunID       string    `json:"run_id"`
	Reason      string    `json:"reason"`
	WindowFrom  time.Time `json:"window_from"`
	WindowTo    time.Time `json:"window_to"`
	BaseVersion string    `json:"base_version,omitempty"`
}

// TrainResult is the candidate a training job produced.
type TrainResult struct {
	Version      string                        `json:"version"`
	Metrics      map[string]float64            `json:"metrics"`
	BaseRate     float64                       `json:"base_rate"`
	ArtifactPath string                        `json:"artifact_path,omitempty"`
	Reference    *models.ReferenceDistribution `json:"reference"`
}

// Trainer runs one training job.
type Trainer interface {
	// Train blocks until the job finishes or ctx is cancelled.
	Train(ctx context.Context, req TrainRequest) (*TrainResult, error)

	// HealthCheck verifies the trainer can reach its backend
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the trainer
	Close() error
}
