// Package store persists the prediction log that drift detection and
// monitoring read from. Two implementations exist: an in-memory ring used in
// tests and the simulator, and a Postgres-backed store for production.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/churnwatch/churnwatch/pkg/models"
)

var ErrInvalidRecord = errors.New("invalid prediction record")

// Store is the append-only prediction log.
type Store interface {
	// Append writes one record. Records are immutable once written.
	Append(ctx context.Context, record *models.PredictionRecord) error

	// Window returns records with from <= timestamp < to, oldest first.
	Window(ctx context.Context, from, to time.Time) ([]*models.PredictionRecord, error)

	// CountSince returns the number of records at or after the given time.
	CountSince(ctx context.Context, since time.Time) (int, error)

	// Stats summarizes the window [from, to).
	Stats(ctx context.Context, from, to time.Time) (*models.PredictionStats, error)
}

func validate(record *models.PredictionRecord) error {
	if record == nil || record.ID == "" || record.ModelVersion == "" {
		return ErrInvalidRecord
	}
	if record.Probability < 0 || record.Probability > 1 {
		return ErrInvalidRecord
	}
	return nil
}
