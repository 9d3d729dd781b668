package store

import (
	"context"
	"time"

	"github.com/churnwatch/churnwatch/pkg/database/queries"
	"github.com/churnwatch/churnwatch/pkg/models"
)

// PostgresStore backs the prediction log with the predictions table.
type PostgresStore struct {
	repo        *queries.PredictionRepository
	windowLimit int
}

type PostgresConfig struct {
	WindowLimit int
}

func NewPostgresStore(repo *queries.PredictionRepository, cfg PostgresConfig) *PostgresStore {
	limit := cfg.WindowLimit
	if limit <= 0 {
		limit = 100000
	}
	return &PostgresStore{repo: repo, windowLimit: limit}
}

func (s *PostgresStore) Append(ctx context.Context, record *models.PredictionRecord) error {
	if err := validate(record); err != nil {
		return err
	}
	return s.repo.Insert(ctx, record)
}

func (s *PostgresStore) Window(ctx context.Context, from, to time.Time) ([]*models.PredictionRecord, error) {
	return s.repo.Window(ctx, from, to, s.windowLimit)
}

func (s *PostgresStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	return s.repo.CountSince(ctx, since)
}

func (s *PostgresStore) Stats(ctx context.Context, from, to time.Time) (*models.PredictionStats, error) {
	return s.repo.Stats(ctx, from, to)
}

// Prune deletes records older than the retention cutoff and returns how many
// rows were removed.
func (s *PostgresStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
}
