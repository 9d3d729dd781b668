package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/pkg/models"
)

// MemoryStore keeps the prediction log in memory, bounded by a record limit.
// When the limit is exceeded the oldest records are dropped.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.PredictionRecord
	limit   int
}

type MemoryConfig struct {
	Limit int
}

func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 100000
	}
	return &MemoryStore{
		records: make([]*models.PredictionRecord, 0, 1024),
		limit:   limit,
	}
}

func (s *MemoryStore) Append(ctx context.Context, record *models.PredictionRecord) error {
	if err := validate(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if len(s.records) > s.limit {
		overflow := len(s.records) - s.limit
		s.records = append(s.records[:0:0], s.records[overflow:]...)
	}
	return nil
}

func (s *MemoryStore) Window(ctx context.Context, from, to time.Time) ([]*models.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.PredictionRecord
	for _, r := range s.records {
		if !r.Timestamp.Before(from) && r.Timestamp.Before(to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if !r.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Stats(ctx context.Context, from, to time.Time) (*models.PredictionStats, error) {
	records, err := s.Window(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stats := &models.PredictionStats{
		From:       from,
		To:         to,
		RiskCounts: map[models.RiskLevel]int{},
	}

	var probSum float64
	for _, r := range records {
		stats.Total++
		probSum += r.Probability
		stats.RiskCounts[r.RiskLevel]++
		if r.PredictedClass == 1 {
			stats.PositiveCount++
		}
	}
	if stats.Total > 0 {
		stats.PositiveRate = float64(stats.PositiveCount) / float64(stats.Total)
		stats.AvgProbability = probSum / float64(stats.Total)
	}

	return stats, nil
}

// Len reports the current number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
