package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/models"
)

func record(ts time.Time, class int, probability float64) *models.PredictionRecord {
	r := models.NewPredictionRecord(models.FeatureVector{"tenure": 12.0}, class, probability, "v1")
	r.Timestamp = ts
	return r
}

func TestMemoryStore_AppendAndWindow(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryConfig{})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, record(base.Add(time.Duration(i)*time.Minute), 0, 0.2)))
	}

	// Window is half-open: [from, to)
	got, err := s.Window(ctx, base, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
	}
}

func TestMemoryStore_AppendValidation(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryConfig{})
	ctx := context.Background()

	tests := []struct {
		name   string
		record *models.PredictionRecord
	}{
		{name: "nil record", record: nil},
		{name: "missing model version", record: &models.PredictionRecord{ID: "x", Probability: 0.5}},
		{name: "probability out of range", record: &models.PredictionRecord{ID: "x", ModelVersion: "v1", Probability: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Append(ctx, tt.record)
			assert.ErrorIs(t, err, store.ErrInvalidRecord)
		})
	}
}

func TestMemoryStore_LimitDropsOldest(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryConfig{Limit: 10})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		require.NoError(t, s.Append(ctx, record(base.Add(time.Duration(i)*time.Second), 0, 0.1)))
	}

	assert.Equal(t, 10, s.Len())

	// Only the newest 10 survive
	got, err := s.Window(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, base.Add(15*time.Second), got[0].Timestamp)
}

func TestMemoryStore_Stats(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryConfig{})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	probs := []struct {
		class int
		p     float64
	}{
		{1, 0.9}, {1, 0.7}, {0, 0.2}, {0, 0.4}, {0, 0.1},
	}
	for i, pr := range probs {
		require.NoError(t, s.Append(ctx, record(base.Add(time.Duration(i)*time.Second), pr.class, pr.p)))
	}

	stats, err := s.Stats(ctx, base, base.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.PositiveCount)
	assert.InDelta(t, 0.4, stats.PositiveRate, 1e-9)
	assert.InDelta(t, 0.46, stats.AvgProbability, 1e-9)
	assert.Equal(t, 2, stats.RiskCounts[models.RiskLow])
	assert.Equal(t, 1, stats.RiskCounts[models.RiskMedium])
	assert.Equal(t, 2, stats.RiskCounts[models.RiskHigh])
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryConfig{})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	workers := 8
	perWorker := 100
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r := record(base.Add(time.Duration(i)*time.Millisecond), 0, 0.3)
				r.ID = fmt.Sprintf("w%d-%d", w, i)
				_ = s.Append(ctx, r)
			}
		}(w)
	}
	wg.Wait()

	count, err := s.CountSince(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, count)
}
