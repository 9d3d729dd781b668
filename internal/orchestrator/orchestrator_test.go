package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/internal/monitor"
	"github.com/churnwatch/churnwatch/internal/orchestrator"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/models"
)

func records(labels map[string]int) []*models.PredictionRecord {
	var out []*models.PredictionRecord
	for label, n := range labels {
		for i := 0; i < n; i++ {
			out = append(out, models.NewPredictionRecord(models.FeatureVector{"contract": label}, 0, 0.2, "v1"))
		}
	}
	return out
}

func TestOrchestrator_AutoRetrainOnCriticalDrift(t *testing.T) {
	ctx := context.Background()

	ref, err := drift.BuildReference("v1", records(map[string]int{"monthly": 50, "yearly": 50}), 10)
	require.NoError(t, err)

	reg := registry.New(registry.NewMemoryRepository())
	require.NoError(t, reg.Promote(ctx, &models.ModelHandle{
		Version:    "v1",
		Metrics:    map[string]float64{"accuracy": 0.81},
		BaseRate:   0.0,
		Reference:  ref,
		PromotedAt: time.Now().UTC(),
	}))

	predStore := store.NewMemoryStore(store.MemoryConfig{})
	for _, r := range records(map[string]int{"monthly": 90, "yearly": 10}) {
		require.NoError(t, predStore.Append(ctx, r))
	}

	mon := monitor.New(monitor.Config{MinSamples: 30}, predStore, drift.New(drift.Config{}), reg, monitor.NewMemoryReports(), nil)

	trainer := retrain.NewMockTrainer()
	trainer.CandidateAccuracy = 0.85
	pipeline := retrain.NewPipeline(retrain.PipelineConfig{}, trainer, reg, retrain.NewMemoryRuns(), nil)

	o := orchestrator.New(orchestrator.Config{
		EvaluateInterval: 50 * time.Millisecond,
		EvaluateWindow:   time.Hour,
		AutoRetrain:      true,
	}, mon, pipeline, nil)

	require.NoError(t, o.Start())
	defer o.Stop()

	require.Eventually(t, func() bool {
		history, err := pipeline.History(ctx, 10)
		if err != nil || len(history) == 0 {
			return false
		}
		return history[0].Reason == models.TriggerDriftAlert && history[0].Status.Terminal()
	}, 3*time.Second, 20*time.Millisecond)

	assert.True(t, o.IsRunning())
}

func TestOrchestrator_NoRetrainWhenHealthy(t *testing.T) {
	ctx := context.Background()

	ref, err := drift.BuildReference("v1", records(map[string]int{"monthly": 50, "yearly": 50}), 10)
	require.NoError(t, err)

	reg := registry.New(registry.NewMemoryRepository())
	require.NoError(t, reg.Promote(ctx, &models.ModelHandle{
		Version:    "v1",
		Metrics:    map[string]float64{"accuracy": 0.81},
		Reference:  ref,
		PromotedAt: time.Now().UTC(),
	}))

	predStore := store.NewMemoryStore(store.MemoryConfig{})
	for _, r := range records(map[string]int{"monthly": 50, "yearly": 50}) {
		require.NoError(t, predStore.Append(ctx, r))
	}

	mon := monitor.New(monitor.Config{MinSamples: 30}, predStore, drift.New(drift.Config{}), reg, monitor.NewMemoryReports(), nil)
	pipeline := retrain.NewPipeline(retrain.PipelineConfig{}, retrain.NewMockTrainer(), reg, retrain.NewMemoryRuns(), nil)

	o := orchestrator.New(orchestrator.Config{
		EvaluateInterval: 50 * time.Millisecond,
		EvaluateWindow:   time.Hour,
		AutoRetrain:      true,
	}, mon, pipeline, nil)

	require.NoError(t, o.Start())
	time.Sleep(300 * time.Millisecond)
	o.Stop()

	history, err := pipeline.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.False(t, o.IsRunning())
}
