package retrain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/pkg/models"
)

func activeModel(t *testing.T, reg *registry.Registry, accuracy float64) *models.ModelHandle {
	t.Helper()
	handle := &models.ModelHandle{
		Version:  "v1",
		Metrics:  map[string]float64{"accuracy": accuracy},
		BaseRate: 0.27,
		Reference: &models.ReferenceDistribution{
			ModelVersion: "v1",
			CapturedAt:   time.Now().UTC(),
			Numeric:      map[string]models.NumericDistribution{},
			Categorical:  map[string]models.CategoricalDistribution{},
		},
		PromotedAt: time.Now().UTC(),
	}
	require.NoError(t, reg.Promote(context.Background(), handle))
	return handle
}

func newPipeline(trainer retrain.Trainer, reg *registry.Registry) (*retrain.Pipeline, *retrain.MemoryRuns) {
	runs := retrain.NewMemoryRuns()
	p := retrain.NewPipeline(retrain.PipelineConfig{
		DecisionMetric:       "accuracy",
		ImprovementThreshold: 0.01,
		Timeout:              5 * time.Second,
	}, trainer, reg, runs, nil)
	return p, runs
}

func waitTerminal(t *testing.T, p *retrain.Pipeline, id string) *models.RetrainRun {
	t.Helper()
	var run *models.RetrainRun
	require.Eventually(t, func() bool {
		var err error
		run, err = p.Get(context.Background(), id)
		return err == nil && run.Status.Terminal()
	}, 3*time.Second, 10*time.Millisecond)
	return run
}

func TestPipeline_PromotesOnImprovement(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.CandidateAccuracy = 0.83
	p, _ := newPipeline(trainer, reg)

	run, err := p.Trigger(context.Background(), models.TriggerManual, false)
	require.NoError(t, err)
	assert.Equal(t, models.RunPending, run.Status)

	done := waitTerminal(t, p, run.ID)
	assert.Equal(t, models.RunCompleted, done.Status)
	assert.Equal(t, models.DecisionPromoted, done.Decision)
	assert.InDelta(t, 0.02, done.Delta, 1e-9)

	active := reg.Active()
	require.NotNil(t, active)
	assert.NotEqual(t, "v1", active.Version)
	assert.Equal(t, active.Version, active.Reference.ModelVersion)
}

func TestPipeline_DeltaAtThresholdIsRejected(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.CandidateAccuracy = 0.82 // delta exactly 0.01
	p, _ := newPipeline(trainer, reg)

	run, err := p.Trigger(context.Background(), models.TriggerManual, false)
	require.NoError(t, err)

	done := waitTerminal(t, p, run.ID)
	assert.Equal(t, models.RunCompleted, done.Status)
	assert.Equal(t, models.DecisionRejected, done.Decision)
	assert.Equal(t, "v1", reg.Active().Version)
}

func TestPipeline_ForcePromotesWorseCandidate(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.CandidateAccuracy = 0.75
	p, _ := newPipeline(trainer, reg)

	run, err := p.Trigger(context.Background(), models.TriggerManual, true)
	require.NoError(t, err)

	done := waitTerminal(t, p, run.ID)
	assert.Equal(t, models.DecisionPromoted, done.Decision)
	assert.Negative(t, done.Delta)
	assert.NotEqual(t, "v1", reg.Active().Version)
}

func TestPipeline_ConcurrentTriggersAdmitExactlyOne(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.Delay = 200 * time.Millisecond
	p, _ := newPipeline(trainer, reg)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var started []*models.RetrainRun
	conflicts := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := p.Trigger(context.Background(), models.TriggerManual, false)
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, retrain.ErrRunInProgress) {
				conflicts++
				return
			}
			assert.NoError(t, err)
			started = append(started, run)
		}()
	}
	wg.Wait()

	assert.Len(t, started, 1)
	assert.Equal(t, 7, conflicts)
	waitTerminal(t, p, started[0].ID)
}

func TestPipeline_TrainingFailureKeepsActiveModel(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	current := activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.Err = errors.New("training backend exploded")
	p, _ := newPipeline(trainer, reg)

	run, err := p.Trigger(context.Background(), models.TriggerDriftAlert, false)
	require.NoError(t, err)

	done := waitTerminal(t, p, run.ID)
	assert.Equal(t, models.RunFailed, done.Status)
	assert.Contains(t, done.FailureReason, "exploded")
	assert.Same(t, current, reg.Active())
}

func TestPipeline_CancelFailsRunAsCancelled(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.Delay = 5 * time.Second
	p, _ := newPipeline(trainer, reg)

	run, err := p.Trigger(context.Background(), models.TriggerManual, false)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		r, err := p.Get(context.Background(), run.ID)
		return err == nil && r.Status == models.RunRunning
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Cancel(run.ID))

	done := waitTerminal(t, p, run.ID)
	assert.Equal(t, models.RunFailed, done.Status)
	assert.Equal(t, "cancelled", done.FailureReason)
	assert.Equal(t, "v1", reg.Active().Version)
}

func TestPipeline_CancelUnknownRun(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	p, _ := newPipeline(retrain.NewMockTrainer(), reg)

	err := p.Cancel("no-such-run")
	assert.ErrorIs(t, err, retrain.ErrRunNotFound)
}

func TestPipeline_NextRunAllowedAfterCompletion(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	activeModel(t, reg, 0.81)

	trainer := retrain.NewMockTrainer()
	trainer.CandidateAccuracy = 0.83
	p, _ := newPipeline(trainer, reg)

	first, err := p.Trigger(context.Background(), models.TriggerManual, false)
	require.NoError(t, err)
	waitTerminal(t, p, first.ID)

	second, err := p.Trigger(context.Background(), models.TriggerScheduled, false)
	require.NoError(t, err)
	done := waitTerminal(t, p, second.ID)
	assert.True(t, done.Status.Terminal())

	history, err := p.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
}

func TestPipeline_NoActiveModelPromotesFirstCandidate(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())
	trainer := retrain.NewMockTrainer()
	p, _ := newPipeline(trainer, reg)

	run, err := p.Trigger(context.Background(), models.TriggerManual, false)
	require.NoError(t, err)

	done := waitTerminal(t, p, run.ID)
	assert.Equal(t, models.DecisionPromoted, done.Decision)
	require.NotNil(t, reg.Active())
}
