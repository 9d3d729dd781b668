package retrain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/events"
	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/pkg/models"
)

var (
	ErrRunInProgress = errors.New("a retrain run is already in progress")
	ErrRunNotFound   = errors.New("retrain run not found")
	ErrRunNotRunning = errors.New("retrain run is not running")
)

const cancelledReason = "cancelled"

type PipelineConfig struct {
	// DecisionMetric is the metric name compared between candidate and
	// active model, e.g. "accuracy".
	DecisionMetric string
	// ImprovementThreshold is the minimum strict improvement required for
	// promotion. A delta exactly at the threshold is rejected.
	ImprovementThreshold float64
	// Timeout bounds a single training job.
	Timeout time.Duration
	// TrainingWindow is how far back the training data window reaches.
	TrainingWindow time.Duration
}

// Pipeline owns the retrain workflow. At most one run is live at a time;
// concurrent triggers beyond the first fail with ErrRunInProgress.
type Pipeline struct {
	cfg       PipelineConfig
	trainer   Trainer
	registry  *registry.Registry
	runs      RunStore
	publisher *events.Publisher

	// guard serializes trigger admission.
	guard chan struct{}

	mu      sync.Mutex
	current *liveRun
}

type liveRun struct {
	run    *models.RetrainRun
	cancel context.CancelFunc
}

func NewPipeline(cfg PipelineConfig, trainer Trainer, reg *registry.Registry, runs RunStore, publisher *events.Publisher) *Pipeline {
	if cfg.DecisionMetric == "" {
		cfg.DecisionMetric = "accuracy"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.TrainingWindow <= 0 {
		cfg.TrainingWindow = 30 * 24 * time.Hour
	}

	guard := make(chan struct{}, 1)
	guard <- struct{}{}

	return &Pipeline{
		cfg:       cfg,
		trainer:   trainer,
		registry:  reg,
		runs:      runs,
		publisher: publisher,
		guard:     guard,
	}
}

// Trigger starts a retrain run asynchronously and returns it in PENDING
// state. The force flag skips the improvement gate at decision time.
func (p *Pipeline) Trigger(ctx context.Context, reason models.TriggerReason, force bool) (*models.RetrainRun, error) {
	select {
	case <-p.guard:
	default:
		return nil, ErrRunInProgress
	}

	run := models.NewRetrainRun(reason, force)
	if err := p.runs.Insert(ctx, run); err != nil {
		p.guard <- struct{}{}
		return nil, fmt.Errorf("persist retrain run: %w", err)
	}

	runCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	p.mu.Lock()
	p.current = &liveRun{run: run, cancel: cancel}
	p.mu.Unlock()

	go p.execute(runCtx, cancel, run)

	snapshot := *run
	return &snapshot, nil
}

// Cancel aborts the live run. The run finishes as FAILED with a cancelled
// failure reason.
func (p *Pipeline) Cancel(id string) error {
	p.mu.Lock()
	live := p.current
	p.mu.Unlock()
	if live == nil || live.run.ID != id {
		run, err := p.runs.Get(context.Background(), id)
		if err != nil {
			return err
		}
		if run == nil {
			return ErrRunNotFound
		}
		return ErrRunNotRunning
	}

	live.cancel()
	logger.WithRun(id).Info("Retrain run cancellation requested")
	return nil
}

// Get returns one run from the history.
func (p *Pipeline) Get(ctx context.Context, id string) (*models.RetrainRun, error) {
	run, err := p.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// History lists past runs, newest first.
func (p *Pipeline) History(ctx context.Context, limit int) ([]*models.RetrainRun, error) {
	return p.runs.List(ctx, limit)
}

func (p *Pipeline) execute(ctx context.Context, cancel context.CancelFunc, run *models.RetrainRun) {
	defer cancel()
	defer func() {
		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
		p.guard <- struct{}{}
	}()

	run.Status = models.RunRunning
	p.persist(ctx, run)
	if p.publisher != nil {
		p.publisher.RetrainStarted(run)
	}

	active := p.registry.Active()
	req := TrainRequest{
		RunID:      run.ID,
		Reason:     string(run.Reason),
		WindowFrom: run.StartedAt.Add(-p.cfg.TrainingWindow),
		WindowTo:   run.StartedAt,
	}
	if active != nil {
		req.BaseVersion = active.Version
		run.OldMetrics = active.Metrics
	}

	result, err := p.trainer.Train(ctx, req)
	if err != nil {
		p.fail(run, err)
		return
	}

	run.NewMetrics = result.Metrics

	currentValue := 0.0
	hasCurrent := false
	if active != nil {
		currentValue, hasCurrent = active.Metric(p.cfg.DecisionMetric)
	}
	candidateValue, ok := result.Metrics[p.cfg.DecisionMetric]
	if !ok {
		p.fail(run, fmt.Errorf("%w: candidate is missing metric %q", ErrInvalidResponse, p.cfg.DecisionMetric))
		return
	}
	run.Delta = candidateValue - currentValue

	promote := run.Forced || !hasCurrent || run.Delta > p.cfg.ImprovementThreshold
	if !promote {
		p.finish(run, models.DecisionRejected)
		return
	}

	handle := &models.ModelHandle{
		Version:      result.Version,
		Metrics:      result.Metrics,
		BaseRate:     result.BaseRate,
		ArtifactPath: result.ArtifactPath,
		Reference:    result.Reference,
		PromotedAt:   time.Now().UTC(),
	}
	if err := p.registry.Promote(ctx, handle); err != nil {
		p.fail(run, err)
		return
	}

	if p.publisher != nil {
		p.publisher.ModelPromoted(handle, run.Delta)
	}
	p.finish(run, models.DecisionPromoted)
}

func (p *Pipeline) finish(run *models.RetrainRun, decision models.RunDecision) {
	now := time.Now().UTC()
	run.Status = models.RunCompleted
	run.Decision = decision
	run.FinishedAt = &now
	p.persist(context.Background(), run)

	logger.WithRun(run.ID).WithField("decision", decision).Info("Retrain run completed")
	if p.publisher != nil {
		p.publisher.RetrainCompleted(run)
	}
}

func (p *Pipeline) fail(run *models.RetrainRun, cause error) {
	now := time.Now().UTC()
	run.Status = models.RunFailed
	run.FinishedAt = &now
	if errors.Is(cause, context.Canceled) {
		run.FailureReason = cancelledReason
	} else {
		run.FailureReason = cause.Error()
	}
	p.persist(context.Background(), run)

	logger.WithRun(run.ID).Errorf("Retrain run failed: %s", run.FailureReason)
	if p.publisher != nil {
		p.publisher.RetrainFailed(run)
	}
}

func (p *Pipeline) persist(ctx context.Context, run *models.RetrainRun) {
	if err := p.runs.Update(ctx, run); err != nil {
		logger.WithRun(run.ID).Errorf("Failed to persist retrain run: %v", err)
	}
}
