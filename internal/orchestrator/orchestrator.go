// Package orchestrator drives the periodic evaluation cycle: score the
// latest prediction window, react to a critical status with an automatic
// retrain, and fire scheduled retrains.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/events"
	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/monitor"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/pkg/models"
)

type Config struct {
	// EvaluateInterval is how often the monitor scores the latest window.
	EvaluateInterval time.Duration
	// EvaluateWindow is how far back each evaluation looks.
	EvaluateWindow time.Duration
	// AutoRetrain triggers a retrain when an evaluation comes back CRITICAL.
	AutoRetrain bool
	// ScheduleInterval fires periodic retrains regardless of drift.
	// Zero disables the schedule.
	ScheduleInterval time.Duration
}

type Orchestrator struct {
	cfg       Config
	monitor   *monitor.Monitor
	pipeline  *retrain.Pipeline
	publisher *events.Publisher

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(cfg Config, mon *monitor.Monitor, pipeline *retrain.Pipeline, publisher *events.Publisher) *Orchestrator {
	if cfg.EvaluateInterval <= 0 {
		cfg.EvaluateInterval = 5 * time.Minute
	}
	if cfg.EvaluateWindow <= 0 {
		cfg.EvaluateWindow = 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		cfg:       cfg,
		monitor:   mon,
		pipeline:  pipeline,
		publisher: publisher,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}
	o.running = true

	o.wg.Add(1)
	go o.run()

	if o.cfg.ScheduleInterval > 0 {
		o.wg.Add(1)
		go o.runSchedule()
	}

	logger.Info("Orchestrator started")
	return nil
}

func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
	logger.Info("Orchestrator stopped")
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) run() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.EvaluateInterval)
	defer ticker.Stop()

	// Run immediately on start
	o.runCycle()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.runCycle()
		}
	}
}

func (o *Orchestrator) runCycle() {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.EvaluateInterval)
	defer cancel()

	to := time.Now().UTC()
	from := to.Add(-o.cfg.EvaluateWindow)

	report, err := o.monitor.Evaluate(ctx, from, to)
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrInsufficientData):
			logger.Debugf("Skipping evaluation: %v", err)
		case errors.Is(err, registry.ErrNoActiveModel):
			logger.Debug("Skipping evaluation: no active model")
		default:
			logger.Errorf("Evaluation failed: %v", err)
			if o.publisher != nil {
				o.publisher.Error("", "Monitor evaluation failed", err)
			}
		}
		return
	}

	if report.Status == models.StatusCritical && o.cfg.AutoRetrain {
		o.trigger(models.TriggerDriftAlert)
	}
}

func (o *Orchestrator) runSchedule() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.ScheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.trigger(models.TriggerScheduled)
		}
	}
}

func (o *Orchestrator) trigger(reason models.TriggerReason) {
	run, err := o.pipeline.Trigger(o.ctx, reason, false)
	if err != nil {
		if errors.Is(err, retrain.ErrRunInProgress) {
			logger.Debugf("Skipping %s retrain: run already in progress", reason)
			return
		}
		logger.Errorf("Failed to trigger retrain: %v", err)
		return
	}
	logger.WithRun(run.ID).Infof("Retrain triggered: %s", reason)
}
