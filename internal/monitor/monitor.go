// Package monitor consolidates drift scores and prediction-quality signals
// into a single health status for the active model.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/internal/events"
	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/models"
)

// ErrInsufficientData is returned when the window holds fewer samples than
// the evaluation minimum. No report is produced or persisted.
var ErrInsufficientData = errors.New("not enough samples to evaluate")

type Config struct {
	// MinSamples is the smallest window the monitor will score.
	MinSamples int
	// BaseRateTolerance is the allowed relative deviation of the observed
	// positive rate from the model's training base rate.
	BaseRateTolerance float64
	// VolumeTolerance is the allowed relative deviation of window volume
	// from the rolling baseline.
	VolumeTolerance float64
	// BaselineHistory is how many past window volumes feed the baseline.
	BaselineHistory int
}

type Monitor struct {
	cfg       Config
	store     store.Store
	detector  *drift.Detector
	registry  *registry.Registry
	reports   ReportStore
	publisher *events.Publisher

	mu       sync.RWMutex
	state    models.MonitorState
	baseline *volumeBaseline
}

func New(cfg Config, predStore store.Store, detector *drift.Detector, reg *registry.Registry, reports ReportStore, publisher *events.Publisher) *Monitor {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 30
	}
	if cfg.BaseRateTolerance <= 0 {
		cfg.BaseRateTolerance = 0.5
	}
	if cfg.VolumeTolerance <= 0 {
		cfg.VolumeTolerance = 0.5
	}

	return &Monitor{
		cfg:       cfg,
		store:     predStore,
		detector:  detector,
		registry:  reg,
		reports:   reports,
		publisher: publisher,
		state: models.MonitorState{
			Status: models.StatusUnknown,
			Since:  time.Now().UTC(),
		},
		baseline: newVolumeBaseline(cfg.BaselineHistory),
	}
}

// Evaluate scores the prediction window [from, to) against the active model.
// On success the drift report is persisted and the consolidated status is
// updated; on insufficient data the status degrades to UNKNOWN and nothing
// is persisted.
func (m *Monitor) Evaluate(ctx context.Context, from, to time.Time) (*models.MonitorReport, error) {
	handle := m.registry.Active()
	if handle == nil {
		m.setStatus(models.StatusUnknown, nil)
		return nil, registry.ErrNoActiveModel
	}

	records, err := m.store.Window(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load prediction window: %w", err)
	}
	if len(records) < m.cfg.MinSamples {
		m.setStatus(models.StatusUnknown, nil)
		return nil, fmt.Errorf("%w: %d of %d", ErrInsufficientData, len(records), m.cfg.MinSamples)
	}

	driftReport, err := m.detector.Detect(handle.Reference, records, from, to)
	if err != nil {
		m.setStatus(models.StatusUnknown, nil)
		return nil, fmt.Errorf("drift detection: %w", err)
	}

	stats, err := m.store.Stats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load prediction stats: %w", err)
	}

	report := &models.MonitorReport{
		Drift:        driftReport,
		PositiveRate: stats.PositiveRate,
		BaseRate:     handle.BaseRate,
		Volume:       stats.Total,
		GeneratedAt:  time.Now().UTC(),
	}

	if handle.BaseRate > 0 {
		deviation := math.Abs(stats.PositiveRate-handle.BaseRate) / handle.BaseRate
		report.PositiveRateFlag = deviation > m.cfg.BaseRateTolerance
	}

	if baseline, ok := m.baseline.Mean(); ok {
		report.VolumeBaseline = baseline
		deviation := math.Abs(float64(stats.Total)-baseline) / baseline
		report.VolumeFlag = deviation > m.cfg.VolumeTolerance
	}
	m.baseline.Observe(stats.Total)

	report.Status = m.classify(report)

	if err := m.reports.Insert(ctx, driftReport); err != nil {
		logger.Errorf("Failed to persist drift report: %v", err)
	}

	m.setStatus(report.Status, report)

	if m.publisher != nil {
		m.publisher.MonitorEvaluated(handle.Version, report)
		if driftReport.Recommendation != models.RecommendNoAction {
			m.publisher.DriftAlert(handle.Version, driftReport)
		}
	}

	return report, nil
}

// classify folds the drift recommendation and the quality flags into one
// status. Retrain-recommended drift or both auxiliary flags at once are
// critical; a drift watch or a single flag is a warning.
func (m *Monitor) classify(report *models.MonitorReport) models.MonitorStatus {
	switch {
	case report.Drift.Recommendation == models.RecommendRetrain || report.AuxiliaryFlags() > 1:
		return models.StatusCritical
	case report.Drift.Recommendation == models.RecommendWatch || report.AuxiliaryFlags() > 0:
		return models.StatusWarning
	default:
		return models.StatusHealthy
	}
}

// Status returns the consolidated state from the most recent evaluation.
func (m *Monitor) Status() models.MonitorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Reports lists recent drift reports, newest first.
func (m *Monitor) Reports(ctx context.Context, limit int) ([]*models.DriftReport, error) {
	return m.reports.List(ctx, limit)
}

func (m *Monitor) setStatus(status models.MonitorStatus, report *models.MonitorReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != status {
		m.state.Since = time.Now().UTC()
	}
	m.state.Status = status
	if report != nil {
		m.state.LastReport = report
	}
}
