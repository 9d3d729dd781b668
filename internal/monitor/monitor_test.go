package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/internal/monitor"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/models"
)

var (
	windowFrom = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	monitor *monitor.Monitor
	store   *store.MemoryStore
	reports *monitor.MemoryReports
	reg     *registry.Registry
}

func newFixture(t *testing.T, baseRate float64, trainingLabels map[string]int) *fixture {
	t.Helper()

	ref, err := drift.BuildReference("v1", categoricalRecords(trainingLabels, 0, 0.2), 10)
	require.NoError(t, err)

	reg := registry.New(registry.NewMemoryRepository())
	require.NoError(t, reg.Promote(context.Background(), &models.ModelHandle{
		Version:    "v1",
		Metrics:    map[string]float64{"accuracy": 0.81},
		BaseRate:   baseRate,
		Reference:  ref,
		PromotedAt: time.Now().UTC(),
	}))

	predStore := store.NewMemoryStore(store.MemoryConfig{})
	reports := monitor.NewMemoryReports()
	m := monitor.New(
		monitor.Config{MinSamples: 30},
		predStore,
		drift.New(drift.Config{}),
		reg,
		reports,
		nil,
	)

	return &fixture{monitor: m, store: predStore, reports: reports, reg: reg}
}

func categoricalRecords(labels map[string]int, class int, probability float64) []*models.PredictionRecord {
	var records []*models.PredictionRecord
	for label, n := range labels {
		for i := 0; i < n; i++ {
			r := models.NewPredictionRecord(models.FeatureVector{"contract": label}, class, probability, "v1")
			r.Timestamp = windowFrom.Add(time.Duration(len(records)) * time.Second)
			records = append(records, r)
		}
	}
	return records
}

func (f *fixture) feed(t *testing.T, records []*models.PredictionRecord) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, f.store.Append(context.Background(), r))
	}
}

func TestMonitor_InsufficientDataIsUnknownAndUnpersisted(t *testing.T) {
	f := newFixture(t, 0.3, map[string]int{"monthly": 50, "yearly": 50})
	f.feed(t, categoricalRecords(map[string]int{"monthly": 5}, 0, 0.2))

	_, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
	assert.ErrorIs(t, err, monitor.ErrInsufficientData)

	state := f.monitor.Status()
	assert.Equal(t, models.StatusUnknown, state.Status)
	assert.Zero(t, f.reports.Len())
}

func TestMonitor_HealthyWindow(t *testing.T) {
	f := newFixture(t, 0.3, map[string]int{"monthly": 50, "yearly": 50})

	records := categoricalRecords(map[string]int{"monthly": 35, "yearly": 35}, 0, 0.2)
	for i, r := range records {
		if i%3 == 0 {
			r.PredictedClass = 1
		}
	}
	f.feed(t, records)

	report, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
	require.NoError(t, err)

	assert.Equal(t, models.StatusHealthy, report.Status)
	assert.False(t, report.PositiveRateFlag)
	assert.Equal(t, models.StatusHealthy, f.monitor.Status().Status)
	assert.Equal(t, 1, f.reports.Len())
}

func TestMonitor_DriftedWindowIsCritical(t *testing.T) {
	f := newFixture(t, 0.3, map[string]int{"monthly": 50, "yearly": 50})
	f.feed(t, categoricalRecords(map[string]int{"monthly": 90, "yearly": 10}, 0, 0.28))

	report, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCritical, report.Status)
	assert.Equal(t, models.RecommendRetrain, report.Drift.Recommendation)
	assert.Equal(t, models.StatusCritical, f.monitor.Status().Status)
}

func TestMonitor_PositiveRateDeviationIsWarning(t *testing.T) {
	f := newFixture(t, 0.3, map[string]int{"monthly": 50, "yearly": 50})

	// Stable distribution but nearly every prediction is positive
	records := categoricalRecords(map[string]int{"monthly": 35, "yearly": 35}, 1, 0.9)
	f.feed(t, records)

	report, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
	require.NoError(t, err)

	assert.True(t, report.PositiveRateFlag)
	assert.Equal(t, models.StatusWarning, report.Status)
}

func TestMonitor_NoActiveModel(t *testing.T) {
	predStore := store.NewMemoryStore(store.MemoryConfig{})
	m := monitor.New(monitor.Config{}, predStore, drift.New(drift.Config{}), registry.New(registry.NewMemoryRepository()), monitor.NewMemoryReports(), nil)

	_, err := m.Evaluate(context.Background(), windowFrom, windowTo)
	assert.ErrorIs(t, err, registry.ErrNoActiveModel)
	assert.Equal(t, models.StatusUnknown, m.Status().Status)
}

// steadyRecords keeps the positive rate near the 0.3 base rate so only the
// signals under test trip their flags.
func steadyRecords(labels map[string]int) []*models.PredictionRecord {
	records := categoricalRecords(labels, 0, 0.2)
	for i, r := range records {
		if i%3 == 0 {
			r.PredictedClass = 1
		}
	}
	return records
}

func TestMonitor_VolumeSpikeAloneIsWarning(t *testing.T) {
	f := newFixture(t, 0.3, map[string]int{"monthly": 50, "yearly": 50})

	// Build a volume baseline with three full windows
	for i := 0; i < 3; i++ {
		f.feed(t, steadyRecords(map[string]int{"monthly": 50, "yearly": 50}))
		_, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
		require.NoError(t, err)
	}

	// Fourth window: far more records than the baseline of previous runs.
	// The store accumulates, so volume grows each time; tolerance is tight.
	f.feed(t, steadyRecords(map[string]int{"monthly": 300, "yearly": 300}))
	report, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
	require.NoError(t, err)

	assert.True(t, report.VolumeFlag)
	assert.False(t, report.PositiveRateFlag)
	assert.Equal(t, models.StatusWarning, report.Status)
}

func TestMonitor_BothAuxiliaryFlagsAreCritical(t *testing.T) {
	f := newFixture(t, 0.3, map[string]int{"monthly": 50, "yearly": 50})

	for i := 0; i < 3; i++ {
		f.feed(t, steadyRecords(map[string]int{"monthly": 50, "yearly": 50}))
		_, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
		require.NoError(t, err)
	}

	// A stable feature mix, but the window floods with positives and its
	// volume dwarfs the rolling baseline.
	f.feed(t, categoricalRecords(map[string]int{"monthly": 300, "yearly": 300}, 1, 0.9))
	report, err := f.monitor.Evaluate(context.Background(), windowFrom, windowTo)
	require.NoError(t, err)

	assert.Equal(t, models.RecommendNoAction, report.Drift.Recommendation)
	assert.True(t, report.PositiveRateFlag)
	assert.True(t, report.VolumeFlag)
	assert.Equal(t, models.StatusCritical, report.Status)
}
