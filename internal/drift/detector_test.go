package drift_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/drift"
	"github.com/churnwatch/churnwatch/pkg/models"
)

var (
	windowFrom = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
)

func numericRecords(feature string, values []float64) []*models.PredictionRecord {
	records := make([]*models.PredictionRecord, len(values))
	for i, v := range values {
		records[i] = models.NewPredictionRecord(models.FeatureVector{feature: v}, 0, 0.2, "v1")
	}
	return records
}

func categoricalRecords(feature string, labels map[string]int) []*models.PredictionRecord {
	var records []*models.PredictionRecord
	for label, n := range labels {
		for i := 0; i < n; i++ {
			records = append(records, models.NewPredictionRecord(models.FeatureVector{feature: label}, 0, 0.2, "v1"))
		}
	}
	return records
}

func TestDetector_IdenticalDistributionsScoreZero(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 2, 4, 6, 8}
	ref, err := drift.BuildReference("v1", numericRecords("tenure", values), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{})
	report, err := d.Detect(ref, numericRecords("tenure", values), windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, report.Features, 1)
	assert.Zero(t, report.Features[0].KSStatistic)
	assert.Zero(t, report.Features[0].PSI)
	assert.Equal(t, models.VerdictStable, report.Features[0].Verdict)
	assert.Zero(t, report.AggregateScore)
	assert.False(t, report.AggregateDrift)
	assert.Equal(t, models.RecommendNoAction, report.Recommendation)
}

func TestDetector_ShiftedNumericDetectsDrift(t *testing.T) {
	refValues := make([]float64, 0, 100)
	shifted := make([]float64, 0, 100)
	for i := 0; i < 100; i++ {
		refValues = append(refValues, float64(i%10))
		shifted = append(shifted, float64(i%10)+6)
	}

	ref, err := drift.BuildReference("v1", numericRecords("monthly_charges", refValues), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{DistanceThreshold: 0.1})
	report, err := d.Detect(ref, numericRecords("monthly_charges", shifted), windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, report.Features, 1)
	score := report.Features[0]
	assert.Greater(t, score.KSStatistic, 0.1)
	assert.True(t, score.DriftDetected)
	assert.Equal(t, models.VerdictDrift, score.Verdict)
	assert.Contains(t, report.DriftedFeatures(), "monthly_charges")
}

func TestDetector_CategoricalShiftRecommendsRetrain(t *testing.T) {
	// 50/50 in training, 90/10 in the window
	ref, err := drift.BuildReference("v1", categoricalRecords("contract", map[string]int{
		"monthly": 50,
		"yearly":  50,
	}), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{StabilityCritical: 0.25})
	report, err := d.Detect(ref, categoricalRecords("contract", map[string]int{
		"monthly": 90,
		"yearly":  10,
	}), windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, report.Features, 1)
	assert.Greater(t, report.Features[0].PSI, 0.25)
	assert.True(t, report.AggregateDrift)
	assert.Equal(t, models.RecommendRetrain, report.Recommendation)
}

func TestDetector_SingleFeatureDriftSetsAggregateDrift(t *testing.T) {
	// 50/50 in training, 65/35 in the window: KS 0.15 crosses the distance
	// threshold while PSI stays well under the critical level, so the
	// aggregate score alone would not flag the window.
	ref, err := drift.BuildReference("v1", categoricalRecords("contract", map[string]int{
		"monthly": 50,
		"yearly":  50,
	}), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{})
	report, err := d.Detect(ref, categoricalRecords("contract", map[string]int{
		"monthly": 65,
		"yearly":  35,
	}), windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, report.Features, 1)
	score := report.Features[0]
	assert.Greater(t, score.KSStatistic, 0.1)
	assert.Less(t, score.PSI, 0.25)
	assert.True(t, score.DriftDetected)

	assert.Less(t, report.AggregateScore, 0.25)
	assert.True(t, report.AggregateDrift)
	assert.Equal(t, models.RecommendWatch, report.Recommendation)
}

func TestDetector_AggregateDriftIsMonotonicInShift(t *testing.T) {
	ref, err := drift.BuildReference("v1", categoricalRecords("contract", map[string]int{
		"monthly": 50,
		"yearly":  50,
	}), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{})

	flips := 0
	drifted := false
	for monthly := 50; monthly <= 95; monthly += 5 {
		report, err := d.Detect(ref, categoricalRecords("contract", map[string]int{
			"monthly": monthly,
			"yearly":  100 - monthly,
		}), windowFrom, windowTo)
		require.NoError(t, err)

		if report.AggregateDrift != drifted {
			require.True(t, report.AggregateDrift, "drift flag must never clear as the shift grows")
			drifted = true
			flips++
		}
	}
	assert.True(t, drifted)
	assert.Equal(t, 1, flips)
}

func TestDetector_RecommendationBoundariesAreInclusive(t *testing.T) {
	ref, err := drift.BuildReference("v1", categoricalRecords("contract", map[string]int{
		"monthly": 50,
		"yearly":  50,
	}), 10)
	require.NoError(t, err)

	window := categoricalRecords("contract", map[string]int{
		"monthly": 90,
		"yearly":  10,
	})

	baseline, err := drift.New(drift.Config{}).Detect(ref, window, windowFrom, windowTo)
	require.NoError(t, err)
	score := baseline.AggregateScore
	require.Positive(t, score)

	atCritical := drift.New(drift.Config{
		DistanceThreshold: 0.1,
		StabilityWarning:  score / 2,
		StabilityCritical: score,
	})
	report, err := atCritical.Detect(ref, window, windowFrom, windowTo)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendRetrain, report.Recommendation)

	atWarning := drift.New(drift.Config{
		DistanceThreshold: 0.1,
		StabilityWarning:  score,
		StabilityCritical: score * 2,
	})
	report, err = atWarning.Detect(ref, window, windowFrom, windowTo)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendWatch, report.Recommendation)
}

func TestDetector_PSISymmetry(t *testing.T) {
	a := map[string]int{"monthly": 70, "yearly": 30}
	b := map[string]int{"monthly": 40, "yearly": 60}

	refA, err := drift.BuildReference("v1", categoricalRecords("contract", a), 10)
	require.NoError(t, err)
	refB, err := drift.BuildReference("v1", categoricalRecords("contract", b), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{})
	forward, err := d.Detect(refA, categoricalRecords("contract", b), windowFrom, windowTo)
	require.NoError(t, err)
	backward, err := d.Detect(refB, categoricalRecords("contract", a), windowFrom, windowTo)
	require.NoError(t, err)

	assert.InDelta(t, forward.Features[0].PSI, backward.Features[0].PSI, 1e-9)
}

func TestDetector_AggregateGrowsWithShift(t *testing.T) {
	ref, err := drift.BuildReference("v1", categoricalRecords("contract", map[string]int{
		"monthly": 50,
		"yearly":  50,
	}), 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{})

	mild, err := d.Detect(ref, categoricalRecords("contract", map[string]int{
		"monthly": 60,
		"yearly":  40,
	}), windowFrom, windowTo)
	require.NoError(t, err)

	severe, err := d.Detect(ref, categoricalRecords("contract", map[string]int{
		"monthly": 90,
		"yearly":  10,
	}), windowFrom, windowTo)
	require.NoError(t, err)

	assert.Greater(t, severe.AggregateScore, mild.AggregateScore)
}

func TestDetector_UnknownFeatureExcludedFromAggregate(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ref, err := drift.BuildReference("v1", numericRecords("tenure", values), 10)
	require.NoError(t, err)

	samples := numericRecords("tenure", values)
	for _, s := range samples {
		s.Features["brand_new_feature"] = 1.0
	}

	d := drift.New(drift.Config{})
	report, err := d.Detect(ref, samples, windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, report.Features, 2)
	var unknown *models.FeatureScore
	for i := range report.Features {
		if report.Features[i].Feature == "brand_new_feature" {
			unknown = &report.Features[i]
		}
	}
	require.NotNil(t, unknown)
	assert.Equal(t, models.VerdictMissingReference, unknown.Verdict)
	assert.False(t, unknown.DriftDetected)
	assert.Zero(t, report.AggregateScore)
}

func TestDetector_ReferenceFeatureAbsentFromSamplesIsSkipped(t *testing.T) {
	training := numericRecords("tenure", []float64{1, 2, 3, 4, 5})
	for _, r := range training {
		r.Features["monthly_charges"] = 40.0
	}
	ref, err := drift.BuildReference("v1", training, 10)
	require.NoError(t, err)

	d := drift.New(drift.Config{})
	report, err := d.Detect(ref, numericRecords("tenure", []float64{1, 2, 3, 4, 5}), windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, report.Features, 1)
	assert.Equal(t, "tenure", report.Features[0].Feature)
}

func TestDetector_Errors(t *testing.T) {
	d := drift.New(drift.Config{})
	ref, err := drift.BuildReference("v1", numericRecords("tenure", []float64{1, 2, 3}), 10)
	require.NoError(t, err)

	_, err = d.Detect(ref, nil, windowFrom, windowTo)
	assert.ErrorIs(t, err, drift.ErrInsufficientData)

	_, err = d.Detect(nil, numericRecords("tenure", []float64{1}), windowFrom, windowTo)
	assert.ErrorIs(t, err, drift.ErrMissingReference)
}

func TestBuildReference_ConstantFeature(t *testing.T) {
	ref, err := drift.BuildReference("v1", numericRecords("tenure", []float64{5, 5, 5, 5}), 10)
	require.NoError(t, err)

	dist := ref.Numeric["tenure"]
	assert.Equal(t, 4, dist.Count)
	assert.Equal(t, 5.0, dist.Min)
	assert.Equal(t, 5.0, dist.Max)
	require.Len(t, dist.BinEdges, 11)
	assert.Greater(t, dist.BinEdges[10], dist.BinEdges[0])
}

func TestBuildReference_Empty(t *testing.T) {
	_, err := drift.BuildReference("v1", nil, 10)
	assert.ErrorIs(t, err, drift.ErrInsufficientData)
}
