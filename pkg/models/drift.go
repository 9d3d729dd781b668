package models

import "time"

type FeatureKind string

const (
	FeatureNumeric     FeatureKind = "numeric"
	FeatureCategorical FeatureKind = "categorical"
)

type FeatureVerdict string

const (
	VerdictStable           FeatureVerdict = "stable"
	VerdictDrift            FeatureVerdict = "drift"
	VerdictMissingReference FeatureVerdict = "missing_reference"
)

type Recommendation string

const (
	RecommendNoAction Recommendation = "no_action"
	RecommendWatch    Recommendation = "watch"
	RecommendRetrain  Recommendation = "retrain_recommended"
)

// FeatureScore carries both distance metrics for a single feature.
// A missing_reference verdict means the feature was observed in the window
// but has no counterpart in the reference; it carries no scores and is
// excluded from the aggregate.
type FeatureScore struct {
	Feature       string         `json:"feature"`
	Kind          FeatureKind    `json:"kind"`
	KSStatistic   float64        `json:"ks_statistic"`
	PSI           float64        `json:"psi"`
	Verdict       FeatureVerdict `json:"verdict"`
	DriftDetected bool           `json:"drift_detected"`
}

// DriftReport is the result of one drift evaluation over a window of
// prediction records. The monitor is its only writer.
type DriftReport struct {
	ID             string         `json:"id"`
	ModelVersion   string         `json:"model_version"`
	WindowFrom     time.Time      `json:"window_from"`
	WindowTo       time.Time      `json:"window_to"`
	SampleCount    int            `json:"sample_count"`
	Features       []FeatureScore `json:"features"`
	AggregateScore float64        `json:"aggregate_score"`
	AggregateDrift bool           `json:"aggregate_drift"`
	Recommendation Recommendation `json:"recommendation"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (r *DriftReport) DriftedFeatures() []string {
	var names []string
	for _, f := range r.Features {
		if f.DriftDetected {
			names = append(names, f.Feature)
		}
	}
	return names
}
