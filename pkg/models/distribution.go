package models

import "time"

// NumericDistribution is a binned histogram over fixed edges. Edges are set
// once at capture time; drift evaluation reuses them unchanged so that the
// reference and recent histograms are always comparable.
type NumericDistribution struct {
	BinEdges    []float64 `json:"bin_edges"`
	Frequencies []float64 `json:"frequencies"`
	Count       int       `json:"count"`
	Mean        float64   `json:"mean"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
}

// CategoricalDistribution is a category frequency table.
type CategoricalDistribution struct {
	Frequencies map[string]float64 `json:"frequencies"`
	Count       int                `json:"count"`
}

// ReferenceDistribution snapshots the per-feature empirical distribution of
// the training data behind a model version. Exactly one reference is active
// at a time: the one tied to the deployed model. Superseded references are
// kept, never deleted.
type ReferenceDistribution struct {
	ModelVersion string                             `json:"model_version"`
	CapturedAt   time.Time                          `json:"captured_at"`
	Numeric      map[string]NumericDistribution     `json:"numeric"`
	Categorical  map[string]CategoricalDistribution `json:"categorical"`
}

func (r *ReferenceDistribution) HasFeature(name string) bool {
	if _, ok := r.Numeric[name]; ok {
		return true
	}
	_, ok := r.Categorical[name]
	return ok
}

func (r *ReferenceDistribution) FeatureCount() int {
	return len(r.Numeric) + len(r.Categorical)
}
