package models

import (
	"encoding/json"
	"time"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ClassifyRisk maps a churn probability to a business-facing risk tier.
func ClassifyRisk(probability float64) RiskLevel {
	switch {
	case probability < 0.3:
		return RiskLow
	case probability < 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// FeatureVector holds the feature values a prediction was served with.
// Numeric features decode as float64, categorical features as string.
type FeatureVector map[string]any

func (v FeatureVector) Number(name string) (float64, bool) {
	switch val := v[name].(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (v FeatureVector) Label(name string) (string, bool) {
	s, ok := v[name].(string)
	return s, ok
}

func (v FeatureVector) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// PredictionRecord is one served prediction. Records are append-only and
// immutable once written.
type PredictionRecord struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Features       FeatureVector `json:"features"`
	PredictedClass int           `json:"predicted_class"`
	Probability    float64       `json:"probability"`
	RiskLevel      RiskLevel     `json:"risk_level"`
	ModelVersion   string        `json:"model_version"`
	LatencyMS      *float64      `json:"latency_ms,omitempty"`
}

func NewPredictionRecord(features FeatureVector, predictedClass int, probability float64, modelVersion string) *PredictionRecord {
	return &PredictionRecord{
		ID:             NewUUID(),
		Timestamp:      time.Now().UTC(),
		Features:       features,
		PredictedClass: predictedClass,
		Probability:    probability,
		RiskLevel:      ClassifyRisk(probability),
		ModelVersion:   modelVersion,
	}
}

// PredictionStats summarizes a window of the prediction log.
type PredictionStats struct {
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	Total          int               `json:"total"`
	PositiveCount  int               `json:"positive_count"`
	PositiveRate   float64           `json:"positive_rate"`
	AvgProbability float64           `json:"avg_probability"`
	RiskCounts     map[RiskLevel]int `json:"risk_counts"`
}
