package models

import "time"

// ModelHandle is the active model/reference pair. Handles are immutable:
// promotion builds a fresh handle and swaps the registry pointer, so readers
// always observe a matching model and reference.
type ModelHandle struct {
	Version      string                 `json:"version"`
	Metrics      map[string]float64     `json:"metrics"`
	BaseRate     float64                `json:"base_rate"`
	ArtifactPath string                 `json:"artifact_path,omitempty"`
	Reference    *ReferenceDistribution `json:"reference,omitempty"`
	PromotedAt   time.Time              `json:"promoted_at"`
}

func (h *ModelHandle) Metric(name string) (float64, bool) {
	v, ok := h.Metrics[name]
	return v, ok
}
