package models

import "time"

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

type RunDecision string

const (
	DecisionPromoted RunDecision = "promoted"
	DecisionRejected RunDecision = "rejected"
)

type TriggerReason string

const (
	TriggerScheduled  TriggerReason = "scheduled"
	TriggerDriftAlert TriggerReason = "drift_alert"
	TriggerManual     TriggerReason = "manual"
)

// RetrainRun is one execution of the retrain workflow. The pipeline is the
// only writer while the run is live; a terminal run is immutable and lives in
// the append-only history.
type RetrainRun struct {
	ID            string             `json:"id"`
	Reason        TriggerReason      `json:"reason"`
	Forced        bool               `json:"forced"`
	Status        RunStatus          `json:"status"`
	Decision      RunDecision        `json:"decision,omitempty"`
	OldMetrics    map[string]float64 `json:"old_metrics,omitempty"`
	NewMetrics    map[string]float64 `json:"new_metrics,omitempty"`
	Delta         float64            `json:"delta"`
	FailureReason string             `json:"failure_reason,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    *time.Time         `json:"finished_at,omitempty"`
}

func NewRetrainRun(reason TriggerReason, forced bool) *RetrainRun {
	return &RetrainRun{
		ID:        NewUUID(),
		Reason:    reason,
		Forced:    forced,
		Status:    RunPending,
		StartedAt: time.Now().UTC(),
	}
}

func (r *RetrainRun) Promoted() bool {
	return r.Status == RunCompleted && r.Decision == DecisionPromoted
}
