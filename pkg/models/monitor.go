package models

import "time"

type MonitorStatus string

const (
	StatusHealthy  MonitorStatus = "HEALTHY"
	StatusWarning  MonitorStatus = "WARNING"
	StatusCritical MonitorStatus = "CRITICAL"
	StatusUnknown  MonitorStatus = "UNKNOWN"
)

// MonitorReport is the consolidated verdict of one evaluation cycle: the
// drift report plus the auxiliary prediction-quality signals.
type MonitorReport struct {
	Status           MonitorStatus `json:"status"`
	Drift            *DriftReport  `json:"drift"`
	PositiveRate     float64       `json:"positive_rate"`
	BaseRate         float64       `json:"base_rate"`
	PositiveRateFlag bool          `json:"positive_rate_flag"`
	Volume           int           `json:"volume"`
	VolumeBaseline   float64       `json:"volume_baseline"`
	VolumeFlag       bool          `json:"volume_flag"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

func (r *MonitorReport) AuxiliaryFlags() int {
	flags := 0
	if r.PositiveRateFlag {
		flags++
	}
	if r.VolumeFlag {
		flags++
	}
	return flags
}

// MonitorState is the answer to "how is the model doing right now":
// the last consolidated report and when the current status began.
type MonitorState struct {
	Status     MonitorStatus  `json:"status"`
	LastReport *MonitorReport `json:"last_report,omitempty"`
	Since      time.Time      `json:"since"`
}
