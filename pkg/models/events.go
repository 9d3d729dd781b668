package models

import "time"

type EventType string

const (
	EventTypeMonitorEvaluated EventType = "monitor_evaluated"
	EventTypeDriftAlert       EventType = "drift_alert"
	EventTypeRetrainStarted   EventType = "retrain_started"
	EventTypeRetrainCompleted EventType = "retrain_completed"
	EventTypeRetrainFailed    EventType = "retrain_failed"
	EventTypeModelPromoted    EventType = "model_promoted"
	EventTypeError            EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID           string        `json:"id"`
	Type         EventType     `json:"type"`
	Severity     EventSeverity `json:"severity"`
	ModelVersion string        `json:"model_version,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Message      string        `json:"message"`
	Data         interface{}   `json:"data,omitempty"`
	TraceID      string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, modelVersion, message string) *Event {
	return &Event{
		ID:           NewUUID(),
		Type:         eventType,
		Severity:     SeverityInfo,
		ModelVersion: modelVersion,
		Timestamp:    time.Now(),
		Message:      message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
