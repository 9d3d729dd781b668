package events

import (
	"github.com/churnwatch/churnwatch/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) MonitorEvaluated(modelVersion string, report *models.MonitorReport) {
	event := models.NewEvent(models.EventTypeMonitorEvaluated, modelVersion, "Monitor evaluated").
		WithData(report)

	switch report.Status {
	case models.StatusCritical:
		event.WithSeverity(models.SeverityCritical)
	case models.StatusWarning:
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) DriftAlert(modelVersion string, report *models.DriftReport) {
	msg := "Drift detected: " + string(report.Recommendation)
	event := models.NewEvent(models.EventTypeDriftAlert, modelVersion, msg).
		WithSeverity(models.SeverityWarning).
		WithData(report)

	if report.Recommendation == models.RecommendRetrain {
		event.WithSeverity(models.SeverityCritical)
	}

	p.publish(event)
}

func (p *Publisher) RetrainStarted(run *models.RetrainRun) {
	msg := "Retrain started: " + string(run.Reason)
	event := models.NewEvent(models.EventTypeRetrainStarted, "", msg).
		WithData(run)
	p.publish(event)
}

func (p *Publisher) RetrainCompleted(run *models.RetrainRun) {
	msg := "Retrain completed: " + string(run.Decision)
	event := models.NewEvent(models.EventTypeRetrainCompleted, "", msg).
		WithData(run)
	p.publish(event)
}

func (p *Publisher) RetrainFailed(run *models.RetrainRun) {
	msg := "Retrain failed: " + run.FailureReason
	event := models.NewEvent(models.EventTypeRetrainFailed, "", msg).
		WithSeverity(models.SeverityCritical).
		WithData(run)
	p.publish(event)
}

func (p *Publisher) ModelPromoted(handle *models.ModelHandle, delta float64) {
	event := models.NewEvent(models.EventTypeModelPromoted, handle.Version, "Model promoted").
		WithData(map[string]interface{}{
			"version":     handle.Version,
			"metrics":     handle.Metrics,
			"delta":       delta,
			"promoted_at": handle.PromotedAt,
		})
	p.publish(event)
}

func (p *Publisher) Error(modelVersion string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, modelVersion, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
