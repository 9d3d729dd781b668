package events

import (
	"context"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/pkg/database"
	"github.com/churnwatch/churnwatch/pkg/database/queries"
	"github.com/churnwatch/churnwatch/pkg/models"
)

// EventLogger drains the bus, writes every event to the structured log and
// persists the alert-worthy ones to the monitor_alerts table.
type EventLogger struct {
	alerts    *queries.AlertRepository
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewEventLogger(db *database.DB, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	var alerts *queries.AlertRepository
	if db != nil {
		alerts = queries.NewAlertRepository(db.DB)
	}
	return &EventLogger{
		alerts:    alerts,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type":    event.Type,
		"model_version": event.ModelVersion,
		"severity":      event.Severity,
		"trace_id":      event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if l.alerts == nil {
		return
	}

	switch event.Type {
	case models.EventTypeDriftAlert, models.EventTypeRetrainFailed, models.EventTypeModelPromoted, models.EventTypeError:
		if err := l.alerts.Insert(l.ctx, event); err != nil {
			logger.Errorf("Failed to persist alert: %v", err)
		}
	}
}
