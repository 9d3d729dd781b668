package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/pkg/models"
)

// EventBridge forwards internal monitor and retrain events to WebSocket
// clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

// WebSocketEvent is the message format sent to WebSocket clients.
type WebSocketEvent struct {
	Type         string      `json:"type"`
	ModelVersion string      `json:"model_version,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Severity     string      `json:"severity,omitempty"`
	Message      string      `json:"message,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	wsMessage := &WebSocketEvent{
		Type:         string(event.Type),
		ModelVersion: event.ModelVersion,
		Timestamp:    event.Timestamp,
		Severity:     string(event.Severity),
		Message:      event.Message,
		Data:         event.Data,
	}

	data, err := json.Marshal(wsMessage)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.broadcastEvent(event.Type, data)
}

// broadcastEvent delivers the message to every client whose subscription
// filter admits the event type.
func (b *EventBridge) broadcastEvent(eventType models.EventType, message []byte) {
	b.hub.mu.RLock()
	defer b.hub.mu.RUnlock()

	for client := range b.hub.clients {
		if !client.Wants(eventType) {
			continue
		}
		select {
		case client.send <- message:
		default:
		}
	}
}
