package websocket

import (
	"context"
	"sync"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// EventBridge forwards engine events to the websocket clients watching the
// event's metric. Breaker changes go to every client.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
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
	b.wg.Add(1)
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	b.wg.Wait()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	defer b.wg.Done()
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

func (b *EventBridge) forwardEvent(event *models.Event) {
	msg := ToMessage(event)
	if msg == nil {
		return
	}
	if event.Type == models.EventTypeBreakerChanged {
		b.hub.Broadcast(msg.JSON())
		return
	}
	b.hub.BroadcastToMetric(event.MetricID, msg.JSON())
}

// ToMessage converts an engine event to its websocket form. It returns nil
// for events that are not streamed.
func ToMessage(event *models.Event) *OutgoingMessage {
	msgType := mapEventType(event.Type)
	if msgType == "" {
		return nil
	}

	data := event.Data
	if f, ok := data.(*models.Forecast); ok {
		data = NewForecastSummary(f)
	}

	msg := NewMessage(msgType, event.MetricID, data)
	msg.Timestamp = event.Timestamp
	msg.Severity = string(event.Severity)
	msg.Message = event.Message
	msg.TraceID = event.TraceID
	return msg
}

func mapEventType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeForecastStarted:
		return MessageTypeForecastStarted
	case models.EventTypeForecastCompleted:
		return MessageTypeForecastCompleted
	case models.EventTypeFallbackUsed:
		return MessageTypeFallback
	case models.EventTypeTrainingFailed:
		return MessageTypeTrainingFailed
	case models.EventTypeBreakerChanged:
		return MessageTypeBreaker
	default:
		return ""
	}
}
