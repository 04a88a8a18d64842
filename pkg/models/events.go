package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeForecastStarted   EventType = "forecast_started"
	EventTypeForecastCompleted EventType = "forecast_completed"
	EventTypeFallbackUsed      EventType = "fallback_used"
	EventTypeTrainingFailed    EventType = "training_failed"
	EventTypeBreakerChanged    EventType = "breaker_changed"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal forecasting event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	MetricID  string        `json:"metric_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

// NewUUID returns a random identifier for events and forecast runs.
func NewUUID() string {
	return uuid.NewString()
}

func NewEvent(eventType EventType, metricID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		MetricID:  metricID,
		Timestamp: time.Now(),
		Message:   message,
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
