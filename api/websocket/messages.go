package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

type MessageType string

const (
	MessageTypeForecastStarted   MessageType = "forecast_started"
	MessageTypeForecastCompleted MessageType = "forecast_completed"
	MessageTypeFallback          MessageType = "fallback"
	MessageTypeTrainingFailed    MessageType = "training_failed"
	MessageTypeBreaker           MessageType = "breaker"
	MessageTypeSubscription      MessageType = "subscription_update"
	MessageTypeError             MessageType = "error"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	MetricID  string      `json:"metric_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, metricID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		MetricID:  metricID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

// ForecastSummary is the forecast_completed payload. Values are included so
// a client can render the projection without another request.
type ForecastSummary struct {
	RunID          string                `json:"run_id"`
	Requested      models.Strategy       `json:"requested_strategy"`
	Used           models.Strategy       `json:"used_strategy"`
	Fallback       bool                  `json:"fallback"`
	FallbackReason models.FallbackReason `json:"fallback_reason,omitempty"`
	Values         []float64             `json:"values"`
	DurationMs     int64                 `json:"duration_ms"`
}

func NewForecastSummary(f *models.Forecast) ForecastSummary {
	return ForecastSummary{
		RunID:          f.RunID,
		Requested:      f.Requested,
		Used:           f.Used,
		Fallback:       f.Fallback,
		FallbackReason: f.FallbackReason,
		Values:         f.Values,
		DurationMs:     f.Duration.Milliseconds(),
	}
}

type SubscriptionData struct {
	Action string `json:"action"`
}

type ErrorData struct {
	Error string `json:"error"`
}
