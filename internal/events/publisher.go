package events

import (
	"github.com/OldStager01/finy-forecast/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) ForecastStarted(metricID string, requested models.Strategy) {
	event := models.NewEvent(models.EventTypeForecastStarted, metricID, "Forecast started: "+string(requested)).
		WithData(map[string]interface{}{
			"requested_strategy": requested,
		})
	p.publish(event)
}

func (p *Publisher) ForecastCompleted(forecast *models.Forecast) {
	msg := "Forecast completed: " + string(forecast.Used)
	event := models.NewEvent(models.EventTypeForecastCompleted, forecast.MetricID, msg).
		WithData(forecast)
	if forecast.Fallback {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) FallbackUsed(metricID string, requested models.Strategy, reason models.FallbackReason) {
	msg := "Fallback used: " + string(reason)
	event := models.NewEvent(models.EventTypeFallbackUsed, metricID, msg).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"requested_strategy": requested,
			"reason":             reason,
		})
	p.publish(event)
}

func (p *Publisher) TrainingFailed(metricID string, kind models.Strategy, err error) {
	msg := "Training failed: " + string(kind)
	event := models.NewEvent(models.EventTypeTrainingFailed, metricID, msg).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"strategy": kind,
			"error":    err.Error(),
		})
	p.publish(event)
}

func (p *Publisher) BreakerChanged(kind models.Strategy, from, to string) {
	event := models.NewEvent(models.EventTypeBreakerChanged, "", "Circuit breaker "+string(kind)+": "+from+" -> "+to).
		WithData(map[string]interface{}{
			"strategy": kind,
			"from":     from,
			"to":       to,
		})
	if to == "open" {
		event.WithSeverity(models.SeverityCritical)
	}
	p.publish(event)
}
