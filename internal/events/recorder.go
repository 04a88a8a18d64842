package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// RunStore persists completed forecasts.
type RunStore interface {
	Insert(ctx context.Context, run *models.ForecastRun, traceID string) error
}

// Recorder logs every event it receives and persists completed forecasts
// when a store is configured.
type Recorder struct {
	store     RunStore
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRecorder(store RunStore, eventChan <-chan *models.Event) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())
	return &Recorder{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop cancels the recorder and waits for the current event to finish.
func (r *Recorder) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case event, ok := <-r.eventChan:
			if !ok {
				return
			}
			r.processEvent(event)
		}
	}
}

func (r *Recorder) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"metric_id":  event.MetricID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}

	if event.Type == models.EventTypeForecastCompleted {
		r.persistRun(event)
	}
}

func (r *Recorder) persistRun(event *models.Event) {
	if r.store == nil {
		return
	}
	forecast, ok := event.Data.(*models.Forecast)
	if !ok {
		return
	}
	if err := r.store.Insert(r.ctx, models.NewForecastRun(forecast), event.TraceID); err != nil {
		logger.WithMetric(forecast.MetricID).Errorf("Failed to persist forecast run: %v", err)
	}
}

func (r *Recorder) EventToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
