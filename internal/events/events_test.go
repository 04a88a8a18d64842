package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Close()

	fallbacks := bus.Subscribe(models.EventTypeFallbackUsed)
	NewPublisher(bus).ForecastStarted("m-1", models.StrategyLinear)
	NewPublisher(bus).FallbackUsed("m-1", models.StrategyLinear, models.FallbackInsufficientData)

	e := receive(t, fallbacks)
	assert.Equal(t, models.EventTypeFallbackUsed, e.Type)
	assert.Equal(t, models.SeverityWarning, e.Severity)
	assert.Len(t, fallbacks, 0)
}

func TestEventBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()
	pub := NewPublisher(bus)
	pub.ForecastStarted("m-1", models.StrategyEnsemble)
	pub.TrainingFailed("m-1", models.StrategyFeedForward, errors.New("diverged"))
	pub.BreakerChanged(models.StrategyFeedForward, "closed", "open")

	assert.Equal(t, models.EventTypeForecastStarted, receive(t, all).Type)
	assert.Equal(t, models.EventTypeTrainingFailed, receive(t, all).Type)
	e := receive(t, all)
	assert.Equal(t, models.EventTypeBreakerChanged, e.Type)
	assert.Equal(t, models.SeverityCritical, e.Severity)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	_ = bus.Subscribe(models.EventTypeForecastStarted)
	pub := NewPublisher(bus)
	pub.ForecastStarted("m-1", models.StrategyLinear)
	pub.ForecastStarted("m-1", models.StrategyLinear)

	assert.Equal(t, int64(1), bus.Dropped())
}

func TestEventBus_CloseClosesChannels(t *testing.T) {
	bus := NewEventBus(1)
	all := bus.SubscribeAll()
	one := bus.Subscribe(models.EventTypeFallbackUsed)

	bus.Close()
	bus.Close()

	_, ok := <-all
	assert.False(t, ok)
	_, ok = <-one
	assert.False(t, ok)

	late := bus.SubscribeAll()
	_, ok = <-late
	assert.False(t, ok)
}

func TestPublisher_TraceID(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()
	ch := bus.Subscribe(models.EventTypeForecastStarted)

	NewPublisher(bus).WithTraceID("trace-1").ForecastStarted("m-1", models.StrategyLinear)
	assert.Equal(t, "trace-1", receive(t, ch).TraceID)
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() { p.ForecastStarted("m-1", models.StrategyLinear) })
}

type memoryStore struct {
	mu    sync.Mutex
	runs  []*models.ForecastRun
	trace []string
	done  chan struct{}
}

func (s *memoryStore) Insert(_ context.Context, run *models.ForecastRun, traceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	s.trace = append(s.trace, traceID)
	s.done <- struct{}{}
	return nil
}

func TestRecorder_PersistsCompletedForecasts(t *testing.T) {
	bus := NewEventBus(10)
	store := &memoryStore{done: make(chan struct{}, 1)}
	rec := NewRecorder(store, bus.SubscribeAll())
	rec.Start()
	defer rec.Stop()

	pub := NewPublisher(bus).WithTraceID("trace-9")
	pub.ForecastStarted("m-1", models.StrategyLinear)
	pub.ForecastCompleted(&models.Forecast{
		ForecastMeta: models.ForecastMeta{RunID: "run-1", MetricID: "m-1", Used: models.StrategyLinear},
		Values:       []float64{1, 2, 3},
	})

	select {
	case <-store.done:
	case <-time.After(time.Second):
		t.Fatal("forecast run not persisted")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.runs, 1)
	assert.Equal(t, "run-1", store.runs[0].ID)
	assert.Equal(t, []float64{1, 2, 3}, store.runs[0].Values)
	assert.Equal(t, "trace-9", store.trace[0])
}

func TestRecorder_StopsOnClosedChannel(t *testing.T) {
	bus := NewEventBus(1)
	rec := NewRecorder(nil, bus.SubscribeAll())
	rec.Start()
	bus.Close()

	done := make(chan struct{})
	go func() {
		rec.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}

func TestRecorder_EventToJSON(t *testing.T) {
	rec := NewRecorder(nil, nil)
	out := rec.EventToJSON(models.NewEvent(models.EventTypeFallbackUsed, "m-1", "fallback"))
	assert.True(t, strings.Contains(out, `"type":"fallback_used"`))
}
