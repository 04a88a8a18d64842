// Package orchestrator assembles the long-running forecasting service: the
// event bus, the engine publishing onto it, the run recorder and the history
// pruner.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/OldStager01/finy-forecast/internal/engine"
	"github.com/OldStager01/finy-forecast/internal/events"
	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/config"
	"github.com/OldStager01/finy-forecast/pkg/database"
	"github.com/OldStager01/finy-forecast/pkg/database/queries"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

type Orchestrator struct {
	config     *config.Config
	db         *database.DB
	eventBus   *events.EventBus
	recorder   *events.Recorder
	pruner     *Pruner
	engine     *engine.Engine
	forecaster *Forecaster
	mu         sync.Mutex
	running    bool
}

// New wires the service. db may be nil, in which case forecast runs are
// logged but not stored.
func New(cfg *config.Config, db *database.DB, m engine.MetricsRecorder) (*Orchestrator, error) {
	eventBus := events.NewEventBus(cfg.Events.BufferSize)

	eng := engine.New(
		engine.FromSettings(cfg.Engine),
		engine.WithMetrics(m),
		engine.WithPublisher(events.NewPublisher(eventBus)),
	)

	forecaster := &Forecaster{Engine: eng}
	if cfg.Engine.Cache.Enabled {
		sess, err := eng.NewSession(cfg.Engine.Cache.Size)
		if err != nil {
			eventBus.Close()
			return nil, fmt.Errorf("failed to create model cache: %w", err)
		}
		forecaster.session = sess
	}

	o := &Orchestrator{
		config:     cfg,
		db:         db,
		eventBus:   eventBus,
		engine:     eng,
		forecaster: forecaster,
	}

	var store events.RunStore
	if db != nil {
		repo := queries.NewForecastRepository(db.DB)
		store = repo
		if cfg.Database.RetentionRuns > 0 {
			o.pruner = NewPruner(PrunerConfig{
				Interval: cfg.Database.PruneInterval,
				Keep:     cfg.Database.RetentionRuns,
				Store:    repo,
				Events:   eventBus.Subscribe(models.EventTypeForecastCompleted),
			})
		}
	}
	o.recorder = events.NewRecorder(store, eventBus.SubscribeAll())

	return o, nil
}

func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}

	logger.Info("Orchestrator starting")
	o.recorder.Start()
	if o.pruner != nil {
		if err := o.pruner.Start(); err != nil {
			o.recorder.Stop()
			return fmt.Errorf("failed to start pruner: %w", err)
		}
	}
	o.running = true
	return nil
}

func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	logger.Info("Orchestrator stopping")

	if o.pruner != nil {
		o.pruner.Stop()
	}
	o.forecaster.Close()

	// Closing the bus ends every subscription, which lets the recorder drain.
	o.eventBus.Close()
	if o.running {
		o.recorder.Stop()
	}
	o.running = false

	logger.Info("Orchestrator stopped")
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) Engine() *engine.Engine {
	return o.engine
}

// Forecaster is what the API should serve from; it reuses cached models when
// the cache is enabled.
func (o *Orchestrator) Forecaster() *Forecaster {
	return o.forecaster
}

func (o *Orchestrator) SubscribeEvents(eventTypes ...models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventTypes...)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

// DroppedEvents counts events lost to slow subscribers.
func (o *Orchestrator) DroppedEvents() int64 {
	return o.eventBus.Dropped()
}

// Forecaster routes single forecasts through an optional model cache and
// everything else straight to the engine.
type Forecaster struct {
	*engine.Engine
	session *engine.Session
}

func (f *Forecaster) Forecast(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.Forecast, error) {
	if f.session != nil {
		return f.session.Forecast(ctx, series, kind, opts)
	}
	return f.Engine.Forecast(ctx, series, kind, opts)
}

func (f *Forecaster) GenerateIntervals(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.IntervalForecast, error) {
	if f.session != nil {
		return f.session.GenerateIntervals(ctx, series, kind, opts)
	}
	return f.Engine.GenerateIntervals(ctx, series, kind, opts)
}

// Cached reports how many trained models the cache holds.
func (f *Forecaster) Cached() int {
	if f.session == nil {
		return 0
	}
	return f.session.Len()
}

func (f *Forecaster) Close() {
	if f.session != nil {
		f.session.Close()
	}
}
