package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// RunPruner trims stored forecast history for one metric.
type RunPruner interface {
	DeleteOlderThan(ctx context.Context, metricID string, keep int) (int64, error)
}

type PrunerConfig struct {
	Interval time.Duration
	Keep     int
	Store    RunPruner
	// Events delivers completed forecasts; their metric ids are pruned on
	// the next cycle.
	Events <-chan *models.Event
}

// Pruner keeps at most Keep runs per metric, checking only metrics that
// completed a forecast since the previous cycle.
type Pruner struct {
	config  PrunerConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewPruner(cfg PrunerConfig) *Pruner {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pruner{
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
}

func (p *Pruner) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.wg.Add(1)
	go p.run()

	logger.WithField("keep", p.config.Keep).Info("History pruner started")
	return nil
}

func (p *Pruner) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	logger.Info("History pruner stopped")
}

func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pruner) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	events := p.config.Events
	for {
		select {
		case <-p.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				// Keep pruning what is already pending.
				events = nil
				continue
			}
			if event.MetricID != "" {
				p.mu.Lock()
				p.pending[event.MetricID] = struct{}{}
				p.mu.Unlock()
			}
		case <-ticker.C:
			p.runCycle()
		}
	}
}

func (p *Pruner) runCycle() {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[string]struct{})
	p.mu.Unlock()

	for metricID := range pending {
		ctx, cancel := context.WithTimeout(p.ctx, p.config.Interval)
		deleted, err := p.config.Store.DeleteOlderThan(ctx, metricID, p.config.Keep)
		cancel()

		if err != nil {
			logger.WithMetric(metricID).Errorf("Failed to prune forecast history: %v", err)
			continue
		}
		if deleted > 0 {
			logger.WithMetric(metricID).Debugf("Pruned %d forecast runs", deleted)
		}
	}
}

// Pending reports how many metrics wait for the next cycle.
func (p *Pruner) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
