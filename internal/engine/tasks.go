package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

// Request is one series to forecast.
type Request struct {
	Series   *models.MetricSeries
	Strategy models.Strategy
	Options  models.PredictionOptions
}

// Result is the outcome of one Request. Err is only ever an input
// validation error.
type Result struct {
	MetricID string
	Forecast *models.Forecast
	Err      error
}

// Task is a forecast running in the background.
type Task struct {
	done   chan struct{}
	result Result
}

// Submit starts req in its own goroutine.
func (e *Engine) Submit(ctx context.Context, req Request) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result = e.execute(ctx, req)
	}()
	return t
}

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// ForecastAll runs every request with at most MaxConcurrency in flight and
// returns the results in request order. One request's failure never affects
// the others.
func (e *Engine) ForecastAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = e.execute(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) execute(ctx context.Context, req Request) Result {
	res := Result{}
	if req.Series != nil {
		res.MetricID = req.Series.ID
	}
	res.Forecast, res.Err = e.Forecast(ctx, req.Series, req.Strategy, req.Options)
	return res
}
