// Package pipeline wires the loader, query executor, shaping functions and chart
// renderers into the load and clear actions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chrissnell/tripcharts/internal/dataset"
	"github.com/chrissnell/tripcharts/internal/engine"
	"github.com/chrissnell/tripcharts/internal/metrics"
	"github.com/chrissnell/tripcharts/internal/query"
	"github.com/chrissnell/tripcharts/internal/render"
	"github.com/chrissnell/tripcharts/internal/surface"
	"github.com/chrissnell/tripcharts/internal/types"
	"github.com/chrissnell/tripcharts/pkg/config"
	"go.uber.org/zap"
)

// Runtime owns everything one program instance needs to load and draw.  It is
// built once at startup and handed to whatever triggers the actions.
type Runtime struct {
	Engine   engine.Engine
	Loader   *dataset.Loader
	Executor *query.Executor
	Board    *surface.Board
	Renderer *render.Renderer
	Limit    int
	Logger   *zap.SugaredLogger

	mu     sync.RWMutex
	latest *types.Aggregates
}

// NewRuntime opens the engine and builds every component from cfg.  The dataset
// is not registered until Register is called.
func NewRuntime(cfg *config.ConfigData, logger *zap.SugaredLogger) (*Runtime, error) {
	eng, err := engine.New(cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s engine: %w", cfg.Engine.Type, err)
	}

	fetcher, err := dataset.NewFetcher(cfg.Dataset, logger)
	if err != nil {
		eng.Close()
		return nil, err
	}

	board, err := surface.NewBoard(cfg.Surfaces, cfg.Server.OutputDir, logger)
	if err != nil {
		eng.Close()
		return nil, err
	}

	return &Runtime{
		Engine:   eng,
		Loader:   dataset.NewLoader(eng, fetcher, cfg.Engine.Table, cfg.Dataset.Sources, logger),
		Executor: query.NewExecutor(eng, cfg.Engine.Table, cfg.Query.SQL, logger),
		Board:    board,
		Renderer: render.New(board, logger),
		Limit:    cfg.Query.Limit,
		Logger:   logger,
	}, nil
}

// Close releases the engine
func (rt *Runtime) Close() error {
	return rt.Engine.Close()
}

// Register (re)loads the dataset into the engine.  On failure the previously
// registered table stays in place.
func (rt *Runtime) Register(ctx context.Context) (*dataset.LoadResult, error) {
	result, err := rt.Loader.Load(ctx)
	metrics.DatasetLoads.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("registering dataset: %w", err)
	}
	return result, nil
}

// Load clears every surface, queries the registered table, shapes the result and
// draws the scatter, bar and line charts in that order.  The first failing stage
// halts the run.
func (rt *Runtime) Load(ctx context.Context) (*types.Aggregates, error) {
	run := newRun(rt)

	err := run.execute(ctx, []Task{
		{Name: "clear", Run: run.clear},
		{Name: "query", Run: run.query},
		{Name: "shape", Run: run.shape},
		{Name: "scatter", Run: run.scatter},
		{Name: "bar", Run: run.bar},
		{Name: "line", Run: run.line},
	})
	metrics.RunsTotal.WithLabelValues("load", metrics.Status(err)).Inc()
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	rt.latest = run.aggregates
	rt.mu.Unlock()

	return run.aggregates, nil
}

// Clear empties every surface.  It does not wait for or cancel a running Load.
func (rt *Runtime) Clear() {
	rt.Board.ClearAll()
	metrics.RunsTotal.WithLabelValues("clear", "ok").Inc()
	rt.Logger.Info("all surfaces cleared")
}

// ErrNoAggregates is returned by Latest before the first successful load
var ErrNoAggregates = errors.New("no load has completed yet")

// Latest returns the aggregates from the most recent successful load
func (rt *Runtime) Latest() (*types.Aggregates, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.latest == nil {
		return nil, ErrNoAggregates
	}
	return rt.latest, nil
}
