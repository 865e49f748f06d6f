package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chrissnell/tripcharts/internal/controllers/restserver"
	"github.com/chrissnell/tripcharts/internal/log"
	"github.com/chrissnell/tripcharts/internal/pipeline"
	"github.com/chrissnell/tripcharts/internal/types"
	"github.com/chrissnell/tripcharts/pkg/config"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run registers the dataset, serves the web UI and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	rt, err := pipeline.NewRuntime(cfg, a.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.Register(ctx); err != nil {
		return err
	}

	ctrl, err := restserver.NewController(ctx, &wg, rt, cfg.Server, a.logger)
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	if cfg.Refresh.Interval > 0 {
		scheduler, err := a.startRefresh(ctx, rt, cfg.Refresh.Interval)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// Render registers the dataset and performs one load.  Drawn surfaces land in
// server.output_dir.
func (a *App) Render(ctx context.Context) (*types.Aggregates, error) {
	rt, err := a.newRuntime()
	if err != nil {
		return nil, err
	}
	defer rt.Close()

	if _, err := rt.Register(ctx); err != nil {
		return nil, err
	}
	return rt.Load(ctx)
}

// Clear empties every surface, removing any mirrored files
func (a *App) Clear() error {
	rt, err := a.newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Clear()
	return nil
}

// OutputDir returns the directory drawn surfaces are mirrored to, if any
func (a *App) OutputDir() string {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return ""
	}
	return cfg.Server.OutputDir
}

func (a *App) newRuntime() (*pipeline.Runtime, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return pipeline.NewRuntime(cfg, a.logger)
}

// startRefresh re-registers the dataset every interval and, once a load has
// happened, redraws the charts from the refreshed table.
func (a *App) startRefresh(ctx context.Context, rt *pipeline.Runtime, interval time.Duration) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(interval).WaitForSchedule().Do(func() {
		a.refresh(ctx, rt)
	})
	if err != nil {
		return nil, fmt.Errorf("error scheduling dataset refresh: %w", err)
	}

	s.StartAsync()
	a.logger.Infof("dataset refresh scheduled every %v", interval)
	return s, nil
}

func (a *App) refresh(ctx context.Context, rt *pipeline.Runtime) {
	if _, err := rt.Register(ctx); err != nil {
		a.logger.Errorf("scheduled dataset refresh failed: %v", err)
		return
	}

	if _, err := rt.Latest(); err != nil {
		return
	}
	if _, err := rt.Load(ctx); err != nil {
		a.logger.Errorf("scheduled redraw failed: %v", err)
	}
}
