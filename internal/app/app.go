// Package app runs the quenching finder end to end: catalog in, batch passes,
// result stores and catalog out, then optionally the results API.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/catalog"
	"github.com/chrissnell/quenchfinder/internal/constants"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/log"
	"github.com/chrissnell/quenchfinder/internal/managers"
	"github.com/chrissnell/quenchfinder/internal/quench"
	"github.com/chrissnell/quenchfinder/pkg/config"
	"go.uber.org/zap"
)

// Pass names
const (
	PassRaw    = "raw"
	PassRefine = "refine"
)

// Pass is the outcome of one batch pass over the catalog
type Pass struct {
	Name   string
	Result *batch.Result
	Stats  batch.EpisodeStats
}

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Scan runs the configured passes over galaxies. With refine set, a raw pass builds
// the interpolated variants and an interpolation pass detects episodes on them.
func (a *App) Scan(ctx context.Context, galaxies []*galaxy.Galaxy) ([]Pass, error) {
	policy, err := quench.ParsePolicy(a.cfg.Finder.Policy)
	if err != nil {
		return nil, err
	}

	opts := batch.Options{
		Policy:        policy,
		MassLimit:     a.cfg.Finder.MassLimit,
		Interpolation: a.cfg.Finder.Interpolation,
		Workers:       a.cfg.Finder.Workers,
	}

	name := PassRaw
	if opts.Interpolation {
		name = PassRefine
	}
	first, err := a.runPass(ctx, name, opts, galaxies)
	if err != nil {
		return nil, err
	}
	passes := []Pass{*first}

	if a.cfg.Finder.Refine {
		opts.Interpolation = true
		second, err := a.runPass(ctx, PassRefine, opts, first.Result.Galaxies)
		if err != nil {
			return passes, err
		}
		passes = append(passes, *second)
	}

	return passes, nil
}

func (a *App) runPass(ctx context.Context, name string, opts batch.Options, galaxies []*galaxy.Galaxy) (*Pass, error) {
	runner, err := batch.NewRunner(opts, a.logger)
	if err != nil {
		return nil, err
	}

	res, err := runner.Run(ctx, galaxies)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", name, err)
	}

	p := &Pass{Name: name, Result: res, Stats: batch.Stats(res.Galaxies)}
	runLog := log.ForRun(res.Summary.RunID, name)
	runLog.Infow("pass complete",
		"total_quenched", res.Summary.Quenched,
		"episodes", p.Stats.Count,
		"mean_duration", p.Stats.MeanDuration,
		"median_duration", p.Stats.MedianDuration)
	for _, f := range res.Summary.Failures {
		log.ForGalaxy(runLog, f.GalaxyID).Warnw("galaxy not scanned", "outcome", f.Outcome, "error", f.Message)
	}
	return p, nil
}

// Run loads the catalog, scans it, stores the results and, when a server is
// configured, serves them until shutdown
func (a *App) Run(ctx context.Context) error {
	a.cfg.ApplyDefaults()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	galaxies, err := catalog.Load(a.cfg.Catalog.Path, a.cfg.Catalog.Format)
	if err != nil {
		return fmt.Errorf("could not load catalog: %w", err)
	}
	log.Infof("loaded %d galaxies from %s", len(galaxies), a.cfg.Catalog.Path)

	storageManager, err := managers.NewStorageManager(ctx, &a.cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	passes, err := a.Scan(ctx, galaxies)
	if err != nil {
		return err
	}

	for _, p := range passes {
		if err := storageManager.SaveRun(ctx, &p.Result.Summary, p.Result.Galaxies); err != nil {
			return fmt.Errorf("could not store %s pass: %w", p.Name, err)
		}
	}

	if out := a.cfg.Catalog.Output; out != "" {
		final := passes[len(passes)-1].Result.Galaxies
		if err := catalog.Save(out, config.FormatFromPath(out), "quenchfinder "+constants.Version, final); err != nil {
			return err
		}
		log.Infof("wrote %d galaxies to %s", len(final), out)
	}

	if a.cfg.Server == nil {
		return nil
	}
	return a.serve(ctx, storageManager)
}

// serve runs the results API and blocks until a signal or ctx ends it
func (a *App) serve(ctx context.Context, storageManager *managers.StorageManager) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	storageManager.StartHealthMonitor(ctx, &wg)

	cm, err := managers.NewControllerManager(ctx, &wg, a.cfg, storageManager, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
