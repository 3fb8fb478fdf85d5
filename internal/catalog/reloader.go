package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bakingai/internal/models"

	"github.com/sirupsen/logrus"
)

const defaultReloadInterval = 5 * time.Minute

// Loader reads the full recipe catalog from its source.
type Loader func(ctx context.Context) ([]models.Recipe, error)

// CSVLoader loads the recipe CSV at path on every call.
func CSVLoader(path string, logger *logrus.Logger) Loader {
	return func(ctx context.Context) ([]models.Recipe, error) {
		recipes, stats, err := LoadCSVFile(path)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"path":       path,
			"rows":       stats.Rows,
			"skipped":    stats.Skipped,
			"duplicates": stats.Duplicates,
			"recipes":    len(recipes),
		}).Info("Recipe CSV loaded")
		return recipes, nil
	}
}

// ReloaderStats reports the state of the catalog reload worker.
type ReloaderStats struct {
	LastRun   time.Time `json:"last_run"`
	Recipes   int       `json:"recipes"`
	Reloads   int       `json:"reloads"`
	Errors    int       `json:"errors"`
	IsRunning bool      `json:"is_running"`
}

// Reloader refreshes a Store from a Loader on a fixed interval. A failed load
// keeps the previous catalog.
type Reloader struct {
	load     Loader
	store    Store
	interval time.Duration
	logger   *logrus.Logger

	mu    sync.Mutex
	stats ReloaderStats
}

func NewReloader(load Loader, store Store, interval time.Duration, logger *logrus.Logger) *Reloader {
	if interval <= 0 {
		interval = defaultReloadInterval
	}
	return &Reloader{
		load:     load,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Reload loads the catalog once and replaces the store's contents.
func (r *Reloader) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	recipes, err := r.load(ctx)
	if err == nil {
		err = r.store.Replace(ctx, recipes)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.LastRun = time.Now()
	if err != nil {
		r.stats.Errors++
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	r.stats.Reloads++
	r.stats.Recipes = len(recipes)
	return nil
}

// Run reloads on every tick until ctx is done.
func (r *Reloader) Run(ctx context.Context) {
	r.logger.WithField("interval", r.interval.String()).Info("Starting catalog reload worker...")
	r.setRunning(true)
	defer r.setRunning(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Catalog reload worker stopped")
			return
		case <-ticker.C:
			r.logger.Debug("Reloading recipe catalog...")
			if err := r.Reload(ctx); err != nil {
				r.logger.WithError(err).Error("Error reloading recipe catalog")
				continue
			}
			r.logger.WithField("recipes", r.Stats().Recipes).Info("Recipe catalog reloaded")
		}
	}
}

func (r *Reloader) Stats() ReloaderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Reloader) setRunning(v bool) {
	r.mu.Lock()
	r.stats.IsRunning = v
	r.mu.Unlock()
}
