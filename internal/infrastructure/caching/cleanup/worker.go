// Package cleanup provides the background worker that prunes render cache
// entries which can no longer be hit.
package cleanup

import (
	"context"
	"time"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// Worker handles background cache cleanup operations
type Worker struct {
	store    *document.Store
	cache    *stores.RenderStore
	logger   *logging.ChanneledLogger
	reporter *Reporter
	config   *Config
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(store *document.Store, cache *stores.RenderStore, logger *logging.ChanneledLogger, config *Config) *Worker {
	return &Worker{
		store:    store,
		cache:    cache,
		logger:   logger,
		reporter: NewReporter(cache),
		config:   config,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	if w.config.CleanupInterval <= 0 {
		w.logger.Cache().Info("Render cache cleanup worker disabled")
		return
	}
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.Cache().Info("Render cache cleanup worker started",
		"interval", w.config.CleanupInterval, "verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Cache().Info("Render cache cleanup worker stopping")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce prunes the cache against the current document and returns the
// number of entries removed. An entry survives only if its region still
// exists, its image still holds the same data and the region still resolves
// to the box the entry was cropped with.
func (w *Worker) RunOnce() int {
	start := time.Now()
	view := w.store.View()

	if w.config.VerboseReporting {
		w.reporter.LogStage("RENDER CACHE CLEANUP (revision %d)", view.Revision())
	}

	digests := make(map[int]string)
	removed := w.cache.Prune(func(regionID int, sig stores.RenderSignature) bool {
		r, ok := view.Region(regionID)
		if !ok || r.ImageID != sig.ImageID {
			return false
		}
		digest, seen := digests[r.ImageID]
		if !seen {
			img, ok := view.Image(r.ImageID)
			if !ok {
				return false
			}
			digest = media.Digest(img.Data)
			digests[r.ImageID] = digest
		}
		if digest != sig.Source {
			return false
		}
		abs, err := view.AbsoluteBox(regionID)
		return err == nil && abs == sig.Box
	})

	duration := time.Since(start)
	if removed > 0 {
		w.logger.Cache().Info("Render cache cleanup finished", "removed", removed, "remaining", w.cache.Len(), "duration", duration)
	} else {
		w.logger.Cache().Debug("Render cache cleanup found nothing to remove", "duration", duration)
	}
	if w.config.VerboseReporting {
		w.reporter.PrintReport(removed, duration)
	}
	return removed
}
