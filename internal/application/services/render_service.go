package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/security"
)

// RenderStatus is the state of a region's bitmap.
type RenderStatus string

const (
	RenderReady   RenderStatus = "ready"
	RenderLoading RenderStatus = "loading"
	RenderFailed  RenderStatus = "failed"
)

// RenderResult describes a region's bitmap as seen by a caller.
type RenderResult struct {
	RegionID int          `json:"regionId"`
	Status   RenderStatus `json:"status"`
	JobID    string       `json:"jobId,omitempty"`
	Data     string       `json:"data,omitempty"`
	Error    string       `json:"error,omitempty"`
	Box      geometry.Box `json:"box"`
}

type renderJob struct {
	id      string
	sig     stores.RenderSignature
	err     error
	started time.Time
}

// RenderService crops region bitmaps out of their images and memoizes them in
// the render cache. Crops run in the background with bounded concurrency; a
// region's bitmap is "loading" until its crop lands in the cache.
type RenderService struct {
	store     *document.Store
	cache     *stores.RenderStore
	processor *media.ImageProcessor
	logger    *logging.ChanneledLogger

	slots chan struct{}
	mu    sync.Mutex
	jobs  map[int]*renderJob
	wg    sync.WaitGroup
}

// NewRenderService creates a render service running at most workers crops at once.
func NewRenderService(store *document.Store, cache *stores.RenderStore, processor *media.ImageProcessor, logger *logging.ChanneledLogger, workers int) *RenderService {
	if workers <= 0 {
		workers = 1
	}
	return &RenderService{
		store:     store,
		cache:     cache,
		processor: processor,
		logger:    logger,
		slots:     make(chan struct{}, workers),
		jobs:      make(map[int]*renderJob),
	}
}

type renderTarget struct {
	sig   stores.RenderSignature
	pixel geometry.Box
	image project.Image
}

func resolveTarget(view document.View, regionID int) (renderTarget, error) {
	abs, err := view.AbsoluteBox(regionID)
	if err != nil {
		return renderTarget{}, err
	}
	pixel, img, err := view.PixelBox(regionID)
	if err != nil {
		return renderTarget{}, err
	}
	return renderTarget{
		sig:   stores.RenderSignature{ImageID: img.ID, Source: media.Digest(img.Data), Box: abs},
		pixel: pixel,
		image: img,
	}, nil
}

// Bitmap returns the region's bitmap if it is cached for the region's
// current geometry. Otherwise it starts a crop, or reports the one already
// running, and returns a loading result. A failed crop is reported once and
// then forgotten so the next call retries.
func (s *RenderService) Bitmap(regionID int) (RenderResult, error) {
	target, err := resolveTarget(s.store.View(), regionID)
	if err != nil {
		return RenderResult{}, err
	}
	result := RenderResult{RegionID: regionID, Box: target.pixel}

	if data, ok := s.cache.Get(regionID, target.sig); ok {
		result.Status = RenderReady
		result.Data = data
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[regionID]; ok && job.sig == target.sig {
		result.JobID = job.id
		if job.err != nil {
			delete(s.jobs, regionID)
			result.Status = RenderFailed
			result.Error = job.err.Error()
			return result, nil
		}
		result.Status = RenderLoading
		return result, nil
	}

	job := &renderJob{id: security.GenerateULID(), sig: target.sig, started: time.Now()}
	s.jobs[regionID] = job
	s.wg.Add(1)
	go s.run(regionID, job, target)

	s.logger.Render().Debug("Crop job started", "regionId", regionID, "jobId", job.id, "imageId", target.image.ID)
	result.Status = RenderLoading
	result.JobID = job.id
	return result, nil
}

func (s *RenderService) run(regionID int, job *renderJob, target renderTarget) {
	defer s.wg.Done()

	s.slots <- struct{}{}
	data, err := s.processor.Crop(target.image.Data, target.pixel)
	<-s.slots

	s.mu.Lock()
	current, ok := s.jobs[regionID]
	superseded := !ok || current != job
	if !superseded {
		if err != nil {
			job.err = err
		} else {
			s.cache.Set(regionID, target.sig, data)
			delete(s.jobs, regionID)
		}
	}
	s.mu.Unlock()

	if superseded {
		s.logger.Render().Debug("Crop job superseded, result dropped", "regionId", regionID, "jobId", job.id)
		return
	}
	if err != nil {
		s.logger.Render().Warn("Crop job failed", "regionId", regionID, "jobId", job.id, "error", err, "duration", time.Since(job.started))
		return
	}
	s.logger.Render().Info("Crop job finished", "regionId", regionID, "jobId", job.id, "bytes", len(data), "duration", time.Since(job.started))
}

// Render returns the region's bitmap, cropping it synchronously on a cache
// miss. It waits for a free crop slot unless ctx ends first.
func (s *RenderService) Render(ctx context.Context, regionID int) (RenderResult, error) {
	target, err := resolveTarget(s.store.View(), regionID)
	if err != nil {
		return RenderResult{}, err
	}
	result := RenderResult{RegionID: regionID, Box: target.pixel}

	if data, ok := s.cache.Get(regionID, target.sig); ok {
		result.Status = RenderReady
		result.Data = data
		return result, nil
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return RenderResult{}, fmt.Errorf("waiting to crop region %d: %w", regionID, ctx.Err())
	}
	start := time.Now()
	data, err := s.processor.Crop(target.image.Data, target.pixel)
	<-s.slots

	if err != nil {
		s.logger.Render().Warn("Crop failed", "regionId", regionID, "error", err)
		result.Status = RenderFailed
		result.Error = err.Error()
		return result, nil
	}

	s.cache.Set(regionID, target.sig, data)
	s.logger.Render().Info("Region cropped", "regionId", regionID, "bytes", len(data), "duration", time.Since(start))
	result.Status = RenderReady
	result.Data = data
	return result, nil
}

// Pending returns the number of crop jobs that are running or whose failure
// has not been reported yet.
func (s *RenderService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Wait blocks until every background crop has finished or ctx ends.
func (s *RenderService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CacheStats reports the render cache contents.
func (s *RenderService) CacheStats() stores.RenderStats {
	return s.cache.Stats()
}

// CacheEntries lists the cached crops without their bitmaps.
func (s *RenderService) CacheEntries() []stores.RenderEntry {
	return s.cache.Entries()
}

// Forget drops a region's cached crop and any failure recorded for it.
func (s *RenderService) Forget(regionID int) {
	s.mu.Lock()
	if job, ok := s.jobs[regionID]; ok && job.err != nil {
		delete(s.jobs, regionID)
	}
	s.mu.Unlock()
	if s.cache.Invalidate(regionID) {
		s.logger.Cache().Debug("Render cache entry dropped", "regionId", regionID)
	}
}

// HandleChange drops every cached crop and pending job when the whole
// document is replaced. Subscribe it to the document store.
func (s *RenderService) HandleChange(change document.Change) {
	switch change.Command {
	case document.CommandImportProject, document.CommandResetProject:
	default:
		return
	}
	s.mu.Lock()
	dropped := len(s.jobs)
	s.jobs = make(map[int]*renderJob)
	s.cache.Clear()
	s.mu.Unlock()
	s.logger.Cache().Info("Render cache cleared for new document", "command", change.Command, "revision", change.Revision, "droppedJobs", dropped)
}

// ClearCache empties the render cache.
func (s *RenderService) ClearCache() {
	s.cache.Clear()
	s.logger.Cache().Info("Render cache cleared")
}
