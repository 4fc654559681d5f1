// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/atomic-builder-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	ProjectService      *services.ProjectService
	RenderService       *services.RenderService
	RemoteImportService *services.RemoteImportService

	// Domain
	Store *document.Store

	// Infrastructure Dependencies
	RenderCache        *stores.RenderStore
	ImageProcessor     *media.ImageProcessor
	ProjectBroadcaster *messaging.ProjectBroadcaster
	CleanupWorker      *cleanup.Worker

	// Observability
	Logger         *logging.ChanneledLogger
	LogBroadcaster *logging.LogBroadcaster
	PerfTracker    *performance.Tracker
}

// NewContainer creates and wires all singleton services around one document
// store. logBroadcaster may be nil when live log streaming is not wanted.
func NewContainer(logger *logging.ChanneledLogger, logBroadcaster *logging.LogBroadcaster) *Container {
	store := document.NewStore()
	renderCache := stores.NewRenderStore(logger)
	processor := media.NewImageProcessor(config.RenderFormat, config.RenderQuality)
	projectBroadcaster := messaging.NewProjectBroadcaster(logger, config.BroadcastBuffer)

	renderService := services.NewRenderService(store, renderCache, processor, logger, config.RenderWorkers)

	// Every committed revision is pushed to connected editors.
	store.Subscribe(projectBroadcaster.Publish)
	store.Subscribe(renderService.HandleChange)

	return &Container{
		ProjectService:      services.NewProjectService(store, processor, logger),
		RenderService:       renderService,
		RemoteImportService: services.NewRemoteImportService(store, processor, logger),

		Store: store,

		RenderCache:        renderCache,
		ImageProcessor:     processor,
		ProjectBroadcaster: projectBroadcaster,
		CleanupWorker:      cleanup.NewWorker(store, renderCache, logger, cleanup.NewConfig()),

		Logger:         logger,
		LogBroadcaster: logBroadcaster,
		PerfTracker:    performance.NewTracker(performance.DefaultTrackerConfig()),
	}
}
