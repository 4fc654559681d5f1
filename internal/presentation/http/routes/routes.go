// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/container"
	"github.com/AtRiskMedia/atomic-builder-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/atomic-builder-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/atomic-builder-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.PerformanceMiddleware(container.PerfTracker))
	r.Use(middleware.CORSMiddleware(config.CORSAllowOrigins))
	r.Use(middleware.BodyLimit(int64(config.MaxUploadMB) << 20))

	// Initialize handlers
	projectHandlers := handlers.NewProjectHandlers(container.ProjectService, container.Logger)
	imageHandlers := handlers.NewImageHandlers(container.ProjectService, container.Logger)
	regionHandlers := handlers.NewRegionHandlers(container.ProjectService, container.RenderService, container.Logger)
	componentHandlers := handlers.NewComponentHandlers(container.ProjectService, container.Logger)
	colorHandlers := handlers.NewColorHandlers(container.ProjectService)
	remoteImportHandlers := handlers.NewRemoteImportHandlers(container.RemoteImportService, container.Logger)
	systemHandlers := handlers.NewSystemHandlers(container, config.CORSAllowOrigins)

	r.GET("/health", systemHandlers.Health)

	api := r.Group("/api/v1")
	{
		// Whole document
		projectGroup := api.Group("/project")
		{
			projectGroup.GET("", projectHandlers.GetProject)
			projectGroup.PUT("", projectHandlers.RenameProject)
			projectGroup.DELETE("", projectHandlers.ResetProject)
			projectGroup.GET("/document", projectHandlers.GetDocument)
			projectGroup.GET("/export", projectHandlers.ExportProject)
			projectGroup.POST("/import", projectHandlers.ImportProject)
		}

		images := api.Group("/images")
		{
			images.GET("", imageHandlers.ListImages)
			images.POST("", imageHandlers.UploadImage)
			images.GET("/:id", imageHandlers.GetImage)
			images.PUT("/:id", imageHandlers.PutImage)
			images.DELETE("/:id", imageHandlers.DeleteImage)
			images.POST("/:id/resave", imageHandlers.ResaveImage)
			images.GET("/:id/regions", imageHandlers.ListImageRegions)
		}

		regions := api.Group("/regions")
		{
			regions.GET("", regionHandlers.ListRegions)
			regions.POST("", regionHandlers.CreateRegion)
			regions.GET("/:id", regionHandlers.GetRegion)
			regions.PUT("/:id", regionHandlers.UpdateRegion)
			regions.DELETE("/:id", regionHandlers.DeleteRegion)
			regions.GET("/:id/box", regionHandlers.GetRegionBox)
			regions.GET("/:id/bitmap", regionHandlers.GetRegionBitmap)
			regions.POST("/:id/render", regionHandlers.RenderRegion)
		}

		components := api.Group("/components")
		{
			components.GET("", componentHandlers.ListComponents)
			components.POST("/build", componentHandlers.BuildComponents)
			components.GET("/categories", componentHandlers.GetCategories)
			components.GET("/stale", componentHandlers.GetStale)
			components.GET("/:id", componentHandlers.GetComponent)
			components.PUT("/:id", componentHandlers.UpdateComponent)
			components.PUT("/:id/props", componentHandlers.UpdateComponentProps)
		}

		colors := api.Group("/colors")
		{
			colors.GET("", colorHandlers.ListColors)
			colors.POST("", colorHandlers.AddColor)
			colors.DELETE("", colorHandlers.RemoveColor)
		}

		api.POST("/import/remote", remoteImportHandlers.ImportRemote)

		// Live revision push
		api.GET("/ws", systemHandlers.ProjectSocket)

		logs := api.Group("/logs")
		{
			logs.GET("/stream", systemHandlers.StreamLogs)
			logs.GET("/levels", systemHandlers.GetLogLevels)
			logs.PUT("/levels", systemHandlers.SetLogLevel)
		}

		api.GET("/performance", systemHandlers.GetPerformance)
		api.DELETE("/performance", systemHandlers.ResetPerformance)

		cache := api.Group("/cache")
		{
			cache.GET("", systemHandlers.GetCacheStats)
			cache.DELETE("", systemHandlers.ClearCache)
		}
	}

	return r
}
