package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// CreateRegionRequest places a new placeholder region.
type CreateRegionRequest struct {
	ImageID           *int `json:"imageId" binding:"required"`
	ParentComponentID *int `json:"parentComponentId"`
	ParentRegionID    *int `json:"parentRegionId"`
}

// RegionHandlers serves region operations and region bitmaps.
type RegionHandlers struct {
	projectService *services.ProjectService
	renderService  *services.RenderService
	logger         *logging.ChanneledLogger
}

// NewRegionHandlers creates region handlers with injected dependencies
func NewRegionHandlers(projectService *services.ProjectService, renderService *services.RenderService, logger *logging.ChanneledLogger) *RegionHandlers {
	return &RegionHandlers{
		projectService: projectService,
		renderService:  renderService,
		logger:         logger,
	}
}

// ListRegions returns every region in stored order.
func (h *RegionHandlers) ListRegions(c *gin.Context) {
	regions := h.projectService.View().Regions()
	c.JSON(http.StatusOK, gin.H{"regions": regions, "count": len(regions)})
}

// GetRegion returns one region with its direct children.
func (h *RegionHandlers) GetRegion(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	view := h.projectService.View()
	region, found := view.Region(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "region not found", "regionId": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"region": region, "children": view.Children(id)})
}

// CreateRegion adds a region with the default box.
func (h *RegionHandlers) CreateRegion(c *gin.Context) {
	var req CreateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	region, change, err := h.projectService.CreateRegion(*req.ImageID, req.ParentComponentID, req.ParentRegionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"region": region, "revision": change.Revision})
}

// UpdateRegion replaces the region at the path id with the body. The body's
// componentId is ignored.
func (h *RegionHandlers) UpdateRegion(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var region project.Region
	if err := c.ShouldBindJSON(&region); err != nil {
		bindError(c, err)
		return
	}
	region.ID = id
	updated, change, err := h.projectService.UpdateRegion(region)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"region": updated, "revision": change.Revision})
}

// DeleteRegion removes a region. Its children keep their parent id.
func (h *RegionHandlers) DeleteRegion(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	change, err := h.projectService.RemoveRegion(id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.renderService.Forget(id)
	c.JSON(http.StatusOK, gin.H{"regionId": id, "revision": change.Revision})
}

// GetRegionBox resolves a region through its ancestors to image fractions
// and to pixels.
func (h *RegionHandlers) GetRegionBox(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	view := h.projectService.View()
	abs, err := view.AbsoluteBox(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response := gin.H{"regionId": id, "absolute": abs}
	if pixel, img, err := view.PixelBox(id); err == nil {
		response["pixel"] = pixel
		response["imageId"] = img.ID
	}
	c.JSON(http.StatusOK, response)
}

// GetRegionBitmap returns the cached crop of a region, or starts one.
// Ready bitmaps answer 200, crops in flight 202 and failed crops 422.
func (h *RegionHandlers) GetRegionBitmap(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := h.renderService.Bitmap(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(bitmapStatus(result.Status), result)
}

// RenderRegion crops a region synchronously.
func (h *RegionHandlers) RenderRegion(c *gin.Context) {
	start := time.Now()
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := h.renderService.Render(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.HTTP().Debug("Region render served", "regionId", id, "status", result.Status, "duration", time.Since(start))
	c.JSON(bitmapStatus(result.Status), result)
}

func bitmapStatus(status services.RenderStatus) int {
	switch status {
	case services.RenderReady:
		return http.StatusOK
	case services.RenderLoading:
		return http.StatusAccepted
	default:
		return http.StatusUnprocessableEntity
	}
}
