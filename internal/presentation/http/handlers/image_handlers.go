package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// UploadImageRequest carries a new screenshot as a data URI.
type UploadImageRequest struct {
	Name string `json:"name" binding:"required"`
	Data string `json:"data" binding:"required"`
}

// ResaveImageRequest carries a replacement bitmap for an existing image.
type ResaveImageRequest struct {
	Data string `json:"data" binding:"required"`
}

// PutImageRequest stores an image exactly as given under the path id.
type PutImageRequest struct {
	Name   string `json:"name"`
	Data   string `json:"data"`
	Width  int    `json:"width" binding:"gte=0"`
	Height int    `json:"height" binding:"gte=0"`
}

// ImageSummary is an image without its bitmap.
type ImageSummary struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func summarize(img project.Image) ImageSummary {
	return ImageSummary{ID: img.ID, Name: img.Name, Width: img.Width, Height: img.Height}
}

// ImageHandlers serves image operations.
type ImageHandlers struct {
	projectService *services.ProjectService
	logger         *logging.ChanneledLogger
}

// NewImageHandlers creates image handlers with injected dependencies
func NewImageHandlers(projectService *services.ProjectService, logger *logging.ChanneledLogger) *ImageHandlers {
	return &ImageHandlers{
		projectService: projectService,
		logger:         logger,
	}
}

// ListImages returns every image. Bitmaps are left out unless ?data=true.
func (h *ImageHandlers) ListImages(c *gin.Context) {
	images := h.projectService.View().Images()
	if c.Query("data") == "true" {
		c.JSON(http.StatusOK, gin.H{"images": images, "count": len(images)})
		return
	}
	summaries := make([]ImageSummary, len(images))
	for i, img := range images {
		summaries[i] = summarize(img)
	}
	c.JSON(http.StatusOK, gin.H{"images": summaries, "count": len(summaries)})
}

// GetImage returns one image with its bitmap.
func (h *ImageHandlers) GetImage(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	img, found := h.projectService.View().Image(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found", "imageId": id})
		return
	}
	c.JSON(http.StatusOK, img)
}

// UploadImage adds a screenshot under the next image id.
func (h *ImageHandlers) UploadImage(c *gin.Context) {
	start := time.Now()
	var req UploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	img, change, err := h.projectService.UploadImage(req.Name, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.HTTP().Info("Image uploaded", "imageId", img.ID, "width", img.Width, "height", img.Height, "duration", time.Since(start))
	c.JSON(http.StatusCreated, gin.H{"image": summarize(img), "revision": change.Revision})
}

// PutImage stores an image under the path id, replacing any image there.
func (h *ImageHandlers) PutImage(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req PutImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	img := project.Image{ID: id, Name: req.Name, Data: req.Data, Width: req.Width, Height: req.Height}
	change, err := h.projectService.AddImage(img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": summarize(img), "revision": change.Revision})
}

// ResaveImage replaces an image's bitmap, keeping its id and name.
func (h *ImageHandlers) ResaveImage(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req ResaveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	img, change, err := h.projectService.ResaveImage(id, req.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": summarize(img), "revision": change.Revision})
}

// DeleteImage removes an image. Its regions stay in the document.
func (h *ImageHandlers) DeleteImage(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	change, err := h.projectService.RemoveImage(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageId": id, "revision": change.Revision})
}

// ListImageRegions returns the regions drawn directly on an image, or
// directly inside ?parentRegionId.
func (h *ImageHandlers) ListImageRegions(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	parent, ok := optionalIntQuery(c, "parentRegionId")
	if !ok {
		return
	}
	regions := h.projectService.View().RegionsOf(id, parent)
	c.JSON(http.StatusOK, gin.H{"regions": regions, "count": len(regions)})
}
