package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
)

// ColorRequest names a colour by its hex string.
type ColorRequest struct {
	Hex string `json:"hex" form:"hex" binding:"required"`
}

// ColorHandlers serves the picked colour set.
type ColorHandlers struct {
	projectService *services.ProjectService
}

// NewColorHandlers creates colour handlers with injected dependencies
func NewColorHandlers(projectService *services.ProjectService) *ColorHandlers {
	return &ColorHandlers{projectService: projectService}
}

// ListColors returns the picked colours in insertion order.
func (h *ColorHandlers) ListColors(c *gin.Context) {
	colors := h.projectService.View().Colors()
	c.JSON(http.StatusOK, gin.H{"colors": colors, "count": len(colors)})
}

// AddColor picks a colour. Picking one twice is a no-op.
func (h *ColorHandlers) AddColor(c *gin.Context) {
	var req ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	change, err := h.projectService.AddColor(project.Color{Hex: req.Hex})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"colors": h.projectService.View().Colors(), "revision": change.Revision})
}

// RemoveColor drops the colour given by ?hex.
func (h *ColorHandlers) RemoveColor(c *gin.Context) {
	var req ColorRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hex query parameter is required"})
		return
	}
	change, err := h.projectService.RemoveColor(project.Color{Hex: req.Hex})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"colors": h.projectService.View().Colors(), "revision": change.Revision})
}
