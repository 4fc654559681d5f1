package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// RenameProjectRequest sets the project name.
type RenameProjectRequest struct {
	Name string `json:"name" binding:"max=200"`
}

// ProjectHandlers serves whole-document operations.
type ProjectHandlers struct {
	projectService *services.ProjectService
	logger         *logging.ChanneledLogger
}

// NewProjectHandlers creates project handlers with injected dependencies
func NewProjectHandlers(projectService *services.ProjectService, logger *logging.ChanneledLogger) *ProjectHandlers {
	return &ProjectHandlers{
		projectService: projectService,
		logger:         logger,
	}
}

// GetProject returns the project summary.
func (h *ProjectHandlers) GetProject(c *gin.Context) {
	view := h.projectService.View()
	c.JSON(http.StatusOK, gin.H{
		"name":            view.Name(),
		"revision":        view.Revision(),
		"images":          len(view.Images()),
		"regions":         len(view.Regions()),
		"components":      len(view.Components()),
		"colors":          len(view.Colors()),
		"componentsStale": view.ComponentsStale(),
	})
}

// GetDocument returns the whole document.
func (h *ProjectHandlers) GetDocument(c *gin.Context) {
	view := h.projectService.View()
	c.JSON(http.StatusOK, gin.H{
		"revision": view.Revision(),
		"document": view.Document(),
	})
}

// RenameProject sets the project name.
func (h *ProjectHandlers) RenameProject(c *gin.Context) {
	var req RenameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	change, err := h.projectService.Rename(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name, "revision": change.Revision})
}

// ResetProject replaces the document with an empty one.
func (h *ProjectHandlers) ResetProject(c *gin.Context) {
	change, err := h.projectService.Reset()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": change.Revision})
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportProject downloads the document as a project file.
func (h *ProjectHandlers) ExportProject(c *gin.Context) {
	start := time.Now()
	raw, err := h.projectService.Export()
	if err != nil {
		respondError(c, err)
		return
	}

	name := unsafeFileChars.ReplaceAllString(h.projectService.View().Name(), "-")
	if name == "" || name == "-" {
		name = "project"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, name))
	h.logger.HTTP().Debug("Project export served", "bytes", len(raw), "duration", time.Since(start))
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// ImportProject replaces the document with the project file in the body.
// A rejected file leaves the document unchanged.
func (h *ProjectHandlers) ImportProject(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		bindError(c, err)
		return
	}
	change, err := h.projectService.Import(raw)
	if err != nil {
		respondError(c, err)
		return
	}
	view := h.projectService.View()
	c.JSON(http.StatusOK, gin.H{
		"revision":   change.Revision,
		"name":       view.Name(),
		"images":     len(view.Images()),
		"regions":    len(view.Regions()),
		"components": len(view.Components()),
	})
}
