package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// UpdateComponentRequest replaces a component's editable fields.
type UpdateComponentRequest struct {
	Name     string        `json:"name" binding:"required"`
	Category *string       `json:"category"`
	Props    project.Props `json:"props"`
}

// ComponentPropsRequest carries props in their text form.
type ComponentPropsRequest struct {
	Text string `json:"text"`
}

// ComponentHandlers serves the component catalogue.
type ComponentHandlers struct {
	projectService *services.ProjectService
	logger         *logging.ChanneledLogger
}

// NewComponentHandlers creates component handlers with injected dependencies
func NewComponentHandlers(projectService *services.ProjectService, logger *logging.ChanneledLogger) *ComponentHandlers {
	return &ComponentHandlers{
		projectService: projectService,
		logger:         logger,
	}
}

// ListComponents returns the catalogue and whether it is stale.
func (h *ComponentHandlers) ListComponents(c *gin.Context) {
	view := h.projectService.View()
	components := view.Components()
	c.JSON(http.StatusOK, gin.H{
		"components": components,
		"count":      len(components),
		"stale":      view.ComponentsStale(),
	})
}

// GetComponent returns a component with its variants and neighbours.
func (h *ComponentHandlers) GetComponent(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	view := h.projectService.View()
	component, found := view.Component(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "component not found", "componentId": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"component": component,
		"propsText": project.FormatProps(component.Props),
		"variants":  view.VariantsOf(id),
		"parents":   view.ParentComponents(id),
		"children":  view.ChildComponents(id),
	})
}

// UpdateComponent replaces a component's name, category and props.
func (h *ComponentHandlers) UpdateComponent(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	props := req.Props
	if props == nil {
		props = project.Props{}
	}
	component := project.Component{ID: id, Name: req.Name, Category: req.Category, Props: props}
	change, err := h.projectService.UpdateComponent(component)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"component": component, "revision": change.Revision})
}

// UpdateComponentProps parses the props text and stores it on the component.
func (h *ComponentHandlers) UpdateComponentProps(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req ComponentPropsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	component, change, err := h.projectService.SetComponentProps(id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"component": component,
		"propsText": project.FormatProps(component.Props),
		"revision":  change.Revision,
	})
}

// BuildComponents rebuilds the catalogue from region names.
func (h *ComponentHandlers) BuildComponents(c *gin.Context) {
	change, err := h.projectService.BuildComponents()
	if err != nil {
		respondError(c, err)
		return
	}
	components := h.projectService.View().Components()
	c.JSON(http.StatusOK, gin.H{
		"components": components,
		"count":      len(components),
		"revision":   change.Revision,
	})
}

// GetCategories returns the catalogue grouped by category.
func (h *ComponentHandlers) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.projectService.View().ComponentsByCategory()})
}

// GetStale reports whether the catalogue needs a rebuild.
func (h *ComponentHandlers) GetStale(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stale": h.projectService.View().ComponentsStale()})
}
