// Package services provides application-level services that orchestrate
// the document store, the render cache and media processing.
package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/persistence/projectfile"
)

// ProjectService runs document mutations and logs their outcome.
type ProjectService struct {
	store     *document.Store
	processor *media.ImageProcessor
	logger    *logging.ChanneledLogger
}

// NewProjectService creates a new project service
func NewProjectService(store *document.Store, processor *media.ImageProcessor, logger *logging.ChanneledLogger) *ProjectService {
	return &ProjectService{
		store:     store,
		processor: processor,
		logger:    logger,
	}
}

// View returns the current committed document.
func (s *ProjectService) View() document.View {
	return s.store.View()
}

func (s *ProjectService) logResult(command string, change document.Change, err error, start time.Time, attrs ...any) {
	attrs = append(attrs, "command", command, "duration", time.Since(start))
	if err != nil {
		s.logger.Project().Warn("Mutation rejected", append(attrs, "error", err)...)
		return
	}
	s.logger.Project().Info("Mutation committed", append(attrs, "revision", change.Revision)...)
}

// AddImage stores img as given, replacing any image with the same id.
func (s *ProjectService) AddImage(img project.Image) (document.Change, error) {
	start := time.Now()
	change, err := s.store.AddImage(img)
	s.logResult("addImage", change, err, start, "imageId", img.ID)
	return change, err
}

// UploadImage decodes a data URI to learn its natural size, re-encodes it and
// adds it under the next image id.
func (s *ProjectService) UploadImage(name, data string) (project.Image, document.Change, error) {
	start := time.Now()
	resaved, width, height, err := s.processor.Resave(data)
	if err != nil {
		s.logger.Project().Warn("Image upload rejected", "name", name, "error", err)
		return project.Image{}, document.Change{}, fmt.Errorf("failed to read uploaded image %q: %w", name, err)
	}

	var added project.Image
	change, err := s.store.Update("addImage", func(tx *document.Tx) error {
		added = project.Image{ID: tx.NextImageID(), Name: name, Data: resaved, Width: width, Height: height}
		return tx.AddImage(added)
	})
	s.logResult("addImage", change, err, start, "imageId", added.ID, "width", width, "height", height)
	if err != nil {
		return project.Image{}, change, err
	}
	return added, change, nil
}

// ResaveImage replaces the bitmap of an existing image, keeping its id and
// name and refreshing its size.
func (s *ProjectService) ResaveImage(imageID int, data string) (project.Image, document.Change, error) {
	start := time.Now()
	resaved, width, height, err := s.processor.Resave(data)
	if err != nil {
		return project.Image{}, document.Change{}, fmt.Errorf("failed to read image data for image %d: %w", imageID, err)
	}

	var updated project.Image
	change, err := s.store.Update("addImage", func(tx *document.Tx) error {
		existing, ok := tx.View().Image(imageID)
		if !ok {
			return fmt.Errorf("image %d: %w", imageID, document.ErrNotFound)
		}
		updated = project.Image{ID: imageID, Name: existing.Name, Data: resaved, Width: width, Height: height}
		return tx.AddImage(updated)
	})
	s.logResult("addImage", change, err, start, "imageId", imageID, "resave", true)
	if err != nil {
		return project.Image{}, change, err
	}
	return updated, change, nil
}

// RemoveImage deletes an image. Regions drawn on it are kept.
func (s *ProjectService) RemoveImage(imageID int) (document.Change, error) {
	start := time.Now()
	change, err := s.store.RemoveImage(imageID)
	s.logResult("removeImage", change, err, start, "imageId", imageID)
	return change, err
}

// CreateRegion adds a placeholder region.
func (s *ProjectService) CreateRegion(imageID int, parentComponentID, parentRegionID *int) (project.Region, document.Change, error) {
	start := time.Now()
	r, change, err := s.store.CreateRegion(imageID, parentComponentID, parentRegionID)
	s.logResult("createRegion", change, err, start, "imageId", imageID, "regionId", r.ID)
	return r, change, err
}

// UpdateRegion replaces a region by id.
func (s *ProjectService) UpdateRegion(r project.Region) (project.Region, document.Change, error) {
	start := time.Now()
	updated, change, err := s.store.UpdateRegion(r)
	s.logResult("updateRegion", change, err, start, "regionId", r.ID)
	return updated, change, err
}

// RemoveRegion deletes a region by id. Its children are kept.
func (s *ProjectService) RemoveRegion(regionID int) (document.Change, error) {
	start := time.Now()
	change, err := s.store.RemoveRegion(regionID)
	s.logResult("removeRegion", change, err, start, "regionId", regionID)
	return change, err
}

// UpdateComponent replaces a component by id.
func (s *ProjectService) UpdateComponent(c project.Component) (document.Change, error) {
	start := time.Now()
	change, err := s.store.UpdateComponent(c)
	s.logResult("updateComponent", change, err, start, "componentId", c.ID)
	return change, err
}

// SetComponentProps parses the props text and stores the result on the
// component, keeping its name and category.
func (s *ProjectService) SetComponentProps(componentID int, text string) (project.Component, document.Change, error) {
	start := time.Now()
	props := project.ParseProps(text)

	var updated project.Component
	change, err := s.store.Update("updateComponent", func(tx *document.Tx) error {
		c, ok := tx.View().Component(componentID)
		if !ok {
			return fmt.Errorf("component %d: %w", componentID, document.ErrNotFound)
		}
		c.Props = props
		updated = c
		return tx.UpdateComponent(c)
	})
	s.logResult("updateComponent", change, err, start, "componentId", componentID, "props", len(props))
	if err != nil {
		return project.Component{}, change, err
	}
	return updated, change, nil
}

// AddColor adds a colour unless it is already picked.
func (s *ProjectService) AddColor(c project.Color) (document.Change, error) {
	start := time.Now()
	change, err := s.store.AddColor(c)
	s.logResult("addColor", change, err, start, "hex", c.Hex)
	return change, err
}

// RemoveColor removes a colour if present.
func (s *ProjectService) RemoveColor(c project.Color) (document.Change, error) {
	start := time.Now()
	change, err := s.store.RemoveColor(c)
	s.logResult("removeColor", change, err, start, "hex", c.Hex)
	return change, err
}

// BuildComponents rebuilds the component catalogue from region names.
func (s *ProjectService) BuildComponents() (document.Change, error) {
	start := time.Now()
	before := len(s.store.View().Components())
	change, err := s.store.BuildComponents()
	if err != nil {
		s.logger.Derivation().Error("Component rebuild failed", "error", err, "duration", time.Since(start))
		return change, err
	}
	s.logger.Derivation().Info("Component catalogue rebuilt",
		"revision", change.Revision,
		"before", before,
		"after", len(s.store.View().Components()),
		"duration", time.Since(start))
	return change, nil
}

// Import replaces the document with the one in a project file.
func (s *ProjectService) Import(raw []byte) (document.Change, error) {
	start := time.Now()
	doc, err := projectfile.Decode(raw)
	if err != nil {
		s.logger.Project().Warn("Project import rejected", "error", err, "bytes", len(raw))
		return document.Change{}, err
	}
	change, err := s.store.ImportProject(doc)
	s.logResult("importProject", change, err, start,
		"images", len(doc.Images), "regions", len(doc.Regions), "components", len(doc.Components))
	return change, err
}

// Export encodes the current document as a project file.
func (s *ProjectService) Export() ([]byte, error) {
	start := time.Now()
	raw, err := projectfile.Encode(s.store.Snapshot())
	if err != nil {
		s.logger.LogError(logging.ChannelProject, "exportProject", err, nil)
		return nil, err
	}
	s.logger.Project().Info("Project exported", "bytes", len(raw), "duration", time.Since(start))
	return raw, nil
}

// Reset replaces the document with an empty one.
func (s *ProjectService) Reset() (document.Change, error) {
	start := time.Now()
	change, err := s.store.ResetProject()
	s.logResult("resetProject", change, err, start)
	return change, err
}

// Rename sets the project name.
func (s *ProjectService) Rename(name string) (document.Change, error) {
	start := time.Now()
	change, err := s.store.Update("renameProject", func(tx *document.Tx) error {
		tx.SetName(name)
		return nil
	})
	s.logResult("renameProject", change, err, start, "name", name)
	return change, err
}
