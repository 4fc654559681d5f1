package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// RemoteCandidate is an image offered by a remote design source.
type RemoteCandidate struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

// RemoteImportService turns bitmaps fetched from a remote design source into
// project images.
type RemoteImportService struct {
	store     *document.Store
	processor *media.ImageProcessor
	logger    *logging.ChanneledLogger
}

// NewRemoteImportService creates a new remote import service
func NewRemoteImportService(store *document.Store, processor *media.ImageProcessor, logger *logging.ChanneledLogger) *RemoteImportService {
	return &RemoteImportService{
		store:     store,
		processor: processor,
		logger:    logger,
	}
}

// Import adds one image per candidate that has a bitmap, in candidate order,
// with consecutive ids starting at the next free image id. Candidates without
// a bitmap were not selected and are skipped. A candidate without a name is
// named after its remote id. Either every image is added or none is.
func (s *RemoteImportService) Import(candidates []RemoteCandidate, bitmaps map[string][]byte) ([]project.Image, document.Change, error) {
	start := time.Now()

	type prepared struct {
		name          string
		data          string
		width, height int
	}
	selected := make([]prepared, 0, len(bitmaps))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		raw, ok := bitmaps[c.ID]
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		data, width, height, err := s.processor.EncodeBytes(raw)
		if err != nil {
			s.logger.Project().Warn("Remote import rejected", "remoteId", c.ID, "error", err)
			return nil, document.Change{}, fmt.Errorf("remote image %s: %w", c.ID, err)
		}
		name := c.Name
		if name == "" {
			name = c.ID
		}
		selected = append(selected, prepared{name: name, data: data, width: width, height: height})
	}

	if len(selected) == 0 {
		return []project.Image{}, document.Change{}, nil
	}

	images := make([]project.Image, 0, len(selected))
	change, err := s.store.Update("addImage", func(tx *document.Tx) error {
		next := tx.NextImageID()
		for i, p := range selected {
			img := project.Image{ID: next + i, Name: p.name, Data: p.data, Width: p.width, Height: p.height}
			if err := tx.AddImage(img); err != nil {
				return err
			}
			images = append(images, img)
		}
		return nil
	})
	if err != nil {
		s.logger.Project().Warn("Remote import rejected", "error", err)
		return nil, change, err
	}

	s.logger.Project().Info("Remote images imported",
		"count", len(images), "firstId", images[0].ID, "revision", change.Revision, "duration", time.Since(start))
	return images, change, nil
}
