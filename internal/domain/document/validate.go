package document

import (
	"fmt"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
)

// validateDocument checks the invariants every committed document must hold.
// Dangling image and parent references are tolerated: removing an image or a
// region leaves them behind, and reads treat a missing parent as the image.
func validateDocument(doc *project.Document) error {
	images := make(map[int]bool, len(doc.Images))
	for _, img := range doc.Images {
		if images[img.ID] {
			return fmt.Errorf("image %d: %w", img.ID, ErrDuplicateID)
		}
		if img.Width < 0 || img.Height < 0 {
			return fmt.Errorf("image %d has negative size: %w", img.ID, ErrInvalidValue)
		}
		images[img.ID] = true
	}

	regions := make(map[int]project.Region, len(doc.Regions))
	for _, r := range doc.Regions {
		if _, exists := regions[r.ID]; exists {
			return fmt.Errorf("region %d: %w", r.ID, ErrDuplicateID)
		}
		if !regionBox(r).Finite() {
			return fmt.Errorf("region %d geometry: %w", r.ID, ErrInvalidValue)
		}
		regions[r.ID] = r
	}

	for _, r := range doc.Regions {
		if r.ParentRegionID == nil {
			continue
		}
		parent, exists := regions[*r.ParentRegionID]
		if !exists {
			continue
		}
		if parent.ImageID != r.ImageID {
			return fmt.Errorf("region %d is on image %d but its parent %d is on image %d: %w",
				r.ID, r.ImageID, parent.ID, parent.ImageID, ErrInvalidReference)
		}
		if err := checkAcyclic(r, regions); err != nil {
			return err
		}
	}

	components := make(map[int]bool, len(doc.Components))
	names := make(map[string]int, len(doc.Components))
	for _, c := range doc.Components {
		if components[c.ID] {
			return fmt.Errorf("component %d: %w", c.ID, ErrDuplicateID)
		}
		if other, exists := names[c.Name]; exists {
			return fmt.Errorf("components %d and %d are both named %q: %w", other, c.ID, c.Name, ErrDuplicateName)
		}
		components[c.ID] = true
		names[c.Name] = c.ID
	}

	colors := make(map[string]bool, len(doc.Colors))
	for _, c := range doc.Colors {
		if c.Hex == "" {
			return fmt.Errorf("empty colour hex: %w", ErrInvalidValue)
		}
		if colors[c.Hex] {
			return fmt.Errorf("colour %s: %w", c.Hex, ErrDuplicateID)
		}
		colors[c.Hex] = true
	}
	return nil
}

func checkAcyclic(start project.Region, regions map[int]project.Region) error {
	seen := map[int]bool{start.ID: true}
	current := start
	for current.ParentRegionID != nil {
		parent, exists := regions[*current.ParentRegionID]
		if !exists {
			return nil
		}
		if seen[parent.ID] {
			return fmt.Errorf("region %d: %w", start.ID, ErrCycle)
		}
		seen[parent.ID] = true
		current = parent
	}
	return nil
}
