package document

import (
	"fmt"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
)

// DefaultRegionBox is the placeholder box given to new regions.
var DefaultRegionBox = geometry.Box{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.1}

// Tx is a working copy of the document inside Store.Update. Its methods are
// the mutation vocabulary; each checks the references it writes.
type Tx struct {
	doc *project.Document
}

// View exposes the read model over the working copy.
func (tx *Tx) View() View {
	return View{doc: tx.doc}
}

// NextImageID returns the id the next new image should get.
func (tx *Tx) NextImageID() int {
	return tx.doc.NextImageID()
}

// AddImage inserts img, dropping any image with the same id first.
func (tx *Tx) AddImage(img project.Image) error {
	if img.Width < 0 || img.Height < 0 {
		return fmt.Errorf("image %d has negative size %dx%d: %w", img.ID, img.Width, img.Height, ErrInvalidValue)
	}
	images := tx.doc.Images[:0]
	for _, existing := range tx.doc.Images {
		if existing.ID != img.ID {
			images = append(images, existing)
		}
	}
	tx.doc.Images = append(images, img)
	return nil
}

// RemoveImage deletes an image without touching the regions drawn on it.
func (tx *Tx) RemoveImage(imageID int) error {
	i := tx.doc.FindImage(imageID)
	if i < 0 {
		return fmt.Errorf("image %d: %w", imageID, ErrNotFound)
	}
	tx.doc.Images = append(tx.doc.Images[:i], tx.doc.Images[i+1:]...)
	return nil
}

// CreateRegion appends a region with the next id and the default box.
func (tx *Tx) CreateRegion(imageID int, parentComponentID, parentRegionID *int) (project.Region, error) {
	if tx.doc.FindImage(imageID) < 0 {
		return project.Region{}, fmt.Errorf("image %d: %w", imageID, ErrInvalidReference)
	}
	if parentRegionID != nil {
		if err := tx.checkParent(*parentRegionID, imageID); err != nil {
			return project.Region{}, err
		}
	}

	r := project.Region{
		ID:                tx.doc.NextRegionID(),
		ImageID:           imageID,
		ParentRegionID:    cloneInt(parentRegionID),
		ParentComponentID: cloneInt(parentComponentID),
		X:                 DefaultRegionBox.X,
		Y:                 DefaultRegionBox.Y,
		Width:             DefaultRegionBox.Width,
		Height:            DefaultRegionBox.Height,
	}
	tx.doc.Regions = append(tx.doc.Regions, r)
	return r.Clone(), nil
}

// UpdateRegion replaces the region with r.ID. References that differ from
// the stored region must be valid; references left as they were are accepted
// even if their target has since been removed. ComponentID is never taken
// from r.
func (tx *Tx) UpdateRegion(r project.Region) (project.Region, error) {
	i := tx.doc.FindRegion(r.ID)
	if i < 0 {
		return project.Region{}, fmt.Errorf("region %d: %w", r.ID, ErrNotFound)
	}
	current := tx.doc.Regions[i]

	if !regionBox(r).Finite() {
		return project.Region{}, fmt.Errorf("region %d geometry: %w", r.ID, ErrInvalidValue)
	}

	if r.ImageID != current.ImageID {
		if tx.doc.FindImage(r.ImageID) < 0 {
			return project.Region{}, fmt.Errorf("image %d: %w", r.ImageID, ErrInvalidReference)
		}
		if len(tx.View().children(r.ID)) > 0 {
			return project.Region{}, fmt.Errorf("region %d has child regions and cannot move to image %d: %w", r.ID, r.ImageID, ErrInvalidReference)
		}
	}

	if r.ParentRegionID != nil {
		if r.ID == *r.ParentRegionID {
			return project.Region{}, fmt.Errorf("region %d cannot be its own parent: %w", r.ID, ErrCycle)
		}
		unchanged := current.ParentRegionID != nil && *current.ParentRegionID == *r.ParentRegionID
		if !unchanged || tx.doc.FindRegion(*r.ParentRegionID) >= 0 {
			if err := tx.checkParent(*r.ParentRegionID, r.ImageID); err != nil {
				return project.Region{}, err
			}
		}
		if tx.View().isDescendant(*r.ParentRegionID, r.ID) {
			return project.Region{}, fmt.Errorf("region %d cannot move under its descendant %d: %w", r.ID, *r.ParentRegionID, ErrCycle)
		}
	}

	next := r.Clone()
	next.ComponentID = cloneInt(current.ComponentID)
	tx.doc.Regions[i] = next
	return next.Clone(), nil
}

// RemoveRegion deletes a region. Child regions keep their parent id.
func (tx *Tx) RemoveRegion(regionID int) error {
	i := tx.doc.FindRegion(regionID)
	if i < 0 {
		return fmt.Errorf("region %d: %w", regionID, ErrNotFound)
	}
	tx.doc.Regions = append(tx.doc.Regions[:i], tx.doc.Regions[i+1:]...)
	return nil
}

// UpdateComponent replaces the component with c.ID.
func (tx *Tx) UpdateComponent(c project.Component) error {
	i := tx.doc.FindComponent(c.ID)
	if i < 0 {
		return fmt.Errorf("component %d: %w", c.ID, ErrNotFound)
	}
	for _, other := range tx.doc.Components {
		if other.ID != c.ID && other.Name == c.Name {
			return fmt.Errorf("component %d name %q is used by component %d: %w", c.ID, c.Name, other.ID, ErrDuplicateName)
		}
	}
	tx.doc.Components[i] = c.Clone()
	return nil
}

// AddColor appends c unless a colour with the same hex is present.
func (tx *Tx) AddColor(c project.Color) error {
	if c.Hex == "" {
		return fmt.Errorf("empty colour hex: %w", ErrInvalidValue)
	}
	for _, existing := range tx.doc.Colors {
		if existing.Hex == c.Hex {
			return nil
		}
	}
	tx.doc.Colors = append(tx.doc.Colors, c)
	return nil
}

// RemoveColor drops the colour with the same hex, if present.
func (tx *Tx) RemoveColor(c project.Color) {
	colors := tx.doc.Colors[:0]
	for _, existing := range tx.doc.Colors {
		if existing.Hex != c.Hex {
			colors = append(colors, existing)
		}
	}
	tx.doc.Colors = colors
}

// BuildComponents replaces the component catalogue with one derived from the
// region names and rewrites every region's ComponentID.
func (tx *Tx) BuildComponents() {
	components, assigned := Derive(tx.doc.Regions, tx.doc.Components)
	for i := range tx.doc.Regions {
		tx.doc.Regions[i].ComponentID = assigned[i]
	}
	tx.doc.Components = components
}

// SetName sets the project name.
func (tx *Tx) SetName(name string) {
	tx.doc.Name = name
}

// Replace swaps in a copy of doc as the working document.
func (tx *Tx) Replace(doc *project.Document) {
	next := doc.Clone()
	next.Normalize()
	tx.doc = next
}

func (tx *Tx) checkParent(parentID, imageID int) error {
	j := tx.doc.FindRegion(parentID)
	if j < 0 {
		return fmt.Errorf("parent region %d: %w", parentID, ErrInvalidReference)
	}
	if tx.doc.Regions[j].ImageID != imageID {
		return fmt.Errorf("parent region %d is on image %d, not %d: %w", parentID, tx.doc.Regions[j].ImageID, imageID, ErrInvalidReference)
	}
	return nil
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func regionBox(r project.Region) geometry.Box {
	return geometry.Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
