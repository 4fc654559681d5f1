package document

import (
	"fmt"
	"sort"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/entities/project"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
)

// View is a read model over one committed document. Every accessor returns
// copies, so callers cannot reach into the store.
type View struct {
	doc      *project.Document
	revision uint64
}

// CategoryGroup lists the components sharing a category. Uncategorised
// components are grouped under "".
type CategoryGroup struct {
	Category   string              `json:"category"`
	Components []project.Component `json:"components"`
}

// Revision returns the revision the view was taken at.
func (v View) Revision() uint64 { return v.revision }

// Document returns a deep copy of the viewed document.
func (v View) Document() *project.Document { return v.doc.Clone() }

// Name returns the project name.
func (v View) Name() string { return v.doc.Name }

// Images lists all images in stored order.
func (v View) Images() []project.Image {
	out := make([]project.Image, len(v.doc.Images))
	copy(out, v.doc.Images)
	return out
}

// Image finds an image by id.
func (v View) Image(id int) (project.Image, bool) {
	i := v.doc.FindImage(id)
	if i < 0 {
		return project.Image{}, false
	}
	return v.doc.Images[i], true
}

// Regions lists all regions in stored order.
func (v View) Regions() []project.Region {
	out := make([]project.Region, len(v.doc.Regions))
	for i, r := range v.doc.Regions {
		out[i] = r.Clone()
	}
	return out
}

// Region finds a region by id.
func (v View) Region(id int) (project.Region, bool) {
	i := v.doc.FindRegion(id)
	if i < 0 {
		return project.Region{}, false
	}
	return v.doc.Regions[i].Clone(), true
}

// RegionsOf lists the regions drawn directly on an image (parentRegionID nil)
// or directly inside a region. Regions whose parent no longer exists are
// listed with the image's top-level regions.
func (v View) RegionsOf(imageID int, parentRegionID *int) []project.Region {
	out := make([]project.Region, 0)
	for _, r := range v.doc.Regions {
		if r.ImageID != imageID {
			continue
		}
		parent := v.liveParent(r)
		switch {
		case parentRegionID == nil && parent == nil:
		case parentRegionID != nil && parent != nil && *parent == *parentRegionID:
		default:
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// Children lists the regions whose parent is regionID.
func (v View) Children(regionID int) []project.Region {
	return v.children(regionID)
}

func (v View) children(regionID int) []project.Region {
	out := make([]project.Region, 0)
	for _, r := range v.doc.Regions {
		if r.ParentRegionID != nil && *r.ParentRegionID == regionID {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Components lists the component catalogue in stored order.
func (v View) Components() []project.Component {
	out := make([]project.Component, len(v.doc.Components))
	for i, c := range v.doc.Components {
		out[i] = c.Clone()
	}
	return out
}

// Component finds a component by id.
func (v View) Component(id int) (project.Component, bool) {
	i := v.doc.FindComponent(id)
	if i < 0 {
		return project.Component{}, false
	}
	return v.doc.Components[i].Clone(), true
}

// Colors lists the picked colours.
func (v View) Colors() []project.Color {
	out := make([]project.Color, len(v.doc.Colors))
	copy(out, v.doc.Colors)
	return out
}

// Chain returns the region and its live ancestors, outermost first. The walk
// stops at a missing parent, which is treated as the image.
func (v View) Chain(regionID int) ([]project.Region, error) {
	i := v.doc.FindRegion(regionID)
	if i < 0 {
		return nil, fmt.Errorf("region %d: %w", regionID, ErrNotFound)
	}
	chain := []project.Region{v.doc.Regions[i]}
	seen := map[int]bool{regionID: true}
	current := v.doc.Regions[i]
	for current.ParentRegionID != nil {
		j := v.doc.FindRegion(*current.ParentRegionID)
		if j < 0 || seen[v.doc.Regions[j].ID] {
			break
		}
		current = v.doc.Regions[j]
		seen[current.ID] = true
		chain = append(chain, current)
	}

	out := make([]project.Region, len(chain))
	for k, r := range chain {
		out[len(chain)-1-k] = r.Clone()
	}
	return out, nil
}

// AbsoluteBox resolves a region to fractions of its image.
func (v View) AbsoluteBox(regionID int) (geometry.Box, error) {
	chain, err := v.Chain(regionID)
	if err != nil {
		return geometry.Box{}, err
	}
	boxes := make([]geometry.Box, len(chain))
	for i, r := range chain {
		boxes[i] = regionBox(r)
	}
	return geometry.ToImageSpace(boxes), nil
}

// PixelBox resolves a region to pixels of its image and returns that image.
func (v View) PixelBox(regionID int) (geometry.Box, project.Image, error) {
	abs, err := v.AbsoluteBox(regionID)
	if err != nil {
		return geometry.Box{}, project.Image{}, err
	}
	r, _ := v.Region(regionID)
	img, ok := v.Image(r.ImageID)
	if !ok {
		return geometry.Box{}, project.Image{}, fmt.Errorf("image %d of region %d: %w", r.ImageID, regionID, ErrNotFound)
	}
	return geometry.ToPixelSpace(abs, img.Width, img.Height), img, nil
}

// VariantsOf lists the regions assigned to a component, ordered by variant
// label and then id.
func (v View) VariantsOf(componentID int) []project.Region {
	out := make([]project.Region, 0)
	for _, r := range v.doc.Regions {
		if r.ComponentID != nil && *r.ComponentID == componentID {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].VariantLabel(), out[j].VariantLabel()
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ParentComponents lists the components that contain a variant of
// componentID, in order of first occurrence.
func (v View) ParentComponents(componentID int) []project.Component {
	ids := make([]int, 0)
	for _, r := range v.doc.Regions {
		if r.ComponentID == nil || *r.ComponentID != componentID {
			continue
		}
		if parent := v.parentComponentOf(r); parent != nil {
			ids = append(ids, *parent)
		}
	}
	return v.componentsByID(ids)
}

// ChildComponents lists the components that have a variant inside a variant
// of componentID, in order of first occurrence.
func (v View) ChildComponents(componentID int) []project.Component {
	ids := make([]int, 0)
	for _, r := range v.doc.Regions {
		if r.ComponentID == nil {
			continue
		}
		if parent := v.parentComponentOf(r); parent != nil && *parent == componentID {
			ids = append(ids, *r.ComponentID)
		}
	}
	return v.componentsByID(ids)
}

// ComponentsByCategory groups components by category, sorted by category
// name. Components keep their catalogue order inside a group.
func (v View) ComponentsByCategory() []CategoryGroup {
	groups := make(map[string][]project.Component)
	for _, c := range v.doc.Components {
		key := ""
		if c.Category != nil {
			key = *c.Category
		}
		groups[key] = append(groups[key], c.Clone())
	}

	out := make([]CategoryGroup, 0, len(groups))
	for key, components := range groups {
		out = append(out, CategoryGroup{Category: key, Components: components})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ComponentsStale reports whether the stored catalogue or any region's
// component id differs from what a rebuild would produce now.
func (v View) ComponentsStale() bool {
	components, assigned := Derive(v.doc.Regions, v.doc.Components)
	if len(components) != len(v.doc.Components) {
		return true
	}
	for i := range components {
		if !sameComponent(components[i], v.doc.Components[i]) {
			return true
		}
	}
	for i, r := range v.doc.Regions {
		a, b := assigned[i], r.ComponentID
		if (a == nil) != (b == nil) || (a != nil && *a != *b) {
			return true
		}
	}
	return false
}

func (v View) liveParent(r project.Region) *int {
	if r.ParentRegionID == nil || v.doc.FindRegion(*r.ParentRegionID) < 0 {
		return nil
	}
	return r.ParentRegionID
}

// parentComponentOf returns the component of the region's parent region, or
// the parent component recorded at creation when the parent is gone.
func (v View) parentComponentOf(r project.Region) *int {
	if parent := v.liveParent(r); parent != nil {
		return v.doc.Regions[v.doc.FindRegion(*parent)].ComponentID
	}
	return r.ParentComponentID
}

func (v View) componentsByID(ids []int) []project.Component {
	out := make([]project.Component, 0)
	seen := make(map[int]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if c, ok := v.Component(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (v View) isDescendant(candidate, ancestor int) bool {
	seen := make(map[int]bool)
	current := candidate
	for !seen[current] {
		if current == ancestor {
			return true
		}
		seen[current] = true
		i := v.doc.FindRegion(current)
		if i < 0 || v.doc.Regions[i].ParentRegionID == nil {
			return false
		}
		current = *v.doc.Regions[i].ParentRegionID
	}
	return false
}

func sameComponent(a, b project.Component) bool {
	if a.ID != b.ID || a.Name != b.Name {
		return false
	}
	if (a.Category == nil) != (b.Category == nil) || (a.Category != nil && *a.Category != *b.Category) {
		return false
	}
	if len(a.Props) != len(b.Props) {
		return false
	}
	for name, prop := range a.Props {
		if other, ok := b.Props[name]; !ok || other != prop {
			return false
		}
	}
	return true
}
