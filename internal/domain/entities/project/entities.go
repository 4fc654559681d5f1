// Package project defines the entities of an atomic-builder project document.
package project

// Image is an uploaded screenshot. Data holds the bitmap as a data URI.
type Image struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Data   string `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Region is a rectangle drawn on an image or inside another region.
// X, Y, Width and Height are fractions of the parent's box, which is the whole
// image when ParentRegionID is nil (or points at a region that no longer exists).
//
// ComponentID is derived by the component rebuild and must not be written by
// anything else.
type Region struct {
	ID                int     `json:"id"`
	ImageID           int     `json:"imageId"`
	ParentRegionID    *int    `json:"parentRegionId"`
	ParentComponentID *int    `json:"parentComponentId"`
	ComponentID       *int    `json:"componentId"`
	ComponentName     *string `json:"componentName"`
	Variant           *string `json:"variant,omitempty"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
}

// Name returns the component label, or "" when the region is unnamed.
func (r Region) Name() string {
	if r.ComponentName == nil {
		return ""
	}
	return *r.ComponentName
}

// VariantLabel returns the variant label, or "" when unset.
func (r Region) VariantLabel() string {
	if r.Variant == nil {
		return ""
	}
	return *r.Variant
}

// Component is a named group of regions sharing the same label.
type Component struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category *string `json:"category,omitempty"`
	Props    Props   `json:"props"`
}

// Color is a picked colour, unique by Hex.
type Color struct {
	Hex string `json:"hex"`
}

// Document is the whole project. The render cache is not part of it.
type Document struct {
	Name       string      `json:"name"`
	Images     []Image     `json:"images"`
	Regions    []Region    `json:"regions"`
	Components []Component `json:"components"`
	Colors     []Color     `json:"colors"`
}

// NewDocument returns an empty document with non-nil collections.
func NewDocument() *Document {
	return &Document{
		Images:     []Image{},
		Regions:    []Region{},
		Components: []Component{},
		Colors:     []Color{},
	}
}

// Ref returns a pointer to a copy of v.
func Ref[T any](v T) *T {
	return &v
}

func cloneRef[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	r.ParentRegionID = cloneRef(r.ParentRegionID)
	r.ParentComponentID = cloneRef(r.ParentComponentID)
	r.ComponentID = cloneRef(r.ComponentID)
	r.ComponentName = cloneRef(r.ComponentName)
	r.Variant = cloneRef(r.Variant)
	return r
}

// Clone returns a deep copy of the component.
func (c Component) Clone() Component {
	c.Category = cloneRef(c.Category)
	c.Props = c.Props.Clone()
	return c
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Name:       d.Name,
		Images:     make([]Image, len(d.Images)),
		Regions:    make([]Region, len(d.Regions)),
		Components: make([]Component, len(d.Components)),
		Colors:     make([]Color, len(d.Colors)),
	}
	copy(out.Images, d.Images)
	copy(out.Colors, d.Colors)
	for i, r := range d.Regions {
		out.Regions[i] = r.Clone()
	}
	for i, c := range d.Components {
		out.Components[i] = c.Clone()
	}
	return out
}

// Normalize replaces nil collections with empty ones so that a decoded
// document serializes the same way as a freshly created one.
func (d *Document) Normalize() {
	if d.Images == nil {
		d.Images = []Image{}
	}
	if d.Regions == nil {
		d.Regions = []Region{}
	}
	if d.Components == nil {
		d.Components = []Component{}
	}
	if d.Colors == nil {
		d.Colors = []Color{}
	}
	for i := range d.Components {
		if d.Components[i].Props == nil {
			d.Components[i].Props = Props{}
		}
	}
}

// NextImageID returns max(image ids)+1, or 0 for an empty document.
func (d *Document) NextImageID() int {
	next := 0
	for _, img := range d.Images {
		if img.ID >= next {
			next = img.ID + 1
		}
	}
	return next
}

// NextRegionID returns max(region ids)+1, or 0 for an empty document.
func (d *Document) NextRegionID() int {
	next := 0
	for _, r := range d.Regions {
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	return next
}

// FindImage returns the index of the image with the given id, or -1.
func (d *Document) FindImage(id int) int {
	for i, img := range d.Images {
		if img.ID == id {
			return i
		}
	}
	return -1
}

// FindRegion returns the index of the region with the given id, or -1.
func (d *Document) FindRegion(id int) int {
	for i, r := range d.Regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// FindComponent returns the index of the component with the given id, or -1.
func (d *Document) FindComponent(id int) int {
	for i, c := range d.Components {
		if c.ID == id {
			return i
		}
	}
	return -1
}
