// Package geometry implements the nested, parent-relative coordinate space
// used by regions.
package geometry

import (
	"image"
	"math"
)

// Box is an axis-aligned rectangle. Depending on context it holds fractions of
// a parent box, fractions of the image, or pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Full is the whole parent (or image) in relative coordinates.
var Full = Box{X: 0, Y: 0, Width: 1, Height: 1}

// Map places child, given relative to b, into the space b is expressed in.
func (b Box) Map(child Box) Box {
	return Box{
		X:      b.X + child.X*b.Width,
		Y:      b.Y + child.Y*b.Height,
		Width:  child.Width * b.Width,
		Height: child.Height * b.Height,
	}
}

// Degenerate reports whether the box has no area to map into.
func (b Box) Degenerate() bool {
	return b.Width == 0 || b.Height == 0
}

// Finite reports whether every component is a finite number.
func (b Box) Finite() bool {
	for _, v := range [4]float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ApproxEqual compares two boxes component-wise within eps.
func (b Box) ApproxEqual(o Box, eps float64) bool {
	return math.Abs(b.X-o.X) <= eps &&
		math.Abs(b.Y-o.Y) <= eps &&
		math.Abs(b.Width-o.Width) <= eps &&
		math.Abs(b.Height-o.Height) <= eps
}

// Rectangle rounds a pixel-space box to an integer rectangle.
func (b Box) Rectangle() image.Rectangle {
	x0 := int(math.Round(b.X))
	y0 := int(math.Round(b.Y))
	x1 := int(math.Round(b.X + b.Width))
	y1 := int(math.Round(b.Y + b.Height))
	return image.Rect(x0, y0, x1, y1)
}

// ToImageSpace resolves a relative box to fractions of the image. chain
// lists the boxes from the outermost ancestor down to the region itself.
func ToImageSpace(chain []Box) Box {
	abs := Full
	for _, rel := range chain {
		abs = abs.Map(rel)
	}
	return abs
}

// ToPixelSpace scales an image-space box by the image dimensions.
func ToPixelSpace(abs Box, imageWidth, imageHeight int) Box {
	w := float64(imageWidth)
	h := float64(imageHeight)
	return Box{
		X:      abs.X * w,
		Y:      abs.Y * h,
		Width:  abs.Width * w,
		Height: abs.Height * h,
	}
}

// FromPixelSpace converts a pixel box reported inside parent (also in pixels)
// back to fractions of parent. A zero-sized parent yields a zero box.
func FromPixelSpace(pixel, parent Box) Box {
	if parent.Degenerate() {
		return Box{}
	}
	return Box{
		X:      (pixel.X - parent.X) / parent.Width,
		Y:      (pixel.Y - parent.Y) / parent.Height,
		Width:  pixel.Width / parent.Width,
		Height: pixel.Height / parent.Height,
	}
}
