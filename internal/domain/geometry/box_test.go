package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestToImageSpaceNested(t *testing.T) {
	parent := Box{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	child := Box{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2}

	abs := ToImageSpace([]Box{parent, child})
	px := ToPixelSpace(abs, 1000, 1000)

	assert.True(t, px.ApproxEqual(Box{X: 500, Y: 500, Width: 100, Height: 100}, eps), "got %+v", px)

	parentPx := ToPixelSpace(ToImageSpace([]Box{parent}), 1000, 1000)
	back := FromPixelSpace(px, parentPx)
	assert.True(t, back.ApproxEqual(child, eps), "got %+v", back)
}

func TestToImageSpaceScenario(t *testing.T) {
	r0 := Box{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.2}
	r1 := Box{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5}

	abs := ToImageSpace([]Box{r0, r1})
	assert.True(t, abs.ApproxEqual(Box{X: 0.25, Y: 0.2, Width: 0.15, Height: 0.1}, eps), "got %+v", abs)

	px := ToPixelSpace(abs, 800, 600)
	assert.True(t, px.ApproxEqual(Box{X: 200, Y: 120, Width: 120, Height: 60}, eps), "got %+v", px)
	assert.Equal(t, image.Rect(200, 120, 320, 180), px.Rectangle())
}

func TestToImageSpaceRoot(t *testing.T) {
	assert.Equal(t, Full, ToImageSpace(nil))

	b := Box{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}
	assert.Equal(t, b, ToImageSpace([]Box{b}))
}

func TestFromPixelSpaceDegenerateParent(t *testing.T) {
	pixel := Box{X: 10, Y: 10, Width: 5, Height: 5}

	assert.Equal(t, Box{}, FromPixelSpace(pixel, Box{X: 0, Y: 0, Width: 0, Height: 100}))
	assert.Equal(t, Box{}, FromPixelSpace(pixel, Box{X: 0, Y: 0, Width: 100, Height: 0}))
}

func TestFinite(t *testing.T) {
	assert.True(t, Box{X: 0.1, Width: 1}.Finite())
	assert.False(t, Box{X: math.NaN()}.Finite())
	assert.False(t, Box{Height: math.Inf(1)}.Finite())
}
