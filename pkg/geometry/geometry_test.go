package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRasterSpaceRoundTrip(t *testing.T) {
	space := RasterSpace(150)
	contours := []image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(123, 457, 389, 521),
		image.Rect(1001, 13, 1275, 99),
	}

	for _, c := range contours {
		page := space.ToPage(FromImageRect(c))
		back := space.ToPixel(page)

		assert.InDelta(t, float64(c.Min.X), back.X0, 1)
		assert.InDelta(t, float64(c.Min.Y), back.Y0, 1)
		assert.InDelta(t, float64(c.Max.X), back.X1, 1)
		assert.InDelta(t, float64(c.Max.Y), back.Y1, 1)
	}
}

func TestClipSpaceRoundTripThroughBothStages(t *testing.T) {
	detection := RasterSpace(150)
	contour := image.Rect(310, 620, 560, 700)
	region := detection.ToPage(FromImageRect(contour))

	clip := region.Expand(100).Clamp(NewRect(0, 0, 612, 792))
	window := ClipSpace(clip, 3)

	// Page box seen from inside the context window, then back out.
	local := window.ToPixel(region)
	assert.GreaterOrEqual(t, local.X0, 0.0)
	assert.GreaterOrEqual(t, local.Y0, 0.0)

	restored := detection.ToPixel(window.ToPage(local))
	assert.InDelta(t, float64(contour.Min.X), restored.X0, 1)
	assert.InDelta(t, float64(contour.Min.Y), restored.Y0, 1)
	assert.InDelta(t, float64(contour.Max.X), restored.X1, 1)
	assert.InDelta(t, float64(contour.Max.Y), restored.Y1, 1)
}

func TestClipSpaceOriginIsPixelAligned(t *testing.T) {
	space := ClipSpace(NewRect(10.3, 20.7, 100, 100), 3)
	ox := space.OriginX * space.Scale
	oy := space.OriginY * space.Scale
	assert.InDelta(t, math.Round(ox), ox, 1e-9)
	assert.InDelta(t, math.Round(oy), oy, 1e-9)
	assert.Equal(t, image.Pt(30, 62), space.PixelOrigin())
}

func TestPixelBoundsCoversRect(t *testing.T) {
	space := RasterSpace(144)
	got := space.PixelBounds(NewRect(10.25, 10.25, 20.5, 20))
	assert.Equal(t, image.Rect(20, 20, 41, 40), got)
}

func TestRectOperations(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 20, 20)

	assert.Equal(t, NewRect(0, 0, 20, 20), a.Union(b))
	assert.Equal(t, NewRect(5, 5, 10, 10), a.Intersect(b))
	assert.True(t, a.Intersect(NewRect(11, 11, 12, 12)).IsEmpty())
	assert.Equal(t, NewRect(-2, -2, 12, 12), a.Expand(2))
	assert.Equal(t, NewRect(0, 0, 10, 10), a.Expand(5).Clamp(a))
	assert.True(t, a.Contains(NewRect(1, 1, 9, 9)))
	assert.False(t, a.Contains(b))
	assert.Equal(t, 0.0, Rect{}.Area())
	assert.Equal(t, b, Rect{}.Union(b))
}
