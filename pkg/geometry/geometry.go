package geometry

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle with a top-left origin and y growing
// downward. Page-space rectangles are in PDF points (1/72 inch); pixel-space
// rectangles are in raster pixels of whatever Space produced them.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func FromImageRect(r image.Rectangle) Rect {
	return Rect{X0: float64(r.Min.X), Y0: float64(r.Min.Y), X1: float64(r.Max.X), Y1: float64(r.Max.Y)}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) IsEmpty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{X0: r.X0 - margin, Y0: r.Y0 - margin, X1: r.X1 + margin, Y1: r.Y1 + margin}
}

func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: math.Max(r.X0, o.X0),
		Y0: math.Max(r.Y0, o.Y0),
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Clamp returns the part of r that lies inside bounds.
func (r Rect) Clamp(bounds Rect) Rect { return r.Intersect(bounds) }

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

// Space maps page-space points onto a raster: pixel = (page - origin) * Scale.
//
// Every raster handed between pipeline stages travels with the Space that
// produced it, so converting a pixel box back to the page never depends on a
// scale factor remembered somewhere else.
type Space struct {
	Scale   float64 `json:"scale"`
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
}

// RasterSpace is the space of a whole page rendered at dpi.
func RasterSpace(dpi float64) Space {
	return Space{Scale: dpi / 72}
}

// ClipSpace is the space of clip rendered at zoom. The origin is snapped to
// the pixel grid of the full-page render so that a crop starting at integer
// pixel coordinates maps back without drift.
func ClipSpace(clip Rect, zoom float64) Space {
	return Space{
		Scale:   zoom,
		OriginX: math.Floor(clip.X0*zoom) / zoom,
		OriginY: math.Floor(clip.Y0*zoom) / zoom,
	}
}

func (s Space) ToPage(px Rect) Rect {
	return Rect{
		X0: px.X0/s.Scale + s.OriginX,
		Y0: px.Y0/s.Scale + s.OriginY,
		X1: px.X1/s.Scale + s.OriginX,
		Y1: px.Y1/s.Scale + s.OriginY,
	}
}

func (s Space) ToPixel(page Rect) Rect {
	return Rect{
		X0: (page.X0 - s.OriginX) * s.Scale,
		Y0: (page.Y0 - s.OriginY) * s.Scale,
		X1: (page.X1 - s.OriginX) * s.Scale,
		Y1: (page.Y1 - s.OriginY) * s.Scale,
	}
}

// PixelBounds is the smallest integer pixel rectangle covering page.
func (s Space) PixelBounds(page Rect) image.Rectangle {
	px := s.ToPixel(page)
	return image.Rect(
		int(math.Floor(px.X0+1e-9)),
		int(math.Floor(px.Y0+1e-9)),
		int(math.Ceil(px.X1-1e-9)),
		int(math.Ceil(px.Y1-1e-9)),
	)
}

// PixelOrigin is the absolute pixel position of the space origin in a full
// page render at the same scale.
func (s Space) PixelOrigin() image.Point {
	return image.Pt(int(math.Round(s.OriginX*s.Scale)), int(math.Round(s.OriginY*s.Scale)))
}
