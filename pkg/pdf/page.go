package pdf

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"SigSecure/pkg/geometry"

	"github.com/disintegration/imaging"
)

var errPageClosed = errors.New("page belongs to a closed document")

type page struct {
	doc    *document
	index  int
	bounds geometry.Rect

	marks []mark
	// flat is the page burned at the document's output DPI; nil until the
	// first Flatten.
	flat *image.RGBA
	// cache of the current appearance per render scale, dropped on every edit
	cache map[float64]*image.RGBA
}

func (p *page) Index() int             { return p.index }
func (p *page) Bounds() geometry.Rect { return p.bounds }

func (p *page) touch() {
	p.cache = nil
}

func (p *page) add(m mark) error {
	if p.doc.closed {
		return errPageClosed
	}
	p.marks = append(p.marks, m)
	p.touch()
	return nil
}

func (p *page) FillRect(r geometry.Rect, c color.Color) error {
	return p.add(mark{kind: markFill, rect: r, color: c})
}

func (p *page) InsertImage(r geometry.Rect, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return errors.New("empty image")
	}
	return p.add(mark{kind: markImage, rect: r, img: img})
}

func (p *page) AddText(r geometry.Rect, text string, c color.Color) error {
	if r.IsEmpty() {
		return errors.New("empty text box")
	}
	return p.add(mark{kind: markText, rect: r, text: text, color: c})
}

func (p *page) DrawOutline(r geometry.Rect, c color.Color, width float64) error {
	return p.add(mark{kind: markOutline, rect: r, color: c, width: width})
}

// Flatten replaces the page content with a raster holding every pending
// mark. Nothing underneath a fill survives.
func (p *page) Flatten() error {
	img, err := p.render(p.doc.outputScale())
	if err != nil {
		return err
	}
	p.flat = img
	p.marks = nil
	p.touch()
	return nil
}

// render returns the current appearance of the whole page at scale.
func (p *page) render(scale float64) (*image.RGBA, error) {
	if p.doc.closed {
		return nil, errPageClosed
	}
	if img, ok := p.cache[scale]; ok {
		return img, nil
	}

	var base *image.RGBA
	if p.flat != nil {
		size := geometry.RasterSpace(scale * 72).PixelBounds(p.bounds)
		resized := imaging.Resize(p.flat, size.Dx(), size.Dy(), imaging.Lanczos)
		base = image.NewRGBA(resized.Bounds())
		draw.Draw(base, base.Bounds(), resized, image.Point{}, draw.Src)
	} else {
		img, err := p.doc.fz.ImageDPI(p.index, scale*72)
		if err != nil {
			return nil, err
		}
		base = img
	}

	if err := burn(base, p.space(scale), p.marks); err != nil {
		return nil, err
	}

	if p.cache == nil {
		p.cache = make(map[float64]*image.RGBA)
	}
	p.cache[scale] = base
	return base, nil
}

func (p *page) space(scale float64) geometry.Space {
	return geometry.Space{Scale: scale, OriginX: p.bounds.X0, OriginY: p.bounds.Y0}
}

// Raster cuts clip out of a full-page render at scale, so pixel (0,0) of the
// result is ClipSpace(clip, scale).PixelOrigin() of that render.
func (p *page) Raster(clip geometry.Rect, scale float64) (image.Image, error) {
	full, err := p.render(scale)
	if err != nil {
		return nil, err
	}

	space := geometry.ClipSpace(clip, scale)
	size := space.PixelBounds(clip)
	origin := space.PixelOrigin().Sub(p.space(scale).PixelOrigin())
	r := image.Rect(origin.X, origin.Y, origin.X+size.Max.X, origin.Y+size.Max.Y).Intersect(full.Bounds())
	if r.Empty() {
		return nil, errors.New("clip outside page")
	}
	return imaging.Crop(full, r), nil
}

// overlay draws the pending marks alone onto a transparent page-sized canvas.
func (p *page) overlay(scale float64) (*image.NRGBA, error) {
	size := geometry.RasterSpace(scale * 72).PixelBounds(p.bounds)
	img := image.NewNRGBA(image.Rect(0, 0, size.Dx(), size.Dy()))
	if err := burn(img, p.space(scale), p.marks); err != nil {
		return nil, err
	}
	return img, nil
}
