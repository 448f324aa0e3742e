package pdf

import (
	"image"
	"image/color"
	"math"

	"SigSecure/pkg/geometry"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type markKind int

const (
	markFill markKind = iota
	markImage
	markText
	markOutline
)

// mark is one pending edit in page space.
type mark struct {
	kind  markKind
	rect  geometry.Rect
	color color.Color
	img   image.Image
	text  string
	width float64
}

var regular *opentype.Font

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	regular = f
}

// burn draws marks onto dst, a full-page render in space.
func burn(dst draw.Image, space geometry.Space, marks []mark) error {
	for _, m := range marks {
		px := space.PixelBounds(m.rect).Intersect(dst.Bounds())
		if px.Empty() {
			continue
		}

		switch m.kind {
		case markFill:
			draw.Draw(dst, px, image.NewUniform(m.color), image.Point{}, draw.Over)
		case markImage:
			draw.CatmullRom.Scale(dst, px, m.img, m.img.Bounds(), draw.Over, nil)
		case markOutline:
			strokeRect(dst, px, m.color, int(math.Max(1, math.Round(m.width*space.Scale))))
		case markText:
			if err := drawText(dst, px, m.text, m.color); err != nil {
				return err
			}
		}
	}
	return nil
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color, w int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y+w, r.Min.X+w, r.Max.Y-w),
		image.Rect(r.Max.X-w, r.Min.Y+w, r.Max.X, r.Max.Y-w),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Over)
	}
}

// drawText fits text into r: the font size follows the box height and
// shrinks until the line is no wider than the box.
func drawText(dst draw.Image, r image.Rectangle, text string, c color.Color) error {
	size := float64(r.Dy()) * 0.8
	if size < 1 {
		return nil
	}

	face, err := opentype.NewFace(regular, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return err
	}

	width := font.MeasureString(face, text).Ceil()
	if width > r.Dx() && width > 0 {
		face.Close()
		size = size * float64(r.Dx()) / float64(width)
		if size < 1 {
			return nil
		}
		face, err = opentype.NewFace(regular, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return err
		}
	}
	defer face.Close()

	metrics := face.Metrics()
	baseline := r.Min.Y + (r.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X, baseline),
	}
	d.DrawString(text)
	return nil
}
