package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"

	"github.com/sirupsen/logrus"
)

const witnessInk = 100

var letter = geometry.Rect{X1: 612, Y1: 792}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type ink struct {
	rect  geometry.Rect
	level uint8
}

type word struct {
	text string
	rect geometry.Rect
}

type mark struct {
	op   string
	rect geometry.Rect
	text string
}

type fakePage struct {
	index     int
	bounds    geometry.Rect
	ink       []ink
	words     []word
	marks     []mark
	flattened int

	rasterErr error
	failText  string
}

func (p *fakePage) Index() int             { return p.index }
func (p *fakePage) Bounds() geometry.Rect { return p.bounds }

// fakeRaster remembers where it came from so fakeOCR can answer with the
// page's words.
type fakeRaster struct {
	*image.Gray
	page  *fakePage
	clip  geometry.Rect
	space geometry.Space
}

func (p *fakePage) Raster(clip geometry.Rect, scale float64) (image.Image, error) {
	if p.rasterErr != nil {
		return nil, p.rasterErr
	}

	space := geometry.ClipSpace(clip, scale)
	pb := space.PixelBounds(clip)
	img := image.NewGray(image.Rect(0, 0, pb.Max.X, pb.Max.Y))
	for y := 0; y < pb.Max.Y; y++ {
		py := (float64(y)+0.5)/scale + space.OriginY
		for x := 0; x < pb.Max.X; x++ {
			px := (float64(x)+0.5)/scale + space.OriginX
			v := uint8(255)
			for _, in := range p.ink {
				if px >= in.rect.X0 && px < in.rect.X1 && py >= in.rect.Y0 && py < in.rect.Y1 {
					v = in.level
					break
				}
			}
			img.Pix[y*img.Stride+x] = v
		}
	}
	return &fakeRaster{Gray: img, page: p, clip: clip, space: space}, nil
}

func (p *fakePage) FillRect(r geometry.Rect, _ color.Color) error {
	p.marks = append(p.marks, mark{op: "fill", rect: r})
	return nil
}

func (p *fakePage) InsertImage(r geometry.Rect, _ image.Image) error {
	p.marks = append(p.marks, mark{op: "image", rect: r})
	return nil
}

func (p *fakePage) AddText(r geometry.Rect, text string, _ color.Color) error {
	if p.failText != "" && text == p.failText {
		return errors.New("no font")
	}
	p.marks = append(p.marks, mark{op: "text", rect: r, text: text})
	return nil
}

func (p *fakePage) DrawOutline(r geometry.Rect, _ color.Color, _ float64) error {
	p.marks = append(p.marks, mark{op: "outline", rect: r})
	return nil
}

func (p *fakePage) Flatten() error {
	p.flattened++
	return nil
}

func (p *fakePage) ops() []string {
	out := make([]string, len(p.marks))
	for i, m := range p.marks {
		out[i] = m.op
	}
	return out
}

type fakeDoc struct {
	pages   []*fakePage
	saveErr error
	saved   string
	closed  bool
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Page(i int) (Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, errors.New("page out of range")
	}
	return d.pages[i], nil
}

func (d *fakeDoc) Save(path string) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.saved = path
	return os.WriteFile(path, []byte("%PDF-1.7\n"), 0o600)
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(string) (Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// fakeOCR answers context windows with the page words whose center lies in
// the clip. Any other image is a witness-classification crop: it reads
// "Witness" when the crop holds witness-colored ink.
type fakeOCR struct {
	confidence float64
	calls      int
}

func (o *fakeOCR) Recognize(ctx context.Context, img image.Image) ([]entity.OCRWord, error) {
	o.calls++
	conf := o.confidence
	if conf == 0 {
		conf = 0.95
	}

	if r, ok := img.(*fakeRaster); ok {
		var out []entity.OCRWord
		for _, w := range r.page.words {
			cx, cy := w.rect.Center()
			if cx < r.clip.X0 || cx > r.clip.X1 || cy < r.clip.Y0 || cy > r.clip.Y1 {
				continue
			}
			out = append(out, entity.OCRWord{Text: w.text, BBox: r.space.ToPixel(w.rect), Confidence: conf})
		}
		return out, nil
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y > witnessInk-10 && g.Y < witnessInk+10 {
				return []entity.OCRWord{{Text: "Witness", Confidence: conf}}, nil
			}
		}
	}
	return nil, nil
}

// line lays words out left to right starting at (x, y), 10pt tall.
func line(x, y float64, texts ...string) []word {
	out := make([]word, 0, len(texts))
	for _, t := range texts {
		w := float64(len(t)) * 6
		out = append(out, word{text: t, rect: geometry.Rect{X0: x, Y0: y, X1: x + w, Y1: y + 10}})
		x += w + 4
	}
	return out
}
