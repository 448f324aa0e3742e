package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"SigSecure/internal/pipeline"
	"SigSecure/pkg/geometry"

	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"
)

const (
	defaultOutputDPI   = 200
	defaultJPEGQuality = 90
	overlayDPI         = 150
)

var ErrInvalidPDF = errors.New("invalid PDF")

// Opener opens PDFs for the redaction pipeline. Pages render through MuPDF;
// flattened pages are rebuilt as images.
type Opener struct {
	OutputDPI   float64
	JPEGQuality int
	log         *logrus.Logger
}

func NewOpener(log *logrus.Logger) *Opener {
	return &Opener{OutputDPI: defaultOutputDPI, JPEGQuality: defaultJPEGQuality, log: log}
}

func (o *Opener) Open(path string) (pipeline.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fz, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	dpi := o.OutputDPI
	if dpi <= 0 {
		dpi = defaultOutputDPI
	}
	quality := o.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}

	return &document{
		data:      data,
		fz:        fz,
		pages:     make(map[int]*page),
		outputDPI: dpi,
		quality:   quality,
		log:       o.log,
	}, nil
}

// document is owned by a single pipeline run and is not safe for
// concurrent use.
type document struct {
	data      []byte
	fz        *fitz.Document
	pages     map[int]*page
	outputDPI float64
	quality   int
	closed    bool
	log       *logrus.Logger
}

func (d *document) outputScale() float64 { return d.outputDPI / 72 }

func (d *document) PageCount() int {
	return d.fz.NumPage()
}

func (d *document) Page(index int) (pipeline.Page, error) {
	if d.closed {
		return nil, errPageClosed
	}
	if index < 0 || index >= d.fz.NumPage() {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	if p, ok := d.pages[index]; ok {
		return p, nil
	}

	b, err := d.fz.Bound(index)
	if err != nil {
		return nil, err
	}

	p := &page{doc: d, index: index, bounds: geometry.FromImageRect(b)}
	d.pages[index] = p
	return p, nil
}

func (d *document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.pages = nil
	return d.fz.Close()
}

// Save writes the document. Flattened pages are rebuilt as images and
// spliced back in; every other page keeps its original objects with pending
// marks stamped on top as an overlay.
func (d *document) Save(path string) error {
	if d.closed {
		return errPageClosed
	}

	var buf bytes.Buffer
	if err := d.write(&buf); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func (d *document) write(w io.Writer) error {
	flat := d.flattenedPages()

	var kept bytes.Buffer
	if err := d.writeOverlay(&kept, flat); err != nil {
		return err
	}
	if len(flat) == 0 {
		_, err := w.Write(kept.Bytes())
		return err
	}

	var images bytes.Buffer
	if err := d.writeRaster(&images, flat); err != nil {
		return err
	}

	return splice(w, kept.Bytes(), images.Bytes(), d.fz.NumPage(), flat)
}

// flattenedPages returns the indexes of flattened pages in ascending order.
func (d *document) flattenedPages() []int {
	var out []int
	for i := 0; i < d.fz.NumPage(); i++ {
		if p, ok := d.pages[i]; ok && p.flat != nil {
			out = append(out, i)
		}
	}
	return out
}

// writeRaster builds an image-only PDF holding the given pages in order.
func (d *document) writeRaster(w io.Writer, indexes []int) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt"})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for _, i := range indexes {
		p := d.pages[i]

		img, err := p.render(d.outputScale())
		if err != nil {
			return fmt.Errorf("render page %d: %w", i, err)
		}

		var jpg bytes.Buffer
		if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: d.quality}); err != nil {
			return fmt.Errorf("encode page %d: %w", i, err)
		}

		name := fmt.Sprintf("page-%d", i)
		size := fpdf.SizeType{Wd: p.bounds.Width(), Ht: p.bounds.Height()}
		orientation := "P"
		if size.Wd > size.Ht {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, size)
		pdf.RegisterImageOptionsReader(name, opts, &jpg)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build PDF: %w", err)
	}
	return pdf.Output(w)
}

// writeOverlay stamps pending marks onto the original file. Pages listed in
// skip are left alone.
func (d *document) writeOverlay(w io.Writer, skip []int) error {
	skipped := make(map[int]bool, len(skip))
	for _, i := range skip {
		skipped[i] = true
	}

	stamps := make(map[int]*model.Watermark)
	for i, p := range d.pages {
		if len(p.marks) == 0 || skipped[i] {
			continue
		}

		img, err := p.overlay(overlayDPI / 72.0)
		if err != nil {
			return fmt.Errorf("overlay page %d: %w", i, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return err
		}

		wm, err := api.ImageWatermarkForReader(&buf, "position:c, scalefactor:1 rel, rotation:0", true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("overlay page %d: %w", i, err)
		}
		stamps[i+1] = wm
	}

	if len(stamps) == 0 {
		_, err := w.Write(d.data)
		return err
	}

	return api.AddWatermarksMap(bytes.NewReader(d.data), w, stamps, relaxed())
}

// splice merges kept and images page by page: pages listed in flat come
// from images, in order, the rest from kept.
func splice(w io.Writer, kept, images []byte, pageCount int, flat []int) error {
	isFlat := make(map[int]bool, len(flat))
	for _, i := range flat {
		isFlat[i] = true
	}

	var parts []io.ReadSeeker
	next := 0
	for start := 0; start < pageCount; {
		end := start
		for end+1 < pageCount && isFlat[end+1] == isFlat[start] {
			end++
		}

		src, from := kept, start
		if isFlat[start] {
			src, from = images, next
			next += end - start + 1
		}

		var part bytes.Buffer
		sel := []string{fmt.Sprintf("%d-%d", from+1, from+end-start+1)}
		if err := api.Collect(bytes.NewReader(src), &part, sel, relaxed()); err != nil {
			return fmt.Errorf("collect pages %d-%d: %w", start+1, end+1, err)
		}
		parts = append(parts, bytes.NewReader(part.Bytes()))

		start = end + 1
	}

	if len(parts) == 1 {
		_, err := io.Copy(w, parts[0])
		return err
	}
	if err := api.MergeRaw(parts, w, false, relaxed()); err != nil {
		return fmt.Errorf("merge pages: %w", err)
	}
	return nil
}

func relaxed() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Validate checks that r holds a structurally valid PDF.
func Validate(r io.ReadSeeker) error {
	if err := api.Validate(r, relaxed()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return nil
}

// PageCount returns the number of pages without rendering anything.
func PageCount(r io.ReadSeeker) (int, error) {
	return api.PageCount(r, model.NewDefaultConfiguration())
}
