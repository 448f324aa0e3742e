package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

type Detector struct {
	cfg     DetectionConfig
	ocr     OCREngine
	log     *logrus.Logger
	timeout time.Duration
}

func NewDetector(cfg Config, ocr OCREngine, log *logrus.Logger) *Detector {
	cfg = cfg.Normalize()
	return &Detector{
		cfg:     cfg.Detection,
		ocr:     ocr,
		log:     log,
		timeout: cfg.Timeout,
	}
}

// DetectDocument runs detection page by page. A page that fails contributes
// no regions; the document keeps going.
func (d *Detector) DetectDocument(ctx context.Context, doc Document) []entity.SignatureRegion {
	var regions []entity.SignatureRegion

	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"page":  i,
				"stage": "detect",
				"error": err.Error(),
			}).Warn("Failed to load page for detection")
			continue
		}

		found, err := d.detectPageSafe(ctx, page)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"page":  i,
				"stage": "detect",
				"error": err.Error(),
			}).Warn("Signature detection failed on page")
			continue
		}

		regions = append(regions, found...)
	}

	return regions
}

func (d *Detector) detectPageSafe(ctx context.Context, page Page) (regions []entity.SignatureRegion, err error) {
	defer func() {
		if r := recover(); r != nil {
			regions = nil
			err = fmt.Errorf("detection panic: %v", r)
		}
	}()
	return d.DetectPage(ctx, page)
}

// DetectPage finds signature candidates on one page and returns them in
// page space.
func (d *Detector) DetectPage(ctx context.Context, page Page) ([]entity.SignatureRegion, error) {
	bounds := page.Bounds()
	space := geometry.ClipSpace(bounds, geometry.RasterSpace(d.cfg.DPI).Scale)

	raster, err := page.Raster(bounds, space.Scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", page.Index(), err)
	}
	rb := raster.Bounds()

	mask := dilate(binarize(raster, d.cfg.InkThreshold), d.cfg.DilateIterations)
	contours := externalContours(mask, rb.Min, d.cfg.MinContourArea)
	strokes, fragments := splitStrokes(contours, d.cfg.MinRegionWidth, d.cfg.MinRegionHeight)
	boxes := attachFragments(ClusterContours(strokes, d.cfg.ClusterRadius), fragments, d.cfg.AttachRadius)

	headerLimit := d.cfg.HeaderBand * float64(rb.Dy())

	var regions []entity.SignatureRegion
	for _, box := range boxes {
		if box.Dx() < d.cfg.MinRegionWidth || box.Dy() < d.cfg.MinRegionHeight {
			continue
		}
		_, cy := contourCenter(box)
		if cy-float64(rb.Min.Y) < headerLimit {
			continue
		}

		// one pixel of padding covers anti-aliased edges below the ink threshold
		bbox := space.ToPage(geometry.FromImageRect(box.Inset(-1).Sub(rb.Min))).Clamp(bounds)
		if bbox.IsEmpty() {
			continue
		}

		regions = append(regions, entity.SignatureRegion{
			BBox:    bbox,
			Page:    page.Index(),
			Type:    d.classify(ctx, raster, space, bbox, bounds),
			IsPhoto: d.isPhoto(bbox),
		})
	}

	d.log.WithFields(logrus.Fields{
		"page":     page.Index(),
		"stage":    "detect",
		"contours": len(contours),
		"strokes":  len(strokes),
		"clusters": len(boxes),
		"regions":  len(regions),
	}).Debug("Page detection finished")

	return regions, nil
}

// Untyped returns a copy that skips witness classification and reports
// every region as signer. Modes that ignore the region type use it so no
// neighborhood OCR runs.
func (d *Detector) Untyped() *Detector {
	c := *d
	c.ocr = nil
	return &c
}

func (d *Detector) isPhoto(bbox geometry.Rect) bool {
	return aspectNearSquare(bbox.Width(), bbox.Height(), d.cfg.PhotoAspectTolerance) &&
		bbox.Area() >= d.cfg.PhotoMinArea
}

// classify looks for the witness token in the text around the box. The
// neighborhood is cut out of the detection raster, so no second render is
// needed.
func (d *Detector) classify(ctx context.Context, raster image.Image, space geometry.Space, bbox, bounds geometry.Rect) entity.SignatureType {
	if d.ocr == nil {
		return entity.SignerSignature
	}

	neighborhood := bbox.Expand(d.cfg.WitnessNeighborhood).Clamp(bounds)
	px := space.PixelBounds(neighborhood).Add(raster.Bounds().Min).Intersect(raster.Bounds())
	if px.Empty() {
		return entity.SignerSignature
	}

	c, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	words, err := d.ocr.Recognize(c, imaging.Crop(raster, px))
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"stage": "classify",
			"error": err.Error(),
		}).Warn("Neighborhood OCR failed, defaulting to signer")
		return entity.SignerSignature
	}

	token := strings.ToLower(d.cfg.WitnessToken)
	for _, w := range words {
		if strings.Contains(strings.ToLower(w.Text), token) {
			return entity.WitnessSignature
		}
	}
	return entity.SignerSignature
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
