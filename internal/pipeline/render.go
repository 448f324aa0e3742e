package pipeline

import (
	"fmt"
	"image/color"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

const watermarkText = "REDACTED"

var (
	fillColor       = color.Black
	watermarkColor  = color.NRGBA{R: 200, A: 160}
	outlineColor    = color.NRGBA{R: 230, G: 40, B: 40, A: 255}
	provenanceColor = color.NRGBA{R: 110, G: 110, B: 110, A: 255}
)

const (
	provenanceSize   = 8.0
	provenanceMargin = 12.0
)

type Renderer struct {
	cfg RenderConfig
	log *logrus.Logger
}

func NewRenderer(cfg Config, log *logrus.Logger) *Renderer {
	cfg = cfg.Normalize()
	return &Renderer{cfg: cfg.Render, log: log}
}

// RenderPage applies every decision for one page, flattens the page when a
// destructive mark landed on it (never in highlight-only mode) and stamps
// the provenance string.
func (r *Renderer) RenderPage(page Page, decisions []entity.RedactionDecision, highlightOnly bool) error {
	destructive := false
	for _, d := range decisions {
		if highlightOnly {
			d.Style = entity.StyleHighlightOutline
		}
		marked, err := r.Apply(page, d)
		if err != nil {
			return fmt.Errorf("render %s on page %d: %w", d.Style, page.Index(), err)
		}
		destructive = destructive || marked
	}

	if destructive && !highlightOnly {
		if err := page.Flatten(); err != nil {
			return fmt.Errorf("flatten page %d: %w", page.Index(), err)
		}
	}

	if err := r.Stamp(page); err != nil {
		return fmt.Errorf("stamp page %d: %w", page.Index(), err)
	}
	return nil
}

// Apply draws a single decision and reports whether the mark is
// destructive. Blur and watermark failures degrade to a fill.
func (r *Renderer) Apply(page Page, d entity.RedactionDecision) (bool, error) {
	target := d.TargetRect.Clamp(page.Bounds())
	if target.IsEmpty() {
		return false, nil
	}

	switch d.Style {
	case entity.StyleHighlightOutline:
		return false, page.DrawOutline(target, outlineColor, r.cfg.OutlineWidth)
	case entity.StyleBlur:
		if err := r.blur(page, target); err != nil {
			r.fallback(page, d, err)
			return true, page.FillRect(target, fillColor)
		}
		return true, nil
	case entity.StyleWatermarkText:
		if err := page.AddText(target, watermarkText, watermarkColor); err != nil {
			r.fallback(page, d, err)
			return true, page.FillRect(target, fillColor)
		}
		return true, nil
	default:
		return true, page.FillRect(target, fillColor)
	}
}

func (r *Renderer) blur(page Page, target geometry.Rect) error {
	raster, err := page.Raster(target, r.cfg.BlurZoom)
	if err != nil {
		return err
	}
	if raster.Bounds().Empty() {
		return fmt.Errorf("empty raster for %v", target)
	}
	return page.InsertImage(target, imaging.Blur(raster, r.cfg.BlurSigma))
}

func (r *Renderer) fallback(page Page, d entity.RedactionDecision, err error) {
	r.log.WithFields(logrus.Fields{
		"page":  page.Index(),
		"style": d.Style,
		"error": err.Error(),
	}).Warn("Redaction style failed, falling back to fill")
}

// Stamp writes the provenance string in the bottom-right corner.
func (r *Renderer) Stamp(page Page) error {
	return page.AddText(provenanceRect(page.Bounds(), r.cfg.Provenance), r.cfg.Provenance, provenanceColor)
}

func provenanceRect(bounds geometry.Rect, text string) geometry.Rect {
	width := float64(len([]rune(text))) * provenanceSize * 0.55
	x1 := bounds.X1 - provenanceMargin
	y1 := bounds.Y1 - provenanceMargin
	return geometry.Rect{
		X0: x1 - width,
		Y0: y1 - provenanceSize*1.4,
		X1: x1,
		Y1: y1,
	}.Clamp(bounds)
}
