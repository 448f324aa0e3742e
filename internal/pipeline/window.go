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

// ContextWindow is the OCR'd neighborhood of one signature region. Word
// boxes are pixels of the clip raster; Space converts them to page space.
type ContextWindow struct {
	Region         entity.SignatureRegion
	Clip           geometry.Rect
	Space          geometry.Space
	Words          []entity.OCRWord
	MeanConfidence float64
	FirstPassMean  float64
	Retried        bool
}

// Text is the running text of the window, non-empty tokens joined by single
// spaces.
func (w ContextWindow) Text() string {
	tokens := make([]string, 0, len(w.Words))
	for _, word := range w.Words {
		if t := strings.TrimSpace(word.Text); t != "" {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, " ")
}

type ContextExtractor struct {
	cfg     ContextConfig
	ocr     OCREngine
	log     *logrus.Logger
	timeout time.Duration
}

func NewContextExtractor(cfg Config, ocr OCREngine, log *logrus.Logger) *ContextExtractor {
	cfg = cfg.Normalize()
	return &ContextExtractor{
		cfg:     cfg.Context,
		ocr:     ocr,
		log:     log,
		timeout: cfg.Timeout,
	}
}

func (e *ContextExtractor) Extract(ctx context.Context, page Page, region entity.SignatureRegion) (ContextWindow, error) {
	clip := region.BBox.Expand(e.cfg.Radius).Clamp(page.Bounds())
	if clip.IsEmpty() {
		return ContextWindow{}, fmt.Errorf("context window for region on page %d is empty", region.Page)
	}
	space := geometry.ClipSpace(clip, e.cfg.Zoom)

	raster, err := page.Raster(clip, e.cfg.Zoom)
	if err != nil {
		return ContextWindow{}, fmt.Errorf("rasterize context window: %w", err)
	}

	words, err := e.recognize(ctx, raster)
	if err != nil {
		return ContextWindow{}, fmt.Errorf("ocr context window: %w", err)
	}

	window := ContextWindow{
		Region:         region,
		Clip:           clip,
		Space:          space,
		Words:          words,
		MeanConfidence: meanConfidence(words),
	}
	window.FirstPassMean = window.MeanConfidence

	if window.MeanConfidence >= e.cfg.ConfidenceThreshold {
		return window, nil
	}

	window.Retried = true
	enhanced := enhanceForOCR(raster, e.cfg.RetryContrast, e.cfg.RetryDenoiseSigma)
	retryWords, err := e.recognize(ctx, enhanced)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"page":  region.Page,
			"stage": "context",
			"error": err.Error(),
		}).Warn("OCR retry failed, keeping first pass")
		return window, nil
	}

	if mean := meanConfidence(retryWords); mean > window.MeanConfidence {
		window.Words = retryWords
		window.MeanConfidence = mean
	}

	return window, nil
}

func (e *ContextExtractor) recognize(ctx context.Context, img image.Image) ([]entity.OCRWord, error) {
	c, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	return e.ocr.Recognize(c, img)
}

// enhanceForOCR raises contrast and knocks down speckle noise. The output
// keeps the input dimensions, so word boxes stay in the same pixel space.
func enhanceForOCR(img image.Image, contrast, denoiseSigma float64) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, contrast)
	out = imaging.Blur(out, denoiseSigma)
	return imaging.Sharpen(out, 1)
}

func meanConfidence(words []entity.OCRWord) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		sum += w.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
