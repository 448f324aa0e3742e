package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"

	"github.com/otiai10/gosseract/v2"
)

type ITesseract interface {
	Recognize(ctx context.Context, img image.Image) ([]entity.OCRWord, error)
}

// Engine runs word-level Tesseract OCR. A fresh client is used per call, so
// one Engine may serve concurrent pipelines.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func NewEngine() *Engine {
	var langs []string
	if v := os.Getenv("TESSERACT_LANGUAGES"); v != "" {
		langs = strings.Split(v, ",")
	}
	return &Engine{languages: langs, clientFactory: gosseract.NewClient}
}

// Recognize returns the words of img in reading order with boxes in img's
// own pixel coordinates and confidence scaled to [0,1].
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]entity.OCRWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toWords(boxes, img.Bounds().Min), nil
}

func toWords(boxes []gosseract.BoundingBox, origin image.Point) []entity.OCRWord {
	words := make([]entity.OCRWord, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, entity.OCRWord{
			Text:       text,
			BBox:       geometry.FromImageRect(b.Box.Add(origin)),
			Confidence: b.Confidence / 100.0,
		})
	}
	return words
}
