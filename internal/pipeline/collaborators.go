package pipeline

import (
	"context"
	"image"
	"image/color"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"
)

// OCREngine returns words in reading order. Word boxes are pixels of img.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image) ([]entity.OCRWord, error)
}

type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error)
}

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Diagnostics receives trace records while a document is processed.
type Diagnostics interface {
	Record(rec entity.DiagnosticRecord)
}

// DocumentOpener hands out a document owned exclusively by the caller.
type DocumentOpener interface {
	Open(path string) (Document, error)
}

type Document interface {
	PageCount() int
	// Page borrows one page. The page must not be used after the next
	// call to Page or after Close.
	Page(index int) (Page, error)
	Save(path string) error
	Close() error
}

// Page is the mutation surface of a single page. All rectangles are page
// space; Raster returns an image whose (0,0) pixel is
// geometry.ClipSpace(clip, scale).PixelOrigin() in a full-page render.
type Page interface {
	Index() int
	Bounds() geometry.Rect
	Raster(clip geometry.Rect, scale float64) (image.Image, error)
	FillRect(r geometry.Rect, c color.Color) error
	InsertImage(r geometry.Rect, img image.Image) error
	AddText(r geometry.Rect, text string, c color.Color) error
	DrawOutline(r geometry.Rect, c color.Color, width float64) error
	// Flatten burns pending marks into the page content.
	Flatten() error
}
