package pipeline

import (
	"errors"
	"testing"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decision(style entity.RedactionStyle) entity.RedactionDecision {
	return entity.RedactionDecision{TargetRect: geometry.Rect{X0: 100, Y0: 100, X1: 200, Y1: 130}, Style: style}
}

func TestRendererStyles(t *testing.T) {
	tests := []struct {
		name      string
		style     entity.RedactionStyle
		page      *fakePage
		wantOps   []string
		wantFlat  int
		highlight bool
	}{
		{name: "fill", style: entity.StyleFill, page: &fakePage{bounds: letter}, wantOps: []string{"fill", "text"}, wantFlat: 1},
		{name: "blur", style: entity.StyleBlur, page: &fakePage{bounds: letter}, wantOps: []string{"image", "text"}, wantFlat: 1},
		{name: "watermark", style: entity.StyleWatermarkText, page: &fakePage{bounds: letter}, wantOps: []string{"text", "text"}, wantFlat: 1},
		{name: "outline", style: entity.StyleHighlightOutline, page: &fakePage{bounds: letter}, wantOps: []string{"outline", "text"}},
		{name: "blur falls back to fill", style: entity.StyleBlur, page: &fakePage{bounds: letter, rasterErr: errors.New("render")}, wantOps: []string{"fill", "text"}, wantFlat: 1},
		{name: "watermark falls back to fill", style: entity.StyleWatermarkText, page: &fakePage{bounds: letter, failText: watermarkText}, wantOps: []string{"fill", "text"}, wantFlat: 1},
		{name: "highlight only overrides style", style: entity.StyleFill, page: &fakePage{bounds: letter}, wantOps: []string{"outline", "text"}, highlight: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(DefaultConfig(), quietLogger())
			require.NoError(t, r.RenderPage(tt.page, []entity.RedactionDecision{decision(tt.style)}, tt.highlight))
			assert.Equal(t, tt.wantOps, tt.page.ops())
			assert.Equal(t, tt.wantFlat, tt.page.flattened)
		})
	}
}

func TestRendererStampOnly(t *testing.T) {
	page := &fakePage{bounds: letter}
	r := NewRenderer(DefaultConfig(), quietLogger())

	require.NoError(t, r.RenderPage(page, nil, false))
	require.Len(t, page.marks, 1)
	assert.Zero(t, page.flattened)

	stamp := page.marks[0]
	assert.Equal(t, "Redacted by SigSecure", stamp.text)
	assert.True(t, letter.Contains(stamp.rect))
	assert.Greater(t, stamp.rect.X0, letter.Width()/2)
	assert.Greater(t, stamp.rect.Y0, letter.Height()*0.9)
}

func TestRendererSkipsOffPageTargets(t *testing.T) {
	page := &fakePage{bounds: letter}
	r := NewRenderer(DefaultConfig(), quietLogger())

	off := entity.RedactionDecision{TargetRect: geometry.Rect{X0: 700, Y0: 900, X1: 800, Y1: 950}, Style: entity.StyleFill}
	require.NoError(t, r.RenderPage(page, []entity.RedactionDecision{off}, false))
	assert.Equal(t, []string{"text"}, page.ops())
	assert.Zero(t, page.flattened)
}
