package pdf

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"SigSecure/internal/pipeline"
	"SigSecure/pkg/geometry"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeLetter creates a one-page letter PDF with a black box at
// (100,600)-(300,640).
func writeLetter(t *testing.T) string {
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: fpdf.SizeType{Wd: 612, Ht: 792}})
	doc.AddPage()
	doc.SetFillColor(0, 0, 0)
	doc.Rect(100, 600, 200, 40, "F")

	path := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func luminance(img image.Image, x, y int) uint8 {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func openFirstPage(t *testing.T, path string) (pipeline.Document, pipeline.Page) {
	doc, err := NewOpener(quiet()).Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })

	require.Equal(t, 1, doc.PageCount())
	page, err := doc.Page(0)
	require.NoError(t, err)
	return doc, page
}

func TestOpenAndRaster(t *testing.T) {
	_, page := openFirstPage(t, writeLetter(t))

	assert.InDelta(t, 612, page.Bounds().Width(), 1)
	assert.InDelta(t, 792, page.Bounds().Height(), 1)

	clip := geometry.Rect{X0: 90, Y0: 590, X1: 310, Y1: 650}
	img, err := page.Raster(clip, 2)
	require.NoError(t, err)
	assert.Equal(t, 440, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	// inside the box, then the margin of the clip
	assert.Less(t, luminance(img, 220, 60), uint8(50))
	assert.Greater(t, luminance(img, 5, 5), uint8(200))
}

func TestFlattenAndSave(t *testing.T) {
	doc, page := openFirstPage(t, writeLetter(t))

	require.NoError(t, page.FillRect(geometry.Rect{X0: 400, Y0: 100, X1: 500, Y1: 150}, color.Black))
	require.NoError(t, page.Flatten())
	require.NoError(t, page.AddText(geometry.Rect{X0: 450, Y0: 770, X1: 600, Y1: 782}, "Redacted by SigSecure", color.Gray{Y: 110}))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, doc.Save(out))

	_, saved := openFirstPage(t, out)
	img, err := saved.Raster(geometry.Rect{X0: 400, Y0: 100, X1: 500, Y1: 150}, 1)
	require.NoError(t, err)
	assert.Less(t, luminance(img, 50, 25), uint8(50))
}

func TestSaveOverlayKeepsOriginal(t *testing.T) {
	in := writeLetter(t)
	doc, page := openFirstPage(t, in)

	require.NoError(t, page.DrawOutline(geometry.Rect{X0: 100, Y0: 600, X1: 300, Y1: 640}, color.NRGBA{R: 230, A: 255}, 1.5))

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, doc.Save(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	n, err := PageCount(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveWithoutMarksCopiesInput(t *testing.T) {
	in := writeLetter(t)
	doc, _ := openFirstPage(t, in)

	out := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, doc.Save(out))

	want, _ := os.ReadFile(in)
	got, _ := os.ReadFile(out)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	data, err := os.ReadFile(writeLetter(t))
	require.NoError(t, err)
	assert.NoError(t, Validate(bytes.NewReader(data)))

	assert.ErrorIs(t, Validate(bytes.NewReader([]byte("not a pdf"))), ErrInvalidPDF)
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	_, err := NewOpener(quiet()).Open(path)
	assert.Error(t, err)
}

func TestBurn(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	space := geometry.RasterSpace(72)

	require.NoError(t, burn(img, space, []mark{
		{kind: markFill, rect: geometry.Rect{X0: 10, Y0: 10, X1: 20, Y1: 20}, color: color.Black},
		{kind: markOutline, rect: geometry.Rect{X0: 40, Y0: 40, X1: 80, Y1: 80}, color: color.White, width: 2},
		{kind: markText, rect: geometry.Rect{X0: 0, Y0: 85, X1: 100, Y1: 100}, text: "REDACTED", color: color.White},
	}))

	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(15, 15))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(41, 60))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(60, 60))

	var inked bool
	for y := 85; y < 100 && !inked; y++ {
		for x := 0; x < 100; x++ {
			if img.RGBAAt(x, y).A > 0 {
				inked = true
				break
			}
		}
	}
	assert.True(t, inked)
}
