package pipeline

import (
	"image"
	"image/color"

	"SigSecure/internal/entity"
)

// inkMask marks pixels whose luminance is below threshold.
type inkMask struct {
	w, h int
	bits []bool
}

func (m *inkMask) at(x, y int) bool { return m.bits[y*m.w+x] }

func binarize(img image.Image, threshold uint8) *inkMask {
	b := img.Bounds()
	m := &inkMask{w: b.Dx(), h: b.Dy(), bits: make([]bool, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < m.h; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
			for x := 0; x < m.w; x++ {
				m.bits[y*m.w+x] = row[x] < threshold
			}
		}
	default:
		for y := 0; y < m.h; y++ {
			for x := 0; x < m.w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				m.bits[y*m.w+x] = g.Y < threshold
			}
		}
	}
	return m
}

// dilate grows ink by one pixel in all eight directions per iteration.
func dilate(m *inkMask, iterations int) *inkMask {
	cur := m
	for i := 0; i < iterations; i++ {
		next := &inkMask{w: cur.w, h: cur.h, bits: make([]bool, len(cur.bits))}
		for y := 0; y < cur.h; y++ {
			for x := 0; x < cur.w; x++ {
				if !cur.at(x, y) {
					continue
				}
				for dy := -1; dy <= 1; dy++ {
					yy := y + dy
					if yy < 0 || yy >= cur.h {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						xx := x + dx
						if xx < 0 || xx >= cur.w {
							continue
						}
						next.bits[yy*cur.w+xx] = true
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// externalContours labels 8-connected ink components. Each component's
// bounding box is its outer contour; area is its pixel count. Boxes are
// offset by origin so they share the coordinates of the source image.
func externalContours(m *inkMask, origin image.Point, minArea float64) []entity.RawContour {
	visited := make([]bool, len(m.bits))
	var contours []entity.RawContour
	stack := make([]int, 0, 256)

	for start := range m.bits {
		if !m.bits[start] || visited[start] {
			continue
		}
		visited[start] = true
		stack = append(stack[:0], start)

		minX, minY := m.w, m.h
		maxX, maxY := -1, -1
		count := 0

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%m.w, idx/m.w
			count++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= m.h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= m.w {
						continue
					}
					n := yy*m.w + xx
					if m.bits[n] && !visited[n] {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}

		if float64(count) < minArea {
			continue
		}
		contours = append(contours, entity.RawContour{
			BBox: image.Rect(minX, minY, maxX+1, maxY+1).Add(origin),
			Area: float64(count),
		})
	}

	return contours
}
