package pipeline

import (
	"image"
	"math"
	"sort"

	"SigSecure/internal/entity"
)

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

func contourCenter(r image.Rectangle) (float64, float64) {
	return float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2
}

// ClusterContours merges contours whose centers lie within radius pixels of
// each other. Membership is the transitive closure of that relation, so a
// chain of strokes ends up in one box even when its ends are far apart.
// Result boxes are ordered top-to-bottom, then left-to-right.
func ClusterContours(contours []entity.RawContour, radius float64) []image.Rectangle {
	if len(contours) == 0 {
		return nil
	}

	uf := newUnionFind(len(contours))
	r2 := radius * radius
	for i := 0; i < len(contours); i++ {
		xi, yi := contourCenter(contours[i].BBox)
		for j := i + 1; j < len(contours); j++ {
			xj, yj := contourCenter(contours[j].BBox)
			dx, dy := xi-xj, yi-yj
			if dx*dx+dy*dy <= r2 {
				uf.union(i, j)
			}
		}
	}

	boxes := make(map[int]image.Rectangle)
	for i, c := range contours {
		root := uf.find(i)
		if box, ok := boxes[root]; ok {
			boxes[root] = box.Union(c.BBox)
		} else {
			boxes[root] = c.BBox
		}
	}

	out := make([]image.Rectangle, 0, len(boxes))
	for _, box := range boxes {
		out = append(out, box)
	}
	sortBoxes(out)
	return out
}

// splitStrokes separates contours large enough to be pen strokes on their
// own from smaller fragments. Typed glyphs at body sizes never reach
// minW x minH pixels as a single connected component, so a cluster built
// only from fragments is text or noise.
func splitStrokes(contours []entity.RawContour, minW, minH int) (strokes, fragments []entity.RawContour) {
	for _, c := range contours {
		if c.BBox.Dx() >= minW && c.BBox.Dy() >= minH {
			strokes = append(strokes, c)
		} else {
			fragments = append(fragments, c)
		}
	}
	return strokes, fragments
}

// attachFragments grows each stroke cluster by the fragments whose center
// lies within radius pixels of it, such as i-dots and pen lifts. A fragment
// joins at most the nearest cluster and never pulls in further fragments,
// so lines of typed text next to a signature do not chain into it.
func attachFragments(boxes []image.Rectangle, fragments []entity.RawContour, radius float64) []image.Rectangle {
	if len(boxes) == 0 {
		return nil
	}

	out := make([]image.Rectangle, len(boxes))
	copy(out, boxes)

	for _, f := range fragments {
		cx, cy := contourCenter(f.BBox)
		best, bestDist := -1, radius
		for i, box := range boxes {
			if dist := rectDistance(box, cx, cy); dist <= bestDist {
				best, bestDist = i, dist
			}
		}
		if best >= 0 {
			out[best] = out[best].Union(f.BBox)
		}
	}

	sortBoxes(out)
	return out
}

// rectDistance is the distance from (x, y) to the nearest point of r.
func rectDistance(r image.Rectangle, x, y float64) float64 {
	dx := math.Max(math.Max(float64(r.Min.X)-x, 0), x-float64(r.Max.X))
	dy := math.Max(math.Max(float64(r.Min.Y)-y, 0), y-float64(r.Max.Y))
	return math.Hypot(dx, dy)
}

func sortBoxes(boxes []image.Rectangle) {
	sort.Slice(boxes, func(i, j int) bool {
		a, b := boxes[i], boxes[j]
		switch {
		case a.Min.Y != b.Min.Y:
			return a.Min.Y < b.Min.Y
		case a.Min.X != b.Min.X:
			return a.Min.X < b.Min.X
		case a.Max.Y != b.Max.Y:
			return a.Max.Y < b.Max.Y
		default:
			return a.Max.X < b.Max.X
		}
	})
}

func aspectNearSquare(w, h, tolerance float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return math.Abs(w/h-1) <= tolerance
}
