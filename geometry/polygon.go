package geometry

import (
	"math"
)

// Point is a position in the plane.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis aligned integer rectangle, as used for output geometries.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

func (r Rect) Right() int {
	return r.Left + r.Width
}

func (r Rect) Bottom() int {
	return r.Top + r.Height
}

// RectPolygon returns the outline of r, starting at the top left corner.
//
// The winding is counter-clockwise in the algebraic sense (clockwise on
// screen, where y grows downwards), which is what PointDistance expects.
func RectPolygon(r Rect) ConvexPolygon {
	l, t := float64(r.Left), float64(r.Top)
	w, h := float64(r.Width), float64(r.Height)
	return ConvexPolygon{
		{l, t},
		{l + w, t},
		{l + w, t + h},
		{l, t + h},
	}
}

// ConvexPolygon is a closed, counter-clockwise, convex polygon. The last
// point connects back to the first one implicitly.
type ConvexPolygon []Point

// Segment is a directed polygon edge.
type Segment struct {
	A Point
	B Point
}

// Segments returns all edges of the polygon, including the closing one.
func (p ConvexPolygon) Segments() []Segment {
	segments := make([]Segment, 0, len(p))
	for i := range p {
		segments = append(segments, Segment{p[i], p[(i+1)%len(p)]})
	}
	return segments
}

// local returns the segment length and the coordinates (s, t) of the point
// relative to the segment: s runs from 0 at A to 1 at B, and t is the
// perpendicular offset in units of the segment length, positive outside.
func (seg Segment) local(x, y float64) (length, s, t float64) {
	vx, vy := seg.B.X-seg.A.X, seg.B.Y-seg.A.Y
	// outward normal
	nx, ny := vy, -vx

	rx, ry := x-seg.A.X, y-seg.A.Y

	invdet := 1.0 / (vx*ny - nx*vy)
	s = invdet * (ny*rx - nx*ry)
	t = invdet * (-vy*rx + vx*ry)

	return math.Hypot(vx, vy), s, t
}

// PointDistance returns 0 if (x, y) is inside the polygon or on its boundary,
// and the euclidean distance to the nearest boundary point otherwise.
func (p ConvexPolygon) PointDistance(x, y float64) float64 {
	found := false
	min := 0.0

	for _, seg := range p.Segments() {
		length, s, t := seg.local(x, y)
		if t < 0 {
			continue
		}

		var d float64
		switch {
		case s < 0:
			d = length * math.Hypot(s, t)
		case s > 1:
			d = length * math.Hypot(s-1, t)
		default:
			d = length * t
		}

		if !found || d < min {
			min = d
			found = true
		}
	}

	return min
}
