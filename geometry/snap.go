package geometry

import (
	"sort"
)

// Snap suggests positions for a rectangle being dragged, so that its edges
// line up with the edges of a set of obstacles.
type Snap struct {
	tolerance int

	// candidate left coordinates
	vertical []int
	// candidate top coordinates
	horizontal []int
}

// NewSnap prepares snapping for a dragged rectangle of the given width and
// height. Both the near and the far edge of the dragged rectangle are
// aligned against both edges of every obstacle.
func NewSnap(width, height, tolerance int, obstacles []Rect) *Snap {
	vertical := map[int]struct{}{}
	horizontal := map[int]struct{}{}

	for _, o := range obstacles {
		vertical[o.Left] = struct{}{}
		vertical[o.Right()] = struct{}{}
		vertical[o.Left-width] = struct{}{}
		vertical[o.Right()-width] = struct{}{}

		horizontal[o.Top] = struct{}{}
		horizontal[o.Bottom()] = struct{}{}
		horizontal[o.Top-height] = struct{}{}
		horizontal[o.Bottom()-height] = struct{}{}
	}

	return &Snap{
		tolerance:  tolerance,
		vertical:   sortedKeys(vertical),
		horizontal: sortedKeys(horizontal),
	}
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// nearest returns the candidate closest to v that is strictly within
// tolerance, or v itself.
func (s *Snap) nearest(candidates []int, v int) int {
	best, bestDist := v, s.tolerance
	for _, c := range candidates {
		d := c - v
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Suggest returns the snapped position for a dragged rectangle whose top left
// corner is at (left, top). Each axis snaps independently.
func (s *Snap) Suggest(left, top int) (int, int) {
	return s.nearest(s.vertical, left), s.nearest(s.horizontal, top)
}
