package placement

import (
	"math"

	"placement-engine/models"
)

// Grid is an ordered list of candidate positions, x outer and y inner
type Grid []models.Position

// RectGrid enumerates min + i*step on each axis, half-open at the max edge,
// so adjacent zone rectangles never share a candidate
func RectGrid(b models.Bounds, step float64) Grid {
	xs := axis(b.MinX, b.MaxX, step, false)
	ys := axis(b.MinY, b.MaxY, step, false)

	grid := make(Grid, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			grid = append(grid, models.Position{X: x, Y: y})
		}
	}
	return grid
}

// RadialGrid enumerates x in [-radius, radius] and y in [0, radius], both
// inclusive, keeping only candidates within radius of home plate
func RadialGrid(radius, step float64) Grid {
	xs := axis(-radius, radius, step, true)
	ys := axis(0, radius, step, true)

	grid := make(Grid, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			if math.Hypot(x, y) <= radius {
				grid = append(grid, models.Position{X: x, Y: y})
			}
		}
	}
	return grid
}

func axis(lo, hi, step float64, inclusive bool) []float64 {
	var vals []float64
	for i := 0; ; i++ {
		v := lo + float64(i)*step
		if v > hi || (!inclusive && v >= hi) {
			break
		}
		vals = append(vals, v)
	}
	return vals
}
