package placement

import (
	"math"

	"placement-engine/models"
)

// coverageStrategy searches one grid for the candidate that misses the
// fewest balls. A ball is caught when distance/speed <= hang time.
type coverageStrategy struct {
	grid  Grid
	xs    []float64
	ys    []float64
	hang  []float64
	speed float64
}

func newCoverageStrategy(grid Grid, balls []models.BattedBall, speed float64) *coverageStrategy {
	s := &coverageStrategy{
		grid:  grid,
		xs:    make([]float64, len(balls)),
		ys:    make([]float64, len(balls)),
		hang:  make([]float64, len(balls)),
		speed: speed,
	}
	for i, b := range balls {
		s.xs[i] = b.X
		s.ys[i] = b.Y
		s.hang[i] = b.HangTimeOrNaN()
	}
	return s
}

func (s *coverageStrategy) Grids() []Grid {
	return []Grid{s.grid}
}

// Cost returns the number of missed balls
func (s *coverageStrategy) Cost(idx []int) float64 {
	c := s.grid[idx[0]]
	return float64(len(s.xs) - s.caught(c))
}

func (s *coverageStrategy) caught(c models.Position) int {
	n := 0
	for i := range s.xs {
		if catchable(math.Hypot(s.xs[i]-c.X, s.ys[i]-c.Y), s.hang[i], s.speed) {
			n++
		}
	}
	return n
}

// catchable compares time-to-reach with hang time; a NaN hang time never
// catches
func catchable(distance, hangTime, speed float64) bool {
	return distance/speed <= hangTime
}
