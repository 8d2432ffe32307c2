package placement

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"placement-engine/models"
)

// minDistanceStrategy scores an (LF, CF, RF) triple by the summed distance
// from every ball to its nearest fielder. Distances from each candidate to
// each ball are tabulated once so a triple costs one pass over the balls.
type minDistanceStrategy struct {
	grids   [models.NumZones]Grid
	tables  [models.NumZones][][]float64
	n       int
	scratch sync.Pool
}

func newMinDistanceStrategy(grids [models.NumZones]Grid, balls []models.BattedBall) *minDistanceStrategy {
	s := &minDistanceStrategy{grids: grids, n: len(balls)}
	for z, grid := range grids {
		s.tables[z] = distanceTable(grid, balls)
	}
	s.scratch.New = func() any {
		buf := make([]float64, s.n)
		return &buf
	}
	return s
}

func distanceTable(grid Grid, balls []models.BattedBall) [][]float64 {
	table := make([][]float64, len(grid))
	for c, pos := range grid {
		row := make([]float64, len(balls))
		for i, b := range balls {
			row[i] = math.Hypot(b.X-pos.X, b.Y-pos.Y)
		}
		table[c] = row
	}
	return table
}

func (s *minDistanceStrategy) Grids() []Grid {
	return s.grids[:]
}

// Cost returns the total nearest-fielder distance for the triple at idx
func (s *minDistanceStrategy) Cost(idx []int) float64 {
	buf := s.scratch.Get().(*[]float64)
	mins := *buf

	lf := s.tables[models.Left][idx[models.Left]]
	cf := s.tables[models.Center][idx[models.Center]]
	rf := s.tables[models.Right][idx[models.Right]]
	for i := range mins {
		m := lf[i]
		if cf[i] < m {
			m = cf[i]
		}
		if rf[i] < m {
			m = rf[i]
		}
		mins[i] = m
	}
	total := floats.Sum(mins)

	s.scratch.Put(buf)
	return total
}

// nearestZone returns the zone of the closest fielder; ties go to the earlier
// zone in LF, CF, RF order
func nearestZone(p models.Position, fielders [models.NumZones]models.Position) (models.FieldZone, float64) {
	best := models.Left
	bestDist := p.Distance(fielders[models.Left])
	for _, z := range models.AllZones[1:] {
		if d := p.Distance(fielders[z]); d < bestDist {
			best, bestDist = z, d
		}
	}
	return best, bestDist
}
