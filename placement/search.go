package placement

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ScoringStrategy scores one combination of candidates, one per grid. The
// two implementations are coverageStrategy and minDistanceStrategy.
type ScoringStrategy interface {
	// Grids returns the candidate grids, outermost first
	Grids() []Grid
	// Cost scores the candidates at idx (one index per grid); lower is better.
	// It must be safe for concurrent use.
	Cost(idx []int) float64
}

// searchResult is the winning combination of one search
type searchResult struct {
	Index []int
	Cost  float64
	Found bool
}

// search enumerates every combination in row-major order (first grid
// outermost) and returns the lowest cost, keeping the earliest combination on
// ties. The outermost grid is split into contiguous chunks, one per worker;
// chunk winners are reduced in chunk order with a strict comparison, so the
// result is identical to a sequential scan.
func search(ctx context.Context, s ScoringStrategy, workers int) (searchResult, error) {
	grids := s.Grids()
	if len(grids) == 0 {
		return searchResult{}, &ConfigurationError{Field: "grids", Reason: "no candidate grids"}
	}
	sizes := make([]int, len(grids))
	for i, g := range grids {
		if len(g) == 0 {
			return searchResult{}, &ConfigurationError{Field: "grid_step", Reason: "produces an empty candidate grid"}
		}
		sizes[i] = len(g)
	}

	outer := sizes[0]
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > outer {
		workers = outer
	}

	chunks := make([]searchResult, workers)
	perWorker := outer / workers
	remainder := outer % workers

	g, gctx := errgroup.WithContext(ctx)
	start := 0
	for i := 0; i < workers; i++ {
		n := perWorker
		if i < remainder {
			n++
		}
		lo, hi := start, start+n
		start = hi
		i := i

		g.Go(func() error {
			best, err := scanRange(gctx, s, sizes, lo, hi)
			if err != nil {
				return err
			}
			chunks[i] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return searchResult{}, err
	}

	var best searchResult
	for _, c := range chunks {
		if c.Found && (!best.Found || c.Cost < best.Cost) {
			best = c
		}
	}
	return best, nil
}

// scanRange walks idx[0] over [lo, hi) and every inner index like an odometer
func scanRange(ctx context.Context, s ScoringStrategy, sizes []int, lo, hi int) (searchResult, error) {
	idx := make([]int, len(sizes))
	var best searchResult

	for i := lo; i < hi; i++ {
		if err := ctx.Err(); err != nil {
			return searchResult{}, err
		}
		idx[0] = i
		for k := 1; k < len(idx); k++ {
			idx[k] = 0
		}

		for {
			cost := s.Cost(idx)
			if !best.Found || cost < best.Cost {
				best = searchResult{Index: append([]int(nil), idx...), Cost: cost, Found: true}
			}

			k := len(idx) - 1
			for k > 0 {
				idx[k]++
				if idx[k] < sizes[k] {
					break
				}
				idx[k] = 0
				k--
			}
			if k == 0 {
				break
			}
		}
	}

	return best, nil
}
