package placement

import (
	"fmt"
	"math"

	"placement-engine/models"
)

// Average combines independently optimized results, such as one per batter
// side, by the coordinate-wise mean of each fielder position. It does not
// re-run the optimizer. Counts and total distance are averaged as well, so
// averaging a result with itself returns it unchanged.
//
// A zone that is empty in every result stays empty. A zone that is empty in
// some results but not others cannot be averaged.
func Average(results ...models.PlacementResult) (models.PlacementResult, error) {
	if len(results) == 0 {
		return models.PlacementResult{}, &AggregationError{Reason: "no results to average"}
	}

	mode := results[0].Mode
	for i, r := range results {
		if r.Mode != mode {
			return models.PlacementResult{}, &AggregationError{
				Reason: fmt.Sprintf("result %d uses mode %q, expected %q", i, r.Mode, mode),
			}
		}
	}

	n := float64(len(results))
	out := models.PlacementResult{Mode: mode}
	for _, z := range models.AllZones {
		empty := 0
		missing := -1
		for i, r := range results {
			if !r.Zones[z].Position.IsValid() {
				empty++
				missing = i
			}
		}
		if empty == len(results) {
			out.Zones[z] = models.EmptyZoneResult()
			continue
		}
		if empty > 0 {
			return models.PlacementResult{}, &AggregationError{
				Zone:   z.String(),
				Reason: fmt.Sprintf("result %d has no position (empty input) while others do", missing),
			}
		}

		var sx, sy, caught, total float64
		for _, r := range results {
			zr := r.Zones[z]
			sx += zr.Position.X
			sy += zr.Position.Y
			caught += float64(zr.Caught)
			total += float64(zr.Total)
		}
		out.Zones[z] = models.ZoneResult{
			Position: models.Position{X: sx / n, Y: sy / n},
			Caught:   int(math.Round(caught / n)),
			Total:    int(math.Round(total / n)),
		}
	}

	var dist float64
	for _, r := range results {
		dist += r.TotalDistance
	}
	out.TotalDistance = dist / n

	out.Summary = summarize(mode, out.Zones, out.TotalDistance)
	return out, nil
}
