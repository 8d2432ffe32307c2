package placement

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"placement-engine/models"
)

// Optimizer places three outfielders for a batch of batted balls. It holds
// only its configuration: every call owns its working arrays and returns its
// result directly.
type Optimizer struct {
	config Config
}

// New validates cfg and returns an optimizer
func New(cfg Config) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{config: cfg}, nil
}

// Config returns the optimizer configuration
func (o *Optimizer) Config() Config {
	return o.config
}

// Optimize runs the configured mode. Identical input always yields an
// identical result. Cancelling ctx abandons the search with ctx.Err().
func (o *Optimizer) Optimize(ctx context.Context, balls []models.BattedBall) (models.PlacementResult, error) {
	switch o.config.Mode {
	case models.ModeCoverage:
		return o.Coverage(ctx, balls)
	case models.ModeMinDistance:
		return o.OptimizeThree(ctx, balls)
	default:
		return models.PlacementResult{}, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unsupported mode %q", o.config.Mode)}
	}
}

// Coverage partitions balls by spray angle and searches each zone
// independently for the position that catches the most balls
func (o *Optimizer) Coverage(ctx context.Context, balls []models.BattedBall) (models.PlacementResult, error) {
	usable, err := usableBalls(balls)
	if err != nil {
		return models.PlacementResult{}, err
	}

	low, high := o.config.ZoneThresholdsDeg[0], o.config.ZoneThresholdsDeg[1]
	split := PartitionBySpray(usable, low, high)

	res := models.EmptyResult(models.ModeCoverage)
	g, gctx := errgroup.WithContext(ctx)
	for _, zone := range models.AllZones {
		zone := zone
		g.Go(func() error {
			zr, err := o.BestForZone(gctx, split[zone])
			if err != nil {
				return fmt.Errorf("%s: %w", zone, err)
			}
			res.Zones[zone] = zr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.PlacementResult{}, err
	}

	res.Summary = summarize(res.Mode, res.Zones, 0)
	return res, nil
}

// BestForZone searches the coverage grid for the candidate with the most
// catchable balls, earliest candidate (x outer, y inner) on ties. An empty
// zone returns the NaN position with zero counts without touching the grid.
func (o *Optimizer) BestForZone(ctx context.Context, balls []models.BattedBall) (models.ZoneResult, error) {
	usable, err := usableBalls(balls)
	if err != nil {
		return models.ZoneResult{}, err
	}
	if len(usable) == 0 {
		return models.EmptyZoneResult(), nil
	}

	strategy := newCoverageStrategy(RadialGrid(o.config.FieldRadius, o.config.GridStep), usable, o.config.PlayerSpeed)
	best, err := search(ctx, strategy, o.config.Workers)
	if err != nil {
		return models.ZoneResult{}, err
	}

	total := len(usable)
	return models.ZoneResult{
		Position: strategy.grid[best.Index[0]],
		Caught:   total - int(best.Cost),
		Total:    total,
	}, nil
}

// OptimizeThree jointly searches the LF, CF and RF grids for the triple that
// minimizes the summed distance from every ball to its nearest fielder.
// Ties keep the earliest triple (LF outer, CF middle, RF inner).
func (o *Optimizer) OptimizeThree(ctx context.Context, balls []models.BattedBall) (models.PlacementResult, error) {
	usable, err := usableBalls(balls)
	if err != nil {
		return models.PlacementResult{}, err
	}
	if len(usable) == 0 {
		res := models.EmptyResult(models.ModeMinDistance)
		res.Summary = summarize(res.Mode, res.Zones, 0)
		return res, nil
	}

	var grids [models.NumZones]Grid
	for _, z := range models.AllZones {
		grids[z] = RectGrid(o.config.Zones.For(z), o.config.GridStep)
	}

	strategy := newMinDistanceStrategy(grids, usable)
	best, err := search(ctx, strategy, o.config.Workers)
	if err != nil {
		return models.PlacementResult{}, err
	}

	var fielders [models.NumZones]models.Position
	for _, z := range models.AllZones {
		fielders[z] = grids[z][best.Index[z]]
	}

	res := models.PlacementResult{Mode: models.ModeMinDistance, TotalDistance: best.Cost}
	for _, z := range models.AllZones {
		res.Zones[z] = models.ZoneResult{Position: fielders[z]}
	}
	for _, b := range usable {
		zone, dist := nearestZone(b.Position(), fielders)
		zr := res.Zones[zone]
		zr.Total++
		if catchable(dist, b.HangTimeOrNaN(), o.config.PlayerSpeed) {
			zr.Caught++
		}
		res.Zones[zone] = zr
	}

	res.Summary = summarize(res.Mode, res.Zones, res.TotalDistance)
	return res, nil
}

// usableBalls drops converter output with NaN coordinates and rejects the
// batch if an observed ball is missing x or y
func usableBalls(balls []models.BattedBall) ([]models.BattedBall, error) {
	usable := make([]models.BattedBall, 0, len(balls))
	for i, b := range balls {
		if b.HasCoordinates() {
			usable = append(usable, b)
			continue
		}
		if b.Derived {
			continue
		}
		field := "x"
		if isFinite(b.X) {
			field = "y"
		}
		return nil, &InvalidInputError{Index: i, Field: field, Reason: "is missing or not a finite number"}
	}
	return usable, nil
}

// summarize derives the top-level summary from per-zone counts
func summarize(mode models.Mode, zones models.ZoneResults, totalDistance float64) models.Summary {
	caught, total := 0, 0
	for _, z := range models.AllZones {
		caught += zones[z].Caught
		total += zones[z].Total
	}
	s := models.NewSummary(caught, total)
	if mode == models.ModeMinDistance && total > 0 {
		s.MeanDistance = totalDistance / float64(total)
	}
	return s
}
