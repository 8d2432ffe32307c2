package placement

import (
	"math"

	"placement-engine/models"
)

// ZoneSplit holds batted balls partitioned by zone, indexed by models.FieldZone
type ZoneSplit [models.NumZones][]models.BattedBall

// Len returns the number of balls assigned to any zone
func (zs ZoneSplit) Len() int {
	n := 0
	for _, balls := range zs {
		n += len(balls)
	}
	return n
}

// ZoneForSpray assigns a spray angle to a zone. CENTER includes both
// thresholds. ok is false for a missing (NaN) angle.
func ZoneForSpray(sprayDeg, low, high float64) (zone models.FieldZone, ok bool) {
	switch {
	case math.IsNaN(sprayDeg):
		return 0, false
	case sprayDeg < low:
		return models.Left, true
	case sprayDeg > high:
		return models.Right, true
	default:
		return models.Center, true
	}
}

// PartitionBySpray splits balls into disjoint left/center/right subsets,
// preserving input order. Balls without a spray angle are left out.
func PartitionBySpray(balls []models.BattedBall, low, high float64) ZoneSplit {
	var split ZoneSplit
	for _, z := range models.AllZones {
		split[z] = []models.BattedBall{}
	}
	for _, b := range balls {
		zone, ok := ZoneForSpray(models.ValueOrNaN(b.SprayAngleDeg), low, high)
		if !ok {
			continue
		}
		split[zone] = append(split[zone], b)
	}
	return split
}
