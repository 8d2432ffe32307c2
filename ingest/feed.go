package ingest

import (
	"strings"

	"placement-engine/feed"
	"placement-engine/models"
)

// MapFeedItems converts platform records into measurements for the physics
// converter. Missing numeric fields stay nil.
func MapFeedItems(items []feed.Item) []models.Measurement {
	ms := make([]models.Measurement, 0, len(items))
	for _, it := range items {
		ms = append(ms, models.Measurement{
			PlayerID:        string(it.BatterID),
			Player:          strings.TrimSpace(it.BatterName),
			ExitVelocityMPH: it.ExitVelocityMPH,
			LaunchAngleDeg:  it.LaunchAngleDeg,
			SprayAngleDeg:   it.SprayAngleDeg,
			HangTime:        it.HangTime,
			Handedness:      parseHand(it.BatSide),
			Outcome:         it.Outcome,
			Timestamp:       parseTime(strings.TrimSpace(it.Timestamp)),
		})
	}
	return ms
}
