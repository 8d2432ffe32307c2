package placement

import (
	"math"

	"placement-engine/models"
)

const (
	// Gravity in m/s^2
	Gravity = 9.81
	// MPHToMPS converts miles per hour to meters per second
	MPHToMPS = 0.44704
)

// HangTime estimates airborne time in seconds for a no-drag projectile.
// Negative inputs are clamped to zero; NaN propagates.
func HangTime(exitVelocityMPH, launchAngleDeg float64) float64 {
	v := math.Max(exitVelocityMPH, 0) * MPHToMPS
	theta := math.Max(launchAngleDeg, 0) * math.Pi / 180
	return math.Max(2*v*math.Sin(theta)/Gravity, 0)
}

// CarryDistance returns the no-drag range in meters, clipped to [0, fieldRadius]
func CarryDistance(exitVelocityMPH, launchAngleDeg, fieldRadius float64) float64 {
	v := math.Max(exitVelocityMPH, 0) * MPHToMPS
	theta := math.Max(launchAngleDeg, 0) * math.Pi / 180
	r := v * v * math.Sin(2*theta) / Gravity
	return math.Min(math.Max(r, 0), fieldRadius)
}

// LandingPoint projects a carry distance along a spray angle. Positive spray
// angles land toward right field.
func LandingPoint(distance, sprayAngleDeg float64) models.Position {
	phi := sprayAngleDeg * math.Pi / 180
	return models.Position{X: distance * math.Sin(phi), Y: distance * math.Cos(phi)}
}

// ConvertMeasurements turns raw tracking records into batted balls with planar
// landing coordinates. Hang times already present are kept; estimates fill in
// only when no record in the batch carries one. Records with a missing value
// get NaN coordinates and are skipped by the optimizer.
func ConvertMeasurements(ms []models.Measurement, fieldRadius float64) ([]models.BattedBall, error) {
	if err := positive("field_radius", fieldRadius); err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return []models.BattedBall{}, nil
	}

	if allMissing(ms, func(m models.Measurement) *float64 { return m.ExitVelocityMPH }) {
		return nil, &InvalidInputError{Index: -1, Field: "exit_velocity", Reason: "is missing for every record"}
	}
	if allMissing(ms, func(m models.Measurement) *float64 { return m.LaunchAngleDeg }) {
		return nil, &InvalidInputError{Index: -1, Field: "launch_angle_deg", Reason: "is missing for every record"}
	}
	estimateHangTime := allMissing(ms, func(m models.Measurement) *float64 { return m.HangTime })

	balls := make([]models.BattedBall, len(ms))
	for i, m := range ms {
		ev := models.ValueOrNaN(m.ExitVelocityMPH)
		la := models.ValueOrNaN(m.LaunchAngleDeg)
		spray := models.ValueOrNaN(m.SprayAngleDeg)

		landing := LandingPoint(CarryDistance(ev, la, fieldRadius), spray)

		ball := models.BattedBall{
			X:              landing.X,
			Y:              landing.Y,
			ExitVelocity:   m.ExitVelocityMPH,
			LaunchAngleDeg: m.LaunchAngleDeg,
			SprayAngleDeg:  m.SprayAngleDeg,
			HangTime:       m.HangTime,
			Handedness:     m.Handedness,
			Outcome:        m.Outcome,
			Derived:        true,
		}
		if estimateHangTime {
			if ht := HangTime(ev, la); !math.IsNaN(ht) {
				ball.HangTime = models.Float(ht)
			}
		}
		balls[i] = ball
	}

	return balls, nil
}

func allMissing(ms []models.Measurement, field func(models.Measurement) *float64) bool {
	for _, m := range ms {
		if v := field(m); v != nil && !math.IsNaN(*v) {
			return false
		}
	}
	return true
}
