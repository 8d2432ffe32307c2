package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Handedness is the batter's side ("L" or "R"); "B" requests both sides
type Handedness string

const (
	HandLeft  Handedness = "L"
	HandRight Handedness = "R"
	HandBoth  Handedness = "B"
)

// ParseHandedness normalizes L/R/B and their long forms
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LEFT":
		return HandLeft, nil
	case "R", "RIGHT":
		return HandRight, nil
	case "B", "BOTH", "S", "SWITCH":
		return HandBoth, nil
	default:
		return "", fmt.Errorf("invalid handedness %q: must be L, R or B", s)
	}
}

// Sides expands B into its two sides
func (h Handedness) Sides() []Handedness {
	if h == HandBoth {
		return []Handedness{HandLeft, HandRight}
	}
	return []Handedness{h}
}

// BattedBall represents one observed or synthetic landing event.
// X and Y are NaN when missing; optional measurements are nil when absent.
type BattedBall struct {
	X              float64    `json:"x"`
	Y              float64    `json:"y"`
	ExitVelocity   *float64   `json:"exit_velocity,omitempty"`
	LaunchAngleDeg *float64   `json:"launch_angle_deg,omitempty"`
	SprayAngleDeg  *float64   `json:"spray_angle_deg,omitempty"`
	HangTime       *float64   `json:"hangtime_s,omitempty"`
	Handedness     Handedness `json:"handedness,omitempty"`
	Outcome        string     `json:"outcome,omitempty"`

	// Derived marks coordinates produced by the physics converter rather
	// than observed. Derived balls with NaN coordinates are unusable and are
	// skipped instead of rejected.
	Derived bool `json:"derived,omitempty"`
}

// Position returns the landing point
func (b BattedBall) Position() Position {
	return Position{X: b.X, Y: b.Y}
}

// HasCoordinates reports whether both coordinates are finite
func (b BattedBall) HasCoordinates() bool {
	return b.Position().IsValid()
}

// HangTimeOrNaN returns the hang time, or NaN when absent
func (b BattedBall) HangTimeOrNaN() float64 {
	return valueOrNaN(b.HangTime)
}

// Measurement is a raw tracking record before conversion to field coordinates
type Measurement struct {
	PlayerID        string     `json:"player_id,omitempty"`
	Player          string     `json:"player,omitempty"`
	ExitVelocityMPH *float64   `json:"exit_velocity_mph,omitempty"`
	LaunchAngleDeg  *float64   `json:"launch_angle_deg,omitempty"`
	SprayAngleDeg   *float64   `json:"spray_angle_deg,omitempty"`
	HangTime        *float64   `json:"hangtime_s,omitempty"`
	Handedness      Handedness `json:"handedness,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

// Float returns a pointer to v, for populating optional fields
func Float(v float64) *float64 {
	return &v
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ValueOrNaN dereferences an optional measurement, mapping nil to NaN
func ValueOrNaN(v *float64) float64 {
	return valueOrNaN(v)
}
