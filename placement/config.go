package placement

import (
	"fmt"
	"math"

	"placement-engine/models"
)

const (
	// DefaultFieldRadius is the maximum carry distance in meters
	DefaultFieldRadius = 140.0
	// DefaultGridStep is the candidate spacing in distance units
	DefaultGridStep = 5.0
	// DefaultPlayerSpeed is the fielder run speed in meters per second
	DefaultPlayerSpeed = 7.0
	// DefaultLowThreshold and DefaultHighThreshold split spray angles into zones
	DefaultLowThreshold  = -10.0
	DefaultHighThreshold = 10.0
)

// Config holds the recognized optimizer options
type Config struct {
	Mode              models.Mode      `json:"mode" yaml:"mode"`
	FieldRadius       float64          `json:"field_radius" yaml:"field_radius"`
	GridStep          float64          `json:"grid_step" yaml:"grid_step"`
	PlayerSpeed       float64          `json:"player_speed" yaml:"player_speed"`
	ZoneThresholdsDeg [2]float64       `json:"zone_thresholds_deg" yaml:"zone_thresholds_deg"`
	Zones             models.ZoneGrids `json:"zones" yaml:"zones"`

	// Workers bounds search parallelism; 0 means one per CPU
	Workers int `json:"workers,omitempty" yaml:"workers"`
}

// DefaultConfig returns the stock configuration
func DefaultConfig() Config {
	return Config{
		Mode:              models.ModeMinDistance,
		FieldRadius:       DefaultFieldRadius,
		GridStep:          DefaultGridStep,
		PlayerSpeed:       DefaultPlayerSpeed,
		ZoneThresholdsDeg: [2]float64{DefaultLowThreshold, DefaultHighThreshold},
		Zones:             models.DefaultZoneGrids(),
	}
}

// Validate fails fast on options that would make the search degenerate
func (c Config) Validate() error {
	if _, err := models.ParseMode(string(c.Mode)); err != nil {
		return &ConfigurationError{Field: "mode", Reason: err.Error()}
	}
	if err := positive("field_radius", c.FieldRadius); err != nil {
		return err
	}
	if err := positive("grid_step", c.GridStep); err != nil {
		return err
	}
	if err := positive("player_speed", c.PlayerSpeed); err != nil {
		return err
	}

	low, high := c.ZoneThresholdsDeg[0], c.ZoneThresholdsDeg[1]
	if !isFinite(low) || !isFinite(high) {
		return &ConfigurationError{Field: "zone_thresholds_deg", Reason: "must be finite"}
	}
	if low > high {
		return &ConfigurationError{
			Field:  "zone_thresholds_deg",
			Reason: fmt.Sprintf("low %.1f exceeds high %.1f", low, high),
		}
	}

	if c.Workers < 0 {
		return &ConfigurationError{Field: "workers", Reason: "must not be negative"}
	}

	for _, z := range models.AllZones {
		b := c.Zones.For(z)
		if !isFinite(b.MinX) || !isFinite(b.MaxX) || !isFinite(b.MinY) || !isFinite(b.MaxY) || b.IsEmpty() {
			return &ConfigurationError{Field: "zones." + z.String(), Reason: "must be a non-empty finite rectangle"}
		}
	}
	if !c.Zones.IsOrdered() {
		return &ConfigurationError{
			Field:  "zones",
			Reason: "must keep left < center < right with center deeper than the corners",
		}
	}

	return nil
}

func positive(field string, v float64) error {
	if !isFinite(v) || v <= 0 {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must be a positive number, got %v", v)}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
