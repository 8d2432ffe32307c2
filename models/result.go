package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects the optimizer formulation
type Mode string

const (
	// ModeCoverage partitions balls by spray angle and maximizes catches per zone
	ModeCoverage Mode = "coverage"
	// ModeMinDistance jointly places three fielders minimizing nearest-fielder distance
	ModeMinDistance Mode = "min_distance"
)

// ParseMode validates a mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCoverage:
		return ModeCoverage, nil
	case ModeMinDistance, "min-distance", "mindistance":
		return ModeMinDistance, nil
	default:
		return "", fmt.Errorf("unknown mode %q: must be coverage or min_distance", s)
	}
}

// ZoneResult is the optimizer output for one fielder. In coverage mode Total
// counts the balls partitioned into the zone; in min-distance mode it counts
// the balls whose nearest fielder is this one.
type ZoneResult struct {
	Position Position `json:"position"`
	Caught   int      `json:"caught"`
	Total    int      `json:"total"`
}

// EmptyZoneResult is the first-class "no data" state for a zone
func EmptyZoneResult() ZoneResult {
	return ZoneResult{Position: NoPosition()}
}

// ZoneResults holds one result per zone, indexed by FieldZone.
// It encodes as a JSON object keyed LF, CF, RF.
type ZoneResults [NumZones]ZoneResult

func (zr ZoneResults) MarshalJSON() ([]byte, error) {
	out := make(map[string]ZoneResult, NumZones)
	for _, z := range AllZones {
		out[z.String()] = zr[z]
	}
	return json.Marshal(out)
}

func (zr *ZoneResults) UnmarshalJSON(data []byte) error {
	var raw map[string]ZoneResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, z := range AllZones {
		res, ok := raw[z.String()]
		if !ok {
			res = EmptyZoneResult()
		}
		zr[z] = res
	}
	return nil
}

// Summary aggregates catch counts across zones
type Summary struct {
	CaughtTotal  int     `json:"caught_total"`
	BallsTotal   int     `json:"balls_total"`
	CatchRate    float64 `json:"catch_rate"`
	MeanDistance float64 `json:"mean_distance,omitempty"`
}

// NewSummary builds a summary, with a catch rate of 0 when there are no balls
func NewSummary(caught, total int) Summary {
	s := Summary{CaughtTotal: caught, BallsTotal: total}
	if total > 0 {
		s.CatchRate = float64(caught) / float64(total)
	}
	return s
}

// PlacementResult is the optimizer's output. It is a value: copies never
// share state.
type PlacementResult struct {
	Mode  Mode        `json:"mode"`
	Zones ZoneResults `json:"zones"`

	// TotalDistance is the summed nearest-fielder distance (min-distance mode)
	TotalDistance float64 `json:"total_distance"`
	Summary       Summary `json:"summary"`
}

// EmptyResult returns the "no solution" result for a mode
func EmptyResult(mode Mode) PlacementResult {
	res := PlacementResult{Mode: mode}
	for _, z := range AllZones {
		res.Zones[z] = EmptyZoneResult()
	}
	return res
}

// Zone returns the result for a single zone
func (r PlacementResult) Zone(z FieldZone) ZoneResult {
	return r.Zones[z]
}

// IsEmpty reports whether no zone produced a position
func (r PlacementResult) IsEmpty() bool {
	for _, z := range AllZones {
		if r.Zones[z].Position.IsValid() {
			return false
		}
	}
	return true
}
