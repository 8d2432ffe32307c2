package feed

import (
	"bytes"
	"encoding/json"
)

// Item is one batted ball as served by the platform
type Item struct {
	BatterName      string   `json:"batter_name"`
	BatterID        ID       `json:"batter_id"`
	BatSide         string   `json:"bat_side"`
	ExitVelocityMPH *float64 `json:"exit_velocity_mph"`
	LaunchAngleDeg  *float64 `json:"launch_angle_deg"`
	SprayAngleDeg   *float64 `json:"spray_angle_deg"`
	HangTime        *float64 `json:"hangtime_s"`
	Outcome         string   `json:"outcome,omitempty"`
	Timestamp       string   `json:"timestamp"`
}

// ID accepts both numeric and string identifiers
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = ID(n.String())
	}
	return nil
}
