package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// TestParseFieldZone tests zone name parsing
func TestParseFieldZone(t *testing.T) {
	tests := []struct {
		input   string
		want    FieldZone
		wantErr bool
	}{
		{"LF", Left, false},
		{"left", Left, false},
		{" cf ", Center, false},
		{"RIGHT", Right, false},
		{"SS", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFieldZone(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseFieldZone(%q) expected error", tt.input)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFieldZone(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
			}
		})
	}
}

// TestPositionJSON tests that empty positions encode as null
func TestPositionJSON(t *testing.T) {
	data, err := json.Marshal(NoPosition())
	if err != nil {
		t.Fatalf("marshal NaN position: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("NaN position encoded as %s, want null", data)
	}

	var p Position
	if err := json.Unmarshal([]byte("null"), &p); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if p.IsValid() {
		t.Errorf("null should decode to NaN position, got %v", p)
	}

	if err := json.Unmarshal([]byte(`{"x":100,"y":290}`), &p); err != nil {
		t.Fatalf("unmarshal position: %v", err)
	}
	if p.X != 100 || p.Y != 290 {
		t.Errorf("decoded %v, want (100, 290)", p)
	}
}

// TestPositionDistance tests Euclidean distance
func TestPositionDistance(t *testing.T) {
	d := Position{X: 0, Y: 0}.Distance(Position{X: 3, Y: 4})
	if d != 5 {
		t.Errorf("Distance = %f, want 5", d)
	}
}

// TestZoneResultsJSON tests the LF/CF/RF keyed encoding
func TestZoneResultsJSON(t *testing.T) {
	res := EmptyResult(ModeCoverage)
	res.Zones[Center] = ZoneResult{Position: Position{X: 0, Y: 90}, Caught: 9, Total: 10}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	for _, key := range []string{`"LF"`, `"CF"`, `"RF"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded result missing %s: %s", key, data)
		}
	}

	var decoded PlacementResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if decoded.Zone(Center).Caught != 9 || decoded.Zone(Center).Position.Y != 90 {
		t.Errorf("center zone not preserved: %+v", decoded.Zone(Center))
	}
	if decoded.Zone(Left).Position.IsValid() {
		t.Errorf("left zone should stay empty, got %v", decoded.Zone(Left).Position)
	}
}

// TestNewSummary tests catch rate computation
func TestNewSummary(t *testing.T) {
	tests := []struct {
		caught, total int
		want          float64
	}{
		{0, 0, 0},
		{5, 10, 0.5},
		{10, 10, 1.0},
	}

	for _, tt := range tests {
		s := NewSummary(tt.caught, tt.total)
		if s.CatchRate != tt.want {
			t.Errorf("NewSummary(%d, %d).CatchRate = %f, want %f", tt.caught, tt.total, s.CatchRate, tt.want)
		}
	}
}

// TestDefaultZoneGridsOrdered tests the default grid layout
func TestDefaultZoneGridsOrdered(t *testing.T) {
	grids := DefaultZoneGrids()
	if !grids.IsOrdered() {
		t.Error("default zone grids should be ordered left < center < right with center deepest")
	}

	swapped := ZoneGrids{LF: grids.RF, CF: grids.CF, RF: grids.LF}
	if swapped.IsOrdered() {
		t.Error("swapped corners should not be ordered")
	}
}

// TestDefaultFieldBounds tests the clipping rectangle
func TestDefaultFieldBounds(t *testing.T) {
	b := DefaultFieldBounds()
	if !b.Contains(150, 400) {
		t.Error("deep center should be in bounds")
	}
	if b.Contains(-1, 100) || b.Contains(100, 421) {
		t.Error("points outside the rectangle should be rejected")
	}
}

// TestParseHandedness tests batter side parsing
func TestParseHandedness(t *testing.T) {
	h, err := ParseHandedness("b")
	if err != nil || h != HandBoth {
		t.Fatalf("ParseHandedness(b) = %v, %v", h, err)
	}
	if sides := h.Sides(); len(sides) != 2 || sides[0] != HandLeft || sides[1] != HandRight {
		t.Errorf("Sides() = %v, want [L R]", sides)
	}
	if _, err := ParseHandedness("X"); err == nil {
		t.Error("expected error for unknown handedness")
	}
}

// TestHangTimeOrNaN tests optional field access
func TestHangTimeOrNaN(t *testing.T) {
	b := BattedBall{X: 1, Y: 2}
	if !math.IsNaN(b.HangTimeOrNaN()) {
		t.Error("missing hang time should read as NaN")
	}
	b.HangTime = Float(4.5)
	if b.HangTimeOrNaN() != 4.5 {
		t.Errorf("HangTimeOrNaN = %f, want 4.5", b.HangTimeOrNaN())
	}
}
