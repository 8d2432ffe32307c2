package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"placement-engine/models"
)

var (
	// ErrNoRows is returned when nothing survives cleaning
	ErrNoRows = errors.New("no usable rows")
	// ErrNoCoordinates is returned when no x/y column pair can be found
	ErrNoCoordinates = errors.New("no usable numeric x/y columns")
)

// coordinateAliases are tried in order before falling back to the first two
// numeric columns
var coordinateAliases = [][2]string{
	{"x", "y"},
	{"hc_x", "hc_y"},
	{"spray_x", "spray_y"},
	{"px", "py"},
}

var (
	exitVelocityColumns = []string{"exit_velocity", "exit_velocity_mph", "ev_mph"}
	launchAngleColumns  = []string{"launch_angle_deg", "launch_angle", "la_deg"}
	sprayAngleColumns   = []string{"spray_angle_deg", "spray_angle", "spray_deg"}
	hangTimeColumns     = []string{"hangtime_s", "hang_time", "hangtime"}
	handednessColumns   = []string{"handedness", "bat_side", "stand"}
	outcomeColumns      = []string{"outcome", "result", "events"}
	playerColumns       = []string{"player", "batter_name", "player_name"}
	playerIDColumns     = []string{"player_id", "batter_id", "batter"}
	timestampColumns    = []string{"timestamp", "game_date", "date"}
)

// table is a CSV file with its header indexed by normalized column name
type table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row: %w", ErrNoRows)
	}

	t := &table{columns: records[0], index: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, name := range t.columns {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t, nil
}

// lookup returns the index of the first present alias, or -1
func (t *table) lookup(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.index[a]; ok {
			return i
		}
	}
	return -1
}

func (t *table) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func (t *table) float(row []string, col int) *float64 {
	v, ok := parseFloat(t.cell(row, col))
	if !ok {
		return nil
	}
	return &v
}

// coordinateColumns resolves the x/y pair by alias, then by the first two
// columns whose non-empty values are all numeric
func (t *table) coordinateColumns() (int, int, error) {
	for _, pair := range coordinateAliases {
		x, xok := t.index[pair[0]]
		y, yok := t.index[pair[1]]
		if xok && yok {
			return x, y, nil
		}
	}

	var numeric []int
	for col := range t.columns {
		if t.isNumeric(col) {
			numeric = append(numeric, col)
			if len(numeric) == 2 {
				return numeric[0], numeric[1], nil
			}
		}
	}
	return 0, 0, ErrNoCoordinates
}

func (t *table) isNumeric(col int) bool {
	seen := false
	for _, row := range t.rows {
		s := t.cell(row, col)
		if s == "" {
			continue
		}
		if _, ok := parseFloat(s); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// ParseCSV reads spray-chart landing points. Rows with a missing, malformed
// or out-of-bounds coordinate are dropped; optional measurement columns are
// kept when present.
func ParseCSV(r io.Reader, bounds models.Bounds) ([]models.BattedBall, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}

	xCol, yCol, err := t.coordinateColumns()
	if err != nil {
		return nil, err
	}

	evCol := t.lookup(exitVelocityColumns...)
	laCol := t.lookup(launchAngleColumns...)
	sprayCol := t.lookup(sprayAngleColumns...)
	hangCol := t.lookup(hangTimeColumns...)
	handCol := t.lookup(handednessColumns...)
	outcomeCol := t.lookup(outcomeColumns...)

	balls := make([]models.BattedBall, 0, len(t.rows))
	for _, row := range t.rows {
		x, xok := parseFloat(t.cell(row, xCol))
		y, yok := parseFloat(t.cell(row, yCol))
		if !xok || !yok || !bounds.Contains(x, y) {
			continue
		}

		balls = append(balls, models.BattedBall{
			X:              x,
			Y:              y,
			ExitVelocity:   t.float(row, evCol),
			LaunchAngleDeg: t.float(row, laCol),
			SprayAngleDeg:  t.float(row, sprayCol),
			HangTime:       t.float(row, hangCol),
			Handedness:     parseHand(t.cell(row, handCol)),
			Outcome:        t.cell(row, outcomeCol),
		})
	}

	if len(balls) == 0 {
		return nil, fmt.Errorf("zero rows after cleaning: %w", ErrNoRows)
	}
	return balls, nil
}

// ParseMeasurementsCSV reads raw tracking records for the physics converter.
// Missing values stay nil; the converter decides what is usable.
func ParseMeasurementsCSV(r io.Reader) ([]models.Measurement, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}

	evCol := t.lookup(exitVelocityColumns...)
	laCol := t.lookup(launchAngleColumns...)
	if evCol < 0 || laCol < 0 {
		return nil, fmt.Errorf("measurement file needs exit velocity and launch angle columns: %w", ErrNoRows)
	}
	sprayCol := t.lookup(sprayAngleColumns...)
	hangCol := t.lookup(hangTimeColumns...)
	handCol := t.lookup(handednessColumns...)
	outcomeCol := t.lookup(outcomeColumns...)
	playerCol := t.lookup(playerColumns...)
	idCol := t.lookup(playerIDColumns...)
	tsCol := t.lookup(timestampColumns...)

	ms := make([]models.Measurement, 0, len(t.rows))
	for _, row := range t.rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		ms = append(ms, models.Measurement{
			PlayerID:        t.cell(row, idCol),
			Player:          t.cell(row, playerCol),
			ExitVelocityMPH: t.float(row, evCol),
			LaunchAngleDeg:  t.float(row, laCol),
			SprayAngleDeg:   t.float(row, sprayCol),
			HangTime:        t.float(row, hangCol),
			Handedness:      parseHand(t.cell(row, handCol)),
			Outcome:         t.cell(row, outcomeCol),
			Timestamp:       parseTime(t.cell(row, tsCol)),
		})
	}
	return ms, nil
}

// parseFloat accepts finite numbers only
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseHand(s string) models.Handedness {
	if s == "" {
		return ""
	}
	h, err := models.ParseHandedness(s)
	if err != nil || h == models.HandBoth {
		return ""
	}
	return h
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
