package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FieldZone identifies one of the three outfield regions
type FieldZone int

const (
	Left FieldZone = iota
	Center
	Right
)

// NumZones is the number of outfield zones (and fielders)
const NumZones = 3

// AllZones lists the zones in canonical enumeration order: LF, CF, RF
var AllZones = [NumZones]FieldZone{Left, Center, Right}

func (z FieldZone) String() string {
	switch z {
	case Left:
		return "LF"
	case Center:
		return "CF"
	case Right:
		return "RF"
	default:
		return fmt.Sprintf("FieldZone(%d)", int(z))
	}
}

// ParseFieldZone accepts LF/CF/RF as well as LEFT/CENTER/RIGHT, case-insensitive
func ParseFieldZone(s string) (FieldZone, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LF", "LEFT":
		return Left, nil
	case "CF", "CENTER":
		return Center, nil
	case "RF", "RIGHT":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown field zone %q", s)
	}
}

func (z FieldZone) MarshalText() ([]byte, error) {
	if z < Left || z > Right {
		return nil, fmt.Errorf("invalid field zone %d", int(z))
	}
	return []byte(z.String()), nil
}

func (z *FieldZone) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldZone(string(text))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}

// Position is a planar field coordinate. A position with a NaN component means
// "no solution" and is encoded as JSON null.
type Position struct {
	X float64
	Y float64
}

// NoPosition returns the (NaN, NaN) position used for empty zones
func NoPosition() Position {
	return Position{X: math.NaN(), Y: math.NaN()}
}

// IsValid reports whether both coordinates are finite numbers
func (p Position) IsValid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Distance returns the Euclidean distance between two positions
func (p Position) Distance(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(positionJSON{X: p.X, Y: p.Y})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NoPosition()
		return nil
	}
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Position{X: raw.X, Y: raw.Y}
	return nil
}

func (p Position) String() string {
	if !p.IsValid() {
		return "(NaN, NaN)"
	}
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}
