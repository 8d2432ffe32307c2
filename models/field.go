package models

// Bounds is an axis-aligned rectangle in field coordinates
type Bounds struct {
	MinX float64 `json:"min_x" yaml:"min_x"`
	MaxX float64 `json:"max_x" yaml:"max_x"`
	MinY float64 `json:"min_y" yaml:"min_y"`
	MaxY float64 `json:"max_y" yaml:"max_y"`
}

// Contains reports whether (x, y) lies inside the rectangle, edges included
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Center returns the midpoint of the rectangle
func (b Bounds) Center() Position {
	return Position{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// IsEmpty reports whether the rectangle has no area on either axis
func (b Bounds) IsEmpty() bool {
	return !(b.MaxX > b.MinX) || !(b.MaxY > b.MinY)
}

// ZoneGrids holds the candidate search rectangle for each fielder
type ZoneGrids struct {
	LF Bounds `json:"lf" yaml:"lf"`
	CF Bounds `json:"cf" yaml:"cf"`
	RF Bounds `json:"rf" yaml:"rf"`
}

// For returns the rectangle configured for a zone
func (g ZoneGrids) For(zone FieldZone) Bounds {
	switch zone {
	case Left:
		return g.LF
	case Center:
		return g.CF
	default:
		return g.RF
	}
}

// IsOrdered reports whether left sits left of center, center left of right,
// and center plays deeper than both corners
func (g ZoneGrids) IsOrdered() bool {
	lf, cf, rf := g.LF.Center(), g.CF.Center(), g.RF.Center()
	return lf.X < cf.X && cf.X < rf.X && cf.Y > lf.Y && cf.Y > rf.Y
}

// DefaultFieldBounds returns the spray-chart rectangle (feet) that ingested
// coordinates are clipped to
func DefaultFieldBounds() Bounds {
	return Bounds{MinX: 0, MaxX: 300, MinY: 0, MaxY: 420}
}

// DefaultZoneGrids returns the typical outfield search rectangles in
// spray-chart feet
func DefaultZoneGrids() ZoneGrids {
	return ZoneGrids{
		LF: Bounds{MinX: 60, MaxX: 120, MinY: 250, MaxY: 350},
		CF: Bounds{MinX: 120, MaxX: 180, MinY: 300, MaxY: 400},
		RF: Bounds{MinX: 180, MaxX: 240, MinY: 250, MaxY: 350},
	}
}
