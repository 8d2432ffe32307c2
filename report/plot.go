package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"placement-engine/models"
)

var zoneColors = [models.NumZones]color.Color{
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{G: 128, B: 0, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

var ballColor = color.RGBA{R: 31, G: 119, B: 180, A: 140}

// RenderPlot draws the batted balls and fielder positions as a PNG. Spray
// chart data (min-distance mode) is drawn on the fixed 300 x 420 ft field;
// converter output (coverage mode) is in meters with automatic axes.
func RenderPlot(balls []models.BattedBall, res models.PlacementResult, title string) ([]byte, error) {
	p := plot.New()
	if title == "" {
		title = "Optimized Outfield Placement"
	}
	p.Title.Text = title
	p.Add(plotter.NewGrid())

	if res.Mode == models.ModeMinDistance {
		bounds := models.DefaultFieldBounds()
		p.X.Label.Text = "Horizontal (ft)"
		p.Y.Label.Text = "Depth (ft)"
		p.X.Min, p.X.Max = bounds.MinX, bounds.MaxX
		p.Y.Min, p.Y.Max = bounds.MinY, bounds.MaxY
	} else {
		p.X.Label.Text = "Horizontal (m)"
		p.Y.Label.Text = "Depth (m)"
	}

	pts := make(plotter.XYs, 0, len(balls))
	for _, b := range balls {
		if b.HasCoordinates() {
			pts = append(pts, plotter.XY{X: b.X, Y: b.Y})
		}
	}
	if len(pts) > 0 {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create ball scatter: %w", err)
		}
		scatter.GlyphStyle.Color = ballColor
		scatter.GlyphStyle.Radius = vg.Points(2)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add("Batted balls", scatter)
	}

	for _, z := range models.AllZones {
		pos := res.Zone(z).Position
		if !pos.IsValid() {
			continue
		}
		xy := plotter.XYs{{X: pos.X, Y: pos.Y}}

		fielder, err := plotter.NewScatter(xy)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s marker: %w", z, err)
		}
		fielder.GlyphStyle.Color = zoneColors[z]
		fielder.GlyphStyle.Radius = vg.Points(6)
		fielder.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(fielder)
		p.Legend.Add(z.String(), fielder)

		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xy, Labels: []string{z.String()}})
		if err != nil {
			return nil, fmt.Errorf("failed to label %s: %w", z, err)
		}
		labels.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(6)}
		p.Add(labels)
	}

	p.Legend.Top = true

	writer, err := p.WriterTo(vg.Points(480), vg.Points(480), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
