package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"placement-engine/models"
)

// WriteCSV writes one row per fielder. Zones without a position get empty
// coordinates. Min-distance results carry the total distance on every row.
func WriteCSV(w io.Writer, res models.PlacementResult) error {
	writer := csv.NewWriter(w)

	header := []string{"Zone", "X", "Y", "Caught", "Total"}
	if res.Mode == models.ModeMinDistance {
		header = append(header, "Total_Distance")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, z := range models.AllZones {
		zr := res.Zone(z)
		row := []string{
			z.String(),
			formatCoord(zr.Position.X, zr.Position.IsValid()),
			formatCoord(zr.Position.Y, zr.Position.IsValid()),
			strconv.Itoa(zr.Caught),
			strconv.Itoa(zr.Total),
		}
		if res.Mode == models.ModeMinDistance {
			row = append(row, strconv.FormatFloat(res.TotalDistance, 'f', 2, 64))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCoord(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
