package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

func renderCSV(points []*models.PricePoint) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range points {
		if err := w.Write([]string{p.Date.Format(models.DateLayout), p.Price.String()}); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
