package export

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the sheet name length limit imposed by Excel, in characters
const maxSheetName = 31

const fallbackSheet = "Prices"

var sheetNameReplacer = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// sheetName turns a symbol into a name Excel accepts, or "Prices" when nothing usable is left.
func sheetName(symbol string) string {
	name := sheetNameReplacer.Replace(strings.TrimSpace(symbol))
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	name = strings.Trim(name, "'")
	if name == "" || strings.EqualFold(name, "History") {
		return fallbackSheet
	}
	return name
}

func renderXLSX(symbol string, points []*models.PricePoint) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close xlsx file")
		}
	}()

	sheet := sheetName(symbol)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, p := range points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{p.Date.Format(models.DateLayout), p.Price.InexactFloat64()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "B", 14); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
