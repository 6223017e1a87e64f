// Package export renders a symbol's price series as a downloadable file.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for formats other than csv and xlsx
var ErrUnknownFormat = errors.New("unknown export format")

// File is a rendered export
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var header = []string{"Date", "Price"}

// ParseFormat maps a query value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Render writes points in the given format
func Render(format Format, symbol string, points []*models.PricePoint) (*File, error) {
	switch format {
	case FormatCSV:
		data, err := renderCSV(points)
		if err != nil {
			return nil, err
		}
		return &File{Name: symbol + "_prices.csv", ContentType: "text/csv", Data: data}, nil
	case FormatXLSX:
		data, err := renderXLSX(symbol, points)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        symbol + "_prices.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
