package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChartSeries(t *testing.T) {
	points := []*PricePoint{
		{Symbol: "AAPL", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Price: decimal.RequireFromString("185.64")},
		{Symbol: "AAPL", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Price: decimal.RequireFromString("184.2500")},
	}

	series := NewChartSeries(points)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, series.Dates)
	assert.Equal(t, []float64{185.64, 184.25}, series.Prices)
}

func TestNewChartSeriesEmptyEncodesArrays(t *testing.T) {
	data, err := json.Marshal(NewChartSeries(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dates":[],"prices":[]}`, string(data))
}
