package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// weeklySeries builds one bar per week for the given number of weeks,
// with prices oscillating around 100 so weekly returns have nonzero
// variance.
func weeklySeries(weeks int, scale float64) []domain.DailyPrice {
	start := time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC) // a Friday
	out := make([]domain.DailyPrice, 0, weeks)
	for i := 0; i < weeks; i++ {
		price := 100 + scale*math.Sin(float64(i)/3)
		d := start.AddDate(0, 0, 7*i).Format("2006-01-02")
		out = append(out, domain.DailyPrice{
			Ticker:   "TEST",
			Date:     d,
			Close:    price,
			CloseAdj: price,
		})
	}
	return out
}

func TestComputeRiskMetricsMaxDrawdown(t *testing.T) {
	prices := []domain.DailyPrice{
		{Date: "2025-01-02", Close: 100, CloseAdj: 100},
		{Date: "2025-01-03", Close: 120, CloseAdj: 120},
		{Date: "2025-01-06", Close: 90, CloseAdj: 90},
		{Date: "2025-01-07", Close: 110, CloseAdj: 110},
	}
	rm := ComputeRiskMetrics(prices, nil)
	require.NotNil(t, rm.MaxDrawdown5YPct)
	assert.InDelta(t, 25, *rm.MaxDrawdown5YPct, 1e-9)
	assert.Nil(t, rm.Beta5Y)
}

func TestComputeRiskMetricsBetaOfIdenticalSeries(t *testing.T) {
	series := weeklySeries(120, 10)
	rm := ComputeRiskMetrics(series, series)
	require.NotNil(t, rm.Beta5Y)
	assert.InDelta(t, 1.0, *rm.Beta5Y, 1e-6)
}

func TestComputeRiskMetricsBetaInsufficientOverlap(t *testing.T) {
	rm := ComputeRiskMetrics(weeklySeries(50, 10), weeklySeries(50, 5))
	assert.Nil(t, rm.Beta5Y, "fewer than 104 aligned weekly returns yields no beta")
}

func TestWeekEndLogReturnsUsesLastTradingDay(t *testing.T) {
	prices := []domain.DailyPrice{
		{Date: "2025-01-06", Close: 100, CloseAdj: 100}, // Mon, week 2
		{Date: "2025-01-10", Close: 110, CloseAdj: 110}, // Fri, week 2
		{Date: "2025-01-17", Close: 121, CloseAdj: 121}, // Fri, week 3
	}
	returns := weekEndLogReturns(prices)
	require.Len(t, returns, 1)
	assert.Equal(t, "2025-01-17", returns[0].date)
	assert.InDelta(t, math.Log(1.1), returns[0].ret, 1e-9)
}
