package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// sixteenSteadyQuarters covers 2022-03 through 2025-12 so every
// lookback month has a rolling TTM EPS of 4.0 available.
func sixteenSteadyQuarters() (out []string) {
	for year := 2025; year >= 2022; year-- {
		for _, md := range []string{"12-31", "09-30", "06-30", "03-31"} {
			out = append(out, fmt.Sprintf("%d-%s", year, md))
		}
	}
	return out
}

func TestComputeHistoricalPE(t *testing.T) {
	quarters := steadyQuarters(sixteenSteadyQuarters()...)
	prices := []domain.DailyPrice{
		bar("2025-06-30", 48), // 12 months before now
		bar("2025-06-13", 90), // not the month's last trading day
		bar("2024-06-28", 40), // 24 months
		bar("2023-06-30", 60), // 36 months
	}
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	hist := ComputeHistoricalPE(quarters, prices, now)

	require.NotNil(t, hist.PE12M)
	assert.InDelta(t, 12, *hist.PE12M, 1e-9)
	require.NotNil(t, hist.PE24M)
	assert.InDelta(t, 10, *hist.PE24M, 1e-9)
	require.NotNil(t, hist.PE36M)
	assert.InDelta(t, 15, *hist.PE36M, 1e-9)
}

func TestComputeHistoricalPENoPriceInTargetMonth(t *testing.T) {
	quarters := steadyQuarters(sixteenSteadyQuarters()...)
	prices := []domain.DailyPrice{
		bar("2025-06-30", 48),
	}
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	hist := ComputeHistoricalPE(quarters, prices, now)
	assert.NotNil(t, hist.PE12M)
	assert.Nil(t, hist.PE24M)
	assert.Nil(t, hist.PE36M)
}

func TestComputeHistoricalPEEmptyInputs(t *testing.T) {
	hist := ComputeHistoricalPE(nil, nil, time.Now())
	assert.Nil(t, hist.PE12M)
	assert.Nil(t, hist.PE24M)
	assert.Nil(t, hist.PE36M)
	assert.Equal(t, "pe_12m=nil pe_24m=nil pe_36m=nil", hist.String())
}
