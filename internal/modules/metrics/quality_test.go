package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

func TestComputeQualityMetrics(t *testing.T) {
	quarters := fourQuarters()
	ttm, _ := BuildTTM(quarters)

	q := ComputeQualityMetrics(ttm, quarters)

	// CFO = NI + 500 per quarter, so TTM CFO = 10800 + 2000.
	require.NotNil(t, q.CFOToNI)
	assert.InDelta(t, 12800.0/10800.0, *q.CFOToNI, 1e-9)

	// FCF = 12800 - 1600, revenue 40000.
	require.NotNil(t, q.FCFMarginPct)
	assert.InDelta(t, 100*11200.0/40000.0, *q.FCFMarginPct, 1e-9)

	require.NotNil(t, q.FCFToEBIT)
	assert.InDelta(t, 11200.0/12000.0, *q.FCFToEBIT, 1e-9)

	// Accruals = (10800 - 12800) / 40000 with flat assets.
	require.NotNil(t, q.AccrualsRatio)
	assert.InDelta(t, -2000.0/40000.0, *q.AccrualsRatio, 1e-9)

	require.NotNil(t, q.MarginStdev5Pct)
	assert.Greater(t, *q.MarginStdev5Pct, 0.0)
}

func TestComputeQualityMetricsMissingAssets(t *testing.T) {
	quarters := fourQuarters()
	quarters[3].TotalAssets = nil

	ttm, _ := BuildTTM(quarters)
	q := ComputeQualityMetrics(ttm, quarters)
	assert.Nil(t, q.AccrualsRatio)
}

func TestComputeCapitalAllocationMetrics(t *testing.T) {
	quarters := fourQuarters()
	ttm, balance := BuildTTM(quarters)

	annual := []domain.StatementRecord{
		{Ticker: "TEST", PeriodEnd: "2025-12-31", Freq: domain.FreqAnnual, SharesDiluted: formulas.Ptr(980)},
		{Ticker: "TEST", PeriodEnd: "2024-12-31", Freq: domain.FreqAnnual, SharesDiluted: formulas.Ptr(1000)},
	}

	c := ComputeCapitalAllocationMetrics(ttm, balance, annual)

	// ROIC = 100 * (10800 + 200) / (8000 + 20000)
	require.NotNil(t, c.ROICPct)
	assert.InDelta(t, 100*11000.0/28000.0, *c.ROICPct, 1e-9)

	require.NotNil(t, c.DebtToEquity)
	assert.InDelta(t, 0.4, *c.DebtToEquity, 1e-9)

	// Net debt 3000 over EBITDA 12800.
	require.NotNil(t, c.NetDebtToEBITDA)
	assert.InDelta(t, 3000.0/12800.0, *c.NetDebtToEBITDA, 1e-9)

	// EBIT 12000 over interest 200.
	require.NotNil(t, c.InterestCovX)
	assert.InDelta(t, 60, *c.InterestCovX, 1e-9)

	require.NotNil(t, c.SBCToSalesPct)
	assert.InDelta(t, 1, *c.SBCToSalesPct, 1e-9)

	// Share count fell from 1000 to 980.
	require.NotNil(t, c.BuybackYieldPct)
	assert.InDelta(t, 2, *c.BuybackYieldPct, 1e-9)
}

func TestComputeCapitalAllocationMetricsDilution(t *testing.T) {
	quarters := fourQuarters()
	ttm, balance := BuildTTM(quarters)

	annual := []domain.StatementRecord{
		{Ticker: "TEST", PeriodEnd: "2025-12-31", Freq: domain.FreqAnnual, SharesDiluted: formulas.Ptr(1050)},
		{Ticker: "TEST", PeriodEnd: "2024-12-31", Freq: domain.FreqAnnual, SharesDiluted: formulas.Ptr(1000)},
	}
	c := ComputeCapitalAllocationMetrics(ttm, balance, annual)
	require.NotNil(t, c.BuybackYieldPct)
	assert.InDelta(t, -5, *c.BuybackYieldPct, 1e-9)
}
