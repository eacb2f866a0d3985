package metrics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// fourQuarters builds a newest-first quarterly fixture with full flow
// coverage.
func fourQuarters() []domain.StatementRecord {
	ni := []float64{3000, 2800, 2600, 2400}
	shares := []float64{1000, 1000, 1010, 1010}
	ends := []string{"2025-12-31", "2025-09-30", "2025-06-30", "2025-03-31"}

	out := make([]domain.StatementRecord, 4)
	for i := range out {
		out[i] = domain.StatementRecord{
			Ticker:                 "TEST",
			PeriodEnd:              ends[i],
			Freq:                   domain.FreqQuarterly,
			Revenue:                formulas.Ptr(10000),
			NetIncome:              formulas.Ptr(ni[i]),
			CFO:                    formulas.Ptr(ni[i] + 500),
			Capex:                  formulas.Ptr(-400),
			EBIT:                   formulas.Ptr(ni[i] + 300),
			InterestExpense:        formulas.Ptr(50),
			Depreciation:           formulas.Ptr(200),
			StockBasedCompensation: formulas.Ptr(100),
			SharesDiluted:          formulas.Ptr(shares[i]),
			Cash:                   formulas.Ptr(5000),
			TotalDebt:              formulas.Ptr(8000),
			StockholderEquity:      formulas.Ptr(20000),
			TotalAssets:            formulas.Ptr(40000),
		}
	}
	return out
}

func TestBuildTTM(t *testing.T) {
	quarters := fourQuarters()
	ttm, balance := BuildTTM(quarters)

	require.NotNil(t, ttm.NetIncome)
	assert.InDelta(t, 10800, *ttm.NetIncome, 1e-9)
	require.NotNil(t, ttm.Revenue)
	assert.InDelta(t, 40000, *ttm.Revenue, 1e-9)
	require.NotNil(t, ttm.SharesDilutedAvg)
	assert.InDelta(t, 1005, *ttm.SharesDilutedAvg, 1e-9)
	require.NotNil(t, ttm.Capex)
	assert.InDelta(t, -1600, *ttm.Capex, 1e-9)

	// Balance snapshot is point-in-time from the newest quarter.
	require.NotNil(t, balance.Cash)
	assert.InDelta(t, 5000, *balance.Cash, 1e-9)
	require.NotNil(t, balance.SharesOutstanding)
	assert.InDelta(t, 1000, *balance.SharesOutstanding, 1e-9)
}

func TestBuildTTMMissingQuarterField(t *testing.T) {
	quarters := fourQuarters()
	quarters[2].NetIncome = nil

	ttm, _ := BuildTTM(quarters)
	assert.Nil(t, ttm.NetIncome, "a partial sum must never be produced")
	assert.NotNil(t, ttm.Revenue, "unaffected fields still aggregate")
}

func TestBuildTTMFewerThanFourQuarters(t *testing.T) {
	quarters := fourQuarters()[:3]
	ttm, balance := BuildTTM(quarters)

	assert.Nil(t, ttm.NetIncome)
	assert.Nil(t, ttm.Revenue)
	assert.Nil(t, ttm.SharesDilutedAvg)
	assert.NotNil(t, balance.Cash, "balance snapshot comes from the newest quarter regardless")
}

func TestBuildTTMUsesOnlyNewestFour(t *testing.T) {
	quarters := fourQuarters()
	extra := fourQuarters()[3]
	extra.PeriodEnd = "2024-12-31"
	extra.NetIncome = formulas.Ptr(999999)
	quarters = append(quarters, extra)

	ttm, _ := BuildTTM(quarters)
	require.NotNil(t, ttm.NetIncome)
	assert.InDelta(t, 10800, *ttm.NetIncome, 1e-9)
}

func TestFreeCashFlow(t *testing.T) {
	tests := []struct {
		cfo, capex *float64
		want       *float64
	}{
		{formulas.Ptr(1000), formulas.Ptr(-300), formulas.Ptr(700)},
		{formulas.Ptr(1000), formulas.Ptr(300), formulas.Ptr(700)},
		{nil, formulas.Ptr(300), nil},
		{formulas.Ptr(1000), nil, nil},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			got := FreeCashFlow(tt.cfo, tt.capex)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestEPSTTM(t *testing.T) {
	got := EPSTTM(formulas.Ptr(10800), formulas.Ptr(1005))
	require.NotNil(t, got)
	assert.InDelta(t, 10800.0/1005.0, *got, 1e-9)

	assert.Nil(t, EPSTTM(nil, formulas.Ptr(1005)))
	assert.Nil(t, EPSTTM(formulas.Ptr(10800), formulas.Ptr(0)))
	assert.Nil(t, EPSTTM(formulas.Ptr(10800), formulas.Ptr(-5)))
}

func TestEBITDA(t *testing.T) {
	got := EBITDA(formulas.Ptr(1200), formulas.Ptr(300))
	require.NotNil(t, got)
	assert.InDelta(t, 1500, *got, 1e-9)
	assert.Nil(t, EBITDA(nil, formulas.Ptr(300)))
	assert.Nil(t, EBITDA(formulas.Ptr(1200), nil))
}
