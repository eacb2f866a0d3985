package normalize

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzimm88/StockLensesV2/internal/clients/yahoo"
	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// rv builds a RawValue the way the API delivers it, through JSON.
func rv(v float64) *yahoo.RawValue {
	var r yahoo.RawValue
	if err := r.UnmarshalJSON([]byte(strconv.FormatFloat(v, 'f', -1, 64))); err != nil {
		panic(err)
	}
	return &r
}

func rvDate(date string) *yahoo.RawValue {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return rv(float64(t.Unix()))
}

func unixDay(date string) int64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t.Unix()
}

func TestPricesDropsIncompleteRows(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	chart := &yahoo.ChartResult{
		Timestamp: []int64{
			unixDay("2025-01-02"),
			unixDay("2025-01-03"),
			unixDay("2025-01-06"),
		},
	}
	chart.Indicators.Quote = []yahoo.QuoteIndicators{{
		Open:   []*float64{ptr(99), ptr(101), ptr(102)},
		High:   []*float64{ptr(102), nil, ptr(104)},
		Low:    []*float64{ptr(98), ptr(100), ptr(101)},
		Close:  []*float64{ptr(100), nil, ptr(103)},
		Volume: []*float64{ptr(5000), ptr(6000), ptr(7000)},
	}}
	chart.Indicators.AdjClose = []yahoo.AdjCloseIndicators{{
		AdjClose: []*float64{ptr(99.5), ptr(101.5), nil},
	}}

	prices := n.Prices("TEST", chart)
	require.Len(t, prices, 1)

	p := prices[0]
	assert.Equal(t, "TEST", p.Ticker)
	assert.Equal(t, "2025-01-02", p.Date)
	assert.Equal(t, 100.0, p.Close)
	assert.Equal(t, 99.5, p.CloseAdj)
	require.NotNil(t, p.Open)
	assert.Equal(t, 99.0, *p.Open)
	require.NotNil(t, p.Volume)
	assert.Equal(t, 5000.0, *p.Volume)
	assert.Equal(t, domain.SourceYahoo, p.Source)
}

func TestPricesEmptyChart(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	assert.Nil(t, n.Prices("TEST", nil))
	assert.Nil(t, n.Prices("TEST", &yahoo.ChartResult{}))
}

func TestQuarterlyStatementsMergeByPeriodEnd(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	summary := &yahoo.QuoteSummaryResult{
		IncomeStatementHistoryQuarterly: &yahoo.IncomeStatementHistory{
			IncomeStatementHistory: []yahoo.IncomeStatement{
				{
					EndDate:      rvDate("2025-06-30"),
					TotalRevenue: rv(2500),
					NetIncome:    rv(400),
					EBIT:         rv(500),
				},
				{
					EndDate:         rvDate("2025-03-31"),
					TotalRevenue:    rv(2400),
					NetIncome:       rv(380),
					InterestExpense: rv(-50),
				},
			},
		},
		CashflowStatementHistoryQuarterly: &yahoo.CashflowStatementHistory{
			CashflowStatements: []yahoo.CashflowStatement{
				{
					EndDate:                          rvDate("2025-06-30"),
					TotalCashFromOperatingActivities: rv(500),
					CapitalExpenditures:              rv(-100),
					InterestPaid:                     rv(-40),
					StockBasedCompensation:           rv(30),
				},
			},
		},
		BalanceSheetHistoryQuarterly: &yahoo.BalanceSheetHistory{
			BalanceSheetStatements: []yahoo.BalanceSheetStatement{
				{
					EndDate:           rvDate("2025-06-30"),
					Cash:              rv(1000),
					ShortLongTermDebt: rv(200),
					LongTermDebt:      rv(800),
				},
				{
					EndDate:      rvDate("2025-03-31"),
					LongTermDebt: rv(700),
				},
			},
		},
	}

	records := n.QuarterlyStatements("TEST", summary)
	require.Len(t, records, 2)

	// Newest first, merged across the three statement modules.
	q1 := records[0]
	assert.Equal(t, "2025-06-30", q1.PeriodEnd)
	assert.Equal(t, domain.FreqQuarterly, q1.Freq)
	assert.Equal(t, domain.SourceYahoo, q1.Source)
	require.NotNil(t, q1.Revenue)
	assert.Equal(t, 2500.0, *q1.Revenue)
	require.NotNil(t, q1.FCF)
	assert.Equal(t, 400.0, *q1.FCF)
	require.NotNil(t, q1.TotalDebt)
	assert.Equal(t, 1000.0, *q1.TotalDebt)
	// interestPaid stands in when the income statement has no
	// interest expense, always as a positive magnitude.
	require.NotNil(t, q1.InterestExpense)
	assert.Equal(t, 40.0, *q1.InterestExpense)
	// Stock comp falls back to the cashflow statement.
	require.NotNil(t, q1.StockBasedCompensation)
	assert.Equal(t, 30.0, *q1.StockBasedCompensation)

	q2 := records[1]
	assert.Equal(t, "2025-03-31", q2.PeriodEnd)
	require.NotNil(t, q2.InterestExpense)
	assert.Equal(t, 50.0, *q2.InterestExpense)
	assert.Nil(t, q2.CFO)
	assert.Nil(t, q2.FCF)
	require.NotNil(t, q2.TotalDebt)
	assert.Equal(t, 700.0, *q2.TotalDebt)
}

func TestAnnualStatements(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	summary := &yahoo.QuoteSummaryResult{
		IncomeStatementHistory: &yahoo.IncomeStatementHistory{
			IncomeStatementHistory: []yahoo.IncomeStatement{
				{EndDate: rvDate("2024-12-31"), TotalRevenue: rv(10000)},
			},
		},
	}

	records := n.AnnualStatements("TEST", summary)
	require.Len(t, records, 1)
	assert.Equal(t, domain.FreqAnnual, records[0].Freq)
	assert.Equal(t, "2024-12-31", records[0].PeriodEnd)
	require.NotNil(t, records[0].Revenue)
	assert.Equal(t, 10000.0, *records[0].Revenue)
}

// yahooQuarter builds one merged quarterly record with uniform flows so
// the four-quarter sums come out to simple round numbers.
func yahooQuarter(periodEnd string) domain.StatementRecord {
	return domain.StatementRecord{
		Ticker:                 "TEST",
		PeriodEnd:              periodEnd,
		Freq:                   domain.FreqQuarterly,
		Source:                 domain.SourceYahoo,
		Revenue:                ptr(2500),
		NetIncome:              ptr(400),
		EBIT:                   ptr(500),
		InterestExpense:        ptr(50),
		Depreciation:           ptr(100),
		StockBasedCompensation: ptr(25),
		CFO:                    ptr(800),
		Capex:                  ptr(-200),
		Cash:                   ptr(1000),
		TotalDebt:              ptr(3000),
		StockholderEquity:      ptr(5000),
		TotalAssets:            ptr(20000),
	}
}

func quotedSummary() *yahoo.QuoteSummaryResult {
	return &yahoo.QuoteSummaryResult{
		Price: &yahoo.PriceModule{
			RegularMarketPrice: rv(50),
			MarketCap:          rv(40000),
		},
		SummaryDetail: &yahoo.SummaryDetail{
			TrailingPE: rv(22),
			ForwardPE:  rv(18),
		},
		DefaultKeyStatistics: &yahoo.KeyStatistics{
			SharesOutstanding:   rv(800),
			ForwardEPS:          rv(2.5),
			Beta:                rv(1.1),
			PegRatio:            rv(1.8),
			EnterpriseValue:     rv(48000),
			EnterpriseToEbitda:  rv(99),
			HeldPercentInsiders: rv(0.05),
		},
	}
}

func TestMetricsPayload(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	quarterly := []domain.StatementRecord{
		yahooQuarter("2025-06-30"),
		yahooQuarter("2025-03-31"),
		yahooQuarter("2024-12-31"),
		yahooQuarter("2024-09-30"),
	}
	annual := []domain.StatementRecord{
		{PeriodEnd: "2024-12-31", Revenue: ptr(1331), EPSDiluted: ptr(1.728), SharesDiluted: ptr(940)},
		{PeriodEnd: "2023-12-31", Revenue: ptr(1210), EPSDiluted: ptr(1.44), SharesDiluted: ptr(960)},
		{PeriodEnd: "2022-12-31", Revenue: ptr(1100), EPSDiluted: ptr(1.2), SharesDiluted: ptr(980)},
		{PeriodEnd: "2021-12-31", Revenue: ptr(1000), EPSDiluted: ptr(1.0), SharesDiluted: ptr(1000)},
	}

	m := n.MetricsPayload("TEST", quotedSummary(), quarterly, annual)
	require.NotNil(t, m)
	assert.Equal(t, "TEST", m.TickerSymbol)
	assert.Equal(t, "yahoo:multi_source_v1", m.DataSource)

	// TTM flow aggregates
	require.NotNil(t, m.RevenueTTM)
	assert.Equal(t, 10000.0, *m.RevenueTTM)
	require.NotNil(t, m.NetIncomeTTM)
	assert.Equal(t, 1600.0, *m.NetIncomeTTM)
	require.NotNil(t, m.EBITDATTM)
	assert.Equal(t, 2400.0, *m.EBITDATTM)
	require.NotNil(t, m.FCFTTM)
	assert.Equal(t, 2400.0, *m.FCFTTM)

	// Latest-quarter balance snapshot
	require.NotNil(t, m.Cash)
	assert.Equal(t, 1000.0, *m.Cash)
	require.NotNil(t, m.TotalAssets)
	assert.Equal(t, 20000.0, *m.TotalAssets)

	// Quoted fields
	require.NotNil(t, m.PriceCurrent)
	assert.Equal(t, 50.0, *m.PriceCurrent)
	require.NotNil(t, m.PEFwd)
	assert.Equal(t, 18.0, *m.PEFwd)
	require.NotNil(t, m.PETTM)
	assert.Equal(t, 22.0, *m.PETTM)
	require.NotNil(t, m.EPSForward)
	assert.Equal(t, 2.5, *m.EPSForward)
	require.NotNil(t, m.Beta5Y)
	assert.Equal(t, 1.1, *m.Beta5Y)
	require.NotNil(t, m.InsiderOwnPct)
	assert.InDelta(t, 5.0, *m.InsiderOwnPct, 1e-9)

	// EV over our own TTM EBITDA beats the quoted ratio.
	require.NotNil(t, m.EVEBITDA)
	assert.InDelta(t, 20.0, *m.EVEBITDA, 1e-9)

	// NOPAT at the implied 20% tax over equity+debt-cash.
	require.NotNil(t, m.ROICPct)
	assert.InDelta(t, 1600.0*100/7000, *m.ROICPct, 1e-9)

	require.NotNil(t, m.FCFMarginPct)
	assert.InDelta(t, 24.0, *m.FCFMarginPct, 1e-9)
	require.NotNil(t, m.CFOToNI)
	assert.InDelta(t, 2.0, *m.CFOToNI, 1e-9)
	require.NotNil(t, m.FCFToEBIT)
	assert.InDelta(t, 1.2, *m.FCFToEBIT, 1e-9)
	require.NotNil(t, m.AccrualsRatio)
	assert.InDelta(t, -0.08, *m.AccrualsRatio, 1e-9)
	require.NotNil(t, m.InterestCovX)
	assert.InDelta(t, 10.0, *m.InterestCovX, 1e-9)
	require.NotNil(t, m.DebtToEquity)
	assert.InDelta(t, 0.6, *m.DebtToEquity, 1e-9)
	require.NotNil(t, m.NetDebtToEBITDA)
	assert.InDelta(t, 2000.0/2400, *m.NetDebtToEBITDA, 1e-9)
	require.NotNil(t, m.NetCashToMktCapPct)
	assert.InDelta(t, -5.0, *m.NetCashToMktCapPct, 1e-9)
	require.NotNil(t, m.FCFYieldPct)
	assert.InDelta(t, 6.0, *m.FCFYieldPct, 1e-9)
	require.NotNil(t, m.SBCToSalesPct)
	assert.InDelta(t, 1.0, *m.SBCToSalesPct, 1e-9)

	// Four annual points cover the 3Y rates but not the 5Y ones.
	require.NotNil(t, m.EPSCagr3YPct)
	assert.InDelta(t, 20.0, *m.EPSCagr3YPct, 1e-6)
	require.NotNil(t, m.RevenueCagr3YPct)
	assert.InDelta(t, 10.0, *m.RevenueCagr3YPct, 1e-6)
	assert.Nil(t, m.EPSCagr5YPct)
	assert.Nil(t, m.RevenueCagr5YPct)

	// Shrinking share count reads as a positive change (buybacks).
	require.NotNil(t, m.ShareChange5YPct)
	assert.InDelta(t, -(math.Pow(940.0/1000, 1.0/3)-1)*100, *m.ShareChange5YPct, 1e-9)
	require.NotNil(t, m.BuybackYieldPct)
	assert.InDelta(t, (960.0-940)/960*100, *m.BuybackYieldPct, 1e-9)
}

func TestMetricsPayloadEVEBITDAFallback(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	// Under four quarters there is no TTM EBITDA, so the quoted ratio
	// is used as-is.
	quarterly := []domain.StatementRecord{yahooQuarter("2025-06-30")}

	m := n.MetricsPayload("TEST", quotedSummary(), quarterly, nil)
	assert.Nil(t, m.EBITDATTM)
	require.NotNil(t, m.EVEBITDA)
	assert.Equal(t, 99.0, *m.EVEBITDA)
}

func TestMetricsPayloadFinancialDataFallbacks(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	// Statements carry no revenue and the latest quarter has no
	// debt/equity, so the aggregate module fills both gaps.
	quarterly := make([]domain.StatementRecord, 4)
	for i, pe := range []string{"2025-06-30", "2025-03-31", "2024-12-31", "2024-09-30"} {
		q := yahooQuarter(pe)
		q.Revenue = nil
		quarterly[i] = q
	}
	quarterly[0].TotalDebt = nil
	quarterly[0].StockholderEquity = nil

	summary := quotedSummary()
	summary.FinancialData = &yahoo.FinancialData{
		TotalRevenue: rv(9000),
		DebtToEquity: rv(54.6),
	}

	m := n.MetricsPayload("TEST", summary, quarterly, nil)

	// The TTM column itself stays null; only the ratio denominators
	// use the fallback.
	assert.Nil(t, m.RevenueTTM)
	require.NotNil(t, m.FCFMarginPct)
	assert.InDelta(t, 2400.0*100/9000, *m.FCFMarginPct, 1e-9)
	require.NotNil(t, m.SBCToSalesPct)
	assert.InDelta(t, 100.0*100/9000, *m.SBCToSalesPct, 1e-9)

	// Large quoted debt/equity is a percentage; normalize to a ratio.
	require.NotNil(t, m.DebtToEquity)
	assert.InDelta(t, 0.546, *m.DebtToEquity, 1e-9)

	// Small quoted values are already ratios.
	summary.FinancialData.DebtToEquity = rv(0.8)
	m = n.MetricsPayload("TEST", summary, quarterly, nil)
	require.NotNil(t, m.DebtToEquity)
	assert.InDelta(t, 0.8, *m.DebtToEquity, 1e-9)

	// Balance-sheet figures still win when present.
	m = n.MetricsPayload("TEST", summary, []domain.StatementRecord{yahooQuarter("2025-06-30")}, nil)
	require.NotNil(t, m.DebtToEquity)
	assert.InDelta(t, 0.6, *m.DebtToEquity, 1e-9)
}

func TestMetricsPayloadSparseSummary(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	m := n.MetricsPayload("TEST", &yahoo.QuoteSummaryResult{}, nil, nil)
	require.NotNil(t, m)
	assert.Nil(t, m.RevenueTTM)
	assert.Nil(t, m.PriceCurrent)
	assert.Nil(t, m.EVEBITDA)
	assert.Nil(t, m.ROICPct)
}

func TestEndpointCAGR(t *testing.T) {
	tests := []struct {
		name                  string
		latest, oldest, years float64
		want                  *float64
	}{
		{"doubling over five years", 200, 100, 5, ptr(14.86983549970351)},
		{"flat", 100, 100, 3, ptr(0)},
		{"negative latest", -10, 100, 3, nil},
		{"zero oldest", 100, 0, 3, nil},
		{"zero years", 100, 50, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := endpointCAGR(tt.latest, tt.oldest, tt.years)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestAnnualGrowthFiveYearRates(t *testing.T) {
	n := NewYahooNormalizer(zerolog.Nop())

	// Six annual points unlock the 5Y columns.
	annual := make([]domain.StatementRecord, 6)
	for i := range annual {
		k := float64(5 - i)
		annual[i] = domain.StatementRecord{
			Revenue:       ptr(1000 * math.Pow(1.1, k)),
			EPSDiluted:    ptr(math.Pow(1.2, k)),
			SharesDiluted: ptr(1000 * math.Pow(0.98, k)),
		}
	}

	m := &domain.Metrics{}
	n.annualGrowth(m, annual)

	require.NotNil(t, m.RevenueCagr5YPct)
	assert.InDelta(t, 10.0, *m.RevenueCagr5YPct, 1e-6)
	require.NotNil(t, m.EPSCagr5YPct)
	assert.InDelta(t, 20.0, *m.EPSCagr5YPct, 1e-6)
}
