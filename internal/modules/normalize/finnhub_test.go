package normalize

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzimm88/StockLensesV2/internal/clients/finnhub"
	"github.com/gzimm88/StockLensesV2/internal/domain"
)

func TestNormalizeShares(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"full count passes through", 1.5e9, ptr(1.5e9)},
		{"millions scaled up", 950.0, ptr(950e6)},
		{"small string scaled up", "1200", ptr(1200e6)},
		{"mid-range ambiguous kept as-is", 5e6, ptr(5e6)},
		{"zero kept as-is", 0.0, ptr(0.0)},
		{"garbage", "n/a", nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeShares(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-3)
		})
	}
}

func TestNormalizeQuarterLabel(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"Q1", "Q1", true},
		{"q3", "Q3", true},
		{"2", "Q2", true},
		{4, "Q4", true},
		{"QUARTER1", "Q1", true},
		{" Q2 ", "Q2", true},
		{"Q5", "Q1", false},
		{"FY", "Q1", false},
		{"", "Q1", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeQuarterLabel(tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %v", tt.in)
	}
}

func ptr(v float64) *float64 { return &v }

// reportedQuarter builds a filing with YTD flow values and a
// point-in-time balance sheet.
func reportedQuarter(year int, quarter string, endDate string, cfoYTD, niYTD float64) finnhub.ReportedRecord {
	return finnhub.ReportedRecord{
		Symbol:  "TEST",
		Year:    year,
		Quarter: quarter,
		EndDate: endDate,
		Report: &finnhub.ReportDetail{
			IC: []finnhub.LineItem{
				{Concept: "us-gaap_NetIncomeLoss", Label: "Net income", Value: niYTD},
				{Concept: "us-gaap_WeightedAverageNumberOfDilutedSharesOutstanding", Label: "Diluted shares", Value: 1000.0},
			},
			BS: []finnhub.LineItem{
				{Concept: "us-gaap_CashAndCashEquivalentsAtCarryingValue", Label: "Cash and cash equivalents", Value: 5000.0},
				{Concept: "custom_TotalAssets", Label: "Total assets", Value: 40000.0},
			},
			CF: []finnhub.LineItem{
				{Concept: "us-gaap_NetCashProvidedByUsedInOperatingActivities", Label: "Operating cash flow", Value: cfoYTD},
			},
		},
	}
}

func TestStatementsYTDDifferencing(t *testing.T) {
	n := NewFinnhubNormalizer(zerolog.Nop())

	quarterly := &finnhub.ReportedFinancials{
		Symbol: "TEST",
		Data: []finnhub.ReportedRecord{
			reportedQuarter(2025, "Q1", "2025-03-31", 100, 50),
			reportedQuarter(2025, "Q2", "2025-06-30", 250, 120),
			reportedQuarter(2025, "Q3", "2025-09-30", 450, 210),
			reportedQuarter(2025, "Q4", "2025-12-31", 700, 320),
		},
	}

	records := n.Statements("TEST", quarterly, nil)
	require.Len(t, records, 4)

	// Newest-first ordering.
	assert.Equal(t, "2025-12-31", records[0].PeriodEnd)
	assert.Equal(t, "2025-03-31", records[3].PeriodEnd)

	// Per-quarter flows from YTD differences: Q1 100, Q2 150, Q3 200, Q4 250.
	require.NotNil(t, records[3].CFO)
	assert.InDelta(t, 100, *records[3].CFO, 1e-9)
	require.NotNil(t, records[2].CFO)
	assert.InDelta(t, 150, *records[2].CFO, 1e-9)
	require.NotNil(t, records[1].CFO)
	assert.InDelta(t, 200, *records[1].CFO, 1e-9)
	require.NotNil(t, records[0].CFO)
	assert.InDelta(t, 250, *records[0].CFO, 1e-9)

	// Net income differenced the same way.
	require.NotNil(t, records[0].NetIncome)
	assert.InDelta(t, 110, *records[0].NetIncome, 1e-9)

	// Balance sheet is point-in-time, never differenced.
	require.NotNil(t, records[0].Cash)
	assert.InDelta(t, 5000, *records[0].Cash, 1e-9)

	// Shares reported in thousands-range get scaled to a raw count.
	require.NotNil(t, records[0].SharesDiluted)
	assert.InDelta(t, 1000e6, *records[0].SharesDiluted, 1e-3)

	for _, r := range records {
		assert.Equal(t, "TEST", r.Ticker)
		assert.Equal(t, "quarterly", r.Freq)
		assert.Equal(t, "finnhub", r.Source)
	}
}

func TestStatementsMissingPriorCumulativeStaysNull(t *testing.T) {
	n := NewFinnhubNormalizer(zerolog.Nop())

	q1 := reportedQuarter(2025, "Q1", "2025-03-31", 0, 50)
	q1.Report.CF = nil // no operating cash flow line in the Q1 filing

	quarterly := &finnhub.ReportedFinancials{
		Symbol: "TEST",
		Data: []finnhub.ReportedRecord{
			q1,
			reportedQuarter(2025, "Q2", "2025-06-30", 250, 120),
			reportedQuarter(2025, "Q3", "2025-09-30", 450, 210),
		},
	}

	records := n.Statements("TEST", quarterly, nil)
	require.Len(t, records, 3)

	// With no Q1 cumulative, Q2's half-year figure must not be passed
	// off as a single quarter.
	q2 := records[1]
	assert.Equal(t, "2025-06-30", q2.PeriodEnd)
	assert.Nil(t, q2.CFO)

	// Q3 differences against Q2's cumulative as usual.
	q3 := records[0]
	require.NotNil(t, q3.CFO)
	assert.InDelta(t, 200, *q3.CFO, 1e-9)

	// Net income is present in every filing and differences normally.
	require.NotNil(t, q2.NetIncome)
	assert.InDelta(t, 70, *q2.NetIncome, 1e-9)
}

func TestStatementsQ4Synthesis(t *testing.T) {
	n := NewFinnhubNormalizer(zerolog.Nop())

	quarterly := &finnhub.ReportedFinancials{
		Symbol: "TEST",
		Data: []finnhub.ReportedRecord{
			reportedQuarter(2025, "Q1", "2025-03-31", 100, 50),
			reportedQuarter(2025, "Q2", "2025-06-30", 250, 120),
			reportedQuarter(2025, "Q3", "2025-09-30", 450, 210),
		},
	}
	annual := &finnhub.ReportedFinancials{
		Symbol: "TEST",
		Data: []finnhub.ReportedRecord{
			{
				Symbol:  "TEST",
				Year:    2025,
				EndDate: "2025-12-31",
				Report: &finnhub.ReportDetail{
					IC: []finnhub.LineItem{
						{Concept: "us-gaap_NetIncomeLoss", Label: "Net income", Value: 320.0},
					},
					CF: []finnhub.LineItem{
						{Concept: "us-gaap_NetCashProvidedByUsedInOperatingActivities", Label: "Operating cash flow", Value: 700.0},
					},
				},
			},
		},
	}

	records := n.Statements("TEST", quarterly, annual)
	require.Len(t, records, 4)

	// The synthesized Q4 reuses Q3's period end, so find it by its
	// annual-minus-YTD flows instead of by position.
	var q4 *domain.StatementRecord
	for i := range records {
		if records[i].CFO != nil && *records[i].CFO == 250 {
			q4 = &records[i]
		}
	}
	require.NotNil(t, q4, "synthesized fourth quarter not found")
	assert.Equal(t, "2025-09-30", q4.PeriodEnd)
	require.NotNil(t, q4.NetIncome)
	assert.InDelta(t, 110, *q4.NetIncome, 1e-9)
}

func TestStatementsNoQ4SynthesisWithoutAnnual(t *testing.T) {
	n := NewFinnhubNormalizer(zerolog.Nop())

	quarterly := &finnhub.ReportedFinancials{
		Symbol: "TEST",
		Data: []finnhub.ReportedRecord{
			reportedQuarter(2025, "Q1", "2025-03-31", 100, 50),
			reportedQuarter(2025, "Q2", "2025-06-30", 250, 120),
			reportedQuarter(2025, "Q3", "2025-09-30", 450, 210),
		},
	}
	records := n.Statements("TEST", quarterly, nil)
	assert.Len(t, records, 3)
}

func TestStatementsSkipsRecordsWithoutReport(t *testing.T) {
	n := NewFinnhubNormalizer(zerolog.Nop())

	quarterly := &finnhub.ReportedFinancials{
		Symbol: "TEST",
		Data: []finnhub.ReportedRecord{
			{Symbol: "TEST", Year: 2025, Quarter: "Q1", EndDate: "2025-03-31"},
			reportedQuarter(2025, "Q2", "2025-06-30", 250, 120),
		},
	}
	records := n.Statements("TEST", quarterly, nil)
	assert.Len(t, records, 1)
}

func TestMatchLineItemPatternPriority(t *testing.T) {
	items := []finnhub.LineItem{
		{Concept: "custom_OperatingCashFlowLabel", Label: "Something about operating cash flow", Value: 1.0},
		{Concept: "us-gaap_NetCashProvidedByUsedInOperatingActivities", Label: "CFO", Value: 2.0},
	}
	got := matchLineItem(items, fieldCFO)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, *got, 1e-9, "the US-GAAP tag outranks a generic label match")
}

func TestMatchLineItemExcludePattern(t *testing.T) {
	items := []finnhub.LineItem{
		{Concept: "custom_LongTermDebtCurrent", Label: "Long term debt, current portion", Value: 100.0},
	}
	assert.Nil(t, matchLineItem(items, fieldLongDebt))

	items = append(items, finnhub.LineItem{
		Concept: "us-gaap_LongTermDebtNoncurrent", Label: "Long term debt", Value: 900.0,
	})
	got := matchLineItem(items, fieldLongDebt)
	require.NotNil(t, got)
	assert.InDelta(t, 900.0, *got, 1e-9)
}
