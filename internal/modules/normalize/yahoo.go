package normalize

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/clients/yahoo"
	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// YahooNormalizer converts chart and quoteSummary payloads into
// canonical price and statement records.
type YahooNormalizer struct {
	log zerolog.Logger
}

// NewYahooNormalizer creates a Yahoo normalizer.
func NewYahooNormalizer(log zerolog.Logger) *YahooNormalizer {
	return &YahooNormalizer{
		log: log.With().Str("component", "yahoo_normalizer").Logger(),
	}
}

// Prices converts a chart result into daily price rows.
//
// close is split-adjusted only; close_adj is dividend-and-split
// adjusted. Rows missing the date, close or close_adj are dropped.
func (n *YahooNormalizer) Prices(ticker string, chart *yahoo.ChartResult) []domain.DailyPrice {
	if chart == nil || len(chart.Timestamp) == 0 {
		return nil
	}

	var quote yahoo.QuoteIndicators
	if len(chart.Indicators.Quote) > 0 {
		quote = chart.Indicators.Quote[0]
	}
	var adjCloses []*float64
	if len(chart.Indicators.AdjClose) > 0 {
		adjCloses = chart.Indicators.AdjClose[0].AdjClose
	}

	at := func(arr []*float64, i int) *float64 {
		if i >= len(arr) || arr[i] == nil || !formulas.IsFinite(*arr[i]) {
			return nil
		}
		return arr[i]
	}

	asOf := time.Now().UTC().Format("2006-01-02")
	out := make([]domain.DailyPrice, 0, len(chart.Timestamp))

	for i, ts := range chart.Timestamp {
		date := time.Unix(ts, 0).UTC().Format("2006-01-02")
		closeV := at(quote.Close, i)
		closeAdj := at(adjCloses, i)
		if closeV == nil || closeAdj == nil {
			continue
		}
		out = append(out, domain.DailyPrice{
			Ticker:   ticker,
			Date:     date,
			Open:     at(quote.Open, i),
			High:     at(quote.High, i),
			Low:      at(quote.Low, i),
			Close:    *closeV,
			CloseAdj: *closeAdj,
			Volume:   at(quote.Volume, i),
			Source:   domain.SourceYahoo,
			AsOfDate: asOf,
		})
	}

	n.log.Debug().
		Str("ticker", ticker).
		Int("valid", len(out)).
		Int("total", len(chart.Timestamp)).
		Msg("Normalized price points")

	return out
}

// QuarterlyStatements merges the three quarterly statement histories on
// period end date into canonical records, newest first.
func (n *YahooNormalizer) QuarterlyStatements(ticker string, summary *yahoo.QuoteSummaryResult) []domain.StatementRecord {
	var inc []yahoo.IncomeStatement
	var cfs []yahoo.CashflowStatement
	var bss []yahoo.BalanceSheetStatement
	if summary.IncomeStatementHistoryQuarterly != nil {
		inc = summary.IncomeStatementHistoryQuarterly.IncomeStatementHistory
	}
	if summary.CashflowStatementHistoryQuarterly != nil {
		cfs = summary.CashflowStatementHistoryQuarterly.CashflowStatements
	}
	if summary.BalanceSheetHistoryQuarterly != nil {
		bss = summary.BalanceSheetHistoryQuarterly.BalanceSheetStatements
	}
	return n.mergeStatements(ticker, domain.FreqQuarterly, inc, cfs, bss)
}

// AnnualStatements merges the three annual statement histories on
// period end date into canonical records, newest first.
func (n *YahooNormalizer) AnnualStatements(ticker string, summary *yahoo.QuoteSummaryResult) []domain.StatementRecord {
	var inc []yahoo.IncomeStatement
	var cfs []yahoo.CashflowStatement
	var bss []yahoo.BalanceSheetStatement
	if summary.IncomeStatementHistory != nil {
		inc = summary.IncomeStatementHistory.IncomeStatementHistory
	}
	if summary.CashflowStatementHistory != nil {
		cfs = summary.CashflowStatementHistory.CashflowStatements
	}
	if summary.BalanceSheetHistory != nil {
		bss = summary.BalanceSheetHistory.BalanceSheetStatements
	}
	return n.mergeStatements(ticker, domain.FreqAnnual, inc, cfs, bss)
}

func (n *YahooNormalizer) mergeStatements(
	ticker, freq string,
	inc []yahoo.IncomeStatement,
	cfs []yahoo.CashflowStatement,
	bss []yahoo.BalanceSheetStatement,
) []domain.StatementRecord {
	dateSet := map[string]bool{}
	for _, s := range inc {
		if d := s.EndDate.ISODate(); d != "" {
			dateSet[d] = true
		}
	}
	for _, s := range cfs {
		if d := s.EndDate.ISODate(); d != "" {
			dateSet[d] = true
		}
	}
	for _, s := range bss {
		if d := s.EndDate.ISODate(); d != "" {
			dateSet[d] = true
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	n.log.Debug().
		Str("ticker", ticker).
		Str("freq", freq).
		Int("periods", len(dates)).
		Msg("Merging statement periods")

	asOf := time.Now().UTC().Format("2006-01-02")
	records := make([]domain.StatementRecord, 0, len(dates))

	for _, d := range dates {
		var i yahoo.IncomeStatement
		var c yahoo.CashflowStatement
		var b yahoo.BalanceSheetStatement
		for _, s := range inc {
			if s.EndDate.ISODate() == d {
				i = s
				break
			}
		}
		for _, s := range cfs {
			if s.EndDate.ISODate() == d {
				c = s
				break
			}
		}
		for _, s := range bss {
			if s.EndDate.ISODate() == d {
				b = s
				break
			}
		}

		// Interest expense: absolute value, falling back to interestPaid.
		var interestExp *float64
		if v := i.InterestExpense.Value(); v != nil {
			interestExp = formulas.Ptr(math.Abs(*v))
		} else if v := c.InterestPaid.Value(); v != nil {
			interestExp = formulas.Ptr(math.Abs(*v))
		}

		cfo := c.TotalCashFromOperatingActivities.Value()
		capex := c.CapitalExpenditures.Value()
		var fcf *float64
		if cfo != nil && capex != nil {
			fcf = formulas.Ptr(*cfo - math.Abs(*capex))
		}

		shortDebt := b.ShortLongTermDebt.Value()
		longDebt := b.LongTermDebt.Value()
		var totalDebt *float64
		if shortDebt != nil || longDebt != nil {
			total := 0.0
			if shortDebt != nil {
				total += *shortDebt
			}
			if longDebt != nil {
				total += *longDebt
			}
			totalDebt = formulas.Ptr(total)
		}

		sbc := i.StockBasedCompensation.Value()
		if sbc == nil {
			sbc = c.StockBasedCompensation.Value()
		}

		records = append(records, domain.StatementRecord{
			Ticker:                 ticker,
			PeriodEnd:              d,
			Freq:                   freq,
			Source:                 domain.SourceYahoo,
			AsOfDate:               asOf,
			Revenue:                i.TotalRevenue.Value(),
			NetIncome:              i.NetIncome.Value(),
			EBIT:                   i.EBIT.Value(),
			InterestExpense:        interestExp,
			Depreciation:           c.Depreciation.Value(),
			StockBasedCompensation: sbc,
			SharesDiluted:          i.DilutedAverageShares.Value(),
			EPSDiluted:             i.DilutedEPS.Value(),
			CFO:                    cfo,
			Capex:                  capex,
			FCF:                    fcf,
			Cash:                   b.Cash.Value(),
			ShortDebt:              shortDebt,
			LongDebt:               longDebt,
			TotalDebt:              totalDebt,
			StockholderEquity:      b.TotalStockholderEquity.Value(),
			TotalAssets:            b.TotalAssets.Value(),
		})
	}

	return records
}
