package normalize

import (
	"math"
	"time"

	"github.com/gzimm88/StockLensesV2/internal/clients/yahoo"
	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// endpointCAGR annualizes the change between two positive values:
// ((latest/oldest)^(1/years) - 1) * 100.
func endpointCAGR(latest, oldest, years float64) *float64 {
	if years <= 0 || latest <= 0 || oldest <= 0 ||
		!formulas.IsFinite(latest) || !formulas.IsFinite(oldest) {
		return nil
	}
	v := (math.Pow(latest/oldest, 1/years) - 1) * 100
	if !formulas.IsFinite(v) {
		return nil
	}
	return &v
}

// sum4 adds a flow field over the four most recent quarters; nil
// unless all four are present.
func sum4(quarterly []domain.StatementRecord, pick func(*domain.StatementRecord) *float64) *float64 {
	if len(quarterly) < 4 {
		return nil
	}
	total := 0.0
	for i := 0; i < 4; i++ {
		v := pick(&quarterly[i])
		if v == nil || !formulas.IsFinite(*v) {
			return nil
		}
		total += *v
	}
	return &total
}

// MetricsPayload builds the quoteSummary-backed metrics upsert payload:
// TTM flow totals from the merged quarterly records, latest-quarter
// balance snapshot, quoted multiples, and growth rates derived from the
// annual statements. quarterly and annual must be newest-first.
func (n *YahooNormalizer) MetricsPayload(
	ticker string,
	summary *yahoo.QuoteSummaryResult,
	quarterly []domain.StatementRecord,
	annual []domain.StatementRecord,
) *domain.Metrics {
	m := &domain.Metrics{
		TickerSymbol: ticker,
		AsOfDate:     time.Now().UTC().Format("2006-01-02"),
		DataSource:   "yahoo:multi_source_v1",
	}

	// TTM flow aggregates
	m.RevenueTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.Revenue })
	m.CFOTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.CFO })
	m.CapexTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.Capex })
	m.SBCTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.StockBasedCompensation })
	m.EBITTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.EBIT })
	m.DepreciationTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.Depreciation })
	m.NetIncomeTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.NetIncome })
	m.InterestExpenseTTM = sum4(quarterly, func(q *domain.StatementRecord) *float64 { return q.InterestExpense })

	if m.EBITTTM != nil && m.DepreciationTTM != nil {
		m.EBITDATTM = formulas.Ptr(*m.EBITTTM + *m.DepreciationTTM)
	}
	if m.CFOTTM != nil && m.CapexTTM != nil {
		m.FCFTTM = formulas.Ptr(*m.CFOTTM - math.Abs(*m.CapexTTM))
	}

	// Balance sheet from the latest quarter
	if len(quarterly) > 0 {
		latest := quarterly[0]
		m.Cash = latest.Cash
		m.TotalDebt = latest.TotalDebt
		m.Equity = latest.StockholderEquity
		m.TotalAssets = latest.TotalAssets
	}

	// Quoted fields
	if summary.Price != nil {
		m.PriceCurrent = summary.Price.RegularMarketPrice.Value()
		m.MarketCap = summary.Price.MarketCap.Value()
	}
	var fallbackRevenue, quotedDebtToEquity *float64
	if fd := summary.FinancialData; fd != nil {
		fallbackRevenue = fd.TotalRevenue.Value()
		quotedDebtToEquity = fd.DebtToEquity.Value()
	}
	var enterpriseValue, enterpriseToEBITDA *float64
	if summary.SummaryDetail != nil {
		m.PEFwd = summary.SummaryDetail.ForwardPE.Value()
		m.PETTM = summary.SummaryDetail.TrailingPE.Value()
		m.CurrentPE = summary.SummaryDetail.TrailingPE.Value()
	}
	if ks := summary.DefaultKeyStatistics; ks != nil {
		m.SharesOut = ks.SharesOutstanding.Value()
		m.EPSForward = ks.ForwardEPS.Value()
		m.Beta5Y = ks.Beta.Value()
		m.PEG5Y = ks.PegRatio.Value()
		enterpriseValue = ks.EnterpriseValue.Value()
		enterpriseToEBITDA = ks.EnterpriseToEbitda.Value()
		if ins := ks.HeldPercentInsiders.Value(); ins != nil {
			m.InsiderOwnPct = formulas.Ptr(*ins * 100)
		}
	}

	// EV/EBITDA from EV and our TTM EBITDA, falling back to the quoted
	// ratio.
	if enterpriseValue != nil && m.EBITDATTM != nil && *m.EBITDATTM != 0 {
		ratio := *enterpriseValue / *m.EBITDATTM
		if formulas.IsFinite(ratio) {
			m.EVEBITDA = &ratio
		}
	} else if enterpriseToEBITDA != nil {
		m.EVEBITDA = enterpriseToEBITDA
	}

	// ROIC = NOPAT / invested capital, tax rate approximated from
	// NI/EBIT and clamped to [0, 0.5].
	if m.EBITTTM != nil && m.Equity != nil {
		investedCap := *m.Equity
		if m.TotalDebt != nil {
			investedCap += *m.TotalDebt
		}
		if m.Cash != nil {
			investedCap -= *m.Cash
		}
		if investedCap != 0 {
			effectiveTax := 0.21
			if m.NetIncomeTTM != nil && *m.EBITTTM != 0 {
				effectiveTax = formulas.Clamp(1.0-*m.NetIncomeTTM/(*m.EBITTTM), 0, 0.5)
			}
			nopat := *m.EBITTTM * (1.0 - effectiveTax)
			m.ROICPct = formulas.SafeDiv(formulas.Ptr(nopat*100), &investedCap)
		}
	}

	// Margin ratios fall back to the aggregate revenue figure when the
	// statement histories are too sparse for a TTM sum.
	revenue := m.RevenueTTM
	if revenue == nil {
		revenue = fallbackRevenue
	}
	if m.FCFTTM != nil && revenue != nil && *revenue != 0 {
		m.FCFMarginPct = formulas.SafeDiv(formulas.Ptr(*m.FCFTTM*100), revenue)
	}
	if m.CFOTTM != nil && m.NetIncomeTTM != nil && *m.NetIncomeTTM != 0 {
		m.CFOToNI = formulas.SafeDiv(m.CFOTTM, m.NetIncomeTTM)
	}
	if m.FCFTTM != nil && m.EBITTTM != nil && *m.EBITTTM != 0 {
		m.FCFToEBIT = formulas.SafeDiv(m.FCFTTM, m.EBITTTM)
	}
	if m.NetIncomeTTM != nil && m.CFOTTM != nil && m.TotalAssets != nil && *m.TotalAssets != 0 {
		m.AccrualsRatio = formulas.SafeDiv(formulas.Ptr(*m.NetIncomeTTM-*m.CFOTTM), m.TotalAssets)
	}
	if m.EBITTTM != nil && m.InterestExpenseTTM != nil && *m.InterestExpenseTTM != 0 {
		m.InterestCovX = formulas.Ptr(*m.EBITTTM / math.Abs(*m.InterestExpenseTTM))
	}
	if m.TotalDebt != nil && m.Equity != nil && *m.Equity != 0 {
		m.DebtToEquity = formulas.SafeDiv(m.TotalDebt, m.Equity)
	} else if quotedDebtToEquity != nil {
		// Quoted as a percentage when large (54.6 means 54.6%).
		if *quotedDebtToEquity > 5 {
			m.DebtToEquity = formulas.Ptr(*quotedDebtToEquity / 100)
		} else {
			m.DebtToEquity = quotedDebtToEquity
		}
	}
	if m.TotalDebt != nil && m.Cash != nil && m.EBITDATTM != nil && *m.EBITDATTM != 0 {
		m.NetDebtToEBITDA = formulas.SafeDiv(formulas.Ptr(*m.TotalDebt-*m.Cash), m.EBITDATTM)
	}
	if m.Cash != nil && m.TotalDebt != nil && m.MarketCap != nil && *m.MarketCap != 0 {
		m.NetCashToMktCapPct = formulas.SafeDiv(formulas.Ptr((*m.Cash-*m.TotalDebt)*100), m.MarketCap)
	}
	if m.FCFTTM != nil && m.MarketCap != nil && *m.MarketCap != 0 {
		m.FCFYieldPct = formulas.SafeDiv(formulas.Ptr(*m.FCFTTM*100), m.MarketCap)
	}
	if m.SBCTTM != nil && revenue != nil && *revenue != 0 {
		m.SBCToSalesPct = formulas.SafeDiv(formulas.Ptr(*m.SBCTTM*100), revenue)
	}

	n.annualGrowth(m, annual)

	return m
}

// annualGrowth derives CAGR, share-count change and buyback yield from
// the annual statement series (newest first).
func (n *YahooNormalizer) annualGrowth(m *domain.Metrics, annual []domain.StatementRecord) {
	var epsSeries, revSeries, sharesSeries []float64
	for _, a := range annual {
		if a.EPSDiluted != nil && formulas.IsFinite(*a.EPSDiluted) {
			epsSeries = append(epsSeries, *a.EPSDiluted)
		}
		if a.Revenue != nil && formulas.IsFinite(*a.Revenue) {
			revSeries = append(revSeries, *a.Revenue)
		}
		if a.SharesDiluted != nil && formulas.IsFinite(*a.SharesDiluted) {
			sharesSeries = append(sharesSeries, *a.SharesDiluted)
		}
	}

	// 3Y change needs 4 annual points, 5Y needs 6. Yahoo usually stops
	// at 4, so the 5Y columns mostly come from other sources.
	if len(epsSeries) >= 4 {
		m.EPSCagr3YPct = endpointCAGR(epsSeries[0], epsSeries[3], 3)
	}
	if len(revSeries) >= 4 {
		m.RevenueCagr3YPct = endpointCAGR(revSeries[0], revSeries[3], 3)
	}
	if len(epsSeries) >= 6 {
		m.EPSCagr5YPct = endpointCAGR(epsSeries[0], epsSeries[5], 5)
	}
	if len(revSeries) >= 6 {
		m.RevenueCagr5YPct = endpointCAGR(revSeries[0], revSeries[5], 5)
	}

	if len(sharesSeries) >= 2 {
		years := float64(len(sharesSeries) - 1)
		// Positive = share count shrinking (buybacks).
		if cagr := endpointCAGR(sharesSeries[0], sharesSeries[len(sharesSeries)-1], years); cagr != nil {
			m.ShareChange5YPct = formulas.Ptr(-*cagr)
		}
		if sharesSeries[0] > 0 && sharesSeries[1] > 0 {
			m.BuybackYieldPct = formulas.Ptr((sharesSeries[1] - sharesSeries[0]) / sharesSeries[1] * 100)
		}
	}
}
