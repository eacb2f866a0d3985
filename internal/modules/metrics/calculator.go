package metrics

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/internal/modules/resolution"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// Calculator runs the deterministic metrics pipeline.
type Calculator struct {
	log zerolog.Logger
	now func() time.Time
}

// NewCalculator creates a metrics calculator.
func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{
		log: log.With().Str("component", "metrics_calculator").Logger(),
		now: time.Now,
	}
}

// RunDeterministicPipeline computes the full metrics record from
// normalized inputs in the canonical order:
//
//  1. TTM aggregates and balance snapshot
//  2. price metrics (PE bands, current PE, PEG)
//  3. quality metrics
//  4. capital allocation metrics
//  5. growth metrics
//  6. risk metrics
//
// quarterly, annual and prices must be sorted newest-first. existing
// supplies consensus inputs (forward EPS) and previously stored growth
// rates; it is never used to backfill TTM flows. The returned coverage
// report carries the resolution warnings for snapshot audit trails.
func (c *Calculator) RunDeterministicPipeline(
	ticker string,
	quarterly, annual []domain.StatementRecord,
	prices, benchmark []domain.DailyPrice,
	existing *domain.Metrics,
) (*domain.Metrics, resolution.CoverageReport) {
	coverage := resolution.CheckTTMCoverage(quarterly, ticker, c.log)

	ttm, balance := BuildTTM(quarterly)

	fcfTTM := FreeCashFlow(ttm.CFO, ttm.Capex)
	ebitdaTTM := EBITDA(ttm.EBIT, ttm.Depreciation)
	epsTTM := EPSTTM(ttm.NetIncome, ttm.SharesDilutedAvg)

	var priceNow *float64
	if len(prices) > 0 {
		latest := prices[0]
		for _, p := range prices {
			if p.Date > latest.Date {
				latest = p
			}
		}
		if formulas.IsFinite(latest.CloseAdj) {
			priceNow = formulas.Ptr(latest.CloseAdj)
		}
	}

	var marketCap *float64
	if priceNow != nil && balance.SharesOutstanding != nil {
		marketCap = formulas.Ptr(*priceNow * *balance.SharesOutstanding)
	}

	growth := ComputeGrowthMetrics(annual)
	epsCagr5Y := growth.EPSCagr5YPct
	if epsCagr5Y == nil && existing != nil {
		epsCagr5Y = existing.EPSCagr5YPct
	}

	c.log.Info().
		Str("ticker", ticker).
		Interface("eps_ttm", epsTTM).
		Msg("TTM EPS from 4Q net income sum over 4Q average diluted shares")

	// Forward EPS comes only from the stored consensus value and is
	// validated against trailing EPS; never projected from growth.
	var epsForwardRaw *float64
	if existing != nil {
		epsForwardRaw = existing.EPSForward
	}
	epsForward := resolution.ValidateEPSForward(epsForwardRaw, epsTTM, ticker, c.log)
	peFwd := resolution.ComputePEForward(priceNow, epsForward)

	m := &domain.Metrics{
		TickerSymbol:       ticker,
		AsOfDate:           c.now().UTC().Format("2006-01-02"),
		DataSource:         "computed",
		PartialTTM:         !coverage.Sufficient,
		CFOTTM:             ttm.CFO,
		CapexTTM:           ttm.Capex,
		EBITTTM:            ttm.EBIT,
		DepreciationTTM:    ttm.Depreciation,
		EBITDATTM:          ebitdaTTM,
		NetIncomeTTM:       ttm.NetIncome,
		InterestExpenseTTM: ttm.InterestExpense,
		SBCTTM:             ttm.SBC,
		RevenueTTM:         ttm.Revenue,
		FCFTTM:             fcfTTM,
		EPSTTM:             epsTTM,
		EPSForward:         epsForward,
		Cash:               balance.Cash,
		TotalDebt:          balance.TotalDebt,
		Equity:             balance.StockholderEquity,
		TotalAssets:        balance.TotalAssets,
		SharesOut:          balance.SharesOutstanding,
		MarketCap:          marketCap,
		PEFwd:              peFwd,
	}

	price := ComputePriceMetrics(prices, quarterly, epsCagr5Y, c.now())
	m.PriceCurrent = price.PriceCurrent
	if m.PriceCurrent == nil {
		m.PriceCurrent = priceNow
	}
	m.PETTM = price.PETTM
	m.CurrentPE = price.CurrentPE
	m.PE5YLow = price.PE5YLow
	m.PE5YHigh = price.PE5YHigh
	m.PE5YMedian = price.PE5YMedian
	m.PEG5Y = price.PEG5Y

	quality := ComputeQualityMetrics(ttm, quarterly)
	m.CFOToNI = quality.CFOToNI
	m.FCFMarginPct = quality.FCFMarginPct
	m.FCFToEBIT = quality.FCFToEBIT
	m.AccrualsRatio = quality.AccrualsRatio
	m.MarginStdev5Pct = quality.MarginStdev5Pct

	capital := ComputeCapitalAllocationMetrics(ttm, balance, annual)
	m.ROICPct = capital.ROICPct
	m.DebtToEquity = capital.DebtToEquity
	m.NetDebtToEBITDA = capital.NetDebtToEBITDA
	m.InterestCovX = capital.InterestCovX
	m.SBCToSalesPct = capital.SBCToSalesPct
	m.BuybackYieldPct = capital.BuybackYieldPct

	if fcfTTM != nil && marketCap != nil && *marketCap != 0 {
		m.FCFYieldPct = formulas.Ptr(100 * *fcfTTM / *marketCap)
	}
	if balance.Cash != nil && balance.TotalDebt != nil && marketCap != nil && *marketCap != 0 {
		m.NetCashToMktCapPct = formulas.Ptr(100 * (*balance.Cash - *balance.TotalDebt) / *marketCap)
	}

	m.EPSCagr5YPct = growth.EPSCagr5YPct
	m.EPSCagr3YPct = growth.EPSCagr3YPct
	m.RevenueCagr5YPct = growth.RevenueCagr5YPct
	m.RevenueCagr3YPct = growth.RevenueCagr3YPct
	m.CyclicalityPct = growth.CyclicalityPct
	m.ShareChange5YPct = ShareCountChange5YPct(annual)

	risk := ComputeRiskMetrics(prices, benchmark)
	m.Beta5Y = risk.Beta5Y
	m.MaxDrawdown5YPct = risk.MaxDrawdown5YPct

	c.log.Debug().
		Str("ticker", ticker).
		Bool("partial_ttm", m.PartialTTM).
		Interface("pe_fwd", m.PEFwd).
		Msg("Deterministic pipeline complete")

	return m, coverage
}
