// Package etl orchestrates a full data refresh for a ticker: prices,
// vendor fundamentals, derived metrics and lens snapshots. Every step
// runs in isolation; a failed step degrades the result to "partial"
// instead of aborting the run, so a vendor outage never blocks the
// rest of the pipeline.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/clients/finnhub"
	"github.com/gzimm88/StockLensesV2/internal/clients/yahoo"
	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/internal/modules/financials"
	"github.com/gzimm88/StockLensesV2/internal/modules/metrics"
	"github.com/gzimm88/StockLensesV2/internal/modules/normalize"
	"github.com/gzimm88/StockLensesV2/internal/modules/prices"
	"github.com/gzimm88/StockLensesV2/internal/modules/resolution"
	"github.com/gzimm88/StockLensesV2/internal/modules/scoring"
	"github.com/gzimm88/StockLensesV2/internal/modules/tickers"
)

// sectorMedians holds per-sector median multiples used as relative
// valuation anchors when a ticker's GICS sector is known. Values are
// long-run medians, refreshed manually.
var sectorMedians = map[string]struct{ PEFwd, EVEBITDA float64 }{
	"Information Technology": {27, 20},
	"Financials":             {13, 10},
	"Health Care":            {20, 14},
	"Consumer Discretionary": {19, 13},
	"Consumer Staples":       {20, 13.5},
	"Industrials":            {20, 13},
	"Materials":              {15, 9},
	"Energy":                 {12, 7},
	"Utilities":              {16, 10},
	"Real Estate":            {35, 20},
	"Communication Services": {18, 12},
}

const (
	quarterlyLookback = 20
	annualLookback    = 10
	priceLookback     = 2000
)

// StepResult records the outcome of one pipeline step.
type StepResult struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Result is the aggregate outcome of a full refresh. Status is "ok"
// when every step succeeded and "partial" otherwise.
type Result struct {
	Ticker string                `json:"ticker"`
	Status string                `json:"status"`
	Errors []string              `json:"errors"`
	Steps  map[string]StepResult `json:"steps"`
}

func newResult(ticker string) *Result {
	return &Result{
		Ticker: ticker,
		Status: "ok",
		Errors: []string{},
		Steps:  map[string]StepResult{},
	}
}

func (r *Result) ok(step string, data map[string]any) {
	r.Steps[step] = StepResult{Status: "ok", Data: data}
}

func (r *Result) fail(step string, err error) {
	r.Steps[step] = StepResult{Status: "failed", Error: err.Error()}
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
	r.Status = "partial"
}

// Service wires the vendor clients, normalizers, repositories and the
// scoring engine into the refresh pipeline.
type Service struct {
	yahoo       *yahoo.Client
	finnhub     *finnhub.Client
	yahooNorm   *normalize.YahooNormalizer
	finnhubNorm *normalize.FinnhubNormalizer
	calculator  *metrics.Calculator

	tickerRepo     *tickers.Repository
	financialsRepo *financials.Repository
	pricesRepo     *prices.Repository
	metricsRepo    *metrics.Repository
	scoringService *scoring.Service

	benchmarkSymbol string
	log             zerolog.Logger
}

func NewService(
	yahooClient *yahoo.Client,
	finnhubClient *finnhub.Client,
	yahooNorm *normalize.YahooNormalizer,
	finnhubNorm *normalize.FinnhubNormalizer,
	calculator *metrics.Calculator,
	tickerRepo *tickers.Repository,
	financialsRepo *financials.Repository,
	pricesRepo *prices.Repository,
	metricsRepo *metrics.Repository,
	scoringService *scoring.Service,
	benchmarkSymbol string,
	log zerolog.Logger,
) *Service {
	return &Service{
		yahoo:           yahooClient,
		finnhub:         finnhubClient,
		yahooNorm:       yahooNorm,
		finnhubNorm:     finnhubNorm,
		calculator:      calculator,
		tickerRepo:      tickerRepo,
		financialsRepo:  financialsRepo,
		pricesRepo:      pricesRepo,
		metricsRepo:     metricsRepo,
		scoringService:  scoringService,
		benchmarkSymbol: benchmarkSymbol,
		log:             log.With().Str("component", "etl").Logger(),
	}
}

// RunFullRefresh executes the full pipeline for one ticker:
//
//	A  Yahoo price history (5y)
//	B  Finnhub as-reported fundamentals, TTM and historical PE
//	C  Yahoo fundamentals and ratio payload
//	D  deterministic metrics pipeline
//	E  recent prices (1mo)
//	D2 deterministic pipeline again on the fresher prices
//	F  price-derived metrics
//	G  lens score snapshots
//
// Steps never abort the run; each failure is recorded and the result
// is marked partial.
func (s *Service) RunFullRefresh(ctx context.Context, ticker string) *Result {
	res := newResult(ticker)
	start := time.Now()
	s.log.Info().Str("ticker", ticker).Msg("full refresh started")

	row, err := s.tickerRepo.Ensure(ticker, "", "", "")
	if err != nil {
		res.fail("ensure_ticker", err)
	}
	sector := ""
	if row != nil {
		sector = row.Sector
	}

	s.stepPrices(ctx, ticker, "5y", "prices_5y", res)
	s.stepFinnhub(ctx, ticker, res)
	s.stepYahooFundamentals(ctx, ticker, res)
	s.stepDeterministic(ticker, sector, "deterministic", res)
	s.stepPrices(ctx, ticker, "1mo", "prices_recent", res)
	s.stepDeterministic(ticker, sector, "deterministic_rerun", res)
	s.stepPriceMetrics(ticker, res)
	s.stepScoring(ticker, res)

	s.log.Info().
		Str("ticker", ticker).
		Str("status", res.Status).
		Dur("elapsed", time.Since(start)).
		Msg("full refresh finished")
	return res
}

// stepPrices fetches a Yahoo chart for the given range and upserts the
// normalized bars. Used for both the 5y backfill and the 1mo top-up.
func (s *Service) stepPrices(ctx context.Context, ticker, rng, step string, res *Result) {
	chart, err := s.yahoo.GetDailyPrices(ctx, ticker, rng)
	if err != nil {
		res.fail(step, fmt.Errorf("fetch %s chart: %w", rng, err))
		return
	}
	bars := s.yahooNorm.Prices(ticker, chart)
	out, err := s.pricesRepo.Upsert(bars)
	if err != nil {
		res.fail(step, fmt.Errorf("upsert prices: %w", err))
		return
	}
	res.ok(step, map[string]any{"upserted": out.Upserted, "skipped": out.Skipped})
}

// stepFinnhub ingests as-reported fundamentals, computes the TTM
// aggregate, the historical PE bands and the trailing PE, then writes
// a finnhub-tagged metrics payload under the guarded merge policy.
func (s *Service) stepFinnhub(ctx context.Context, ticker string, res *Result) {
	const step = "finnhub_fundamentals"

	quarterly, err := s.finnhub.GetQuarterlyFinancials(ctx, ticker)
	if err != nil {
		res.fail(step, fmt.Errorf("fetch reported financials: %w", err))
		return
	}
	annual := s.finnhub.GetAnnualFinancials(ctx, ticker)

	records := s.finnhubNorm.Statements(ticker, quarterly, annual)
	upserted, err := s.financialsRepo.Upsert(records)
	if err != nil {
		res.fail(step, fmt.Errorf("upsert financials: %w", err))
		return
	}

	var quarters []domain.StatementRecord
	for _, r := range records {
		if r.Freq == "quarterly" {
			quarters = append(quarters, r)
		}
	}

	ttm, balance := metrics.BuildTTM(quarters)
	payload := &domain.Metrics{
		TickerSymbol:       ticker,
		AsOfDate:           time.Now().UTC().Format("2006-01-02"),
		DataSource:         "finnhub:reported_v1",
		PartialTTM:         len(quarters) > 0 && len(quarters) < 4,
		RevenueTTM:         ttm.Revenue,
		NetIncomeTTM:       ttm.NetIncome,
		CFOTTM:             ttm.CFO,
		CapexTTM:           ttm.Capex,
		EBITTTM:            ttm.EBIT,
		InterestExpenseTTM: ttm.InterestExpense,
		DepreciationTTM:    ttm.Depreciation,
		SBCTTM:             ttm.SBC,
		Cash:               balance.Cash,
		TotalDebt:          balance.TotalDebt,
		Equity:             balance.StockholderEquity,
		TotalAssets:        balance.TotalAssets,
		SharesOut:          balance.SharesOutstanding,
	}
	payload.FCFTTM = metrics.FreeCashFlow(ttm.CFO, ttm.Capex)
	payload.EBITDATTM = metrics.EBITDA(ttm.EBIT, ttm.Depreciation)
	payload.EPSTTM = metrics.EPSTTM(ttm.NetIncome, ttm.SharesDilutedAvg)

	priceHistory, err := s.pricesRepo.GetForTicker(ticker, "", priceLookback)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("price history unavailable for historical PE")
	}
	hist := metrics.ComputeHistoricalPE(quarters, priceHistory, time.Now())
	payload.PE12M = hist.PE12M
	payload.PE24M = hist.PE24M
	payload.PE36M = hist.PE36M

	latestClose, err := s.pricesRepo.GetLatestClose(ticker)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("latest close unavailable")
	}
	if latestClose != nil && payload.EPSTTM != nil && *payload.EPSTTM > 0 {
		pe := *latestClose / *payload.EPSTTM
		payload.PETTM = &pe
	}

	if basic := s.finnhub.GetBasicFinancials(ctx, ticker); basic != nil {
		payload.EPSCagr5YPct = basic.MetricValue("epsGrowth5Y")
		payload.RevenueCagr5YPct = basic.MetricValue("revenueGrowth5Y")
		payload.InsiderOwnPct = basic.MetricValue("insiderSharePercentage")
	}

	action, err := s.metricsRepo.Upsert(ticker, payload, "finnhub")
	if err != nil {
		res.fail(step, fmt.Errorf("upsert metrics: %w", err))
		return
	}
	res.ok(step, map[string]any{
		"financials_upserted": upserted,
		"quarters":            len(quarters),
		"metrics_action":      action,
	})
}

// stepYahooFundamentals ingests the Yahoo quoteSummary statements and
// the derived ratio payload. Yahoo writes without a source tag so it
// never overrides finnhub-sourced TTM fields outside the always-update
// set.
func (s *Service) stepYahooFundamentals(ctx context.Context, ticker string, res *Result) {
	const step = "yahoo_fundamentals"

	summary, err := s.yahoo.GetQuoteSummary(ctx, ticker)
	if err != nil {
		res.fail(step, fmt.Errorf("fetch quote summary: %w", err))
		return
	}

	quarterly := s.yahooNorm.QuarterlyStatements(ticker, summary)
	annual := s.yahooNorm.AnnualStatements(ticker, summary)

	qUpserted, err := s.financialsRepo.Upsert(quarterly)
	if err != nil {
		res.fail(step, fmt.Errorf("upsert quarterly statements: %w", err))
		return
	}
	aUpserted, err := s.financialsRepo.Upsert(annual)
	if err != nil {
		res.fail(step, fmt.Errorf("upsert annual statements: %w", err))
		return
	}

	payload := s.yahooNorm.MetricsPayload(ticker, summary, quarterly, annual)
	action, err := s.metricsRepo.Upsert(ticker, payload, "")
	if err != nil {
		res.fail(step, fmt.Errorf("upsert metrics: %w", err))
		return
	}
	res.ok(step, map[string]any{
		"quarterly_upserted": qUpserted,
		"annual_upserted":    aUpserted,
		"metrics_action":     action,
	})
}

// stepDeterministic runs the deterministic pipeline over persisted
// statements and prices, folds in sector median anchors when the
// sector is known, and patches the clean outputs over the stored row.
func (s *Service) stepDeterministic(ticker, sector, step string, res *Result) {
	quarterly, err := s.financialsRepo.GetForTicker(ticker, "quarterly", quarterlyLookback)
	if err != nil {
		res.fail(step, fmt.Errorf("load quarterly statements: %w", err))
		return
	}
	annual, err := s.financialsRepo.GetForTicker(ticker, "annual", annualLookback)
	if err != nil {
		res.fail(step, fmt.Errorf("load annual statements: %w", err))
		return
	}
	priceHistory, err := s.pricesRepo.GetForTicker(ticker, "", priceLookback)
	if err != nil {
		res.fail(step, fmt.Errorf("load price history: %w", err))
		return
	}
	benchmark, err := s.pricesRepo.GetForTicker(s.benchmarkSymbol, "", priceLookback)
	if err != nil {
		s.log.Warn().Err(err).Str("benchmark", s.benchmarkSymbol).Msg("benchmark history unavailable, beta will be null")
		benchmark = nil
	}
	existing, err := s.metricsRepo.Get(ticker)
	if err != nil {
		res.fail(step, fmt.Errorf("load existing metrics: %w", err))
		return
	}

	computed, coverage := s.calculator.RunDeterministicPipeline(ticker, quarterly, annual, priceHistory, benchmark, existing)

	if med, known := sectorMedians[sector]; known {
		peFwd, evEbitda := med.PEFwd, med.EVEBITDA
		computed.PEFwdSector = &peFwd
		computed.EVEBITDASctr = &evEbitda
	}

	action, err := s.metricsRepo.SafePatch(ticker, computed)
	if err != nil {
		res.fail(step, fmt.Errorf("patch metrics: %w", err))
		return
	}
	res.ok(step, map[string]any{
		"metrics_action": action,
		"quarter_count":  coverage.QuarterCount,
		"sufficient_ttm": coverage.Sufficient,
	})
}

// stepPriceMetrics recomputes only the price-derived fields after the
// recent price top-up, leaving everything else untouched.
func (s *Service) stepPriceMetrics(ticker string, res *Result) {
	const step = "price_metrics"

	quarterly, err := s.financialsRepo.GetForTicker(ticker, "quarterly", quarterlyLookback)
	if err != nil {
		res.fail(step, fmt.Errorf("load quarterly statements: %w", err))
		return
	}
	priceHistory, err := s.pricesRepo.GetForTicker(ticker, "", priceLookback)
	if err != nil {
		res.fail(step, fmt.Errorf("load price history: %w", err))
		return
	}
	existing, err := s.metricsRepo.Get(ticker)
	if err != nil {
		res.fail(step, fmt.Errorf("load existing metrics: %w", err))
		return
	}
	var epsCagr *float64
	if existing != nil {
		epsCagr = existing.EPSCagr5YPct
	}

	pm := metrics.ComputePriceMetrics(priceHistory, quarterly, epsCagr, time.Now())
	patch := &domain.Metrics{
		TickerSymbol: ticker,
		AsOfDate:     time.Now().UTC().Format("2006-01-02"),
		PriceCurrent: pm.PriceCurrent,
		PETTM:        pm.PETTM,
		CurrentPE:    pm.CurrentPE,
		PE5YLow:      pm.PE5YLow,
		PE5YHigh:     pm.PE5YHigh,
		PE5YMedian:   pm.PE5YMedian,
		PEG5Y:        pm.PEG5Y,
	}
	action, err := s.metricsRepo.SafePatch(ticker, patch)
	if err != nil {
		res.fail(step, fmt.Errorf("patch metrics: %w", err))
		return
	}
	res.ok(step, map[string]any{"metrics_action": action})
}

// stepScoring snapshots the ticker against every lens. TTM coverage
// warnings ride along on the snapshots; margin of safety comes from a
// later projection stage and is left null here.
func (s *Service) stepScoring(ticker string, res *Result) {
	const step = "scoring"

	m, err := s.metricsRepo.Get(ticker)
	if err != nil {
		res.fail(step, fmt.Errorf("load metrics: %w", err))
		return
	}
	if m == nil {
		res.fail(step, fmt.Errorf("no metrics row for %s", ticker))
		return
	}

	quarterly, err := s.financialsRepo.GetForTicker(ticker, "quarterly", 4)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("coverage check skipped")
	}
	coverage := resolution.CheckTTMCoverage(quarterly, ticker, s.log)

	count, err := s.scoringService.ScoreAllLenses(ticker, m, coverage.Warnings)
	if err != nil {
		res.fail(step, fmt.Errorf("score lenses: %w", err))
		return
	}
	res.ok(step, map[string]any{"snapshots": count})
}
