// Package domain holds the shared data model: normalized statements,
// price bars, the resolved metrics record, lens presets and score
// snapshots. All optional numerics are pointers; nil means "unknown",
// never zero.
package domain

// Statement frequency values stored in financials_history.freq.
const (
	FreqQuarterly = "quarterly"
	FreqAnnual    = "annual"
)

// Data source tags.
const (
	SourceFinnhub = "finnhub"
	SourceYahoo   = "yahoo"
)

// StatementRecord is one normalized financial statement period
// (quarterly or annual) in the canonical internal schema. Vendor
// normalizers emit these; everything downstream consumes them.
type StatementRecord struct {
	Ticker    string `json:"ticker"`
	PeriodEnd string `json:"period_end"` // YYYY-MM-DD
	Freq      string `json:"freq"`
	Source    string `json:"source"`
	AsOfDate  string `json:"as_of_date"`

	Revenue                *float64 `json:"revenue"`
	NetIncome              *float64 `json:"net_income"`
	EBIT                   *float64 `json:"ebit"`
	InterestExpense        *float64 `json:"interest_expense"`
	Depreciation           *float64 `json:"depreciation"`
	StockBasedCompensation *float64 `json:"stock_based_compensation"`
	SharesDiluted          *float64 `json:"shares_diluted"`
	EPSDiluted             *float64 `json:"eps_diluted"`
	CFO                    *float64 `json:"cfo"`
	Capex                  *float64 `json:"capex"`
	FCF                    *float64 `json:"fcf"`
	Cash                   *float64 `json:"cash"`
	ShortDebt              *float64 `json:"short_debt"`
	LongDebt               *float64 `json:"long_debt"`
	TotalDebt              *float64 `json:"total_debt"`
	StockholderEquity      *float64 `json:"stockholder_equity"`
	TotalAssets            *float64 `json:"total_assets"`
}

// DailyPrice is one daily OHLC bar. Close and CloseAdj are required:
// normalizers drop rows missing either, so a stored row always has both.
type DailyPrice struct {
	Ticker   string   `json:"ticker"`
	Date     string   `json:"date"` // YYYY-MM-DD
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Close    float64  `json:"close"`
	CloseAdj float64  `json:"close_adj"`
	Volume   *float64 `json:"volume"`
	Source   string   `json:"source"`
	AsOfDate string   `json:"as_of_date"`
}

// Metrics is the resolved per-ticker metrics record: one row per
// ticker, merged from vendor data and computed by the deterministic
// pipeline. Nil fields are unknown and excluded from scoring rather
// than treated as zero.
type Metrics struct {
	TickerSymbol string `json:"ticker_symbol"`
	AsOfDate     string `json:"as_of_date"`
	DataSource   string `json:"data_source"`
	PartialTTM   bool   `json:"partial_ttm"`

	// Price and size
	PriceCurrent *float64 `json:"price_current"`
	MarketCap    *float64 `json:"market_cap"`
	SharesOut    *float64 `json:"shares_out"`

	// Valuation
	EPSForward   *float64 `json:"eps_forward"`
	PEFwd        *float64 `json:"pe_fwd"`
	PETTM        *float64 `json:"pe_ttm"`
	CurrentPE    *float64 `json:"current_pe"`
	PE12M        *float64 `json:"pe_12m"`
	PE24M        *float64 `json:"pe_24m"`
	PE36M        *float64 `json:"pe_36m"`
	PE5YLow      *float64 `json:"pe_5y_low"`
	PE5YHigh     *float64 `json:"pe_5y_high"`
	PE5YMedian   *float64 `json:"pe_5y_median"`
	EVEBITDA     *float64 `json:"ev_ebitda"`
	FCFYieldPct  *float64 `json:"fcf_yield_pct"`
	PEG5Y        *float64 `json:"peg_5y"`
	PEFwdSector  *float64 `json:"pe_fwd_sector"`
	EVEBITDASctr *float64 `json:"ev_ebitda_sector"`

	// Trailing twelve months flows
	RevenueTTM         *float64 `json:"revenue_ttm"`
	NetIncomeTTM       *float64 `json:"net_income_ttm"`
	EPSTTM             *float64 `json:"eps_ttm"`
	CFOTTM             *float64 `json:"cfo_ttm"`
	CapexTTM           *float64 `json:"capex_ttm"`
	FCFTTM             *float64 `json:"fcf_ttm"`
	EBITTTM            *float64 `json:"ebit_ttm"`
	EBITDATTM          *float64 `json:"ebitda_ttm"`
	DepreciationTTM    *float64 `json:"depreciation_ttm"`
	SBCTTM             *float64 `json:"sbc_ttm"`
	InterestExpenseTTM *float64 `json:"interest_expense_ttm"`

	// Balance sheet (point in time, latest quarter)
	Cash        *float64 `json:"cash"`
	TotalDebt   *float64 `json:"total_debt"`
	Equity      *float64 `json:"equity"`
	TotalAssets *float64 `json:"total_assets"`

	// Quality
	ROICPct         *float64 `json:"roic_pct"`
	FCFMarginPct    *float64 `json:"fcf_margin_pct"`
	CFOToNI         *float64 `json:"cfo_to_ni"`
	FCFToEBIT       *float64 `json:"fcf_to_ebit"`
	AccrualsRatio   *float64 `json:"accruals_ratio"`
	MarginStdev5Pct *float64 `json:"margin_stdev_5y_pct"`

	// Capital allocation / leverage
	BuybackYieldPct  *float64 `json:"buyback_yield_pct"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
	NetDebtToEBITDA  *float64 `json:"netdebt_to_ebitda"`
	InterestCovX     *float64 `json:"interest_coverage_x"`
	SBCToSalesPct    *float64 `json:"sbc_to_sales_pct"`
	ShareChange5YPct *float64 `json:"sharecount_change_5y_pct"`

	// Growth
	EPSCagr3YPct     *float64 `json:"eps_cagr_3y_pct"`
	EPSCagr5YPct     *float64 `json:"eps_cagr_5y_pct"`
	RevenueCagr3YPct *float64 `json:"revenue_cagr_3y_pct"`
	RevenueCagr5YPct *float64 `json:"revenue_cagr_5y_pct"`

	// Risk / market
	Beta5Y             *float64 `json:"beta_5y"`
	MaxDrawdown5YPct   *float64 `json:"maxdrawdown_5y_pct"`
	NetCashToMktCapPct *float64 `json:"netcash_to_mktcap_pct"`
	CyclicalityPct     *float64 `json:"cyclicality_pct"`
	SectorCycTag       string   `json:"sector_cyc_tag"`

	// Qualitative / analyst-maintained inputs
	MoatScore0To10         *float64 `json:"moat_score_0_10"`
	RecurringRevenuePct    *float64 `json:"recurring_revenue_pct"`
	InsiderOwnPct          *float64 `json:"insider_own_pct"`
	FounderLed             *bool    `json:"founder_led_bool"`
	RiskDownsideScore0To10 *float64 `json:"riskdownside_score_0_10"`
	MacroFitScore0To10     *float64 `json:"macrofit_score_0_10"`
	NarrativeScore0To10    *float64 `json:"narrative_score_0_10"`
	MOSBasePct             *float64 `json:"mos_base_pct"`
}

// Field returns the value of a metrics field by its snake_case column
// name. Pointer fields are dereferenced; an unset field returns nil.
// Used by the confidence registry and the persistence layer, which
// both address metrics by column name.
func (m *Metrics) Field(name string) any {
	deref := func(p *float64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	switch name {
	case "ticker_symbol":
		return m.TickerSymbol
	case "as_of_date":
		return m.AsOfDate
	case "data_source":
		return m.DataSource
	case "partial_ttm":
		return m.PartialTTM
	case "price_current":
		return deref(m.PriceCurrent)
	case "market_cap":
		return deref(m.MarketCap)
	case "shares_out":
		return deref(m.SharesOut)
	case "eps_forward":
		return deref(m.EPSForward)
	case "pe_fwd":
		return deref(m.PEFwd)
	case "pe_ttm":
		return deref(m.PETTM)
	case "current_pe":
		return deref(m.CurrentPE)
	case "pe_12m":
		return deref(m.PE12M)
	case "pe_24m":
		return deref(m.PE24M)
	case "pe_36m":
		return deref(m.PE36M)
	case "pe_5y_low":
		return deref(m.PE5YLow)
	case "pe_5y_high":
		return deref(m.PE5YHigh)
	case "pe_5y_median":
		return deref(m.PE5YMedian)
	case "ev_ebitda":
		return deref(m.EVEBITDA)
	case "fcf_yield_pct":
		return deref(m.FCFYieldPct)
	case "peg_5y":
		return deref(m.PEG5Y)
	case "pe_fwd_sector":
		return deref(m.PEFwdSector)
	case "ev_ebitda_sector":
		return deref(m.EVEBITDASctr)
	case "revenue_ttm":
		return deref(m.RevenueTTM)
	case "net_income_ttm":
		return deref(m.NetIncomeTTM)
	case "eps_ttm":
		return deref(m.EPSTTM)
	case "cfo_ttm":
		return deref(m.CFOTTM)
	case "capex_ttm":
		return deref(m.CapexTTM)
	case "fcf_ttm":
		return deref(m.FCFTTM)
	case "ebit_ttm":
		return deref(m.EBITTTM)
	case "ebitda_ttm":
		return deref(m.EBITDATTM)
	case "depreciation_ttm":
		return deref(m.DepreciationTTM)
	case "sbc_ttm":
		return deref(m.SBCTTM)
	case "interest_expense_ttm":
		return deref(m.InterestExpenseTTM)
	case "cash":
		return deref(m.Cash)
	case "total_debt":
		return deref(m.TotalDebt)
	case "equity":
		return deref(m.Equity)
	case "total_assets":
		return deref(m.TotalAssets)
	case "roic_pct":
		return deref(m.ROICPct)
	case "fcf_margin_pct":
		return deref(m.FCFMarginPct)
	case "cfo_to_ni":
		return deref(m.CFOToNI)
	case "fcf_to_ebit":
		return deref(m.FCFToEBIT)
	case "accruals_ratio":
		return deref(m.AccrualsRatio)
	case "margin_stdev_5y_pct":
		return deref(m.MarginStdev5Pct)
	case "buyback_yield_pct":
		return deref(m.BuybackYieldPct)
	case "debt_to_equity":
		return deref(m.DebtToEquity)
	case "netdebt_to_ebitda":
		return deref(m.NetDebtToEBITDA)
	case "interest_coverage_x":
		return deref(m.InterestCovX)
	case "sbc_to_sales_pct":
		return deref(m.SBCToSalesPct)
	case "sharecount_change_5y_pct":
		return deref(m.ShareChange5YPct)
	case "eps_cagr_3y_pct":
		return deref(m.EPSCagr3YPct)
	case "eps_cagr_5y_pct":
		return deref(m.EPSCagr5YPct)
	case "revenue_cagr_3y_pct":
		return deref(m.RevenueCagr3YPct)
	case "revenue_cagr_5y_pct":
		return deref(m.RevenueCagr5YPct)
	case "beta_5y":
		return deref(m.Beta5Y)
	case "maxdrawdown_5y_pct":
		return deref(m.MaxDrawdown5YPct)
	case "netcash_to_mktcap_pct":
		return deref(m.NetCashToMktCapPct)
	case "cyclicality_pct":
		return deref(m.CyclicalityPct)
	case "sector_cyc_tag":
		return m.SectorCycTag
	case "moat_score_0_10":
		return deref(m.MoatScore0To10)
	case "recurring_revenue_pct":
		return deref(m.RecurringRevenuePct)
	case "insider_own_pct":
		return deref(m.InsiderOwnPct)
	case "founder_led_bool":
		if m.FounderLed == nil {
			return nil
		}
		return *m.FounderLed
	case "riskdownside_score_0_10":
		return deref(m.RiskDownsideScore0To10)
	case "macrofit_score_0_10":
		return deref(m.MacroFitScore0To10)
	case "narrative_score_0_10":
		return deref(m.NarrativeScore0To10)
	case "mos_base_pct":
		return deref(m.MOSBasePct)
	}
	return nil
}

// LensPreset is one scoring lens: category weights plus the thresholds
// that map a final score to a recommendation. Weights are fractions
// summing to ~1.0; a zero weight drops the category from the blend.
type LensPreset struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Valuation         float64 `json:"valuation"`
	Quality           float64 `json:"quality"`
	CapitalAllocation float64 `json:"capital_allocation"`
	Growth            float64 `json:"growth"`
	Moat              float64 `json:"moat"`
	Risk              float64 `json:"risk"`
	Macro             float64 `json:"macro"`
	Narrative         float64 `json:"narrative"`
	Dilution          float64 `json:"dilution"`
	BuyThreshold      float64 `json:"buy_threshold"`
	WatchThreshold    float64 `json:"watch_threshold"`
}

// WeightFor returns the lens weight for a category key.
func (l *LensPreset) WeightFor(category string) float64 {
	switch category {
	case "valuation":
		return l.Valuation
	case "quality":
		return l.Quality
	case "capitalAllocation":
		return l.CapitalAllocation
	case "growth":
		return l.Growth
	case "moat":
		return l.Moat
	case "risk":
		return l.Risk
	case "macro":
		return l.Macro
	case "narrative":
		return l.Narrative
	case "dilution":
		return l.Dilution
	}
	return 0
}

// Recommendation values.
const (
	RecommendationBuy          = "BUY"
	RecommendationWatch        = "WATCH"
	RecommendationAvoid        = "AVOID"
	RecommendationInsufficient = "INSUFFICIENT_DATA"
)

// Contributor is one category's contribution to the distance between
// its own score and the final blended score.
type Contributor struct {
	Category     string  `json:"category"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// ScoreSnapshot is an immutable scoring result for (ticker, lens,
// as-of date). Re-running the engine on identical inputs reproduces
// SnapshotHash exactly.
type ScoreSnapshot struct {
	ID                      string              `json:"id"`
	TickerSymbol            string              `json:"ticker_symbol"`
	LensID                  string              `json:"lens_id"`
	LensName                string              `json:"lens_name"`
	ScoreVersion            string              `json:"score_version"`
	DataVersion             string              `json:"data_version"`
	FinalScore              *float64            `json:"final_score"`
	CategoryScores          map[string]*float64 `json:"category_scores"`
	Recommendation          string              `json:"recommendation"`
	ConfidencePct           float64             `json:"confidence_pct"`
	ConfidenceGrade         string              `json:"confidence_grade"`
	MOSPct                  *float64            `json:"mos_pct"`
	MOSSignal               *string             `json:"mos_signal"`
	TopPositiveContributors []Contributor       `json:"top_positive_contributors"`
	TopNegativeContributors []Contributor       `json:"top_negative_contributors"`
	MissingCriticalFields   []string            `json:"missing_critical_fields"`
	ResolutionWarnings      []string            `json:"resolution_warnings"`
	SnapshotHash            string              `json:"snapshot_hash"`
	AsOfDate                string              `json:"as_of_date"`
	CreatedAt               string              `json:"created_at"`
}
