package metrics

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// Numeric metric columns, in schema order.
var numericColumns = []string{
	"price_current", "market_cap", "shares_out",
	"eps_forward", "pe_fwd", "pe_ttm", "current_pe",
	"pe_12m", "pe_24m", "pe_36m",
	"pe_5y_low", "pe_5y_high", "pe_5y_median",
	"ev_ebitda", "fcf_yield_pct", "peg_5y",
	"pe_fwd_sector", "ev_ebitda_sector",
	"revenue_ttm", "net_income_ttm", "eps_ttm",
	"cfo_ttm", "capex_ttm", "fcf_ttm", "ebit_ttm", "ebitda_ttm",
	"depreciation_ttm", "sbc_ttm", "interest_expense_ttm",
	"cash", "total_debt", "equity", "total_assets",
	"roic_pct", "fcf_margin_pct", "cfo_to_ni", "fcf_to_ebit",
	"accruals_ratio", "margin_stdev_5y_pct",
	"buyback_yield_pct", "debt_to_equity", "netdebt_to_ebitda",
	"interest_coverage_x", "sbc_to_sales_pct", "sharecount_change_5y_pct",
	"eps_cagr_3y_pct", "eps_cagr_5y_pct", "revenue_cagr_3y_pct", "revenue_cagr_5y_pct",
	"beta_5y", "maxdrawdown_5y_pct", "netcash_to_mktcap_pct", "cyclicality_pct",
	"moat_score_0_10", "recurring_revenue_pct", "insider_own_pct",
	"riskdownside_score_0_10", "macrofit_score_0_10", "narrative_score_0_10",
	"mos_base_pct",
}

// Columns the guarded upsert always overwrites; everything else is
// patch-only-if-null so analyst inputs and richer vendor data survive
// refreshes.
var alwaysUpdate = map[string]bool{
	"eps_ttm": true, "pe_ttm": true, "pe_12m": true, "pe_24m": true,
	"pe_36m": true, "current_pe": true,
	"cfo_ttm": true, "capex_ttm": true, "sbc_ttm": true,
	"depreciation_ttm": true, "ebit_ttm": true, "ebitda_ttm": true,
	"net_income_ttm": true, "cash": true, "total_debt": true,
	"equity": true, "total_assets": true,
}

// numField returns the address of the pointer field backing a numeric
// column, so callers can both read and write by column name.
func numField(m *domain.Metrics, name string) **float64 {
	switch name {
	case "price_current":
		return &m.PriceCurrent
	case "market_cap":
		return &m.MarketCap
	case "shares_out":
		return &m.SharesOut
	case "eps_forward":
		return &m.EPSForward
	case "pe_fwd":
		return &m.PEFwd
	case "pe_ttm":
		return &m.PETTM
	case "current_pe":
		return &m.CurrentPE
	case "pe_12m":
		return &m.PE12M
	case "pe_24m":
		return &m.PE24M
	case "pe_36m":
		return &m.PE36M
	case "pe_5y_low":
		return &m.PE5YLow
	case "pe_5y_high":
		return &m.PE5YHigh
	case "pe_5y_median":
		return &m.PE5YMedian
	case "ev_ebitda":
		return &m.EVEBITDA
	case "fcf_yield_pct":
		return &m.FCFYieldPct
	case "peg_5y":
		return &m.PEG5Y
	case "pe_fwd_sector":
		return &m.PEFwdSector
	case "ev_ebitda_sector":
		return &m.EVEBITDASctr
	case "revenue_ttm":
		return &m.RevenueTTM
	case "net_income_ttm":
		return &m.NetIncomeTTM
	case "eps_ttm":
		return &m.EPSTTM
	case "cfo_ttm":
		return &m.CFOTTM
	case "capex_ttm":
		return &m.CapexTTM
	case "fcf_ttm":
		return &m.FCFTTM
	case "ebit_ttm":
		return &m.EBITTTM
	case "ebitda_ttm":
		return &m.EBITDATTM
	case "depreciation_ttm":
		return &m.DepreciationTTM
	case "sbc_ttm":
		return &m.SBCTTM
	case "interest_expense_ttm":
		return &m.InterestExpenseTTM
	case "cash":
		return &m.Cash
	case "total_debt":
		return &m.TotalDebt
	case "equity":
		return &m.Equity
	case "total_assets":
		return &m.TotalAssets
	case "roic_pct":
		return &m.ROICPct
	case "fcf_margin_pct":
		return &m.FCFMarginPct
	case "cfo_to_ni":
		return &m.CFOToNI
	case "fcf_to_ebit":
		return &m.FCFToEBIT
	case "accruals_ratio":
		return &m.AccrualsRatio
	case "margin_stdev_5y_pct":
		return &m.MarginStdev5Pct
	case "buyback_yield_pct":
		return &m.BuybackYieldPct
	case "debt_to_equity":
		return &m.DebtToEquity
	case "netdebt_to_ebitda":
		return &m.NetDebtToEBITDA
	case "interest_coverage_x":
		return &m.InterestCovX
	case "sbc_to_sales_pct":
		return &m.SBCToSalesPct
	case "sharecount_change_5y_pct":
		return &m.ShareChange5YPct
	case "eps_cagr_3y_pct":
		return &m.EPSCagr3YPct
	case "eps_cagr_5y_pct":
		return &m.EPSCagr5YPct
	case "revenue_cagr_3y_pct":
		return &m.RevenueCagr3YPct
	case "revenue_cagr_5y_pct":
		return &m.RevenueCagr5YPct
	case "beta_5y":
		return &m.Beta5Y
	case "maxdrawdown_5y_pct":
		return &m.MaxDrawdown5YPct
	case "netcash_to_mktcap_pct":
		return &m.NetCashToMktCapPct
	case "cyclicality_pct":
		return &m.CyclicalityPct
	case "moat_score_0_10":
		return &m.MoatScore0To10
	case "recurring_revenue_pct":
		return &m.RecurringRevenuePct
	case "insider_own_pct":
		return &m.InsiderOwnPct
	case "riskdownside_score_0_10":
		return &m.RiskDownsideScore0To10
	case "macrofit_score_0_10":
		return &m.MacroFitScore0To10
	case "narrative_score_0_10":
		return &m.NarrativeScore0To10
	case "mos_base_pct":
		return &m.MOSBasePct
	}
	return nil
}

// Repository persists the per-ticker metrics row.
// Idempotency key: ticker_symbol.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a metrics repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "metrics").Logger(),
	}
}

// Get fetches the metrics row for a ticker, or nil if absent.
func (r *Repository) Get(ticker string) (*domain.Metrics, error) {
	query := `
		SELECT ticker_symbol, as_of_date, data_source, partial_ttm,
		       sector_cyc_tag, founder_led_bool, ` + strings.Join(numericColumns, ", ") + `
		FROM metrics WHERE ticker_symbol = ?
	`
	var m domain.Metrics
	var asOf, dataSource, cycTag sql.NullString

	dests := []any{&m.TickerSymbol, &asOf, &dataSource, &m.PartialTTM, &cycTag, &m.FounderLed}
	for _, col := range numericColumns {
		dests = append(dests, numField(&m, col))
	}

	err := r.db.QueryRow(query, ticker).Scan(dests...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics for %s: %w", ticker, err)
	}
	m.AsOfDate = asOf.String
	m.DataSource = dataSource.String
	m.SectorCycTag = cycTag.String
	return &m, nil
}

// Upsert merges a metrics payload into the ticker's row with the
// guarded policy: TTM and balance fields always overwrite, everything
// else only fills a hole. Non-finite incoming values are dropped.
// sourceTag "finnhub" appends the vendor to data_source. Returns
// "inserted" or "updated".
func (r *Repository) Upsert(ticker string, incoming *domain.Metrics, sourceTag string) (string, error) {
	existing, err := r.Get(ticker)
	if err != nil {
		return "", err
	}

	if existing == nil {
		row := sanitized(incoming)
		row.TickerSymbol = ticker
		if sourceTag == domain.SourceFinnhub {
			row.DataSource = domain.SourceFinnhub
		}
		if err := r.insert(row); err != nil {
			return "", err
		}
		r.log.Debug().Str("ticker", ticker).Msg("metrics row created")
		return "inserted", nil
	}

	for _, col := range numericColumns {
		in := *numField(incoming, col)
		if in == nil || !formulas.IsFinite(*in) {
			continue
		}
		ex := numField(existing, col)
		if alwaysUpdate[col] || *ex == nil {
			v := *in
			*ex = &v
		}
	}
	if incoming.AsOfDate != "" && existing.AsOfDate == "" {
		existing.AsOfDate = incoming.AsOfDate
	}
	if incoming.DataSource != "" && existing.DataSource == "" {
		existing.DataSource = incoming.DataSource
	}
	if sourceTag == domain.SourceFinnhub && !strings.Contains(existing.DataSource, domain.SourceFinnhub) {
		if existing.DataSource == "" {
			existing.DataSource = domain.SourceFinnhub
		} else {
			existing.DataSource += "+" + domain.SourceFinnhub
		}
	}
	if incoming.FounderLed != nil && existing.FounderLed == nil {
		existing.FounderLed = incoming.FounderLed
	}
	existing.PartialTTM = incoming.PartialTTM

	if err := r.update(existing); err != nil {
		return "", err
	}
	r.log.Debug().Str("ticker", ticker).Msg("metrics row updated")
	return "updated", nil
}

// SafePatch overwrites every clean incoming field unconditionally.
// Used by the deterministic pipeline, which recomputes its outputs
// from scratch each run.
func (r *Repository) SafePatch(ticker string, incoming *domain.Metrics) (string, error) {
	existing, err := r.Get(ticker)
	if err != nil {
		return "", err
	}

	if existing == nil {
		row := sanitized(incoming)
		row.TickerSymbol = ticker
		if err := r.insert(row); err != nil {
			return "", err
		}
		return "inserted", nil
	}

	for _, col := range numericColumns {
		in := *numField(incoming, col)
		if in == nil || !formulas.IsFinite(*in) {
			continue
		}
		v := *in
		*numField(existing, col) = &v
	}
	if incoming.AsOfDate != "" {
		existing.AsOfDate = incoming.AsOfDate
	}
	if incoming.DataSource != "" {
		existing.DataSource = incoming.DataSource
	}
	if incoming.FounderLed != nil {
		existing.FounderLed = incoming.FounderLed
	}
	existing.PartialTTM = incoming.PartialTTM

	if err := r.update(existing); err != nil {
		return "", err
	}
	return "updated", nil
}

// sanitized copies a payload, dropping non-finite numerics.
func sanitized(in *domain.Metrics) *domain.Metrics {
	out := *in
	for _, col := range numericColumns {
		p := numField(&out, col)
		if *p != nil && !formulas.IsFinite(**p) {
			*p = nil
		}
	}
	return &out
}

func (r *Repository) insert(m *domain.Metrics) error {
	cols := append([]string{"id", "ticker_symbol", "as_of_date", "data_source", "partial_ttm", "sector_cyc_tag", "founder_led_bool"}, numericColumns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO metrics (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders)

	args := []any{uuid.NewString(), m.TickerSymbol, nullIfEmpty(m.AsOfDate), nullIfEmpty(m.DataSource), m.PartialTTM, nullIfEmpty(m.SectorCycTag), m.FounderLed}
	for _, col := range numericColumns {
		args = append(args, *numField(m, col))
	}
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert metrics for %s: %w", m.TickerSymbol, err)
	}
	return nil
}

func (r *Repository) update(m *domain.Metrics) error {
	sets := []string{"as_of_date = ?", "data_source = ?", "partial_ttm = ?", "sector_cyc_tag = ?", "founder_led_bool = ?"}
	args := []any{nullIfEmpty(m.AsOfDate), nullIfEmpty(m.DataSource), m.PartialTTM, nullIfEmpty(m.SectorCycTag), m.FounderLed}
	for _, col := range numericColumns {
		sets = append(sets, col+" = ?")
		args = append(args, *numField(m, col))
	}
	args = append(args, m.TickerSymbol)

	query := fmt.Sprintf("UPDATE metrics SET %s WHERE ticker_symbol = ?", strings.Join(sets, ", "))
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update metrics for %s: %w", m.TickerSymbol, err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// HasMetrics reports whether a metrics row exists for a ticker.
func (r *Repository) HasMetrics(ticker string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM metrics WHERE ticker_symbol = ? LIMIT 1`, ticker).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check metrics for %s: %w", ticker, err)
	}
	return true, nil
}
