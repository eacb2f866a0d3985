package metrics

import "database/sql"

// Schema for the resolved metrics record. One row per ticker; vendor
// ETL steps and the deterministic pipeline merge into the same row.
const MetricsSchema = `
CREATE TABLE IF NOT EXISTS metrics (
    id TEXT PRIMARY KEY,
    ticker_symbol TEXT UNIQUE NOT NULL,
    as_of_date TEXT,
    data_source TEXT,
    partial_ttm INTEGER NOT NULL DEFAULT 0,
    price_current REAL,
    market_cap REAL,
    shares_out REAL,
    eps_forward REAL,
    pe_fwd REAL,
    pe_ttm REAL,
    current_pe REAL,
    pe_12m REAL,
    pe_24m REAL,
    pe_36m REAL,
    pe_5y_low REAL,
    pe_5y_high REAL,
    pe_5y_median REAL,
    ev_ebitda REAL,
    fcf_yield_pct REAL,
    peg_5y REAL,
    pe_fwd_sector REAL,
    ev_ebitda_sector REAL,
    revenue_ttm REAL,
    net_income_ttm REAL,
    eps_ttm REAL,
    cfo_ttm REAL,
    capex_ttm REAL,
    fcf_ttm REAL,
    ebit_ttm REAL,
    ebitda_ttm REAL,
    depreciation_ttm REAL,
    sbc_ttm REAL,
    interest_expense_ttm REAL,
    cash REAL,
    total_debt REAL,
    equity REAL,
    total_assets REAL,
    roic_pct REAL,
    fcf_margin_pct REAL,
    cfo_to_ni REAL,
    fcf_to_ebit REAL,
    accruals_ratio REAL,
    margin_stdev_5y_pct REAL,
    buyback_yield_pct REAL,
    debt_to_equity REAL,
    netdebt_to_ebitda REAL,
    interest_coverage_x REAL,
    sbc_to_sales_pct REAL,
    sharecount_change_5y_pct REAL,
    eps_cagr_3y_pct REAL,
    eps_cagr_5y_pct REAL,
    revenue_cagr_3y_pct REAL,
    revenue_cagr_5y_pct REAL,
    beta_5y REAL,
    maxdrawdown_5y_pct REAL,
    netcash_to_mktcap_pct REAL,
    cyclicality_pct REAL,
    sector_cyc_tag TEXT,
    moat_score_0_10 REAL,
    recurring_revenue_pct REAL,
    insider_own_pct REAL,
    founder_led_bool INTEGER,
    riskdownside_score_0_10 REAL,
    macrofit_score_0_10 REAL,
    narrative_score_0_10 REAL,
    mos_base_pct REAL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(MetricsSchema)
	return err
}
