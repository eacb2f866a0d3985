package financials

import "database/sql"

// Schema for normalized statement history. One row per
// (ticker, period_end, freq); vendors merge into the same row.
const FinancialsSchema = `
CREATE TABLE IF NOT EXISTS financials_history (
    id TEXT PRIMARY KEY,
    ticker TEXT NOT NULL,
    period_end TEXT NOT NULL,
    freq TEXT NOT NULL,
    source TEXT,
    as_of_date TEXT,
    revenue REAL,
    net_income REAL,
    ebit REAL,
    interest_expense REAL,
    depreciation REAL,
    stock_based_compensation REAL,
    shares_diluted REAL,
    eps_diluted REAL,
    cfo REAL,
    capex REAL,
    fcf REAL,
    cash REAL,
    short_debt REAL,
    long_debt REAL,
    total_debt REAL,
    stockholder_equity REAL,
    total_assets REAL,
    UNIQUE(ticker, period_end, freq)
);

CREATE INDEX IF NOT EXISTS idx_financials_ticker_freq ON financials_history(ticker, freq);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(FinancialsSchema)
	return err
}
