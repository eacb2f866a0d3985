package prices

import "database/sql"

// Schema for daily price bars. One row per (ticker, date).
const PricesSchema = `
CREATE TABLE IF NOT EXISTS prices_history (
    id TEXT PRIMARY KEY,
    ticker TEXT NOT NULL,
    date TEXT NOT NULL,
    open REAL,
    high REAL,
    low REAL,
    close REAL,
    close_adj REAL,
    volume REAL,
    source TEXT,
    as_of_date TEXT,
    UNIQUE(ticker, date)
);

CREATE INDEX IF NOT EXISTS idx_prices_ticker_date ON prices_history(ticker, date);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(PricesSchema)
	return err
}
