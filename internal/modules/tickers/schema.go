package tickers

import "database/sql"

// Schema for the ticker registry.
const TickersSchema = `
CREATE TABLE IF NOT EXISTS tickers (
    id TEXT PRIMARY KEY,
    symbol TEXT UNIQUE NOT NULL,
    name TEXT,
    exchange TEXT,
    sector TEXT,
    created_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(TickersSchema)
	return err
}
