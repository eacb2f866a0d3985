package scoring

import "database/sql"

// Schema for lens presets and score snapshots. A snapshot is keyed by
// (ticker_symbol, lens_id, as_of_date); re-running a day's scoring
// replaces that day's row.
const ScoringSchema = `
CREATE TABLE IF NOT EXISTS lens_presets (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    valuation REAL NOT NULL DEFAULT 0,
    quality REAL NOT NULL DEFAULT 0,
    capital_allocation REAL NOT NULL DEFAULT 0,
    growth REAL NOT NULL DEFAULT 0,
    moat REAL NOT NULL DEFAULT 0,
    risk REAL NOT NULL DEFAULT 0,
    macro REAL NOT NULL DEFAULT 0,
    narrative REAL NOT NULL DEFAULT 0,
    dilution REAL NOT NULL DEFAULT 0,
    buy_threshold REAL NOT NULL DEFAULT 6.5,
    watch_threshold REAL NOT NULL DEFAULT 4.5
);

CREATE TABLE IF NOT EXISTS score_snapshots (
    id TEXT PRIMARY KEY,
    ticker_symbol TEXT NOT NULL,
    lens_id TEXT NOT NULL,
    lens_name TEXT NOT NULL,
    score_version TEXT NOT NULL,
    data_version TEXT,
    final_score REAL,
    category_scores TEXT,
    recommendation TEXT NOT NULL,
    confidence_pct REAL NOT NULL,
    confidence_grade TEXT NOT NULL,
    mos_pct REAL,
    mos_signal TEXT,
    top_positive_contributors TEXT,
    top_negative_contributors TEXT,
    missing_critical_fields TEXT,
    resolution_warnings TEXT,
    snapshot_hash TEXT NOT NULL,
    as_of_date TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE(ticker_symbol, lens_id, as_of_date)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_ticker ON score_snapshots(ticker_symbol, as_of_date);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(ScoringSchema)
	return err
}
