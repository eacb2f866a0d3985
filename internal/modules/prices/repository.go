package prices

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// Write batching. Batches keep transactions small; the retry loop
// absorbs transient SQLITE_BUSY errors under WAL.
const (
	batchSize       = 25
	interBatchDelay = 200 * time.Millisecond
)

var insertRetryDelays = []time.Duration{
	1500 * time.Millisecond,
	3 * time.Second,
	5 * time.Second,
}

// Repository persists daily price bars.
// Idempotency key: (ticker, date). Existing rows are refreshed with
// non-null incoming values.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a prices repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

const upsertQuery = `
	INSERT INTO prices_history (
		id, ticker, date, open, high, low, close, close_adj, volume, source, as_of_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(ticker, date) DO UPDATE SET
		open       = COALESCE(excluded.open, open),
		high       = COALESCE(excluded.high, high),
		low        = COALESCE(excluded.low, low),
		close      = COALESCE(excluded.close, close),
		close_adj  = COALESCE(excluded.close_adj, close_adj),
		volume     = COALESCE(excluded.volume, volume),
		source     = COALESCE(excluded.source, source),
		as_of_date = COALESCE(excluded.as_of_date, as_of_date)
`

// UpsertResult counts the outcome of a price batch write.
type UpsertResult struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Upsert writes price bars in batches with retry.
func (r *Repository) Upsert(bars []domain.DailyPrice) (UpsertResult, error) {
	result := UpsertResult{}
	if len(bars) == 0 {
		return result, nil
	}

	ticker := bars[0].Ticker
	batches := (len(bars) + batchSize - 1) / batchSize
	r.log.Info().Str("ticker", ticker).Int("rows", len(bars)).Int("batches", batches).
		Msg("upserting price history")

	for i := 0; i < len(bars); i += batchSize {
		end := i + batchSize
		if end > len(bars) {
			end = len(bars)
		}
		batch := bars[i:end]

		if err := r.writeBatch(batch); err != nil {
			result.Skipped += len(batch)
			r.log.Error().Err(err).Str("ticker", ticker).
				Int("batch", i/batchSize+1).Msg("price batch failed")
			continue
		}
		result.Upserted += len(batch)

		if end < len(bars) {
			time.Sleep(interBatchDelay)
		}
	}

	r.log.Info().Str("ticker", ticker).
		Int("upserted", result.Upserted).Int("skipped", result.Skipped).
		Msg("price history upsert done")
	return result, nil
}

func (r *Repository) writeBatch(batch []domain.DailyPrice) error {
	var lastErr error
	for attempt, delay := range insertRetryDelays {
		lastErr = r.execBatch(batch)
		if lastErr == nil {
			return nil
		}
		if attempt < len(insertRetryDelays)-1 {
			r.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("price batch retry")
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("price batch failed after %d attempts: %w", len(insertRetryDelays), lastErr)
}

func (r *Repository) execBatch(batch []domain.DailyPrice) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, bar := range batch {
		if _, err := tx.Exec(upsertQuery,
			uuid.NewString(),
			bar.Ticker,
			bar.Date,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.CloseAdj,
			bar.Volume,
			bar.Source,
			bar.AsOfDate,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert price %s %s: %w", bar.Ticker, bar.Date, err)
		}
	}
	return tx.Commit()
}

// GetForTicker fetches price bars for a ticker, newest first,
// optionally from startDate (inclusive, YYYY-MM-DD).
func (r *Repository) GetForTicker(ticker, startDate string, limit int) ([]domain.DailyPrice, error) {
	if limit <= 0 {
		limit = 2000
	}
	query := `
		SELECT ticker, date, open, high, low, close, close_adj, volume, source, as_of_date
		FROM prices_history
		WHERE ticker = ?
	`
	args := []any{ticker}
	if startDate != "" {
		query += " AND date >= ?"
		args = append(args, startDate)
	}
	query += " ORDER BY date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	var bars []domain.DailyPrice
	for rows.Next() {
		var bar domain.DailyPrice
		var source, asOf sql.NullString
		if err := rows.Scan(
			&bar.Ticker,
			&bar.Date,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.CloseAdj,
			&bar.Volume,
			&source,
			&asOf,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		bar.Source = source.String
		bar.AsOfDate = asOf.String
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// GetLatestClose returns the most recent raw close for a ticker.
// Raw close, not close_adj: historical PE uses the split-adjusted
// series without dividend adjustment.
func (r *Repository) GetLatestClose(ticker string) (*float64, error) {
	var close float64
	err := r.db.QueryRow(`
		SELECT close FROM prices_history
		WHERE ticker = ? ORDER BY date DESC LIMIT 1
	`, ticker).Scan(&close)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest close for %s: %w", ticker, err)
	}
	return &close, nil
}
