package financials

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// Repository persists normalized statement records.
// Idempotency key: (ticker, period_end, freq). Updates only overwrite
// with non-null incoming values so vendors can fill each other's gaps.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a financials repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "financials").Logger(),
	}
}

const upsertQuery = `
	INSERT INTO financials_history (
		id, ticker, period_end, freq, source, as_of_date,
		revenue, net_income, ebit, interest_expense, depreciation,
		stock_based_compensation, shares_diluted, eps_diluted,
		cfo, capex, fcf, cash, short_debt, long_debt, total_debt,
		stockholder_equity, total_assets
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(ticker, period_end, freq) DO UPDATE SET
		source                   = COALESCE(excluded.source, source),
		as_of_date               = COALESCE(excluded.as_of_date, as_of_date),
		revenue                  = COALESCE(excluded.revenue, revenue),
		net_income               = COALESCE(excluded.net_income, net_income),
		ebit                     = COALESCE(excluded.ebit, ebit),
		interest_expense         = COALESCE(excluded.interest_expense, interest_expense),
		depreciation             = COALESCE(excluded.depreciation, depreciation),
		stock_based_compensation = COALESCE(excluded.stock_based_compensation, stock_based_compensation),
		shares_diluted           = COALESCE(excluded.shares_diluted, shares_diluted),
		eps_diluted              = COALESCE(excluded.eps_diluted, eps_diluted),
		cfo                      = COALESCE(excluded.cfo, cfo),
		capex                    = COALESCE(excluded.capex, capex),
		fcf                      = COALESCE(excluded.fcf, fcf),
		cash                     = COALESCE(excluded.cash, cash),
		short_debt               = COALESCE(excluded.short_debt, short_debt),
		long_debt                = COALESCE(excluded.long_debt, long_debt),
		total_debt               = COALESCE(excluded.total_debt, total_debt),
		stockholder_equity       = COALESCE(excluded.stockholder_equity, stockholder_equity),
		total_assets             = COALESCE(excluded.total_assets, total_assets)
`

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Upsert writes statement records, skipping any missing the
// idempotency key. Returns the number of rows written.
func (r *Repository) Upsert(records []domain.StatementRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	upserted := 0
	for _, rec := range records {
		if rec.Ticker == "" || rec.PeriodEnd == "" || rec.Freq == "" {
			continue
		}
		_, err := r.db.Exec(upsertQuery,
			uuid.NewString(),
			rec.Ticker,
			rec.PeriodEnd,
			rec.Freq,
			nullable(rec.Source),
			nullable(rec.AsOfDate),
			rec.Revenue,
			rec.NetIncome,
			rec.EBIT,
			rec.InterestExpense,
			rec.Depreciation,
			rec.StockBasedCompensation,
			rec.SharesDiluted,
			rec.EPSDiluted,
			rec.CFO,
			rec.Capex,
			rec.FCF,
			rec.Cash,
			rec.ShortDebt,
			rec.LongDebt,
			rec.TotalDebt,
			rec.StockholderEquity,
			rec.TotalAssets,
		)
		if err != nil {
			return upserted, fmt.Errorf("failed to upsert financials for %s %s %s: %w", rec.Ticker, rec.PeriodEnd, rec.Freq, err)
		}
		upserted++
	}

	r.log.Info().Str("ticker", records[0].Ticker).
		Int("upserted", upserted).Int("total", len(records)).
		Msg("financials upserted")
	return upserted, nil
}

// GetForTicker fetches statement rows for a ticker, newest first,
// optionally filtered by frequency.
func (r *Repository) GetForTicker(ticker, freq string, limit int) ([]domain.StatementRecord, error) {
	if limit <= 0 {
		limit = 40
	}
	query := `
		SELECT ticker, period_end, freq, source, as_of_date,
		       revenue, net_income, ebit, interest_expense, depreciation,
		       stock_based_compensation, shares_diluted, eps_diluted,
		       cfo, capex, fcf, cash, short_debt, long_debt, total_debt,
		       stockholder_equity, total_assets
		FROM financials_history
		WHERE ticker = ?
	`
	args := []any{ticker}
	if freq != "" {
		query += " AND freq = ?"
		args = append(args, freq)
	}
	query += " ORDER BY period_end DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query financials for %s: %w", ticker, err)
	}
	defer rows.Close()

	var records []domain.StatementRecord
	for rows.Next() {
		var rec domain.StatementRecord
		var source, asOf sql.NullString
		if err := rows.Scan(
			&rec.Ticker,
			&rec.PeriodEnd,
			&rec.Freq,
			&source,
			&asOf,
			&rec.Revenue,
			&rec.NetIncome,
			&rec.EBIT,
			&rec.InterestExpense,
			&rec.Depreciation,
			&rec.StockBasedCompensation,
			&rec.SharesDiluted,
			&rec.EPSDiluted,
			&rec.CFO,
			&rec.Capex,
			&rec.FCF,
			&rec.Cash,
			&rec.ShortDebt,
			&rec.LongDebt,
			&rec.TotalDebt,
			&rec.StockholderEquity,
			&rec.TotalAssets,
		); err != nil {
			return nil, fmt.Errorf("failed to scan financials row: %w", err)
		}
		rec.Source = source.String
		rec.AsOfDate = asOf.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HasFinancials reports whether any statement rows exist for a ticker.
func (r *Repository) HasFinancials(ticker string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM financials_history WHERE ticker = ? LIMIT 1`, ticker).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check financials for %s: %w", ticker, err)
	}
	return true, nil
}
