package tickers

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ticker is one registry row. Metadata fields are optional and filled
// lazily as vendors report them.
type Ticker struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Sector    string `json:"sector,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Repository persists the ticker registry.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a tickers repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "tickers").Logger(),
	}
}

// Get fetches a ticker row by symbol, or nil if absent.
func (r *Repository) Get(symbol string) (*Ticker, error) {
	var t Ticker
	var name, exchange, sector sql.NullString
	err := r.db.QueryRow(`
		SELECT id, symbol, name, exchange, sector, created_at
		FROM tickers WHERE symbol = ?
	`, symbol).Scan(&t.ID, &t.Symbol, &name, &exchange, &sector, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker %s: %w", symbol, err)
	}
	t.Name = name.String
	t.Exchange = exchange.String
	t.Sector = sector.String
	return &t, nil
}

// Ensure creates the ticker row if missing, otherwise fills in any
// metadata the row lacks. Existing non-empty values are never
// overwritten.
func (r *Repository) Ensure(symbol, name, exchange, sector string) (*Ticker, error) {
	existing, err := r.Get(symbol)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		t := &Ticker{
			ID:        uuid.NewString(),
			Symbol:    symbol,
			Name:      name,
			Exchange:  exchange,
			Sector:    sector,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		_, err := r.db.Exec(`
			INSERT INTO tickers (id, symbol, name, exchange, sector, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, t.Symbol, nullIfEmpty(t.Name), nullIfEmpty(t.Exchange), nullIfEmpty(t.Sector), t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ticker %s: %w", symbol, err)
		}
		r.log.Info().Str("symbol", symbol).Msg("ticker row created")
		return t, nil
	}

	updated := false
	if existing.Name == "" && name != "" {
		existing.Name = name
		updated = true
	}
	if existing.Exchange == "" && exchange != "" {
		existing.Exchange = exchange
		updated = true
	}
	if existing.Sector == "" && sector != "" {
		existing.Sector = sector
		updated = true
	}
	if updated {
		_, err := r.db.Exec(`
			UPDATE tickers SET name = ?, exchange = ?, sector = ? WHERE symbol = ?
		`, nullIfEmpty(existing.Name), nullIfEmpty(existing.Exchange), nullIfEmpty(existing.Sector), symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to update ticker %s: %w", symbol, err)
		}
		r.log.Debug().Str("symbol", symbol).Msg("ticker metadata refreshed")
	}
	return existing, nil
}

// List returns all tickers ordered by symbol.
func (r *Repository) List(limit int) ([]Ticker, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, symbol, name, exchange, sector, created_at
		FROM tickers ORDER BY symbol LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var out []Ticker
	for rows.Next() {
		var t Ticker
		var name, exchange, sector sql.NullString
		if err := rows.Scan(&t.ID, &t.Symbol, &name, &exchange, &sector, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticker row: %w", err)
		}
		t.Name = name.String
		t.Exchange = exchange.String
		t.Sector = sector.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
