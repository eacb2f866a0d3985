package scoring

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// Repository persists lens presets and score snapshots.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a scoring repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "scoring").Logger(),
	}
}

// SeedLenses inserts the built-in presets, leaving any existing rows
// untouched so operator tweaks survive restarts.
func (r *Repository) SeedLenses() error {
	query := `
		INSERT OR IGNORE INTO lens_presets (
			id, name, valuation, quality, capital_allocation, growth,
			moat, risk, macro, narrative, dilution, buy_threshold, watch_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, l := range BuiltinLenses {
		if _, err := r.db.Exec(query,
			l.ID, l.Name, l.Valuation, l.Quality, l.CapitalAllocation,
			l.Growth, l.Moat, l.Risk, l.Macro, l.Narrative, l.Dilution,
			l.BuyThreshold, l.WatchThreshold,
		); err != nil {
			return fmt.Errorf("failed to seed lens %s: %w", l.ID, err)
		}
	}
	r.log.Debug().Int("lenses", len(BuiltinLenses)).Msg("lens presets seeded")
	return nil
}

const lensColumns = `
	id, name, valuation, quality, capital_allocation, growth,
	moat, risk, macro, narrative, dilution, buy_threshold, watch_threshold
`

func scanLens(row interface{ Scan(...any) error }) (*domain.LensPreset, error) {
	var l domain.LensPreset
	err := row.Scan(
		&l.ID, &l.Name, &l.Valuation, &l.Quality, &l.CapitalAllocation,
		&l.Growth, &l.Moat, &l.Risk, &l.Macro, &l.Narrative, &l.Dilution,
		&l.BuyThreshold, &l.WatchThreshold,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLenses returns all lens presets ordered by name.
func (r *Repository) ListLenses() ([]domain.LensPreset, error) {
	rows, err := r.db.Query(`SELECT ` + lensColumns + ` FROM lens_presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lens presets: %w", err)
	}
	defer rows.Close()

	var lenses []domain.LensPreset
	for rows.Next() {
		l, err := scanLens(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lens preset: %w", err)
		}
		lenses = append(lenses, *l)
	}
	return lenses, rows.Err()
}

// GetLens fetches one lens preset by id, or nil if absent.
func (r *Repository) GetLens(id string) (*domain.LensPreset, error) {
	l, err := scanLens(r.db.QueryRow(`SELECT `+lensColumns+` FROM lens_presets WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lens preset %s: %w", id, err)
	}
	return l, nil
}

// UpsertSnapshot writes a score snapshot, replacing any existing row
// for the same (ticker, lens, as-of date). The original id and
// created_at survive a replace.
func (r *Repository) UpsertSnapshot(s *domain.ScoreSnapshot) error {
	catScores, err := json.Marshal(s.CategoryScores)
	if err != nil {
		return fmt.Errorf("failed to marshal category scores: %w", err)
	}
	topPos, _ := json.Marshal(s.TopPositiveContributors)
	topNeg, _ := json.Marshal(s.TopNegativeContributors)
	missing, _ := json.Marshal(s.MissingCriticalFields)
	warnings, _ := json.Marshal(s.ResolutionWarnings)

	query := `
		INSERT INTO score_snapshots (
			id, ticker_symbol, lens_id, lens_name, score_version, data_version,
			final_score, category_scores, recommendation,
			confidence_pct, confidence_grade, mos_pct, mos_signal,
			top_positive_contributors, top_negative_contributors,
			missing_critical_fields, resolution_warnings,
			snapshot_hash, as_of_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker_symbol, lens_id, as_of_date) DO UPDATE SET
			lens_name                 = excluded.lens_name,
			score_version             = excluded.score_version,
			data_version              = excluded.data_version,
			final_score               = excluded.final_score,
			category_scores           = excluded.category_scores,
			recommendation            = excluded.recommendation,
			confidence_pct            = excluded.confidence_pct,
			confidence_grade          = excluded.confidence_grade,
			mos_pct                   = excluded.mos_pct,
			mos_signal                = excluded.mos_signal,
			top_positive_contributors = excluded.top_positive_contributors,
			top_negative_contributors = excluded.top_negative_contributors,
			missing_critical_fields   = excluded.missing_critical_fields,
			resolution_warnings       = excluded.resolution_warnings,
			snapshot_hash             = excluded.snapshot_hash
	`
	_, err = r.db.Exec(query,
		s.ID, s.TickerSymbol, s.LensID, s.LensName, s.ScoreVersion, s.DataVersion,
		s.FinalScore, string(catScores), s.Recommendation,
		s.ConfidencePct, s.ConfidenceGrade, s.MOSPct, s.MOSSignal,
		string(topPos), string(topNeg), string(missing), string(warnings),
		s.SnapshotHash, s.AsOfDate, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s/%s: %w", s.TickerSymbol, s.LensID, err)
	}
	return nil
}

// GetSnapshots fetches snapshots for a ticker, newest first,
// optionally filtered by lens id.
func (r *Repository) GetSnapshots(ticker, lensID string, limit int) ([]domain.ScoreSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, ticker_symbol, lens_id, lens_name, score_version, data_version,
		       final_score, category_scores, recommendation,
		       confidence_pct, confidence_grade, mos_pct, mos_signal,
		       top_positive_contributors, top_negative_contributors,
		       missing_critical_fields, resolution_warnings,
		       snapshot_hash, as_of_date, created_at
		FROM score_snapshots
		WHERE ticker_symbol = ?
	`
	args := []any{ticker}
	if lensID != "" {
		query += " AND lens_id = ?"
		args = append(args, lensID)
	}
	query += " ORDER BY as_of_date DESC, lens_name ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for %s: %w", ticker, err)
	}
	defer rows.Close()

	var snapshots []domain.ScoreSnapshot
	for rows.Next() {
		var s domain.ScoreSnapshot
		var dataVersion sql.NullString
		var catScores, topPos, topNeg, missing, warnings []byte
		if err := rows.Scan(
			&s.ID, &s.TickerSymbol, &s.LensID, &s.LensName, &s.ScoreVersion, &dataVersion,
			&s.FinalScore, &catScores, &s.Recommendation,
			&s.ConfidencePct, &s.ConfidenceGrade, &s.MOSPct, &s.MOSSignal,
			&topPos, &topNeg, &missing, &warnings,
			&s.SnapshotHash, &s.AsOfDate, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		s.DataVersion = dataVersion.String
		json.Unmarshal(catScores, &s.CategoryScores)
		json.Unmarshal(topPos, &s.TopPositiveContributors)
		json.Unmarshal(topNeg, &s.TopNegativeContributors)
		json.Unmarshal(missing, &s.MissingCriticalFields)
		json.Unmarshal(warnings, &s.ResolutionWarnings)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
