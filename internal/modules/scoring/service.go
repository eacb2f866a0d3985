package scoring

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
)

// Service scores a ticker's metrics against every lens preset and
// persists the resulting snapshots.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a scoring service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "scoring").Logger(),
	}
}

// ScoreAllLenses computes and stores one snapshot per lens preset.
// warnings come from the TTM coverage check. MOS is supplied by a
// later projection stage, so snapshots written here carry no MOS.
// Returns the number of snapshots written.
func (s *Service) ScoreAllLenses(ticker string, m *domain.Metrics, warnings []string) (int, error) {
	lenses, err := s.repo.ListLenses()
	if err != nil {
		return 0, err
	}
	if len(lenses) == 0 {
		lenses = BuiltinLenses
	}

	written := 0
	for i := range lenses {
		snap := ComputeSnapshot(ticker, &lenses[i], m, nil, warnings)
		if err := s.repo.UpsertSnapshot(&snap); err != nil {
			return written, fmt.Errorf("failed to persist snapshot for lens %s: %w", lenses[i].ID, err)
		}
		written++
	}

	s.log.Info().Str("ticker", ticker).Int("snapshots", written).Msg("score snapshots persisted")
	return written, nil
}
