package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/modules/etl"
	"github.com/gzimm88/StockLensesV2/internal/modules/tickers"
)

// perTickerTimeout bounds a single ticker refresh so one stuck vendor
// call cannot stall the whole nightly run.
const perTickerTimeout = 10 * time.Minute

// RefreshJob re-runs the full pipeline for every known ticker. Partial
// results are logged and tolerated, the job only fails on a repository
// error listing the universe.
type RefreshJob struct {
	etl        *etl.Service
	tickerRepo *tickers.Repository
	log        zerolog.Logger
}

func NewRefreshJob(etlService *etl.Service, tickerRepo *tickers.Repository, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		etl:        etlService,
		tickerRepo: tickerRepo,
		log:        log.With().Str("job", "nightly_refresh").Logger(),
	}
}

func (j *RefreshJob) Name() string { return "nightly_refresh" }

func (j *RefreshJob) Run() error {
	rows, err := j.tickerRepo.List(1000)
	if err != nil {
		return err
	}
	j.log.Info().Int("tickers", len(rows)).Msg("nightly refresh started")

	okCount, partialCount := 0, 0
	for _, row := range rows {
		ctx, cancel := context.WithTimeout(context.Background(), perTickerTimeout)
		res := j.etl.RunFullRefresh(ctx, row.Symbol)
		cancel()

		if res.Status == "ok" {
			okCount++
		} else {
			partialCount++
			j.log.Warn().
				Str("ticker", row.Symbol).
				Strs("errors", res.Errors).
				Msg("refresh completed with errors")
		}
	}

	j.log.Info().
		Int("ok", okCount).
		Int("partial", partialCount).
		Msg("nightly refresh finished")
	return nil
}
