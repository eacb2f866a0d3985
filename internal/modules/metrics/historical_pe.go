package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// HistoricalPE holds trailing PE observations at fixed lookbacks.
type HistoricalPE struct {
	PE12M *float64
	PE24M *float64
	PE36M *float64
}

// ComputeHistoricalPE samples the trailing PE 12, 24 and 36 months ago
// from stored prices and the rolling four-quarter EPS. Uses the raw
// close (split-adjusted series), not close_adj.
func ComputeHistoricalPE(quarterly []domain.StatementRecord, prices []domain.DailyPrice, now time.Time) HistoricalPE {
	out := HistoricalPE{}
	if len(prices) == 0 {
		return out
	}

	pricesDesc := make([]domain.DailyPrice, len(prices))
	copy(pricesDesc, prices)
	sort.Slice(pricesDesc, func(i, j int) bool { return pricesDesc[i].Date > pricesDesc[j].Date })

	epsByMonth, keysAsc := rollingTTMEPSByMonth(quarterly)
	if len(keysAsc) == 0 {
		return out
	}

	peAt := func(monthsAgo int) *float64 {
		target := now.UTC().AddDate(0, -monthsAgo, 0)
		monthKey := target.Format("2006-01")

		epsKey := latestKeyAtOrBefore(keysAsc, monthKey)
		if epsKey == "" {
			return nil
		}
		eps := epsByMonth[epsKey]
		if eps < minEPS {
			return nil
		}

		// Last trading day of the target month.
		var monthEnd *domain.DailyPrice
		for i := range pricesDesc {
			if pricesDesc[i].Date[:7] == monthKey {
				monthEnd = &pricesDesc[i]
				break
			}
		}
		if monthEnd == nil || monthEnd.Close <= 0 {
			return nil
		}

		pe := monthEnd.Close / eps
		if !formulas.IsFinite(pe) {
			return nil
		}
		return &pe
	}

	out.PE12M = peAt(12)
	out.PE24M = peAt(24)
	out.PE36M = peAt(36)
	return out
}

// String formats the lookback samples for logging.
func (h HistoricalPE) String() string {
	f := func(p *float64) string {
		if p == nil {
			return "nil"
		}
		return fmt.Sprintf("%.2f", *p)
	}
	return fmt.Sprintf("pe_12m=%s pe_24m=%s pe_36m=%s", f(h.PE12M), f(h.PE24M), f(h.PE36M))
}
