package metrics

import (
	"sort"
	"time"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// PriceMetrics holds price-derived valuation metrics.
type PriceMetrics struct {
	PriceCurrent *float64
	PETTM        *float64
	CurrentPE    *float64
	PE5YLow      *float64
	PE5YHigh     *float64
	PE5YMedian   *float64
	PEG5Y        *float64
}

const (
	// minEPS floors the TTM EPS used as a PE denominator.
	minEPS = 0.01
	// maxPE filters spurious monthly PE observations.
	maxPE = 1000
	// maxMonths caps the monthly PE band window at 5 years.
	maxMonths = 60
)

// ComputePriceMetrics derives the current price, 5-year PE bands from
// a monthly-sampled PE series, the current PE and the PEG ratio.
// prices and quarterly sorted newest-first.
//
// The monthly PE series uses each month's last adjusted close divided
// by the most recent TTM EPS known at or before that month. TTM EPS is
// keyed by the period-end month of the 4th quarter in each rolling
// window; it is never interpolated.
func ComputePriceMetrics(
	prices []domain.DailyPrice,
	quarterly []domain.StatementRecord,
	epsCagr5YPct *float64,
	now time.Time,
) PriceMetrics {
	out := PriceMetrics{}
	if len(prices) == 0 {
		return out
	}

	sorted := make([]domain.DailyPrice, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })

	priceCurrent := sorted[0].CloseAdj
	if formulas.IsFinite(priceCurrent) {
		out.PriceCurrent = formulas.Ptr(priceCurrent)
	}

	monthly := monthEndSeries(sorted, maxMonths)
	epsByMonth, epsKeys := rollingTTMEPSByMonth(quarterly)

	// Monthly PE series for the 5Y bands.
	var peSeries []float64
	for _, m := range monthly {
		if key := latestKeyAtOrBefore(epsKeys, m.month); key != "" {
			eps := epsByMonth[key]
			if eps >= minEPS {
				pe := m.closeAdj / eps
				if formulas.IsFinite(pe) && pe > 0 && pe < maxPE {
					peSeries = append(peSeries, pe)
				}
			}
		}
	}
	if len(peSeries) > 0 {
		lo, hi := peSeries[0], peSeries[0]
		for _, pe := range peSeries {
			if pe < lo {
				lo = pe
			}
			if pe > hi {
				hi = pe
			}
		}
		out.PE5YLow = formulas.Ptr(lo)
		out.PE5YHigh = formulas.Ptr(hi)
		out.PE5YMedian = formulas.Ptr(formulas.Median(peSeries))
	}

	// Current PE from the latest price and the latest applicable EPS.
	if out.PriceCurrent != nil && len(epsKeys) > 0 {
		nowKey := now.UTC().Format("2006-01")
		if key := latestKeyAtOrBefore(epsKeys, nowKey); key != "" {
			eps := epsByMonth[key]
			if eps >= minEPS {
				pe := *out.PriceCurrent / eps
				if formulas.IsFinite(pe) {
					out.PETTM = formulas.Ptr(pe)
					out.CurrentPE = formulas.Ptr(pe)
				}
			}
		}
	}

	// PEG = current PE / (5Y EPS CAGR as a fraction).
	if out.CurrentPE != nil && epsCagr5YPct != nil && *epsCagr5YPct > 0 {
		peg := *out.CurrentPE / (*epsCagr5YPct / 100)
		if formulas.IsFinite(peg) {
			out.PEG5Y = formulas.Ptr(peg)
		}
	}

	return out
}

type monthClose struct {
	month    string // YYYY-MM
	closeAdj float64
}

// monthEndSeries groups prices by calendar month and keeps the last
// trading day's adjusted close, for up to maxMonths recent months,
// returned ascending.
func monthEndSeries(pricesDesc []domain.DailyPrice, maxMonths int) []monthClose {
	type entry struct {
		date     string
		closeAdj float64
	}
	byMonth := map[string]entry{}
	for _, p := range pricesDesc {
		if len(p.Date) < 7 || !formulas.IsFinite(p.CloseAdj) {
			continue
		}
		key := p.Date[:7]
		if cur, ok := byMonth[key]; !ok || p.Date > cur.date {
			byMonth[key] = entry{date: p.Date, closeAdj: p.CloseAdj}
		}
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	if len(months) > maxMonths {
		months = months[:maxMonths]
	}
	sort.Strings(months)

	out := make([]monthClose, 0, len(months))
	for _, m := range months {
		out = append(out, monthClose{month: m, closeAdj: byMonth[m].closeAdj})
	}
	return out
}

// rollingTTMEPSByMonth computes TTM EPS for every rolling 4-quarter
// window (ordered oldest-to-newest) and keys each value by the 4th
// quarter's period-end month. Windows with any missing net income or
// share count, or non-positive EPS, are skipped.
func rollingTTMEPSByMonth(quarterly []domain.StatementRecord) (map[string]float64, []string) {
	asc := make([]domain.StatementRecord, len(quarterly))
	copy(asc, quarterly)
	sort.Slice(asc, func(i, j int) bool { return asc[i].PeriodEnd < asc[j].PeriodEnd })

	epsByMonth := map[string]float64{}
	for i := 3; i < len(asc); i++ {
		window := asc[i-3 : i+1]
		niSum := 0.0
		shSum := 0.0
		ok := true
		for _, q := range window {
			if q.NetIncome == nil || !formulas.IsFinite(*q.NetIncome) ||
				q.SharesDiluted == nil || !formulas.IsFinite(*q.SharesDiluted) {
				ok = false
				break
			}
			niSum += *q.NetIncome
			shSum += *q.SharesDiluted
		}
		if !ok {
			continue
		}
		shAvg := shSum / 4
		if shAvg <= 0 {
			continue
		}
		eps := niSum / shAvg
		if eps <= 0 {
			continue
		}
		if len(window[3].PeriodEnd) >= 7 {
			epsByMonth[window[3].PeriodEnd[:7]] = eps
		}
	}

	keys := make([]string, 0, len(epsByMonth))
	for k := range epsByMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return epsByMonth, keys
}

// latestKeyAtOrBefore returns the largest key <= target from an
// ascending key list, or "".
func latestKeyAtOrBefore(keysAsc []string, target string) string {
	best := ""
	for _, k := range keysAsc {
		if k <= target {
			best = k
		} else {
			break
		}
	}
	return best
}
