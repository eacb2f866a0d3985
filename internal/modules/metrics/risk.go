package metrics

import (
	"math"
	"sort"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// RiskMetrics holds market-derived risk measures.
type RiskMetrics struct {
	Beta5Y           *float64
	MaxDrawdown5YPct *float64
}

// minWeeklyReturns is the minimum number of aligned weekly return
// pairs required before a beta is reported.
const minWeeklyReturns = 104

// ComputeRiskMetrics derives max drawdown from daily adjusted closes
// and beta from weekly log returns against the benchmark series.
func ComputeRiskMetrics(prices, benchmark []domain.DailyPrice) RiskMetrics {
	out := RiskMetrics{}

	if len(prices) > 0 {
		series := make([]domain.DailyPrice, len(prices))
		copy(series, prices)
		sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

		closes := make([]float64, 0, len(series))
		for _, p := range series {
			closes = append(closes, p.CloseAdj)
		}
		if dd := formulas.CalculateMaxDrawdown(closes); dd != nil {
			out.MaxDrawdown5YPct = formulas.Ptr(*dd * 100)
		} else if len(closes) > 0 {
			out.MaxDrawdown5YPct = formulas.Ptr(0.0)
		}
	}

	if len(benchmark) > 0 {
		stockWeekly := weekEndLogReturns(prices)
		benchWeekly := weekEndLogReturns(benchmark)

		benchByDate := make(map[string]float64, len(benchWeekly))
		for _, r := range benchWeekly {
			benchByDate[r.date] = r.ret
		}

		var alignedStock, alignedBench []float64
		for _, r := range stockWeekly {
			if b, ok := benchByDate[r.date]; ok {
				alignedStock = append(alignedStock, r.ret)
				alignedBench = append(alignedBench, b)
			}
		}

		if len(alignedStock) >= minWeeklyReturns {
			varBench := formulas.Variance(alignedBench)
			if varBench != 0 {
				beta := formulas.Covariance(alignedStock, alignedBench) / varBench
				if formulas.IsFinite(beta) {
					out.Beta5Y = formulas.Ptr(beta)
				}
			}
		}
	}

	return out
}

type weeklyReturn struct {
	date string
	ret  float64
}

// weekEndLogReturns converts daily prices to weekly log returns keyed
// by the last trading day of each ISO week.
func weekEndLogReturns(prices []domain.DailyPrice) []weeklyReturn {
	type weekEnd struct {
		date  string
		close float64
	}

	byWeek := map[[2]int]weekEnd{}
	for _, p := range prices {
		d, ok := parsePeriodEnd(p.Date)
		if !ok || !formulas.IsFinite(p.CloseAdj) {
			continue
		}
		year, week := d.ISOWeek()
		key := [2]int{year, week}
		if cur, exists := byWeek[key]; !exists || p.Date > cur.date {
			byWeek[key] = weekEnd{date: p.Date, close: p.CloseAdj}
		}
	}

	ends := make([]weekEnd, 0, len(byWeek))
	for _, w := range byWeek {
		ends = append(ends, w)
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].date < ends[j].date })

	var returns []weeklyReturn
	for i := 1; i < len(ends); i++ {
		prev, curr := ends[i-1], ends[i]
		if prev.close > 0 && curr.close > 0 {
			returns = append(returns, weeklyReturn{
				date: curr.date,
				ret:  math.Log(curr.close / prev.close),
			})
		}
	}
	return returns
}
