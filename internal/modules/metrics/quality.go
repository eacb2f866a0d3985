package metrics

import (
	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// QualityMetrics holds earnings-quality ratios.
type QualityMetrics struct {
	CFOToNI         *float64
	FCFMarginPct    *float64
	FCFToEBIT       *float64
	AccrualsRatio   *float64
	MarginStdev5Pct *float64
}

// ComputeQualityMetrics derives earnings-quality ratios from TTM
// aggregates and the quarterly history (newest-first).
//
// Accruals ratio = (NI - CFO) / avg(total_assets), with average assets
// approximated from the newest and 4th-newest quarters. Margin
// stability uses operating margins over up to 20 quarters.
func ComputeQualityMetrics(ttm TTMAggregate, quarterly []domain.StatementRecord) QualityMetrics {
	out := QualityMetrics{}

	fcf := FreeCashFlow(ttm.CFO, ttm.Capex)

	out.CFOToNI = formulas.SafeDiv(ttm.CFO, ttm.NetIncome)
	out.FCFMarginPct = formulas.SafeDivPct(fcf, ttm.Revenue)
	out.FCFToEBIT = formulas.SafeDiv(fcf, ttm.EBIT)

	if len(quarterly) >= 4 && ttm.NetIncome != nil && ttm.CFO != nil {
		ta0 := quarterly[0].TotalAssets
		ta3 := quarterly[3].TotalAssets
		if ta0 != nil && ta3 != nil && *ta0+*ta3 != 0 {
			avgAssets := (*ta0 + *ta3) / 2
			out.AccrualsRatio = formulas.SafeDiv(
				formulas.Ptr(*ttm.NetIncome-*ttm.CFO),
				formulas.Ptr(avgAssets),
			)
		}
	}

	// Operating margin stdev over the last ~5 years of quarters.
	var margins []float64
	limit := len(quarterly)
	if limit > 20 {
		limit = 20
	}
	for _, q := range quarterly[:limit] {
		if q.Revenue != nil && q.EBIT != nil && *q.Revenue != 0 {
			margins = append(margins, *q.EBIT / *q.Revenue)
		}
	}
	if len(margins) >= 4 {
		out.MarginStdev5Pct = formulas.Ptr(formulas.StdDev(margins) * 100)
	}

	return out
}
