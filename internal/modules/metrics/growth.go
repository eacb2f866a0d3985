package metrics

import (
	"sort"
	"time"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// GrowthMetrics holds multi-year growth rates and revenue cyclicality.
type GrowthMetrics struct {
	EPSCagr5YPct     *float64
	EPSCagr3YPct     *float64
	RevenueCagr5YPct *float64
	RevenueCagr3YPct *float64
	CyclicalityPct   *float64
}

func parsePeriodEnd(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	return t, err == nil
}

func annualSeries(annual []domain.StatementRecord, get func(domain.StatementRecord) *float64) []formulas.DatedValue {
	var pts []formulas.DatedValue
	for _, a := range annual {
		d, ok := parsePeriodEnd(a.PeriodEnd)
		if !ok {
			continue
		}
		if v := get(a); v != nil {
			pts = append(pts, formulas.DatedValue{Date: d, Value: *v})
		}
	}
	return pts
}

// ComputeGrowthMetrics derives EPS and revenue CAGRs over 5 and 3
// years plus revenue cyclicality from annual records.
//
// Cyclicality is the sample standard deviation of year-over-year
// revenue changes in percent; it needs at least 3 annual revenues.
func ComputeGrowthMetrics(annual []domain.StatementRecord) GrowthMetrics {
	out := GrowthMetrics{}

	epsPts := annualSeries(annual, func(a domain.StatementRecord) *float64 { return a.EPSDiluted })
	revPts := annualSeries(annual, func(a domain.StatementRecord) *float64 { return a.Revenue })

	out.EPSCagr5YPct = formulas.CAGR(epsPts, 5)
	out.EPSCagr3YPct = formulas.CAGR(epsPts, 3)
	out.RevenueCagr5YPct = formulas.CAGR(revPts, 5)
	out.RevenueCagr3YPct = formulas.CAGR(revPts, 3)

	// Cyclicality = stdev(YoY revenue changes) * 100.
	type rev struct {
		periodEnd string
		value     float64
	}
	var revs []rev
	for _, a := range annual {
		if a.Revenue != nil && formulas.IsFinite(*a.Revenue) {
			revs = append(revs, rev{a.PeriodEnd, *a.Revenue})
		}
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].periodEnd < revs[j].periodEnd })

	if len(revs) >= 3 {
		var yoy []float64
		for i := 1; i < len(revs); i++ {
			prev := revs[i-1].value
			if prev != 0 {
				yoy = append(yoy, (revs[i].value-prev)/prev)
			}
		}
		if len(yoy) >= 2 {
			out.CyclicalityPct = formulas.Ptr(formulas.StdDev(yoy) * 100)
		}
	}

	return out
}

// ShareCountChange5YPct derives the annualized share-count change over
// roughly 5 years of annual records, oriented so a shrinking share
// count is positive (buybacks) and dilution is negative.
func ShareCountChange5YPct(annual []domain.StatementRecord) *float64 {
	pts := annualSeries(annual, func(a domain.StatementRecord) *float64 { return a.SharesDiluted })
	c := formulas.CAGR(pts, 5)
	if c == nil {
		return nil
	}
	return formulas.Ptr(-*c)
}
