package formulas

import (
	"math"
	"sort"
	"time"
)

// DatedValue is a (date, value) observation for growth calculations.
type DatedValue struct {
	Date  time.Time
	Value float64
}

// CAGR computes the compound annual growth rate, as a percentage, over
// roughly the requested number of years.
//
// Only positive finite observations are used. The endpoint is the most
// recent observation; the start point is the most recent observation at
// or before (endpoint - years). The exponent uses the actual elapsed
// span in years, and the result is nil when that span is more than half
// a year short of the request.
func CAGR(points []DatedValue, years int) *float64 {
	usable := make([]DatedValue, 0, len(points))
	for _, p := range points {
		if IsFinite(p.Value) && p.Value > 0 {
			usable = append(usable, p)
		}
	}
	if len(usable) < 2 {
		return nil
	}
	sort.Slice(usable, func(i, j int) bool {
		return usable[i].Date.Before(usable[j].Date)
	})

	end := usable[len(usable)-1]
	cutoff := end.Date.AddDate(-years, 0, 0)

	var start *DatedValue
	for i := range usable {
		if !usable[i].Date.After(cutoff) {
			start = &usable[i]
		}
	}
	if start == nil {
		return nil
	}

	actualYears := end.Date.Sub(start.Date).Hours() / 24 / 365.25
	if actualYears < float64(years)-0.5 {
		return nil
	}

	rate := (math.Pow(end.Value/start.Value, 1/actualYears) - 1) * 100
	if !IsFinite(rate) {
		return nil
	}
	return Ptr(rate)
}
