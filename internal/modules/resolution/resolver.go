// Package resolution is the metric resolution layer: the single source
// of truth for where each critical metric comes from, how it may be
// overwritten, and the validation guards that protect valuation inputs
// from vendor junk.
package resolution

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// Update policies. ALWAYS_UPDATE fields are recomputed from raw data on
// every run; PATCH_ONLY fields are written only when currently null.
const (
	PolicyAlwaysUpdate = "ALWAYS_UPDATE"
	PolicyPatchOnly    = "PATCH_ONLY"
)

// MetricSpec describes the provenance and overwrite rule for one
// critical metric.
type MetricSpec struct {
	Field           string
	CanonicalSource string
	FallbackSources []string
	UpdatePolicy    string
	StalenessDays   int
	Description     string
}

// Registry holds one spec per critical metric.
var Registry = map[string]MetricSpec{
	"price_current": {
		Field:           "price_current",
		CanonicalSource: "prices_history.close_adj (most recent row)",
		FallbackSources: []string{"prices_history.close"},
		UpdatePolicy:    PolicyAlwaysUpdate,
		StalenessDays:   1,
		Description:     "Most recent adjusted close price.",
	},
	"eps_ttm": {
		Field:           "eps_ttm",
		CanonicalSource: "financials_history: sum(net_income, 4Q) / avg(shares_diluted, 4Q)",
		UpdatePolicy:    PolicyAlwaysUpdate,
		StalenessDays:   90,
		Description: "TTM EPS from quarterly financials. Null if fewer than 4 valid " +
			"quarterly records exist. Never backfilled from projections.",
	},
	"eps_forward": {
		Field:           "eps_forward",
		CanonicalSource: "Yahoo quoteSummary defaultKeyStatistics.forwardEps (consensus NTM)",
		UpdatePolicy:    PolicyAlwaysUpdate,
		StalenessDays:   30,
		Description: "Consensus next-12-month EPS. Must come from a consensus feed, " +
			"never derived from CAGR or growth-rate projection. Invalid if more " +
			"than 3x trailing EPS.",
	},
	"pe_ttm": {
		Field:           "pe_ttm",
		CanonicalSource: "computed: price_current / eps_ttm",
		UpdatePolicy:    PolicyAlwaysUpdate,
		StalenessDays:   1,
		Description:     "Trailing PE. Null if eps_ttm is null or <= 0.",
	},
	"pe_fwd": {
		Field:           "pe_fwd",
		CanonicalSource: "computed: price_current / eps_forward",
		UpdatePolicy:    PolicyAlwaysUpdate,
		StalenessDays:   1,
		Description:     "Forward PE from validated eps_forward only.",
	},
}

// ValidateEPSForward validates a consensus forward EPS estimate.
//
// The estimate must be a positive finite number, and when trailing EPS
// is known and positive, a forward estimate above 3x trailing is
// treated as vendor junk and dropped. An unknown trailing EPS does not
// reject the estimate.
func ValidateEPSForward(epsForward, epsTTM *float64, ticker string, log zerolog.Logger) *float64 {
	if epsForward == nil || !formulas.IsFinite(*epsForward) || *epsForward <= 0 {
		log.Debug().Str("ticker", ticker).Msg("eps_forward is not a positive number, dropping")
		return nil
	}

	if epsTTM != nil && formulas.IsFinite(*epsTTM) && *epsTTM > 0 && *epsForward > 3**epsTTM {
		log.Warn().
			Str("ticker", ticker).
			Float64("eps_forward", *epsForward).
			Float64("eps_ttm", *epsTTM).
			Msg("eps_forward exceeds 3x trailing EPS, treating as invalid")
		return nil
	}

	return epsForward
}

// ComputePEForward computes pe_fwd = price / validated eps_forward.
// Purely computed; never stored from a vendor feed directly.
func ComputePEForward(priceCurrent, epsForwardValidated *float64) *float64 {
	if priceCurrent == nil || epsForwardValidated == nil || *epsForwardValidated <= 0 {
		return nil
	}
	return formulas.SafeDiv(priceCurrent, epsForwardValidated)
}

// ttmFlowFields are checked per-quarter by CheckTTMCoverage.
var ttmFlowFields = []string{
	"net_income", "cfo", "capex", "ebit",
	"revenue", "shares_diluted", "interest_expense",
	"depreciation", "stock_based_compensation",
}

// nullTTMFields are forced to null when fewer than 4 quarters exist.
var nullTTMFields = []string{
	"eps_ttm", "pe_ttm", "fcf_ttm", "cfo_ttm", "capex_ttm",
	"ebit_ttm", "net_income_ttm", "revenue_ttm", "ebitda_ttm",
}

// CoverageReport describes TTM data coverage over the most recent four
// quarters. Advisory except for NullFields, which the pipeline must
// force to null instead of backfilling with projections.
type CoverageReport struct {
	QuarterCount  int            `json:"quarter_count"`
	Sufficient    bool           `json:"sufficient"`
	FieldCoverage map[string]int `json:"field_coverage"`
	Warnings      []string       `json:"warnings"`
	NullFields    []string       `json:"null_fields"`
}

func statementField(q domain.StatementRecord, field string) *float64 {
	switch field {
	case "net_income":
		return q.NetIncome
	case "cfo":
		return q.CFO
	case "capex":
		return q.Capex
	case "ebit":
		return q.EBIT
	case "revenue":
		return q.Revenue
	case "shares_diluted":
		return q.SharesDiluted
	case "interest_expense":
		return q.InterestExpense
	case "depreciation":
		return q.Depreciation
	case "stock_based_compensation":
		return q.StockBasedCompensation
	}
	return nil
}

// CheckTTMCoverage reports how well the most recent 4 quarters cover
// the TTM flow fields. quarterly must be sorted newest-first.
//
// With fewer than 4 quarters every TTM flow metric is forced null.
// With 4 quarters, individual fields may still be partially missing;
// those produce warnings and a null TTM sum for that field only.
func CheckTTMCoverage(quarterly []domain.StatementRecord, ticker string, log zerolog.Logger) CoverageReport {
	last4 := quarterly
	if len(last4) > 4 {
		last4 = last4[:4]
	}

	report := CoverageReport{
		QuarterCount:  len(last4),
		Sufficient:    len(last4) >= 4,
		FieldCoverage: map[string]int{},
	}

	for _, f := range ttmFlowFields {
		present := 0
		for _, q := range last4 {
			if v := statementField(q, f); v != nil && formulas.IsFinite(*v) {
				present++
			}
		}
		report.FieldCoverage[f] = present
	}

	if !report.Sufficient {
		msg := fmt.Sprintf(
			"%s: only %d/4 quarterly records available, TTM flow metrics will be null",
			ticker, report.QuarterCount,
		)
		log.Warn().Str("ticker", ticker).Int("quarters", report.QuarterCount).
			Msg("Insufficient quarterly coverage for TTM")
		report.Warnings = append(report.Warnings, msg)
		report.NullFields = append(report.NullFields, nullTTMFields...)
		return report
	}

	// Fixed field order keeps warning output deterministic.
	for _, f := range ttmFlowFields {
		if count := report.FieldCoverage[f]; count < 4 {
			msg := fmt.Sprintf(
				"%s: field %q has only %d/4 quarters populated, TTM sum will be null",
				ticker, f, count,
			)
			log.Warn().Str("ticker", ticker).Str("field", f).Int("quarters", count).
				Msg("Partial field coverage for TTM")
			report.Warnings = append(report.Warnings, msg)
		}
	}

	return report
}
