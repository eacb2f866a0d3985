package scoring

import (
	"sort"
	"strings"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// Per-lens required metric fields with weights. Higher weight means
// the field is more critical to that lens's scoring integrity.
// Confidence never gates the recommendation; a missing field only
// lowers the grade.
var lensRequiredFields = map[string]map[string]float64{
	"Conservative": {
		"pe_fwd":              1.5,
		"pe_ttm":              1.0,
		"ev_ebitda":           1.2,
		"fcf_yield_pct":       1.2,
		"peg_5y":              0.8,
		"pe_5y_low":           0.8,
		"pe_5y_high":          0.8,
		"roic_pct":            1.5,
		"fcf_margin_pct":      1.2,
		"cfo_to_ni":           1.0,
		"fcf_to_ebit":         0.8,
		"accruals_ratio":      0.8,
		"margin_stdev_5y_pct": 0.8,
		"buyback_yield_pct":   1.0,
		"interest_coverage_x": 1.2,
		"netdebt_to_ebitda":   1.0,
		"eps_cagr_5y_pct":     1.0,
		"revenue_cagr_5y_pct": 1.0,
		"eps_cagr_3y_pct":     0.8,
		"beta_5y":             0.8,
		"maxdrawdown_5y_pct":  0.8,
	},
	"Value Purist": {
		"pe_fwd":              2.0,
		"pe_ttm":              1.5,
		"ev_ebitda":           1.5,
		"fcf_yield_pct":       2.0,
		"peg_5y":              1.0,
		"roic_pct":            1.5,
		"fcf_margin_pct":      1.5,
		"cfo_to_ni":           1.2,
		"netdebt_to_ebitda":   1.5,
		"interest_coverage_x": 1.2,
		"eps_cagr_5y_pct":     1.0,
		"revenue_cagr_5y_pct": 1.0,
		"moat_score_0_10":     1.0,
		"buyback_yield_pct":   1.0,
		"beta_5y":             0.8,
	},
	"Growth/Momentum": {
		"eps_cagr_5y_pct":       2.0,
		"revenue_cagr_5y_pct":   2.0,
		"eps_cagr_3y_pct":       1.5,
		"revenue_cagr_3y_pct":   1.5,
		"recurring_revenue_pct": 1.2,
		"pe_fwd":                1.0,
		"peg_5y":                1.5,
		"roic_pct":              1.0,
		"fcf_margin_pct":        0.8,
		"moat_score_0_10":       0.8,
		"beta_5y":               0.8,
		"maxdrawdown_5y_pct":    0.8,
	},
	"Asymmetry Hunter": {
		"pe_fwd":                1.0,
		"fcf_yield_pct":         1.5,
		"eps_cagr_5y_pct":       1.0,
		"moat_score_0_10":       1.5,
		"maxdrawdown_5y_pct":    1.5,
		"beta_5y":               1.0,
		"netcash_to_mktcap_pct": 1.5,
		"insider_own_pct":       1.0,
		"founder_led_bool":      1.0,
		"narrative_score_0_10":  1.5,
	},
	"Macro-Thematic": {
		"macrofit_score_0_10":  2.0,
		"narrative_score_0_10": 2.0,
		"beta_5y":              1.0,
		"revenue_cagr_5y_pct":  1.0,
		"eps_cagr_5y_pct":      1.0,
		"pe_fwd":               1.0,
		"sector_cyc_tag":       1.0,
		"moat_score_0_10":      0.8,
	},
	"Quality Compounder": {
		"roic_pct":            2.0,
		"fcf_margin_pct":      1.5,
		"cfo_to_ni":           1.2,
		"fcf_to_ebit":         1.0,
		"accruals_ratio":      1.0,
		"margin_stdev_5y_pct": 1.0,
		"eps_cagr_5y_pct":     1.5,
		"revenue_cagr_5y_pct": 1.0,
		"moat_score_0_10":     1.5,
		"insider_own_pct":     0.8,
		"buyback_yield_pct":   0.8,
		"netdebt_to_ebitda":   1.0,
		"interest_coverage_x": 1.0,
		"pe_fwd":              1.0,
		"peg_5y":              0.8,
	},
	"Warren Buffett": {
		"moat_score_0_10":     2.5,
		"roic_pct":            2.0,
		"fcf_margin_pct":      1.5,
		"fcf_to_ebit":         1.0,
		"cfo_to_ni":           1.0,
		"margin_stdev_5y_pct": 1.0,
		"buyback_yield_pct":   1.2,
		"interest_coverage_x": 1.2,
		"netdebt_to_ebitda":   1.0,
		"eps_cagr_5y_pct":     1.0,
		"revenue_cagr_5y_pct": 0.8,
		"fcf_yield_pct":       1.5,
		"pe_fwd":              1.0,
		"pe_ttm":              0.8,
		"pe_5y_low":           0.8,
		"pe_5y_high":          0.8,
	},
	"Benjamin Graham": {
		"pe_fwd":                   2.0,
		"pe_ttm":                   1.5,
		"fcf_yield_pct":            2.0,
		"ev_ebitda":                1.5,
		"pe_5y_low":                1.2,
		"pe_5y_high":               1.2,
		"netdebt_to_ebitda":        2.0,
		"interest_coverage_x":      1.5,
		"beta_5y":                  1.0,
		"maxdrawdown_5y_pct":       1.0,
		"netcash_to_mktcap_pct":    1.0,
		"margin_stdev_5y_pct":      1.5,
		"accruals_ratio":           1.2,
		"cfo_to_ni":                1.0,
		"roic_pct":                 1.0,
		"sharecount_change_5y_pct": 0.8,
	},
	"Peter Lynch": {
		"eps_cagr_5y_pct":       2.0,
		"revenue_cagr_5y_pct":   1.5,
		"eps_cagr_3y_pct":       1.5,
		"revenue_cagr_3y_pct":   1.0,
		"recurring_revenue_pct": 1.0,
		"peg_5y":                2.0,
		"pe_fwd":                1.2,
		"fcf_yield_pct":         1.0,
		"roic_pct":              1.0,
		"fcf_margin_pct":        0.8,
		"cfo_to_ni":             0.8,
		"netdebt_to_ebitda":     1.0,
		"interest_coverage_x":   0.8,
		"moat_score_0_10":       0.8,
		"narrative_score_0_10":  1.0,
	},
}

const defaultLens = "Conservative"

// Confidence is the lens-weighted coverage result. Display and audit
// only; it never changes a recommendation.
type Confidence struct {
	Pct           float64  `json:"confidence_pct"`
	Grade         string   `json:"confidence_grade"`
	PresentFields []string `json:"present_fields"`
	MissingFields []string `json:"missing_fields"`
	TotalWeight   float64  `json:"total_weight"`
	PresentWeight float64  `json:"present_weight"`
}

// fieldPresent reports whether a metrics value is usable: any bool,
// a non-blank string, or a finite number.
func fieldPresent(v any) bool {
	switch t := v.(type) {
	case bool:
		return true
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return formulas.IsFinite(t)
	case int:
		return true
	default:
		return false
	}
}

// ComputeConfidence scores metric coverage against the lens's
// required-field weights:
//
//	confidence_pct = present weight / total weight * 100
//
// Grades: A >= 85, B >= 70, C >= 50, D otherwise. Unknown lens names
// fall back to the Conservative registry.
func ComputeConfidence(m *domain.Metrics, lensName string) Confidence {
	required, ok := lensRequiredFields[lensName]
	if !ok {
		required = lensRequiredFields[defaultLens]
	}

	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)

	totalWeight, presentWeight := 0.0, 0.0
	present := []string{}
	missing := []string{}
	for _, name := range names {
		w := required[name]
		totalWeight += w
		if fieldPresent(m.Field(name)) {
			presentWeight += w
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}

	pct := 0.0
	if totalWeight > 0 {
		pct = presentWeight / totalWeight * 100
	}

	var grade string
	switch {
	case pct >= 85:
		grade = "A"
	case pct >= 70:
		grade = "B"
	case pct >= 50:
		grade = "C"
	default:
		grade = "D"
	}

	return Confidence{
		Pct:           formulas.Round(pct, 1),
		Grade:         grade,
		PresentFields: present,
		MissingFields: missing,
		TotalWeight:   formulas.Round(totalWeight, 4),
		PresentWeight: formulas.Round(presentWeight, 4),
	}
}
