package scoring

import (
	"math"
	"strings"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// Category keys, in scoring order. The keys double as the lens weight
// keys and the category_scores map keys in persisted snapshots.
var Categories = []string{
	"valuation",
	"quality",
	"capitalAllocation",
	"growth",
	"moat",
	"risk",
	"macro",
	"narrative",
	"dilution",
}

func num(p *float64) (float64, bool) {
	if p == nil || !formulas.IsFinite(*p) {
		return 0, false
	}
	return *p, true
}

// safeAvg averages the non-nil sub-scores. All nil means the category
// itself is nil, never zero.
func safeAvg(subs ...*float64) *float64 {
	sum, n := 0.0, 0
	for _, s := range subs {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return formulas.Ptr(sum / float64(n))
}

func clamp10(x float64) *float64 {
	return formulas.Ptr(formulas.Clamp(x, 0, 10))
}

func scoreValuation(m *domain.Metrics) *float64 {
	var subPE, subPEG, subEV, subFCFY, subHist *float64

	if pe, ok := num(m.PEFwd); ok {
		switch {
		case pe <= 10:
			subPE = formulas.Ptr(10.0)
		case pe <= 15:
			subPE = formulas.Ptr(9.0)
		case pe <= 20:
			subPE = formulas.Ptr(7.0)
		case pe <= 25:
			subPE = formulas.Ptr(5.0)
		case pe <= 35:
			subPE = formulas.Ptr(3.0)
		default:
			subPE = formulas.Ptr(1.0)
		}
	}
	if peg, ok := num(m.PEG5Y); ok {
		switch {
		case peg <= 1:
			subPEG = formulas.Ptr(9.0)
		case peg <= 1.5:
			subPEG = formulas.Ptr(7.0)
		case peg <= 2:
			subPEG = formulas.Ptr(5.0)
		case peg <= 3:
			subPEG = formulas.Ptr(3.0)
		default:
			subPEG = formulas.Ptr(1.0)
		}
	}
	if ev, ok := num(m.EVEBITDA); ok {
		switch {
		case ev <= 7:
			subEV = formulas.Ptr(10.0)
		case ev <= 10:
			subEV = formulas.Ptr(8.0)
		case ev <= 14:
			subEV = formulas.Ptr(6.0)
		case ev <= 20:
			subEV = formulas.Ptr(4.0)
		default:
			subEV = formulas.Ptr(2.0)
		}
	}
	if fcfy, ok := num(m.FCFYieldPct); ok {
		switch {
		case fcfy >= 8:
			subFCFY = formulas.Ptr(10.0)
		case fcfy >= 5:
			subFCFY = formulas.Ptr(8.0)
		case fcfy >= 3:
			subFCFY = formulas.Ptr(6.0)
		case fcfy >= 1:
			subFCFY = formulas.Ptr(3.0)
		default:
			subFCFY = formulas.Ptr(1.0)
		}
	}
	peTTM, okTTM := num(m.PETTM)
	peLo, okLo := num(m.PE5YLow)
	peHi, okHi := num(m.PE5YHigh)
	if okTTM && okLo && okHi && peHi > peLo {
		subHist = formulas.Ptr(10 * formulas.Clamp01((peHi-peTTM)/(peHi-peLo)))
	}

	weights := []float64{0.35, 0.15, 0.20, 0.15, 0.15}
	subs := []*float64{subPE, subPEG, subEV, subFCFY, subHist}
	numSum, den := 0.0, 0.0
	for i, s := range subs {
		if s != nil {
			numSum += *s * weights[i]
			den += weights[i]
		}
	}
	if den == 0 {
		return nil
	}
	return formulas.Ptr(numSum / den)
}

func scoreQuality(m *domain.Metrics) *float64 {
	var subROIC, subFCFM, subCC, subAcc, subMS *float64

	if roic, ok := num(m.ROICPct); ok {
		subROIC = clamp10(roic / 2)
	}
	if fm, ok := num(m.FCFMarginPct); ok {
		subFCFM = clamp10(fm / 1.5)
	}

	ccSum, ccN := 0.0, 0
	if v, ok := num(m.CFOToNI); ok {
		ccSum += v
		ccN++
	}
	if v, ok := num(m.FCFToEBIT); ok {
		ccSum += v
		ccN++
	}
	if ccN > 0 {
		subCC = clamp10(10 * ccSum / float64(ccN))
	}

	if acc, ok := num(m.AccrualsRatio); ok {
		subAcc = clamp10(10 * formulas.Clamp01((0.10-math.Abs(acc))/0.10))
	}

	if ms, ok := num(m.MarginStdev5Pct); ok {
		subMS = clamp10(10 - formulas.Clamp(ms*0.5, 0, 10))
	}

	return safeAvg(subROIC, subFCFM, subCC, subAcc, subMS)
}

func scoreCapitalAllocation(m *domain.Metrics) *float64 {
	var subBB, subIC *float64

	if bb, ok := num(m.BuybackYieldPct); ok {
		subBB = clamp10((bb + 2) / 2)
	}
	if ic, ok := num(m.InterestCovX); ok && ic > -1 {
		subIC = clamp10(math.Log10(ic+1) * 4)
	}
	return safeAvg(subBB, subIC)
}

func scoreGrowth(m *domain.Metrics) *float64 {
	eps5, okE5 := num(m.EPSCagr5YPct)
	rev5, okR5 := num(m.RevenueCagr5YPct)
	eps3, okE3 := num(m.EPSCagr3YPct)
	rev3, okR3 := num(m.RevenueCagr3YPct)

	var subEps5, subRev5, subAcc, subStage *float64
	if okE5 {
		subEps5 = clamp10(eps5 / 2)
	}
	if okR5 {
		subRev5 = clamp10(rev5 / 2)
	}
	if okE5 && okE3 && okR5 && okR3 {
		acc := (eps3 - eps5) + (rev3 - rev5)
		if formulas.IsFinite(acc) {
			subAcc = clamp10(5 + 0.5*acc)
		}
	}
	if okR5 {
		switch {
		case rev5 >= 25:
			subStage = formulas.Ptr(10.0)
		case rev5 >= 15:
			subStage = formulas.Ptr(8.0)
		case rev5 >= 5:
			subStage = formulas.Ptr(6.0)
		default:
			subStage = formulas.Ptr(3.0)
		}
	}
	return safeAvg(subEps5, subRev5, subAcc, subStage)
}

func scoreMoat(m *domain.Metrics) *float64 {
	var subBase, subRec, subOwner *float64

	if base, ok := num(m.MoatScore0To10); ok {
		subBase = formulas.Ptr(base)
	}
	if rec, ok := num(m.RecurringRevenuePct); ok {
		subRec = formulas.Ptr(10 * formulas.Clamp01(rec/100))
	}
	if ins, ok := num(m.InsiderOwnPct); ok {
		owner := math.Min(2.0, 10*formulas.Clamp01(ins/100))
		if m.FounderLed != nil && *m.FounderLed {
			owner++
		}
		subOwner = formulas.Ptr(owner)
	}
	return safeAvg(subBase, subRec, subOwner)
}

// cyclicality tag to sub-score; unrecognized non-empty tags score a
// neutral 6, an absent tag contributes nothing.
var cycScores = map[string]float64{
	"defensive":     8,
	"secular":       7,
	"growth":        6,
	"cyclical":      4,
	"deep-cyclical": 3,
}

func scoreRisk(m *domain.Metrics) *float64 {
	var subBase, subND, subNC, subBeta, subDD, subCyc *float64

	if base, ok := num(m.RiskDownsideScore0To10); ok {
		subBase = formulas.Ptr(base)
	}
	if nd, ok := num(m.NetDebtToEBITDA); ok {
		subND = clamp10(10 * formulas.Clamp01((3-nd)/2))
	}
	if nc, ok := num(m.NetCashToMktCapPct); ok {
		subNC = clamp10(5 + math.Max(0, nc)/2)
	}
	if beta, ok := num(m.Beta5Y); ok {
		subBeta = clamp10(10 - math.Abs(beta)*5)
	}
	if dd, ok := num(m.MaxDrawdown5YPct); ok {
		subDD = clamp10(10 - math.Abs(dd))
	}
	if tag := strings.TrimSpace(strings.ToLower(m.SectorCycTag)); tag != "" {
		if v, ok := cycScores[tag]; ok {
			subCyc = formulas.Ptr(v)
		} else {
			subCyc = formulas.Ptr(6.0)
		}
	}
	return safeAvg(subBase, subND, subNC, subBeta, subDD, subCyc)
}

func scoreMacro(m *domain.Metrics) *float64 {
	if v, ok := num(m.MacroFitScore0To10); ok {
		return formulas.Ptr(v)
	}
	return nil
}

func scoreNarrative(m *domain.Metrics) *float64 {
	if v, ok := num(m.NarrativeScore0To10); ok {
		return formulas.Ptr(v)
	}
	return nil
}

// The calibrated rule is clamp(10 + 2*(change - sbc)) over the raw
// annualized share-count change (negative = buybacks). ShareChange5YPct
// stores the negated change (positive = buybacks), so it is flipped
// back here. A missing input drops its term instead of nulling the
// whole category.
func scoreDilution(m *domain.Metrics) *float64 {
	change, okChange := num(m.ShareChange5YPct)
	sbc, okSBC := num(m.SBCToSalesPct)
	switch {
	case okChange && okSBC:
		return clamp10(10 + 2*(-change-sbc))
	case okChange:
		return clamp10(10 - 2*change)
	case okSBC:
		return clamp10(10 - 2*sbc)
	default:
		return nil
	}
}

// ComputeCategoryScores evaluates all nine category scorers. A nil
// entry means the category had no computable sub-metrics; it is kept
// in the map so snapshots record the gap explicitly.
func ComputeCategoryScores(m *domain.Metrics) map[string]*float64 {
	return map[string]*float64{
		"valuation":         scoreValuation(m),
		"quality":           scoreQuality(m),
		"capitalAllocation": scoreCapitalAllocation(m),
		"growth":            scoreGrowth(m),
		"moat":              scoreMoat(m),
		"risk":              scoreRisk(m),
		"macro":             scoreMacro(m),
		"narrative":         scoreNarrative(m),
		"dilution":          scoreDilution(m),
	}
}

// ComputeFinalScore blends the category scores with the lens weights.
// Null categories are excluded from the weighted average rather than
// counted as zero; if every weighted category is null the final score
// itself is nil.
func ComputeFinalScore(categoryScores map[string]*float64, lens *domain.LensPreset) *float64 {
	totalScore, totalWeight := 0.0, 0.0
	for _, cat := range Categories {
		score := categoryScores[cat]
		w := lens.WeightFor(cat)
		if score != nil && formulas.IsFinite(*score) && w > 0 {
			totalScore += *score * w
			totalWeight += w
		}
	}
	if totalWeight == 0 {
		return nil
	}
	return formulas.Ptr(totalScore / totalWeight)
}
