package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

const (
	// ScoreVersion participates in the snapshot hash; bump it whenever
	// a scorer's buckets or the blending formula change.
	ScoreVersion = "1.0.0"

	// MOSNeutralBand is the ± band (in percent) inside which a margin
	// of safety reads as neutral.
	MOSNeutralBand = 5.0
)

// ComputeRecommendation maps a final score onto the lens thresholds.
// Score only: MOS and confidence never gate the outcome.
func ComputeRecommendation(finalScore *float64, buyThreshold, watchThreshold float64) string {
	if finalScore == nil || !formulas.IsFinite(*finalScore) {
		return domain.RecommendationInsufficient
	}
	if *finalScore >= buyThreshold {
		return domain.RecommendationBuy
	}
	if *finalScore >= watchThreshold {
		return domain.RecommendationWatch
	}
	return domain.RecommendationAvoid
}

// ComputeMOSSignal classifies a margin-of-safety percentage:
// "+" above the band (below fair value), "-" below it, "0" inside it,
// nil when no MOS is available. Display only.
func ComputeMOSSignal(mosPct *float64, neutralBand float64) *string {
	if mosPct == nil || !formulas.IsFinite(*mosPct) {
		return nil
	}
	var s string
	switch {
	case *mosPct > neutralBand:
		s = "+"
	case *mosPct < -neutralBand:
		s = "-"
	default:
		s = "0"
	}
	return &s
}

// computeContributions ranks each scored category by its pull on the
// final score:
//
//	contribution_i = (score_i - final) * weight_i / sum(present weights)
//
// Returns the top 3 positive and top 3 negative contributors.
func computeContributions(categoryScores map[string]*float64, lens *domain.LensPreset, finalScore *float64) ([]domain.Contributor, []domain.Contributor) {
	if finalScore == nil || !formulas.IsFinite(*finalScore) {
		return nil, nil
	}

	totalW := 0.0
	for _, cat := range Categories {
		if s := categoryScores[cat]; s != nil && formulas.IsFinite(*s) {
			totalW += lens.WeightFor(cat)
		}
	}
	if totalW == 0 {
		return nil, nil
	}

	var contribs []domain.Contributor
	for _, cat := range Categories {
		score := categoryScores[cat]
		w := lens.WeightFor(cat)
		if score == nil || !formulas.IsFinite(*score) || w <= 0 {
			continue
		}
		contribs = append(contribs, domain.Contributor{
			Category:     cat,
			Score:        formulas.Round(*score, 3),
			Weight:       w,
			Contribution: formulas.Round((*score-*finalScore)*w/totalW, 4),
		})
	}

	sort.SliceStable(contribs, func(i, j int) bool {
		return contribs[i].Contribution > contribs[j].Contribution
	})
	var positive, negative []domain.Contributor
	for _, c := range contribs {
		if c.Contribution >= 0 && len(positive) < 3 {
			positive = append(positive, c)
		}
	}
	for i := len(contribs) - 1; i >= 0; i-- {
		if contribs[i].Contribution < 0 && len(negative) < 3 {
			negative = append(negative, contribs[i])
		}
	}
	return positive, negative
}

// snapshotHash computes the deterministic identity of a scoring run.
// The payload is marshalled with sorted keys so identical inputs and
// ScoreVersion always reproduce the same 16-hex-char digest.
func snapshotHash(ticker string, lens *domain.LensPreset, asOfDate string, finalScore *float64, categoryScores map[string]*float64, recommendation string) string {
	rounded := make(map[string]*float64, len(categoryScores))
	for k, v := range categoryScores {
		rounded[k] = formulas.RoundPtr(v, 6)
	}
	payload := map[string]any{
		"ticker":          ticker,
		"lens_id":         lens.ID,
		"lens_name":       lens.Name,
		"score_version":   ScoreVersion,
		"as_of_date":      asOfDate,
		"final_score":     formulas.RoundPtr(finalScore, 6),
		"category_scores": rounded,
		"recommendation":  recommendation,
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// ComputeSnapshot produces a fully deterministic ScoreSnapshot for one
// (ticker, lens) pair. mosPct is optional and display-only; warnings
// come from the TTM coverage check and are carried for audit.
func ComputeSnapshot(ticker string, lens *domain.LensPreset, m *domain.Metrics, mosPct *float64, warnings []string) domain.ScoreSnapshot {
	categoryScores := ComputeCategoryScores(m)
	finalScore := ComputeFinalScore(categoryScores, lens)
	recommendation := ComputeRecommendation(finalScore, lens.BuyThreshold, lens.WatchThreshold)
	conf := ComputeConfidence(m, lens.Name)
	mosSignal := ComputeMOSSignal(mosPct, MOSNeutralBand)
	topPos, topNeg := computeContributions(categoryScores, lens, finalScore)

	asOfDate := m.AsOfDate
	if asOfDate == "" {
		asOfDate = time.Now().UTC().Format("2006-01-02")
	}

	hash := snapshotHash(ticker, lens, asOfDate, finalScore, categoryScores, recommendation)

	storedScores := make(map[string]*float64, len(categoryScores))
	for k, v := range categoryScores {
		storedScores[k] = formulas.RoundPtr(v, 4)
	}

	if warnings == nil {
		warnings = []string{}
	}

	return domain.ScoreSnapshot{
		ID:                      uuid.NewString(),
		TickerSymbol:            ticker,
		LensID:                  lens.ID,
		LensName:                lens.Name,
		ScoreVersion:            ScoreVersion,
		DataVersion:             asOfDate,
		FinalScore:              formulas.RoundPtr(finalScore, 4),
		CategoryScores:          storedScores,
		Recommendation:          recommendation,
		ConfidencePct:           conf.Pct,
		ConfidenceGrade:         conf.Grade,
		MOSPct:                  formulas.RoundPtr(mosPct, 2),
		MOSSignal:               mosSignal,
		TopPositiveContributors: topPos,
		TopNegativeContributors: topNeg,
		MissingCriticalFields:   conf.MissingFields,
		ResolutionWarnings:      warnings,
		SnapshotHash:            hash,
		AsOfDate:                asOfDate,
		CreatedAt:               time.Now().UTC().Format(time.RFC3339),
	}
}
