package scoring

import "github.com/gzimm88/StockLensesV2/internal/domain"

// Built-in lens presets. Weights are fractions of the final score;
// each preset sums to 1.0. Presets are read-only seed data; the
// database copy is the source of truth once seeded.
var BuiltinLenses = []domain.LensPreset{
	{
		ID:                "conservative",
		Name:              "Conservative",
		Valuation:         0.25,
		Quality:           0.20,
		CapitalAllocation: 0.10,
		Growth:            0.15,
		Moat:              0.10,
		Risk:              0.10,
		Macro:             0.05,
		Narrative:         0.05,
		Dilution:          0.00,
		BuyThreshold:      6.5,
		WatchThreshold:    4.5,
	},
	{
		ID:                "value-purist",
		Name:              "Value Purist",
		Valuation:         0.35,
		Quality:           0.20,
		CapitalAllocation: 0.15,
		Growth:            0.10,
		Moat:              0.05,
		Risk:              0.10,
		Macro:             0.00,
		Narrative:         0.00,
		Dilution:          0.05,
		BuyThreshold:      7.0,
		WatchThreshold:    5.0,
	},
	{
		ID:                "growth-momentum",
		Name:              "Growth/Momentum",
		Valuation:         0.10,
		Quality:           0.10,
		CapitalAllocation: 0.05,
		Growth:            0.40,
		Moat:              0.10,
		Risk:              0.10,
		Macro:             0.05,
		Narrative:         0.05,
		Dilution:          0.05,
		BuyThreshold:      6.5,
		WatchThreshold:    4.5,
	},
	{
		ID:                "asymmetry-hunter",
		Name:              "Asymmetry Hunter",
		Valuation:         0.15,
		Quality:           0.05,
		CapitalAllocation: 0.05,
		Growth:            0.15,
		Moat:              0.15,
		Risk:              0.20,
		Macro:             0.05,
		Narrative:         0.20,
		Dilution:          0.00,
		BuyThreshold:      6.0,
		WatchThreshold:    4.0,
	},
	{
		ID:                "macro-thematic",
		Name:              "Macro-Thematic",
		Valuation:         0.10,
		Quality:           0.05,
		CapitalAllocation: 0.00,
		Growth:            0.15,
		Moat:              0.10,
		Risk:              0.10,
		Macro:             0.30,
		Narrative:         0.20,
		Dilution:          0.00,
		BuyThreshold:      6.0,
		WatchThreshold:    4.0,
	},
	{
		ID:                "quality-compounder",
		Name:              "Quality Compounder",
		Valuation:         0.15,
		Quality:           0.35,
		CapitalAllocation: 0.10,
		Growth:            0.15,
		Moat:              0.15,
		Risk:              0.05,
		Macro:             0.00,
		Narrative:         0.00,
		Dilution:          0.05,
		BuyThreshold:      7.0,
		WatchThreshold:    5.0,
	},
	{
		ID:                "warren-buffett",
		Name:              "Warren Buffett",
		Valuation:         0.20,
		Quality:           0.30,
		CapitalAllocation: 0.15,
		Growth:            0.10,
		Moat:              0.20,
		Risk:              0.05,
		Macro:             0.00,
		Narrative:         0.00,
		Dilution:          0.00,
		BuyThreshold:      7.0,
		WatchThreshold:    5.0,
	},
	{
		ID:                "benjamin-graham",
		Name:              "Benjamin Graham",
		Valuation:         0.35,
		Quality:           0.15,
		CapitalAllocation: 0.10,
		Growth:            0.05,
		Moat:              0.00,
		Risk:              0.25,
		Macro:             0.00,
		Narrative:         0.00,
		Dilution:          0.10,
		BuyThreshold:      7.0,
		WatchThreshold:    5.0,
	},
	{
		ID:                "peter-lynch",
		Name:              "Peter Lynch",
		Valuation:         0.20,
		Quality:           0.10,
		CapitalAllocation: 0.05,
		Growth:            0.35,
		Moat:              0.10,
		Risk:              0.10,
		Macro:             0.00,
		Narrative:         0.10,
		Dilution:          0.00,
		BuyThreshold:      6.5,
		WatchThreshold:    4.5,
	},
}

// LensByID returns the built-in preset with the given id, or nil.
func LensByID(id string) *domain.LensPreset {
	for i := range BuiltinLenses {
		if BuiltinLenses[i].ID == id {
			return &BuiltinLenses[i]
		}
	}
	return nil
}
