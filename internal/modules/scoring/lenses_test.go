package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLensWeightsSumToOne(t *testing.T) {
	for _, lens := range BuiltinLenses {
		sum := lens.Valuation + lens.Quality + lens.CapitalAllocation +
			lens.Growth + lens.Moat + lens.Risk +
			lens.Macro + lens.Narrative + lens.Dilution
		assert.InDelta(t, 1.0, sum, 1e-9, "lens %s", lens.ID)
	}
}

func TestBuiltinLensThresholds(t *testing.T) {
	for _, lens := range BuiltinLenses {
		assert.Greater(t, lens.BuyThreshold, lens.WatchThreshold, "lens %s", lens.ID)
		assert.Greater(t, lens.WatchThreshold, 0.0, "lens %s", lens.ID)
		assert.LessOrEqual(t, lens.BuyThreshold, 10.0, "lens %s", lens.ID)
	}
}

func TestBuiltinLensIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, lens := range BuiltinLenses {
		assert.False(t, seen[lens.ID], "duplicate lens id %s", lens.ID)
		seen[lens.ID] = true
		assert.NotEmpty(t, lens.Name)
	}
	assert.Len(t, BuiltinLenses, 9)
}

func TestLensByID(t *testing.T) {
	lens := LensByID("conservative")
	require.NotNil(t, lens)
	assert.Equal(t, "Conservative", lens.Name)
	assert.InDelta(t, 0.25, lens.Valuation, 1e-9)
	assert.InDelta(t, 6.5, lens.BuyThreshold, 1e-9)
	assert.InDelta(t, 4.5, lens.WatchThreshold, 1e-9)
	assert.Equal(t, 0.0, lens.Dilution)

	assert.Nil(t, LensByID("no-such-lens"))
}

func TestWeightForMatchesStructFields(t *testing.T) {
	lens := LensByID("value-purist")
	require.NotNil(t, lens)

	total := 0.0
	for _, cat := range Categories {
		total += lens.WeightFor(cat)
	}
	assert.InDelta(t, 1.0, total, 1e-9, "WeightFor must cover every category key")
	assert.True(t, math.Abs(lens.WeightFor("capitalAllocation")-lens.CapitalAllocation) < 1e-12)
	assert.Equal(t, 0.0, lens.WeightFor("unknown"))
}
