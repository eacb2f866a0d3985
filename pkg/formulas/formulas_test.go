package formulas

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"float", 3.5, Ptr(3.5)},
		{"int", 42, Ptr(42.0)},
		{"numeric string", "12.25", Ptr(12.25)},
		{"padded string", "  7 ", Ptr(7.0)},
		{"empty string", "", nil},
		{"non-numeric string", "n/a", nil},
		{"nil", nil, nil},
		{"bool", true, nil},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestSafeDiv(t *testing.T) {
	assert.Nil(t, SafeDiv(nil, Ptr(2)))
	assert.Nil(t, SafeDiv(Ptr(2), nil))
	assert.Nil(t, SafeDiv(Ptr(2), Ptr(0)))

	got := SafeDiv(Ptr(10), Ptr(4))
	require.NotNil(t, got)
	assert.InDelta(t, 2.5, *got, 1e-9)

	pct := SafeDivPct(Ptr(1), Ptr(8))
	require.NotNil(t, pct)
	assert.InDelta(t, 12.5, *pct, 1e-9)
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-3, 0, 10))
	assert.Equal(t, 10.0, Clamp(11, 0, 10))
	assert.Equal(t, 5.0, Clamp(5, 0, 10))
	assert.Equal(t, 1.0, Clamp01(2.5))
	assert.Equal(t, 0.0, Clamp01(-0.1))

	assert.InDelta(t, 3.142, Round(math.Pi, 3), 1e-12)
	assert.Nil(t, RoundPtr(nil, 2))
	got := RoundPtr(Ptr(1.23456), 2)
	require.NotNil(t, got)
	assert.InDelta(t, 1.23, *got, 1e-12)
}

func TestCAGR(t *testing.T) {
	day := func(y int) time.Time { return time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC) }

	t.Run("doubles over five years", func(t *testing.T) {
		points := []DatedValue{
			{day(2019), 100},
			{day(2024), 200},
		}
		got := CAGR(points, 5)
		require.NotNil(t, got)
		// 2^(1/5) - 1 is about 14.87% per year
		assert.InDelta(t, 14.87, *got, 0.1)
	})

	t.Run("span too short", func(t *testing.T) {
		points := []DatedValue{
			{day(2022), 100},
			{day(2024), 200},
		}
		assert.Nil(t, CAGR(points, 5))
	})

	t.Run("negative observations excluded", func(t *testing.T) {
		points := []DatedValue{
			{day(2019), -50},
			{day(2024), 200},
		}
		assert.Nil(t, CAGR(points, 5))
	})

	t.Run("start point picked at or before cutoff", func(t *testing.T) {
		points := []DatedValue{
			{day(2018), 80},
			{day(2019), 100},
			{day(2021), 500},
			{day(2024), 200},
		}
		got := CAGR(points, 5)
		require.NotNil(t, got)
		// start must be 2019 (latest at or before end-5y), not 2021
		assert.InDelta(t, 14.87, *got, 0.1)
	})
}

func TestCalculateMaxDrawdown(t *testing.T) {
	t.Run("simple peak to trough", func(t *testing.T) {
		got := CalculateMaxDrawdown([]float64{100, 120, 90, 110})
		require.NotNil(t, got)
		// peak 120 to trough 90 = 25%
		assert.InDelta(t, 0.25, *got, 1e-9)
	})

	t.Run("monotonic rise has zero drawdown", func(t *testing.T) {
		got := CalculateMaxDrawdown([]float64{10, 20, 30})
		require.NotNil(t, got)
		assert.Equal(t, 0.0, *got)
	})

	t.Run("too few points", func(t *testing.T) {
		assert.Nil(t, CalculateMaxDrawdown([]float64{100}))
	})
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
}

func TestStats(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(data), 1e-9)
	// sample stdev of the classic fixture
	assert.InDelta(t, 2.138, StdDev(data), 0.001)
	assert.Equal(t, 0.0, Covariance([]float64{1, 2}, []float64{1}))
}
