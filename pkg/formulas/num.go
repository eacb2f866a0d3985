package formulas

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Ptr returns a pointer to v. Convenience for optional numerics.
func Ptr(v float64) *float64 {
	return &v
}

// IsFinite reports whether v is a real number (not NaN or Inf).
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Coerce converts an untyped JSON value to a finite float64.
// Accepts numbers, numeric strings and json.Number; everything else
// (nil, booleans, NaN, Inf, non-numeric strings) yields nil.
func Coerce(v any) *float64 {
	switch x := v.(type) {
	case float64:
		if IsFinite(x) {
			return Ptr(x)
		}
	case float32:
		return Coerce(float64(x))
	case int:
		return Ptr(float64(x))
	case int64:
		return Ptr(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil && IsFinite(f) {
			return Ptr(f)
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && IsFinite(f) {
			return Ptr(f)
		}
	}
	return nil
}

// SafeDiv divides a by b, returning nil when either operand is nil,
// b is zero, or the result is not finite.
func SafeDiv(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	r := *a / *b
	if !IsFinite(r) {
		return nil
	}
	return Ptr(r)
}

// SafeDivPct is SafeDiv scaled to a percentage.
func SafeDivPct(a, b *float64) *float64 {
	r := SafeDiv(a, b)
	if r == nil {
		return nil
	}
	return Ptr(*r * 100)
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundPtr rounds an optional value, passing nil through.
func RoundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	return Ptr(Round(*v, places))
}
