package fibonacci

import (
	"math"
	"math/big"
	"strconv"
)

// Value is a computed sequence element. Exact strategies fill Int; the
// approximate strategy fills Float and sets Approx.
type Value struct {
	Int    *big.Int
	Float  float64
	Approx bool
}

// Exact wraps an exact result.
func Exact(v *big.Int) Value { return Value{Int: v} }

// Approximate wraps a float64 result.
func Approximate(f float64) Value { return Value{Float: f, Approx: true} }

// String renders the value in decimal.
func (v Value) String() string {
	if v.Approx {
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	}
	if v.Int == nil {
		return "<nil>"
	}
	return v.Int.String()
}

// Digits returns the number of decimal digits of an exact value, or of the
// integer part of an approximate one.
func (v Value) Digits() int {
	if v.Approx {
		if v.Float < 1 {
			return 1
		}
		return int(math.Floor(math.Log10(v.Float))) + 1
	}
	if v.Int == nil {
		return 0
	}
	return len(v.Int.Text(10))
}

// Equal reports whether two values agree. An approximate value agrees with
// another value when their relative difference is at most eps.
func (v Value) Equal(o Value, eps float64) bool {
	if !v.Approx && !o.Approx {
		return v.Int != nil && o.Int != nil && v.Int.Cmp(o.Int) == 0
	}
	a, b := v.float(), o.float()
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= eps || diff <= eps*scale
}

func (v Value) float() float64 {
	if v.Approx {
		return v.Float
	}
	if v.Int == nil {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(v.Int).Float64()
	return f
}
