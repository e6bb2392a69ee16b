package fibonacci

import (
	"math"
	"math/big"
	"math/bits"

	apperrors "github.com/zed/txfib/internal/errors"
)

// BinetPrecision returns the big.Float mantissa size, in bits, needed for the
// exact closed form at index n: the size of F(n) plus guard bits covering the
// rounding error of the O(log n) multiplications in φⁿ.
func BinetPrecision(n uint64) uint {
	return uint(math.Ceil(float64(n)*Log2Phi)) + 2*uint(bits.Len64(n)) + GuardBits
}

// BinetExact computes F(n) = round(φⁿ/√5) with arbitrary precision.
func BinetExact(n uint64) *big.Int {
	if n < 2 {
		return new(big.Int).SetUint64(n)
	}
	prec := BinetPrecision(n)
	newFloat := func() *big.Float { return new(big.Float).SetPrec(prec) }

	sqrt5 := newFloat().SetInt64(5)
	sqrt5.Sqrt(sqrt5)

	phi := newFloat().SetInt64(1)
	phi.Add(phi, sqrt5)
	phi.Quo(phi, newFloat().SetInt64(2))

	pow := newFloat().SetInt64(1)
	base := newFloat().Set(phi)
	for e := n; e > 0; e >>= 1 {
		if e&1 == 1 {
			pow.Mul(pow, base)
		}
		if e > 1 {
			base.Mul(base, base)
		}
	}

	pow.Quo(pow, sqrt5)
	pow.Add(pow, newFloat().SetFloat64(0.5))
	z, _ := pow.Int(nil)
	return z
}

// BinetApprox computes F(n) ≈ round(φⁿ/√5) in float64. The result is
// exact up to n = 70 and drifts afterwards; indices above MaxApproxIndex
// overflow.
func BinetApprox(n uint64) (float64, error) {
	if n > MaxApproxIndex {
		return 0, apperrors.Errorf(apperrors.KindOverflow, "φ^%d/√5 exceeds float64 range", n)
	}
	v := math.Round(math.Pow(math.Phi, float64(n)) / math.Sqrt(5))
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, apperrors.Errorf(apperrors.KindOverflow, "φ^%d/√5 is not finite", n)
	}
	return v, nil
}
