//go:build gmp

// Logarithmic requests in gmp builds run fast doubling on libgmp. Building
// requires libgmp: go build -tags=gmp.

package worker

import (
	"context"
	"math/big"
	"math/bits"

	"github.com/ncw/gmp"

	apperrors "github.com/zed/txfib/internal/errors"
)

func init() {
	fastDoubling = gmpFastDoubling
}

// gmpFastDoubling walks the bits of n from the top, keeping a = F(k) and
// b = F(k+1).
func gmpFastDoubling(ctx context.Context, n uint64) (*big.Int, error) {
	if n < 2 {
		return new(big.Int).SetUint64(n), nil
	}
	a, b := gmp.NewInt(0), gmp.NewInt(1)
	t1, t2 := gmp.NewInt(0), gmp.NewInt(0)

	for i := bits.Len64(n) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.FromContext(err)
		}
		// F(2k) = F(k)(2F(k+1) - F(k))
		t1.MulUint32(b, 2)
		t1.Sub(t1, a)
		t1.Mul(a, t1)
		// F(2k+1) = F(k)² + F(k+1)²
		t2.Mul(a, a)
		a.Mul(b, b)
		t2.Add(t2, a)
		a.Set(t1)
		b.Set(t2)

		if (n>>uint(i))&1 == 1 {
			t1.Add(a, b)
			a.Set(b)
			b.Set(t1)
		}
	}
	return new(big.Int).SetBytes(a.Bytes()), nil
}
