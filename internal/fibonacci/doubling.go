package fibonacci

import (
	"math/big"
	"math/bits"
)

// doublingState applies one fast doubling step per unit, consuming the bits
// of n from the most significant one.
//
//	F(2k)   = F(k) * (2*F(k+1) - F(k))
//	F(2k+1) = F(k+1)² + F(k)²
type doublingState struct {
	fk, fk1 *big.Int // F(k), F(k+1)
	t1, t2  *big.Int
	n       uint64
	bit     int // next bit to consume; -1 when finished
}

func newDoubling(n uint64) *doublingState {
	return &doublingState{
		fk:  big.NewInt(0),
		fk1: big.NewInt(1),
		t1:  new(big.Int),
		t2:  new(big.Int),
		n:   n,
		bit: bits.Len64(n) - 1,
	}
}

func (s *doublingState) advance(budget int) (used int, done bool) {
	for used < budget && s.bit >= 0 {
		s.t1.Lsh(s.fk1, 1)
		s.t1.Sub(s.t1, s.fk)
		s.t1.Mul(s.t1, s.fk)

		s.t2.Mul(s.fk1, s.fk1)
		s.fk.Mul(s.fk, s.fk)
		s.t2.Add(s.t2, s.fk)

		if (s.n>>uint(s.bit))&1 == 1 {
			// (F(2k+1), F(2k+2))
			s.fk, s.t2 = s.t2, s.fk
			s.fk1.Add(s.t1, s.fk)
		} else {
			s.fk, s.t1 = s.t1, s.fk
			s.fk1, s.t2 = s.t2, s.fk1
		}
		s.bit--
		used++
	}
	return used, s.bit < 0
}

// FastDoubling computes F(n) in O(log n) steps in a single call.
func FastDoubling(n uint64) *big.Int {
	s := newDoubling(n)
	s.advance(bits.Len64(n))
	return s.fk
}
