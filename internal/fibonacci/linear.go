package fibonacci

import "math/big"

// linearState walks the sequence one index per unit.
type linearState struct {
	a, b *big.Int // F(i), F(i+1)
	i, n uint64
}

func newLinear(n uint64) *linearState {
	return &linearState{a: big.NewInt(0), b: big.NewInt(1), n: n}
}

func (s *linearState) advance(budget int) (used int, done bool) {
	for used < budget && s.i < s.n {
		s.a.Add(s.a, s.b)
		s.a, s.b = s.b, s.a
		s.i++
		used++
	}
	return used, s.i == s.n
}

// LinearFib computes F(n) iteratively in a single call.
func LinearFib(n uint64) *big.Int {
	s := newLinear(n)
	for {
		if _, done := s.advance(DefaultYieldInterval); done {
			return s.a
		}
	}
}

// Generator yields consecutive Fibonacci numbers starting at F(0).
type Generator struct {
	a, b *big.Int
	i    uint64
}

// NewGenerator returns a generator positioned at F(0).
func NewGenerator() *Generator {
	return &Generator{a: big.NewInt(0), b: big.NewInt(1)}
}

// Next returns the current index and a copy of its value, then advances.
func (g *Generator) Next() (uint64, *big.Int) {
	i, v := g.i, new(big.Int).Set(g.a)
	g.a.Add(g.a, g.b)
	g.a, g.b = g.b, g.a
	g.i++
	return i, v
}
