package rand

import (
	mrand "math/rand/v2"

	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
)

// A Generator is a seeded Mersenne twister. It implements math/rand/v2's
// Source, so it can be handed to anything in the model package that draws
// random numbers. A Generator is not safe for concurrent use: give each
// goroutine its own (see Spawn).
type Generator struct {
	mt  *mt19937.MT19937
	rnd *mrand.Rand
}

// NewGenerator returns a generator seeded with seed
func NewGenerator(seed int64) (*Generator, error) {
	mt := mt19937.New()
	mt.Seed(seed)
	return newGenerator(mt), nil
}

// NewGeneratorSlice returns a generator seeded from a key slice, matching the
// reference init_by_array seeding of MT19937-64.
func NewGeneratorSlice(key []uint64) (*Generator, error) {
	if len(key) < 1 {
		return nil, errors.New("Empty seed key for generator")
	}
	mt := mt19937.New()
	mt.SeedFromSlice(key)
	return newGenerator(mt), nil
}

func newGenerator(mt *mt19937.MT19937) *Generator {
	g := &Generator{mt: mt}
	g.rnd = mrand.New(g)
	return g
}

// Spawn returns n new generators seeded from this one. The children are
// fully determined by the parent's state, so a seeded parent gives
// reproducible children.
func (g *Generator) Spawn(n int) ([]*Generator, error) {
	if n < 1 {
		return nil, errors.Errorf("Invalid generator count %d", n)
	}
	out := make([]*Generator, n)
	for i := range out {
		child, err := NewGenerator(g.Int63())
		if err != nil {
			return nil, errors.Wrapf(err, "Could not spawn generator %d", i)
		}
		out[i] = child
	}
	return out, nil
}

// Int63 provides the same interface as Go's math/rand
func (g *Generator) Int63() int64 {
	return g.mt.Int63()
}

// Uint64 makes Generator a math/rand/v2 Source: one full 64-bit twister
// output per call.
func (g *Generator) Uint64() uint64 {
	return g.mt.Uint64()
}

// NormFloat64 returns a standard normal variate
func (g *Generator) NormFloat64() float64 {
	return g.rnd.NormFloat64()
}
