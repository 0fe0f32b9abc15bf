package model_test

import (
	mrand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/rand"
	"github.com/CraigKelly/blr/toy"
)

func randFrom(gen *rand.Generator) *mrand.Rand {
	return mrand.New(gen)
}

func randFromSeed(t testing.TB, seed int64) *rand.Generator {
	gen, err := rand.NewGenerator(seed)
	require.NoError(t, err)
	return gen
}

// randomSPD returns AAᵗ + I for a standard normal n×n A
func randomSPD(rnd *mrand.Rand, n int) *mat.SymDense {
	a := toy.Normals(rnd, n, n)
	s := mat.NewSymDense(n, nil)
	s.SymOuterK(1, a)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, s.At(i, i)+1)
	}
	return s
}
