package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSymPDFactorOnce(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(3, []float64{
		4, 2, 0,
		2, 3, 1,
		0, 1, 2,
	})
	p := NewSymPD("test matrix", a)
	assert.Equal(3, p.Dim())
	assert.Equal("test matrix", p.Name())

	c1, err := p.Cholesky()
	require.NoError(t, err)
	c2, err := p.Cholesky()
	require.NoError(t, err)
	assert.Same(c1, c2)

	u, err := p.Upper()
	require.NoError(t, err)
	var back mat.Dense
	back.Mul(u.T(), u)
	assert.True(mat.EqualApprox(&back, a, 1e-12))

	// The input is copied
	a.SetSym(0, 0, 100)
	assert.Equal(4.0, p.At(0, 0))
	assert.Equal(4.0, p.Sym().At(0, 0))
}

func TestSymPDNotPositiveDefinite(t *testing.T) {
	assert := assert.New(t)

	p := NewSymPD("broken", mat.NewSymDense(2, []float64{1, 3, 3, 1}))
	_, err := p.Cholesky()
	assert.True(IsNumerical(err))
	assert.Contains(err.Error(), "broken")

	_, err = p.Upper()
	assert.True(IsNumerical(err))
}

func TestHalfSolve(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(2, []float64{2, 1, 1, 3})
	p := NewSymPD("a", a)
	u, err := p.Upper()
	require.NoError(t, err)

	b := mat.NewDense(2, 3, []float64{1, 0, 2, -1, 4, 0.5})
	v := halfSolve(u, b)

	var got mat.Dense
	got.Mul(v.T(), v)

	var inv mat.Dense
	require.NoError(t, inv.Inverse(a))
	var exp mat.Dense
	exp.Product(b.T(), &inv, b)

	assert.True(mat.EqualApprox(&got, &exp, 1e-12))
	// b untouched
	assert.Equal(2.0, b.At(0, 2))
}

func TestConditionOK(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(conditionOK(nil))
	assert.NoError(conditionOK(mat.Condition(1e20)))
	assert.Error(conditionOK(mat.ErrShape))
}

func TestNoiseResolve(t *testing.T) {
	assert := assert.New(t)

	iso := Isotropic(0.5)
	assert.True(iso.IsIsotropic())
	assert.Equal(-1, iso.Dim())
	assert.Equal(0.5, iso.Variance())

	s, err := iso.Sym(3)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				assert.Equal(0.5, s.At(i, j))
			} else {
				assert.Equal(0.0, s.At(i, j))
			}
		}
	}

	_, err = Isotropic(-0.1).Sym(2)
	assert.True(IsNumerical(err))
	_, err = iso.Sym(0)
	assert.True(IsDimension(err))

	full := NoiseMatrix(mat.NewSymDense(2, []float64{1, 0.2, 0.2, 2}))
	assert.False(full.IsIsotropic())
	assert.Equal(2, full.Dim())
	_, err = full.Sym(3)
	assert.True(IsDimension(err))

	// Full noise shares one factorization across resolves
	p1, err := full.resolve("test", 2)
	require.NoError(t, err)
	p2, err := full.resolve("test", 2)
	require.NoError(t, err)
	assert.Same(p1, p2)
}

func TestNoiseSubsetAndBlockDiag(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2})
	b := mat.NewSymDense(1, []float64{3})
	bd := BlockDiag(a, b)
	require.NotNil(t, bd)
	assert.Equal(3, bd.SymmetricDim())
	assert.Equal(0.5, bd.At(0, 1))
	assert.Equal(0.0, bd.At(0, 2))
	assert.Equal(0.0, bd.At(1, 2))
	assert.Equal(3.0, bd.At(2, 2))
	assert.Nil(BlockDiag())

	full := NoiseMatrix(bd)
	first, err := full.Subset([]int{0, 1})
	require.NoError(t, err)
	s, err := first.Sym(2)
	require.NoError(t, err)
	assert.True(mat.Equal(a, s))

	_, err = full.Subset([]int{0, 3})
	assert.True(IsDimension(err))
	_, err = full.Subset(nil)
	assert.True(IsDimension(err))

	iso, err := Isotropic(2).Subset([]int{4})
	require.NoError(t, err)
	assert.Equal(2.0, iso.Variance())
}

func TestHellingerNormal(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0.0, HellingerNormal(1, 2, 1, 2))
	assert.Equal(0.0, HellingerNormal(1, 0, 1, 0))
	assert.Equal(1.0, HellingerNormal(1, 0, 2, 0))

	// Same variance: H² = 1 - exp(-d²/(8σ²))
	h := HellingerNormal(0, 1, 1, 1)
	assert.InDelta(math.Sqrt(1-math.Exp(-1.0/8.0)), h, 1e-12)

	// Symmetric
	assert.InDelta(HellingerNormal(0.3, 1.5, -2, 0.7), HellingerNormal(-2, 0.7, 0.3, 1.5), 1e-15)
}
