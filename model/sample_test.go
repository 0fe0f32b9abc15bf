package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/CraigKelly/blr/rand"
)

func testRegressor(t *testing.T) *Regressor {
	reg, err := NewRegressor([]float64{1, -1}, mat.NewSymDense(2, []float64{
		2, 0.5,
		0.5, 1,
	}))
	require.NoError(t, err)
	return reg
}

// assertMoments compares the sample moments of the columns of ys with f
func assertMoments(t *testing.T, f *Projection, ys *mat.Dense) {
	n, k := ys.Dims()
	m := float64(k)
	mean, cov := f.Mean(), f.Cov()

	sum := make([]float64, n)
	for i := 0; i < n; i++ {
		sum[i] = mat.Sum(ys.RowView(i))
	}
	var outer mat.SymDense
	outer.SymOuterK(1, ys)

	for i := 0; i < n; i++ {
		se := math.Sqrt(cov.At(i, i) / m)
		assert.InDelta(t, mean.AtVec(i), sum[i]/m, 5*se+1e-12, "mean %d", i)
		for j := i; j < n; j++ {
			c := cov.At(i, j)
			emp := outer.At(i, j)/m - (sum[i]/m)*(sum[j]/m)
			se := math.Sqrt((cov.At(i, i)*cov.At(j, j) + c*c) / m)
			assert.InDelta(t, c, emp, 5*se+1e-12, "cov %d,%d", i, j)
		}
	}
}

func TestRandSingularCovariance(t *testing.T) {
	assert := assert.New(t)

	// Output 1 has no features and no noise, so its variance is exactly 0
	x := mat.NewDense(2, 3, []float64{
		1, 0, 2,
		0.5, 0, -1,
	})
	f, err := testRegressor(t).Project(x, Isotropic(0))
	require.NoError(t, err)
	_, err = f.covCholesky()
	assert.True(IsNumerical(err))

	g1, _ := rand.NewGenerator(11)
	ys, err := f.RandN(g1, 100000)
	require.NoError(t, err)
	assert.Equal(0.0, mat.Norm(ys.RowView(1), math.Inf(1)))
	assertMoments(t, f, ys)

	g2, _ := rand.NewGenerator(11)
	again, err := f.RandN(g2, 100000)
	require.NoError(t, err)
	assert.True(mat.Equal(ys, again))

	// A subset keeps what the fallback needs
	sub, err := f.Subset([]int{1, 2})
	require.NoError(t, err)
	one, err := sub.Rand(g2)
	require.NoError(t, err)
	assert.Equal(0.0, one.AtVec(0))

	// Noise that is neither zero nor factorable has no fallback
	bad, err := testRegressor(t).Project(mat.NewDense(2, 2, nil), NoiseMatrix(mat.NewSymDense(2, []float64{
		1, 2,
		2, 1,
	})))
	require.NoError(t, err)
	_, err = bad.Rand(g2)
	assert.True(IsNumerical(err))
}

func TestRandWeightSpaceWithNoise(t *testing.T) {
	x := mat.NewDense(2, 4, []float64{
		1, 0, 2, -0.3,
		0.5, 1, -1, 0.7,
	})
	f, err := testRegressor(t).Project(x, Isotropic(0.5))
	require.NoError(t, err)
	require.NoError(t, f.moments())

	gen, _ := rand.NewGenerator(5)
	ys, err := f.randWeightSpace(gen, 200000)
	require.NoError(t, err)
	assertMoments(t, f, ys)
}

func TestJointDistancesMatchGonum(t *testing.T) {
	assert := assert.New(t)

	reg := testRegressor(t)
	x := mat.NewDense(2, 3, []float64{
		1, 0.2, 2,
		0.5, 1, -1,
	})
	a, err := reg.Project(x, Isotropic(0.5))
	require.NoError(t, err)
	b, err := reg.Project(x, NoiseMatrix(mat.NewSymDense(3, []float64{
		1, 0.1, 0,
		0.1, 2, 0.3,
		0, 0.3, 0.7,
	})))
	require.NoError(t, err)

	na, err := a.Normal(nil)
	require.NoError(t, err)
	nb, err := b.Normal(nil)
	require.NoError(t, err)

	es, err := NewErrorSuite(a, b)
	require.NoError(t, err)
	assert.InDelta(distmv.Hellinger{}.DistNormal(na, nb), es.JointHellinger, 1e-12)
	assert.InDelta(distmv.KullbackLeibler{}.DistNormal(na, nb), es.KLDivergence, 1e-12)
	assert.Greater(es.JointHellinger, 0.0)

	same, err := NewErrorSuite(a, a)
	require.NoError(t, err)
	assert.InDelta(0.0, same.JointHellinger, 1e-7)
	assert.InDelta(0.0, same.KLDivergence, 1e-12)

	// A covariance that cannot be factored gives NaN, not an error
	flat, err := reg.Project(mat.NewDense(2, 2, nil), Isotropic(0))
	require.NoError(t, err)
	es, err = NewErrorSuite(flat, flat)
	require.NoError(t, err)
	assert.True(math.IsNaN(es.JointHellinger))
	assert.True(math.IsNaN(es.KLDivergence))
}
