package model

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Rand draws a single sample of length N from the projection using src.
func (f *Projection) Rand(src rand.Source) (*mat.VecDense, error) {
	draws, err := f.RandN(src, 1)
	if err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(draws.ColView(0)), nil
}

// RandN draws k independent samples and returns them as an N×k matrix, one
// sample per column. Each sample is mean + Lz where L is the lower Cholesky
// factor of the covariance and z is standard normal, drawn from src in column
// order. The same source state always produces the same samples.
//
// When the covariance is too close to singular to factor (a rank D term plus
// a tiny noise floor, say) the samples are built from the two independent
// parts instead: mean + Vᵗz_w + L_Σ z_ε with V = U⁻ᵗX from the weight
// precision and L_Σ the noise factor. That is the same distribution with
// nothing added to the diagonal.
func (f *Projection) RandN(src rand.Source, k int) (*mat.Dense, error) {
	if k < 1 {
		return nil, dimErrorf("rand", "sample count must be positive, got %d", k)
	}
	if src == nil {
		return nil, errors.New("rand: a random source is required")
	}

	if err := f.moments(); err != nil {
		return nil, errors.Wrap(err, "rand")
	}
	chol, err := f.cov.Cholesky()
	if err != nil {
		return f.randWeightSpace(src, k)
	}

	n := f.Dim()
	mean := f.meanSlice()
	out := mat.NewDense(n, k, nil)
	dst := make([]float64, n)
	for j := 0; j < k; j++ {
		distmv.NormalRand(dst, mean, chol, src)
		out.SetCol(j, dst)
	}

	return out, nil
}

// randWeightSpace draws D weight normals then N noise normals per sample
func (f *Projection) randWeightSpace(src rand.Source, k int) (*mat.Dense, error) {
	noiseU, err := f.noiseUpper()
	if err != nil {
		return nil, errors.Wrap(err, "rand")
	}

	d, n := f.half.Dims()
	zw := mat.NewDense(d, k, nil)
	ze := mat.NewDense(n, k, nil)
	rnd := rand.New(src)
	for j := 0; j < k; j++ {
		for i := 0; i < d; i++ {
			zw.Set(i, j, rnd.NormFloat64())
		}
		for i := 0; i < n; i++ {
			ze.Set(i, j, rnd.NormFloat64())
		}
	}

	out := mat.NewDense(n, k, nil)
	out.Mul(f.half.T(), zw)
	if noiseU != nil {
		var eps mat.Dense
		eps.Mul(noiseU.T(), ze)
		out.Add(out, &eps)
	}
	for j := 0; j < k; j++ {
		col := out.ColView(j).(*mat.VecDense)
		col.AddVec(col, f.mean)
	}
	return out, nil
}

// noiseUpper returns the noise factor U_Σ, or nil for an all-zero noise
// covariance (which contributes nothing to a sample).
func (f *Projection) noiseUpper() (*mat.TriDense, error) {
	u, err := f.noise.Upper()
	if err == nil {
		return u, nil
	}
	n := f.noise.Dim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if f.noise.At(i, j) != 0 {
				return nil, err
			}
		}
	}
	return nil, nil
}

// covCholesky returns the memoized factor of the output covariance
func (f *Projection) covCholesky() (*mat.Cholesky, error) {
	if err := f.moments(); err != nil {
		return nil, err
	}
	return f.cov.Cholesky()
}

func (f *Projection) meanSlice() []float64 {
	out := make([]float64, f.mean.Len())
	for i := range out {
		out[i] = f.mean.AtVec(i)
	}
	return out
}
