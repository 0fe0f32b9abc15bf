package model

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Regressor is a Bayesian linear regressor: a Gaussian belief over a weight
// vector w with mean mw and precision (inverse covariance) Λw. A Regressor is
// immutable; conditioning on data returns a new one.
type Regressor struct {
	mean *mat.VecDense
	prec *SymPD
}

// NewRegressor creates a regressor from a prior mean and precision matrix.
// Both are copied. The precision must be positive-definite.
func NewRegressor(mw []float64, precision mat.Symmetric) (*Regressor, error) {
	if precision == nil {
		return nil, dimErrorf("new regressor", "no precision matrix")
	}
	d := precision.SymmetricDim()
	if d < 1 {
		return nil, dimErrorf("new regressor", "weight dimension must be positive, got %d", d)
	}
	if len(mw) != d {
		return nil, dimErrorf("new regressor", "mean has length %d but precision is %d×%d", len(mw), d, d)
	}

	mean := mat.NewVecDense(d, nil)
	for i, v := range mw {
		mean.SetVec(i, v)
	}

	r := newRegressor(mean, NewSymPD("weight precision", precision))
	if _, err := r.prec.Cholesky(); err != nil {
		return nil, errors.Wrap(err, "could not create regressor")
	}
	return r, nil
}

// newRegressor takes ownership of both arguments
func newRegressor(mean *mat.VecDense, prec *SymPD) *Regressor {
	return &Regressor{
		mean: mean,
		prec: prec,
	}
}

// Dim returns the weight dimension D
func (r *Regressor) Dim() int {
	return r.mean.Len()
}

// Mean returns a copy of the weight mean mw
func (r *Regressor) Mean() []float64 {
	out := make([]float64, r.mean.Len())
	for i := range out {
		out[i] = r.mean.AtVec(i)
	}
	return out
}

// Precision returns a copy of the weight precision Λw
func (r *Regressor) Precision() *mat.SymDense {
	return r.prec.Sym()
}

// Project returns the Gaussian distribution over Y = Xᵗw + ε with ε ~ N(0, Σy)
// independent of w. X is D×N: column i holds the features of output i. The
// design matrix is copied.
func (r *Regressor) Project(x mat.Matrix, noise Noise) (*Projection, error) {
	if x == nil {
		return nil, dimErrorf("project", "no design matrix")
	}
	xr, xc := x.Dims()
	if xr != r.Dim() {
		return nil, dimErrorf("project", "design matrix has %d rows but weights have dimension %d", xr, r.Dim())
	}

	sigma, err := noise.resolve("project", xc)
	if err != nil {
		return nil, err
	}

	var design mat.Dense
	design.CloneFrom(x)

	return &Projection{
		reg:   r,
		x:     &design,
		noise: sigma,
	}, nil
}

// RandWeights draws a weight vector w ~ N(mw, Λw⁻¹) from src. With Λw = UᵗU
// the draw is mw + U⁻¹z for standard normal z.
func (r *Regressor) RandWeights(src rand.Source) (*mat.VecDense, error) {
	if src == nil {
		return nil, errors.New("RandWeights requires a random source")
	}
	u, err := r.prec.Upper()
	if err != nil {
		return nil, err
	}

	rnd := rand.New(src)
	z := mat.NewVecDense(r.Dim(), nil)
	for i := 0; i < r.Dim(); i++ {
		z.SetVec(i, rnd.NormFloat64())
	}
	blas64.Trsv(blas.NoTrans, u.RawTriangular(), z.RawVector())

	z.AddVec(z, r.mean)
	return z, nil
}
