package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var log2Pi = math.Log(2 * math.Pi)

// LogPDF returns the log-density of y under the projection:
//
//	-½ (N log 2π + log det C + (y-μ)ᵗ C⁻¹ (y-μ))
//
// The covariance C is factored once (C = UᵗU); the quadratic form is |U⁻ᵗ(y-μ)|²
// and log det C is twice the sum of the logs of diag(U).
func (f *Projection) LogPDF(y []float64) (float64, error) {
	n := f.Dim()
	if len(y) != n {
		return 0, dimErrorf("logpdf", "observation has length %d but projection has %d outputs", len(y), n)
	}

	chol, err := f.covCholesky()
	if err != nil {
		return 0, errors.Wrap(err, "logpdf")
	}
	u, err := f.cov.Upper()
	if err != nil {
		return 0, errors.Wrap(err, "logpdf")
	}

	return f.logPDF(y, chol, u), nil
}

// LogPDFs returns the log-density of each column of ys. The covariance
// factor is shared by every column.
func (f *Projection) LogPDFs(ys mat.Matrix) ([]float64, error) {
	n := f.Dim()
	r, c := ys.Dims()
	if r != n {
		return nil, dimErrorf("logpdf", "observations have %d rows but projection has %d outputs", r, n)
	}

	chol, err := f.covCholesky()
	if err != nil {
		return nil, errors.Wrap(err, "logpdf")
	}
	u, err := f.cov.Upper()
	if err != nil {
		return nil, errors.Wrap(err, "logpdf")
	}

	out := make([]float64, c)
	y := make([]float64, n)
	for j := 0; j < c; j++ {
		mat.Col(y, j, ys)
		out[j] = f.logPDF(y, chol, u)
	}
	return out, nil
}

func (f *Projection) logPDF(y []float64, chol *mat.Cholesky, u *mat.TriDense) float64 {
	n := f.Dim()

	resid := mat.NewVecDense(n, nil)
	resid.SubVec(mat.NewVecDense(n, y), f.mean)

	white := halfSolve(u, resid)
	quad := 0.0
	for i := 0; i < n; i++ {
		v := white.At(i, 0)
		quad += v * v
	}

	return -0.5 * (float64(n)*log2Pi + chol.LogDet() + quad)
}
