package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Posterior conditions the regressor behind f on observing y at f's design
// matrix and noise covariance, returning a new regressor:
//
//	Λw' = Λw + X Σy⁻¹ Xᵗ
//	mw' = Λw'⁻¹ (Λw mw + X Σy⁻¹ y)
//
// Σy⁻¹ is only ever applied through its Cholesky factor: with Σy = UᵗU,
// X Σy⁻¹ Xᵗ = WᵗW for W = U⁻ᵗXᵗ. The original regressor is not modified.
func Posterior(f *Projection, y []float64) (*Regressor, error) {
	if f == nil {
		return nil, dimErrorf("posterior", "no projection")
	}
	n := f.Dim()
	d := f.reg.Dim()
	if len(y) != n {
		return nil, dimErrorf("posterior", "observation has length %d but projection has %d outputs", len(y), n)
	}

	noiseChol, err := f.noise.Cholesky()
	if err != nil {
		return nil, errors.Wrap(err, "posterior")
	}
	noiseU, err := f.noise.Upper()
	if err != nil {
		return nil, errors.Wrap(err, "posterior")
	}

	// Λw' = Λw + WᵗW
	w := halfSolve(noiseU, f.x.T())
	prec := mat.NewSymDense(d, nil)
	prec.SymRankK(f.reg.prec.sym, 1, w.T())
	post := newSymPD("posterior precision", prec)
	postChol, err := post.Cholesky()
	if err != nil {
		return nil, errors.Wrap(err, "posterior")
	}

	// Λw mw + X Σy⁻¹ y
	var sy mat.VecDense
	if err := conditionOK(noiseChol.SolveVecTo(&sy, mat.NewVecDense(n, y))); err != nil {
		return nil, numError("posterior", "noise covariance", err)
	}
	rhs := mat.NewVecDense(d, nil)
	rhs.MulVec(f.reg.prec.sym, f.reg.mean)
	var xsy mat.VecDense
	xsy.MulVec(f.x, &sy)
	rhs.AddVec(rhs, &xsy)

	mean := mat.NewVecDense(d, nil)
	if err := conditionOK(postChol.SolveVecTo(mean, rhs)); err != nil {
		return nil, numError("posterior", "posterior precision", err)
	}

	return newRegressor(mean, post), nil
}

// Posterior is shorthand for Posterior(f, y)
func (f *Projection) Posterior(y []float64) (*Regressor, error) {
	return Posterior(f, y)
}
