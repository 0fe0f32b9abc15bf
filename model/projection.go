package model

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Projection is the finite-dimensional Gaussian over outputs obtained by
// applying a Regressor to a design matrix X and a noise covariance Σy:
//
//	Y = Xᵗw + ε,  w ~ N(mw, Λw⁻¹),  ε ~ N(0, Σy)
//
// A Projection is created by Regressor.Project and never changes. Its mean and
// covariance are computed on first use and shared by every other operation.
type Projection struct {
	reg   *Regressor
	x     *mat.Dense // D×N
	noise *SymPD     // N×N

	once sync.Once
	mean *mat.VecDense
	half *mat.Dense // V = U⁻ᵗX with Λw = UᵗU, D×N
	cov  *SymPD
	err  error
}

// Dim returns the number of outputs N
func (f *Projection) Dim() int {
	_, n := f.x.Dims()
	return n
}

// Regressor returns the regressor this projection was made from
func (f *Projection) Regressor() *Regressor {
	return f.reg
}

// Design returns a copy of the design matrix X
func (f *Projection) Design() *mat.Dense {
	return mat.DenseCopyOf(f.x)
}

// Noise returns a copy of the noise covariance Σy
func (f *Projection) Noise() *mat.SymDense {
	return f.noise.Sym()
}

// moments computes Xᵗmw and Xᵗ Λw⁻¹ X + Σy once. The weight precision is never
// inverted: with Λw = UᵗU, V = U⁻ᵗX and Xᵗ Λw⁻¹ X = VᵗV, which is formed by a
// symmetric rank-k update and so is exactly symmetric.
func (f *Projection) moments() error {
	f.once.Do(func() {
		u, err := f.reg.prec.Upper()
		if err != nil {
			f.err = err
			return
		}

		n := f.Dim()
		mean := mat.NewVecDense(n, nil)
		mean.MulVec(f.x.T(), f.reg.mean)

		v := halfSolve(u, f.x)
		cov := mat.NewSymDense(n, nil)
		cov.SymOuterK(1, v.T())
		cov.AddSym(cov, f.noise.sym)

		f.mean = mean
		f.half = v
		f.cov = newSymPD("projection covariance", cov)
	})
	return f.err
}

// Mean returns a copy of the output mean Xᵗmw
func (f *Projection) Mean() *mat.VecDense {
	f.mustMoments()
	return mat.VecDenseCopyOf(f.mean)
}

// Cov returns a copy of the output covariance Xᵗ Λw⁻¹ X + Σy
func (f *Projection) Cov() *mat.SymDense {
	f.mustMoments()
	return f.cov.Sym()
}

// Var returns the diagonal of the output covariance
func (f *Projection) Var() []float64 {
	f.mustMoments()
	out := make([]float64, f.Dim())
	for i := range out {
		out[i] = f.cov.At(i, i)
	}
	return out
}

// Std returns the marginal standard deviations sqrt(diag(Cov))
func (f *Projection) Std() []float64 {
	out := f.Var()
	for i, v := range out {
		out[i] = math.Sqrt(v)
	}
	return out
}

// Marginals returns one univariate Gaussian per output. Each is read directly
// from the mean vector and covariance diagonal, so the values match Mean and
// Cov exactly.
func (f *Projection) Marginals() []distuv.Normal {
	f.mustMoments()
	out := make([]distuv.Normal, f.Dim())
	for i := range out {
		out[i] = distuv.Normal{
			Mu:    f.mean.AtVec(i),
			Sigma: math.Sqrt(f.cov.At(i, i)),
		}
	}
	return out
}

// Subset returns the joint distribution of the outputs in set, in that order.
// Its moments are read from this projection's rather than recomputed, so
// comparing it with a fresh projection of the same design columns checks
// that marginalizing and projecting agree.
func (f *Projection) Subset(set []int) (*Projection, error) {
	n := f.Dim()
	if len(set) < 1 {
		return nil, dimErrorf("subset", "empty index set")
	}
	for _, i := range set {
		if i < 0 || i >= n {
			return nil, dimErrorf("subset", "index %d outside projection with %d outputs", i, n)
		}
	}
	if err := f.moments(); err != nil {
		return nil, err
	}

	d := f.reg.Dim()
	x := mat.NewDense(d, len(set), nil)
	half := mat.NewDense(d, len(set), nil)
	mean := mat.NewVecDense(len(set), nil)
	col := make([]float64, d)
	for j, i := range set {
		mat.Col(col, i, f.x)
		x.SetCol(j, col)
		mat.Col(col, i, f.half)
		half.SetCol(j, col)
		mean.SetVec(j, f.mean.AtVec(i))
	}

	var noise, cov mat.SymDense
	noise.SubsetSym(f.noise.sym, set)
	cov.SubsetSym(f.cov.sym, set)

	sub := &Projection{
		reg:   f.reg,
		x:     x,
		noise: newSymPD("noise covariance", &noise),
		mean:  mean,
		half:  half,
		cov:   newSymPD("projection covariance", &cov),
	}
	sub.once.Do(func() {})
	return sub, nil
}

// mustMoments panics if moments failed. That can only happen when the weight
// precision has no factor, which NewRegressor already rules out.
func (f *Projection) mustMoments() {
	if err := f.moments(); err != nil {
		panic(err)
	}
}
