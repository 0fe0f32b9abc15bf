package model

import (
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// SymPD is a symmetric positive-definite matrix that computes its Cholesky
// factorization the first time it is needed and keeps it. A SymPD is never
// modified after construction, so the factor is computed at most once and the
// value is safe to share between goroutines.
type SymPD struct {
	name string // Used in error messages ("weight precision", ...)
	sym  *mat.SymDense

	once sync.Once
	chol *mat.Cholesky
	u    *mat.TriDense // A = UᵗU
	err  error
}

// NewSymPD copies a into a new SymPD. The name identifies the matrix in any
// NumericalError returned later.
func NewSymPD(name string, a mat.Symmetric) *SymPD {
	s := mat.NewSymDense(a.SymmetricDim(), nil)
	s.CopySym(a)
	return newSymPD(name, s)
}

// newSymPD takes ownership of s without copying
func newSymPD(name string, s *mat.SymDense) *SymPD {
	return &SymPD{name: name, sym: s}
}

// Name returns the descriptive name given at construction
func (p *SymPD) Name() string {
	return p.name
}

// Dim returns n for an n×n matrix
func (p *SymPD) Dim() int {
	return p.sym.SymmetricDim()
}

// At returns the (i, j) entry
func (p *SymPD) At(i, j int) float64 {
	return p.sym.At(i, j)
}

// Sym returns a copy of the matrix
func (p *SymPD) Sym() *mat.SymDense {
	cp := mat.NewSymDense(p.Dim(), nil)
	cp.CopySym(p.sym)
	return cp
}

func (p *SymPD) factor() {
	p.once.Do(func() {
		var chol mat.Cholesky
		if ok := chol.Factorize(p.sym); !ok {
			p.err = numError("cholesky", p.name, nil)
			return
		}
		var u mat.TriDense
		chol.UTo(&u)
		p.chol = &chol
		p.u = &u
	})
}

// Cholesky returns the memoized factorization, or a NumericalError when the
// matrix is not positive-definite. The returned value must not be modified.
func (p *SymPD) Cholesky() (*mat.Cholesky, error) {
	p.factor()
	if p.err != nil {
		return nil, p.err
	}
	return p.chol, nil
}

// Upper returns the memoized upper triangular factor U with A = UᵗU. The
// returned value must not be modified.
func (p *SymPD) Upper() (*mat.TriDense, error) {
	p.factor()
	if p.err != nil {
		return nil, p.err
	}
	return p.u, nil
}

// halfSolve returns U⁻ᵗB, so that (U⁻ᵗB)ᵗ(U⁻ᵗB) = BᵗA⁻¹B for A = UᵗU.
func halfSolve(u *mat.TriDense, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.CloneFrom(b)
	blas64.Trsm(blas.Left, blas.Trans, 1, u.RawTriangular(), out.RawMatrix())
	return &out
}

// conditionOK drops the mat.Condition warning gonum returns for badly
// conditioned (but successfully factored) systems. The solution has still
// been computed; only a failed factorization is an error here.
func conditionOK(err error) error {
	if err == nil {
		return nil
	}
	var cond mat.Condition
	if errors.As(err, &cond) {
		return nil
	}
	return err
}
