package model

import (
	"gonum.org/v1/gonum/mat"
)

// Noise is an observation noise covariance Σy. It is either a full N×N
// symmetric matrix, or a single non-negative variance v that stands for the
// isotropic covariance v·I(N) where N is the column count of whatever design
// matrix the noise is paired with. The zero value is isotropic noise with
// variance 0 (noiseless observations).
type Noise struct {
	variance float64
	cov      *SymPD // nil when isotropic
}

// Isotropic returns the noise covariance variance·I, sized on use
func Isotropic(variance float64) Noise {
	return Noise{variance: variance}
}

// NoiseMatrix returns a full noise covariance. The matrix is copied.
func NoiseMatrix(cov mat.Symmetric) Noise {
	return Noise{cov: NewSymPD("noise covariance", cov)}
}

// IsIsotropic is true for noise created with Isotropic
func (n Noise) IsIsotropic() bool {
	return n.cov == nil
}

// Variance returns the isotropic variance (0 for full-matrix noise)
func (n Noise) Variance() float64 {
	return n.variance
}

// Dim returns the fixed size of a full-matrix noise, or -1 when isotropic
func (n Noise) Dim() int {
	if n.cov == nil {
		return -1
	}
	return n.cov.Dim()
}

// Sym returns the noise as an explicit size×size matrix
func (n Noise) Sym(size int) (*mat.SymDense, error) {
	p, err := n.resolve("noise", size)
	if err != nil {
		return nil, err
	}
	return p.Sym(), nil
}

// Subset returns the noise covariance restricted to the given output indices.
// For full-matrix noise this is the sub-matrix Σy[set, set].
func (n Noise) Subset(set []int) (Noise, error) {
	if n.cov == nil {
		return n, nil
	}
	size := n.cov.Dim()
	for _, i := range set {
		if i < 0 || i >= size {
			return Noise{}, dimErrorf("noise subset", "index %d outside noise of size %d", i, size)
		}
	}
	if len(set) < 1 {
		return Noise{}, dimErrorf("noise subset", "empty index set")
	}
	var sub mat.SymDense
	sub.SubsetSym(n.cov.sym, set)
	return Noise{cov: newSymPD("noise covariance", &sub)}, nil
}

// resolve returns the noise as a SymPD of the given size. Full-matrix noise
// hands back its shared SymPD so a factorization is reused across calls.
func (n Noise) resolve(op string, size int) (*SymPD, error) {
	if n.cov != nil {
		if n.cov.Dim() != size {
			return nil, dimErrorf(op, "noise covariance is %d×%d but there are %d outputs", n.cov.Dim(), n.cov.Dim(), size)
		}
		return n.cov, nil
	}

	if n.variance < 0 {
		return nil, numError(op, "noise covariance", errNegativeVariance(n.variance))
	}
	if size < 1 {
		return nil, dimErrorf(op, "isotropic noise needs at least one output, got %d", size)
	}

	s := mat.NewSymDense(size, nil)
	for i := 0; i < size; i++ {
		s.SetSym(i, i, n.variance)
	}
	return newSymPD("noise covariance", s), nil
}

// BlockDiag builds the block-diagonal matrix with the given blocks along the
// diagonal and zeros elsewhere: the covariance of independent noise groups.
// BlockDiag returns nil when no blocks are given.
func BlockDiag(blocks ...mat.Symmetric) *mat.SymDense {
	total := 0
	for _, b := range blocks {
		total += b.SymmetricDim()
	}
	if total == 0 {
		return nil
	}

	out := mat.NewSymDense(total, nil)
	off := 0
	for _, b := range blocks {
		n := b.SymmetricDim()
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				out.SetSym(off+i, off+j, b.At(i, j))
			}
		}
		off += n
	}
	return out
}
