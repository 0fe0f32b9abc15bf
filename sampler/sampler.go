package sampler

import (
	mrand "math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// A Sampler draws samples from a distribution over Dim() outputs, k at a time,
// one sample per column. *model.Projection is a Sampler.
type Sampler interface {
	Dim() int
	RandN(src mrand.Source, k int) (*mat.Dense, error)
}
