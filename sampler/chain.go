package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/buffer"
	"github.com/CraigKelly/blr/rand"
)

// Chain draws batches of samples from a Sampler using its own generator and
// keeps running first and second moments of everything drawn.
type Chain struct {
	Target            Sampler
	Gen               *rand.Generator
	BatchSize         int
	ConvergenceWindow int
	History           *buffer.CircularFloat // Max change of the running mean, per batch
	TotalSampleCount  int64

	sum   []float64     // Σ y
	outer *mat.SymDense // Σ y yᵗ
}

// NewChain returns a chain ready to go
func NewChain(target Sampler, gen *rand.Generator, batchSize int, cw int) (*Chain, error) {
	if target == nil {
		return nil, errors.New("No sampler supplied")
	}
	if gen == nil {
		return nil, errors.New("No generator supplied")
	}
	if batchSize < 1 {
		return nil, errors.Errorf("Invalid batch size %d", batchSize)
	}
	n := target.Dim()
	if n < 1 {
		return nil, errors.Errorf("Invalid sampler dimension %d", n)
	}

	return &Chain{
		Target:            target,
		Gen:               gen,
		BatchSize:         batchSize,
		ConvergenceWindow: cw,
		History:           buffer.NewCircularFloat(cw),
		sum:               make([]float64, n),
		outer:             mat.NewSymDense(n, nil),
	}, nil
}

// Advance draws one batch and folds it into the running moments
func (c *Chain) Advance() error {
	ys, err := c.Target.RandN(c.Gen, c.BatchSize)
	if err != nil {
		return errors.Wrap(err, "Error taking samples")
	}

	before := c.Mean()

	n := len(c.sum)
	row := make([]float64, c.BatchSize)
	for i := 0; i < n; i++ {
		mat.Row(row, i, ys)
		c.sum[i] += floats.Sum(row)
	}
	c.outer.SymRankK(c.outer, 1, ys)
	c.TotalSampleCount += int64(c.BatchSize)

	if before != nil {
		after := c.Mean()
		c.History.Add(floats.Distance(before, after, math.Inf(1)))
	}

	return nil
}

// Mean returns the empirical mean of all draws so far (nil before any)
func (c *Chain) Mean() []float64 {
	if c.TotalSampleCount < 1 {
		return nil
	}
	out := make([]float64, len(c.sum))
	floats.ScaleTo(out, 1/float64(c.TotalSampleCount), c.sum)
	return out
}

// Cov returns the empirical (biased, 1/M) covariance of all draws so far
func (c *Chain) Cov() *mat.SymDense {
	return momentsCov(c.sum, c.outer, c.TotalSampleCount)
}

// Converged is true once the convergence window is full and the running mean
// moved by at most tol per batch, on average, in both halves of the window.
func (c *Chain) Converged(tol float64) bool {
	first, second, ok := c.History.HalfMeans()
	if !ok {
		return false
	}
	return first <= tol && second <= tol
}

func momentsCov(sum []float64, outer *mat.SymDense, count int64) *mat.SymDense {
	if count < 1 {
		return nil
	}
	n := len(sum)
	m := float64(count)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, outer.At(i, j)/m-(sum[i]/m)*(sum[j]/m))
		}
	}
	return cov
}
