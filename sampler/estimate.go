package sampler

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/rand"
)

// Options control Run. Zero fields take the defaults below.
type Options struct {
	BatchSize         int     // Draws per batch (default 1000)
	ConvergenceWindow int     // Batches in the convergence window (default 20)
	Tolerance         float64 // Per-batch running mean change to stop at (0 = never stop early)
	MaxDraws          int64   // Draws per chain (default 100000)

	// Progress, if set, is called after every batch with the number of draws
	// just taken. It is called from several goroutines at once.
	Progress func(draws int64)
}

func (o Options) withDefaults() Options {
	if o.BatchSize < 1 {
		o.BatchSize = 1000
	}
	if o.ConvergenceWindow < 1 {
		o.ConvergenceWindow = 20
	}
	if o.MaxDraws < 1 {
		o.MaxDraws = 100000
	}
	return o
}

// Estimate holds pooled empirical moments
type Estimate struct {
	Count int64
	Mean  []float64
	Cov   *mat.SymDense
}

// MergeChains pools the moments of several chains over the same outputs
func MergeChains(chains []*Chain) (*Estimate, error) {
	if len(chains) < 1 {
		return nil, errors.Errorf("Can not merge 0 chains")
	}

	n := len(chains[0].sum)
	sum := make([]float64, n)
	outer := mat.NewSymDense(n, nil)
	var count int64
	for _, ch := range chains {
		if len(ch.sum) != n {
			return nil, errors.Errorf("Cannot merge chain with %d outputs into %d outputs", len(ch.sum), n)
		}
		floats.Add(sum, ch.sum)
		outer.AddSym(outer, ch.outer)
		count += ch.TotalSampleCount
	}
	if count < 1 {
		return nil, errors.Errorf("Chains have no samples to merge")
	}

	mean := make([]float64, n)
	floats.ScaleTo(mean, 1/float64(count), sum)

	return &Estimate{
		Count: count,
		Mean:  mean,
		Cov:   momentsCov(sum, outer, count),
	}, nil
}

// Run draws from target with one chain per generator, concurrently, until
// every chain has converged (see Options.Tolerance) or taken MaxDraws draws,
// then pools the chains. Each chain only ever touches its own generator, so
// seeded generators give a reproducible estimate. Cancelling ctx stops all
// chains and returns the context error.
func Run(ctx context.Context, target Sampler, gens []*rand.Generator, opts Options) (*Estimate, error) {
	if len(gens) < 1 {
		return nil, errors.New("At least one generator is required")
	}
	opts = opts.withDefaults()

	chains := make([]*Chain, len(gens))
	for i, gen := range gens {
		ch, err := NewChain(target, gen, opts.BatchSize, opts.ConvergenceWindow)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not create chain %d", i)
		}
		chains[i] = ch
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range chains {
		ch := chains[i]
		g.Go(func() error {
			for ch.TotalSampleCount < opts.MaxDraws {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := ch.Advance(); err != nil {
					return err
				}
				if opts.Progress != nil {
					opts.Progress(int64(ch.BatchSize))
				}
				if opts.Tolerance > 0 && ch.Converged(opts.Tolerance) {
					break
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergeChains(chains)
}

// MaxAbsErrors returns the largest absolute difference between the estimate
// and the given mean and covariance.
func (e *Estimate) MaxAbsErrors(mean mat.Vector, cov mat.Symmetric) (meanErr float64, covErr float64, err error) {
	n := len(e.Mean)
	if mean.Len() != n || cov.SymmetricDim() != n {
		return 0, 0, errors.Errorf("Estimate has %d outputs, reference has %d/%d", n, mean.Len(), cov.SymmetricDim())
	}

	for i := 0; i < n; i++ {
		meanErr = math.Max(meanErr, math.Abs(e.Mean[i]-mean.AtVec(i)))
		for j := i; j < n; j++ {
			covErr = math.Max(covErr, math.Abs(e.Cov.At(i, j)-cov.At(i, j)))
		}
	}
	return meanErr, covErr, nil
}
