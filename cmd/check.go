package cmd

import (
	"context"
	"math"
	mrand "math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/model"
	"github.com/CraigKelly/blr/sampler"
	"github.com/CraigKelly/blr/toy"
)

type checkParams struct {
	dims      int
	points    int
	chains    int
	draws     int64
	batchSize int
	tolerance float64
}

var checkOpts checkParams

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run numerical diagnostics on a random toy problem",
	Long: `check draws a seeded toy problem and compares results that must agree:

  - Joint and sequential (two block) posteriors
  - A subset of the projection and a projection of the subset
  - Posterior predictions at the training design with almost no noise
  - Exact moments and empirical moments from concurrent sample chains

Errors are printed as -log2(err): higher is better.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return checkToy(ctx, sp, checkOpts)
	},
}

func init() {
	checkCmd.Flags().IntVarP(&checkOpts.dims, "dims", "d", 3, "Number of weights D")
	checkCmd.Flags().IntVarP(&checkOpts.points, "points", "n", 11, "Number of outputs N")
	checkCmd.Flags().IntVar(&checkOpts.chains, "chains", 4, "Concurrent sample chains")
	checkCmd.Flags().Int64Var(&checkOpts.draws, "draws", 50000, "Maximum draws per chain")
	checkCmd.Flags().IntVar(&checkOpts.batchSize, "batch", 1000, "Draws per batch")
	checkCmd.Flags().Float64Var(&checkOpts.tolerance, "tolerance", 0, "Stop a chain once its mean moves less than this per batch (0 = run all draws)")
	rootCmd.AddCommand(checkCmd)
}

func checkToy(ctx context.Context, sp *startupParams, opts checkParams) error {
	if opts.points < 2 {
		return errors.Errorf("check needs at least 2 points, got %d", opts.points)
	}
	if opts.chains < 1 {
		return errors.Errorf("Invalid chain count %d", opts.chains)
	}

	var mon *monitor
	if sp.monitorAddr != "" {
		mon = newMonitor(sp.log)
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()
	}

	gen, err := sp.generator()
	if err != nil {
		return err
	}
	prob, err := toy.NewProblem(gen, opts.points, opts.dims)
	if err != nil {
		return err
	}
	f, err := prob.Projection()
	if err != nil {
		return err
	}
	sp.out.Printf("Toy problem: D=%d N=%d seed=%d\n", opts.dims, opts.points, sp.randomSeed)

	yv, err := f.Rand(gen)
	if err != nil {
		return errors.Wrap(err, "Could not draw observations")
	}
	y := yv.RawVector().Data

	// Joint vs sequential posterior, compared on a fresh query
	split := opts.points / 2
	joint, err := f.Posterior(y)
	if err != nil {
		return errors.Wrap(err, "Joint posterior failed")
	}
	seq, err := sequentialPosterior(prob, y, split)
	if err != nil {
		return errors.Wrap(err, "Sequential posterior failed")
	}
	xq := toy.Normals(mrand.New(gen), opts.dims, opts.points)
	qJoint, err := joint.Project(xq, model.Isotropic(1))
	if err != nil {
		return err
	}
	qSeq, err := seq.Project(xq, model.Isotropic(1))
	if err != nil {
		return err
	}
	if err := compareReport(sp, mon, "SEQUENTIAL vs JOINT POSTERIOR", qSeq, qJoint); err != nil {
		return err
	}

	// Subset of the joint vs projection of the subset
	set := make([]int, split)
	for i := range set {
		set[i] = i
	}
	sub, err := f.Subset(set)
	if err != nil {
		return err
	}
	subNoise, err := model.NoiseMatrix(prob.Noise).Subset(set)
	if err != nil {
		return err
	}
	direct, err := prob.Reg.Project(prob.X.Slice(0, opts.dims, 0, split), subNoise)
	if err != nil {
		return err
	}
	if err := compareReport(sp, mon, "SUBSET vs DIRECT PROJECTION", sub, direct); err != nil {
		return err
	}

	// Noise-free data is reproduced by the posterior predictive mean
	if err := lowNoiseReport(sp, prob); err != nil {
		return err
	}

	return empiricalReport(ctx, sp, mon, f, opts)
}

// sequentialPosterior conditions on y[:split] and then on y[split:]
func sequentialPosterior(prob *toy.Problem, y []float64, split int) (*model.Regressor, error) {
	d, n := prob.X.Dims()
	noise := model.NoiseMatrix(prob.Noise)

	first := make([]int, split)
	for i := range first {
		first[i] = i
	}
	second := make([]int, n-split)
	for i := range second {
		second[i] = split + i
	}

	n1, err := noise.Subset(first)
	if err != nil {
		return nil, err
	}
	n2, err := noise.Subset(second)
	if err != nil {
		return nil, err
	}

	f1, err := prob.Reg.Project(prob.X.Slice(0, d, 0, split), n1)
	if err != nil {
		return nil, err
	}
	mid, err := f1.Posterior(y[:split])
	if err != nil {
		return nil, err
	}
	f2, err := mid.Project(prob.X.Slice(0, d, split, n), n2)
	if err != nil {
		return nil, err
	}
	return f2.Posterior(y[split:])
}

func compareReport(sp *startupParams, mon *monitor, title string, a, b *model.Projection) error {
	es, err := model.NewErrorSuite(a, b)
	if err != nil {
		return errors.Wrapf(err, "Could not score %s", title)
	}
	errorReport(sp.out, title, es, true)
	if mon != nil {
		mon.RecordCheck(es)
	}
	return nil
}

func lowNoiseReport(sp *startupParams, prob *toy.Problem) error {
	gen, err := sp.generator()
	if err != nil {
		return err
	}
	maxErr, maxVar, err := lowNoiseRecovery(gen, prob)
	if err != nil {
		return err
	}

	sp.out.Printf("LOW NOISE RECOVERY\n")
	sp.out.Printf("  MeanAE  max:%10.3g  MaxVar:%10.3g\n", -math.Log2(maxErr), -math.Log2(maxVar))
	return nil
}

// lowNoiseRecovery conditions on noise-free data at the training design and
// returns the worst predictive mean error and the largest predictive
// variance magnitude. With zero prediction noise a variance can round to a
// tiny negative value, so magnitudes are reported.
func lowNoiseRecovery(src mrand.Source, prob *toy.Problem) (float64, float64, error) {
	w, err := prob.Reg.RandWeights(src)
	if err != nil {
		return 0, 0, err
	}

	_, n := prob.X.Dims()
	var yv mat.VecDense
	yv.MulVec(prob.X.T(), w)
	y := yv.RawVector().Data

	f, err := prob.Reg.Project(prob.X, model.Isotropic(1e-10))
	if err != nil {
		return 0, 0, err
	}
	post, err := f.Posterior(y)
	if err != nil {
		return 0, 0, errors.Wrap(err, "Low noise posterior failed")
	}
	pred, err := post.Project(prob.X, model.Isotropic(0))
	if err != nil {
		return 0, 0, err
	}

	diff := make([]float64, n)
	floats.SubTo(diff, pred.Mean().RawVector().Data, y)
	return floats.Norm(diff, math.Inf(1)), floats.Norm(pred.Var(), math.Inf(1)), nil
}

func empiricalReport(ctx context.Context, sp *startupParams, mon *monitor, f *model.Projection, opts checkParams) error {
	parent, err := sp.generator()
	if err != nil {
		return err
	}
	gens, err := parent.Spawn(opts.chains)
	if err != nil {
		return err
	}

	runOpts := sampler.Options{
		BatchSize: opts.batchSize,
		MaxDraws:  opts.draws,
		Tolerance: opts.tolerance,
	}
	if mon != nil {
		mon.SetRun(opts.chains, opts.batchSize, opts.draws)
		runOpts.Progress = mon.AddDraws
	}

	sp.log.Info("sampling", "chains", opts.chains, "maxDraws", opts.draws, "batch", opts.batchSize)
	start := time.Now()
	est, err := sampler.Run(ctx, f, gens, runOpts)
	if err != nil {
		return errors.Wrap(err, "Sampling failed")
	}
	elapsed := time.Since(start)
	if mon != nil {
		mon.SetRunTime(elapsed)
	}
	sp.log.Info("sampling done", "draws", est.Count, "elapsed", elapsed)

	meanErr, covErr, err := est.MaxAbsErrors(f.Mean(), f.Cov())
	if err != nil {
		return err
	}

	sp.out.Printf("EMPIRICAL (%d draws) vs EXACT\n", est.Count)
	sp.out.Printf("  MeanAE  max:%10.3g\n", -math.Log2(meanErr))
	sp.out.Printf("  CovAE   max:%10.3g\n", -math.Log2(covErr))
	return nil
}
