package cmd

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/blr/model"
	"github.com/CraigKelly/blr/rand"
)

// startupParams is the state shared by every command: the persistent flags
// plus the report and diagnostic loggers built from them.
type startupParams struct {
	problemFile string
	randomSeed  int64
	verbose     bool
	monitorAddr string

	out *log.Logger  // reports, on stdout
	log *slog.Logger // diagnostics, on stderr
}

var sp = &startupParams{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blr",
	Short: "Bayesian linear regression with Gaussian weight priors",
	Long: `blr computes exact Gaussian predictions from a linear model
y = Xᵗw + ε with a Gaussian prior on the weights w.

Problems are read from YAML files (see --problem) and provide:

  - The output distribution (mean, covariance, marginals) at a design
  - Seeded samples and log-densities of observations
  - Posterior weights after conditioning on observations
  - A diagnostic check on random toy problems
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		sp.setup(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sp.problemFile, "problem", "p", "", "YAML problem file to read")
	rootCmd.PersistentFlags().Int64VarP(&sp.randomSeed, "seed", "r", 1, "Random seed to use")
	rootCmd.PersistentFlags().BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().StringVarP(&sp.monitorAddr, "monitor", "m", "", "Serve progress over HTTP at this address (e.g. :8000)")
}

// Execute runs the root command. This is called by main.main(). It only
// needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (sp *startupParams) setup(out io.Writer, diag io.Writer) {
	sp.out = log.New(out, "", 0)

	level := slog.LevelInfo
	if sp.verbose {
		level = slog.LevelDebug
	}
	sp.log = slog.New(slog.NewTextHandler(diag, &slog.HandlerOptions{Level: level}))
}

// readProblem loads and checks the --problem file
func (sp *startupParams) readProblem() (*model.Problem, error) {
	if sp.problemFile == "" {
		return nil, errors.New("A problem file is required (use --problem)")
	}

	sp.log.Debug("reading problem", "file", sp.problemFile)
	prob, err := model.NewProblemFromFile(model.YAMLReader{}, sp.problemFile)
	if err != nil {
		return nil, err
	}

	sp.log.Info("problem loaded",
		"name", prob.Name,
		"weights", len(prob.Prior.Mean),
		"outputs", len(prob.Design[0]),
		"isotropic", prob.Noise.IsIsotropic(),
		"observations", prob.Observations != nil,
		"query", prob.Query != nil,
	)
	return prob, nil
}

// readProjection loads the problem and projects its prior onto its design
func (sp *startupParams) readProjection() (*model.Problem, *model.Projection, error) {
	prob, err := sp.readProblem()
	if err != nil {
		return nil, nil, err
	}
	reg, err := prob.Regressor()
	if err != nil {
		return nil, nil, errors.Wrap(err, "Could not build prior")
	}
	f, err := prob.Projection(reg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Could not project prior")
	}
	return prob, f, nil
}

func (sp *startupParams) generator() (*rand.Generator, error) {
	sp.log.Debug("seeding generator", "seed", sp.randomSeed)
	return rand.NewGenerator(sp.randomSeed)
}
