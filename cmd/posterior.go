package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var posteriorCmd = &cobra.Command{
	Use:   "posterior",
	Short: "Condition on the observations and print the posterior",
	Long: `posterior conditions the prior on the problem's observations and
prints the posterior weight mean and precision. When the problem has a query,
the posterior predictive distribution at the query design is printed too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return posteriorProblem(sp)
	},
}

func init() {
	rootCmd.AddCommand(posteriorCmd)
}

func posteriorProblem(sp *startupParams) error {
	prob, f, err := sp.readProjection()
	if err != nil {
		return err
	}
	if prob.Observations == nil {
		return errors.Errorf("Problem %s has no observations", prob.Name)
	}

	post, err := f.Posterior(prob.Observations)
	if err != nil {
		return err
	}
	sp.log.Debug("conditioned", "observations", len(prob.Observations))

	sp.out.Printf("==== %s: posterior over %d weights ====\n", prob.Name, post.Dim())
	sp.out.Printf("Mean: %s\n", fmtVec(post.Mean()))
	matrixReport(sp.out, "Precision", post.Precision())

	q, err := prob.QueryProjection(post)
	if err != nil {
		return errors.Wrap(err, "Could not project posterior onto query")
	}
	if q != nil {
		projectionReport(sp.out, "Posterior predictive", q)
	}
	return nil
}
