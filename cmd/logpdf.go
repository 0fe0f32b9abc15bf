package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var logpdfCmd = &cobra.Command{
	Use:   "logpdf",
	Short: "Print the log-density of the problem's observations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return logpdfProblem(sp)
	},
}

func init() {
	rootCmd.AddCommand(logpdfCmd)
}

func logpdfProblem(sp *startupParams) error {
	prob, f, err := sp.readProjection()
	if err != nil {
		return err
	}
	if prob.Observations == nil {
		return errors.Errorf("Problem %s has no observations", prob.Name)
	}

	lp, err := f.LogPDF(prob.Observations)
	if err != nil {
		return err
	}
	sp.out.Printf("%s logpdf: %.10g\n", prob.Name, lp)
	return nil
}
