package cmd

import (
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Print the output distribution at the problem's design",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectProblem(sp)
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
}

func projectProblem(sp *startupParams) error {
	prob, f, err := sp.readProjection()
	if err != nil {
		return err
	}

	projectionReport(sp.out, prob.Name, f)
	return nil
}
