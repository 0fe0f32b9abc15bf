package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var sampleCount int

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print seeded draws from the output distribution, one per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sampleProblem(sp, sampleCount)
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleCount, "count", "k", 10, "Number of draws")
	rootCmd.AddCommand(sampleCmd)
}

func sampleProblem(sp *startupParams, count int) error {
	if count < 1 {
		return errors.Errorf("Invalid sample count %d", count)
	}

	_, f, err := sp.readProjection()
	if err != nil {
		return err
	}
	gen, err := sp.generator()
	if err != nil {
		return err
	}

	ys, err := f.RandN(gen, count)
	if err != nil {
		return errors.Wrap(err, "Could not sample")
	}
	sp.log.Debug("sampled", "count", count, "outputs", f.Dim())

	// Samples are columns: print the transpose so each line is one draw
	col := make([]float64, f.Dim())
	for j := 0; j < count; j++ {
		mat.Col(col, j, ys)
		sp.out.Printf("%s\n", fmtVec(col))
	}
	return nil
}
