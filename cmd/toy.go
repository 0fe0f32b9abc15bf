package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CraigKelly/blr/toy"
)

var toyOutFile string
var toyDims int
var toyPoints int

var toyCmd = &cobra.Command{
	Use:   "toy",
	Short: "Write a seeded random problem file with sampled observations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toyOutput(sp, cmd.OutOrStdout(), toyDims, toyPoints, toyOutFile)
	},
}

func init() {
	toyCmd.Flags().IntVarP(&toyDims, "dims", "d", 3, "Number of weights D")
	toyCmd.Flags().IntVarP(&toyPoints, "points", "n", 11, "Number of outputs N")
	toyCmd.Flags().StringVarP(&toyOutFile, "out", "o", "", "File to write (default is stdout)")
	rootCmd.AddCommand(toyCmd)
}

// toyOutput draws a toy problem, samples observations from its projection
// and writes the whole thing as a YAML problem file.
func toyOutput(sp *startupParams, stdout io.Writer, dims, points int, outFile string) error {
	gen, err := sp.generator()
	if err != nil {
		return err
	}
	prob, err := toy.NewProblem(gen, points, dims)
	if err != nil {
		return err
	}
	f, err := prob.Projection()
	if err != nil {
		return err
	}
	y, err := f.Rand(gen)
	if err != nil {
		return errors.Wrap(err, "Could not sample observations")
	}

	data, err := yaml.Marshal(prob.ModelProblem("toy", y.RawVector().Data))
	if err != nil {
		return errors.Wrap(err, "Could not encode problem")
	}

	if len(outFile) < 1 {
		if _, err := stdout.Write(data); err != nil {
			return errors.Wrap(err, "Could not write problem")
		}
		return nil
	}

	sp.log.Info("writing toy problem", "file", outFile, "dims", dims, "points", points)
	fp, err := os.Create(outFile)
	if err != nil {
		return errors.Wrapf(err, "Could not create %s", outFile)
	}
	if _, err := fp.Write(data); err != nil {
		fp.Close()
		return errors.Wrapf(err, "Could not write %s", outFile)
	}
	if err := fp.Close(); err != nil {
		return errors.Wrapf(err, "Could not close %s", outFile)
	}
	return nil
}
