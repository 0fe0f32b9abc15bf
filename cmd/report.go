package cmd

import (
	"fmt"
	"log"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/model"
)

func fmtVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%10.5f", x)
	}
	return strings.Join(parts, " ")
}

// matrixReport prints m one row per line under a title
func matrixReport(out *log.Logger, title string, m mat.Matrix) {
	r, c := m.Dims()
	out.Printf("%s (%d×%d)\n", title, r, c)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		out.Printf("  %s\n", fmtVec(row))
	}
}

// projectionReport prints mean, covariance and marginals of f
func projectionReport(out *log.Logger, title string, f *model.Projection) {
	out.Printf("==== %s: %d outputs ====\n", title, f.Dim())
	out.Printf("Mean: %s\n", fmtVec(f.Mean().RawVector().Data))
	matrixReport(out, "Covariance", f.Cov())
	out.Printf("Marginals\n")
	for i, m := range f.Marginals() {
		out.Printf("  y[%d] ~ N(%.5f, %.5f²)\n", i, m.Mu, m.Sigma)
	}
}

// errorReport prints one ErrorSuite. With negLog the values are shown as
// -log2(err), i.e. roughly the number of matching bits.
func errorReport(out *log.Logger, title string, es *model.ErrorSuite, negLog bool) {
	tx := func(f float64) float64 { return f }
	if negLog {
		tx = func(f float64) float64 { return -math.Log2(f) }
	}

	out.Printf("%s\n", title)
	out.Printf("  MeanAE  mean:%10.3g max:%10.3g\n", tx(es.MeanMeanAbsError), tx(es.MaxMeanAbsError))
	out.Printf("  CovAE   mean:%10.3g max:%10.3g\n", tx(es.MeanCovAbsError), tx(es.MaxCovAbsError))
	out.Printf("  Hel     mean:%10.3g max:%10.3g\n", tx(es.MeanHellinger), tx(es.MaxHellinger))
	out.Printf("  Joint   Hel:%11.3g KL:%11.3g\n", tx(es.JointHellinger), tx(es.KLDivergence))
}
