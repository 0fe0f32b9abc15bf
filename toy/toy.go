// Package toy generates small random regression problems for tests, examples
// and the check command.
package toy

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/model"
)

// Problem is a randomly generated regression setup
type Problem struct {
	X     *mat.Dense       // D×N design
	Reg   *model.Regressor // Prior with mean ~ N(0, I) and precision BBᵗ + I
	Noise *mat.SymDense    // Diagonal noise covariance exp(z), z ~ N(0, 1)
}

// NewProblem draws a toy problem with n outputs and d weights from src. The
// draws happen in a fixed order (X, B, mw, noise) so a seeded source gives the
// same problem every time.
func NewProblem(src rand.Source, n, d int) (*Problem, error) {
	if src == nil {
		return nil, errors.New("toy problem requires a random source")
	}
	if n < 1 || d < 1 {
		return nil, errors.Errorf("Invalid toy problem size N=%d D=%d", n, d)
	}

	rnd := rand.New(src)

	x := Normals(rnd, d, n)
	b := Normals(rnd, d, d)

	mw := make([]float64, d)
	for i := range mw {
		mw[i] = rnd.NormFloat64()
	}

	prec := mat.NewSymDense(d, nil)
	prec.SymOuterK(1, b)
	for i := 0; i < d; i++ {
		prec.SetSym(i, i, prec.At(i, i)+1)
	}

	reg, err := model.NewRegressor(mw, prec)
	if err != nil {
		return nil, errors.Wrap(err, "Could not build toy regressor")
	}

	noise := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		noise.SetSym(i, i, math.Exp(rnd.NormFloat64()))
	}

	return &Problem{
		X:     x,
		Reg:   reg,
		Noise: noise,
	}, nil
}

// Projection applies the prior to the problem's design and noise
func (p *Problem) Projection() (*model.Projection, error) {
	return p.Reg.Project(p.X, model.NoiseMatrix(p.Noise))
}

// ModelProblem converts to a problem-file value, attaching observations y
// (which may be nil).
func (p *Problem) ModelProblem(name string, y []float64) *model.Problem {
	return &model.Problem{
		Name: name,
		Prior: model.Prior{
			Mean:      p.Reg.Mean(),
			Precision: model.RowsOf(p.Reg.Precision()),
		},
		Design:       model.RowsOf(p.X),
		Noise:        model.NoiseMatrix(p.Noise),
		Observations: y,
	}
}

// Normals returns an r×c matrix of standard normals filled row by row
func Normals(rnd *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, rnd.NormFloat64())
		}
	}
	return m
}
