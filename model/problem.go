package model

import (
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// ProblemReader implementors instantiate a regression problem from a byte
// stream.
type ProblemReader interface {
	ReadProblem(data []byte) (*Problem, error)
}

// Prior is the weight prior of a problem file
type Prior struct {
	Mean      []float64   `yaml:"mean"`
	Precision [][]float64 `yaml:"precision"`
}

// Query is an optional set of locations to evaluate a posterior at
type Query struct {
	Design [][]float64 `yaml:"design"`
	Noise  Noise       `yaml:"noise"`
}

// Problem is a regression problem as read from a file: a prior, a design
// matrix (D rows, N columns), a noise covariance and optionally observations
// and a query.
type Problem struct {
	Name         string      `yaml:"name,omitempty"`
	Prior        Prior       `yaml:"prior"`
	Design       [][]float64 `yaml:"design"`
	Noise        Noise       `yaml:"noise"`
	Observations []float64   `yaml:"observations,omitempty"`
	Query        *Query      `yaml:"query,omitempty"`
}

// YAMLReader reads problem files in YAML
type YAMLReader struct{}

// ReadProblem decodes a YAML problem
func (YAMLReader) ReadProblem(data []byte) (*Problem, error) {
	p := &Problem{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "Could not decode YAML problem")
	}
	return p, nil
}

// NewProblemFromFile reads, parses and checks a problem file. The problem is
// named after the file unless it names itself.
func NewProblemFromFile(r ProblemReader, filename string) (*Problem, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ problem from %s", filename)
	}

	p, err := NewProblemFromBuffer(r, data)
	if err != nil {
		return nil, errors.Wrapf(err, "Problem file %s", filename)
	}

	if p.Name == "" {
		base := filepath.Base(filename)
		p.Name = base[0 : len(base)-len(filepath.Ext(base))]
	}

	return p, nil
}

// NewProblemFromBuffer creates a problem from pre-read data
func NewProblemFromBuffer(r ProblemReader, data []byte) (*Problem, error) {
	p, err := r.ReadProblem(data)
	if err != nil {
		return nil, errors.Wrap(err, "Could not PARSE problem")
	}

	if err = p.Check(); err != nil {
		return nil, errors.Wrap(err, "Parsed problem is not valid")
	}

	return p, nil
}

// Check returns an error if the problem's pieces do not fit together
func (p *Problem) Check() error {
	d := len(p.Prior.Mean)
	if d < 1 {
		return dimErrorf("problem", "prior mean is empty")
	}
	if _, err := symFromRows(p.Prior.Precision, "prior precision"); err != nil {
		return err
	}
	if len(p.Prior.Precision) != d {
		return dimErrorf("problem", "prior mean has length %d but precision has %d rows", d, len(p.Prior.Precision))
	}

	x, err := denseFromRows(p.Design, "design")
	if err != nil {
		return err
	}
	xr, xc := x.Dims()
	if xr != d {
		return dimErrorf("problem", "design has %d rows but the prior has dimension %d", xr, d)
	}
	if nd := p.Noise.Dim(); nd >= 0 && nd != xc {
		return dimErrorf("problem", "noise is %d×%d but design has %d columns", nd, nd, xc)
	}
	if p.Observations != nil && len(p.Observations) != xc {
		return dimErrorf("problem", "%d observations for %d design columns", len(p.Observations), xc)
	}

	if p.Query != nil {
		q, err := denseFromRows(p.Query.Design, "query design")
		if err != nil {
			return err
		}
		qr, qc := q.Dims()
		if qr != d {
			return dimErrorf("problem", "query design has %d rows but the prior has dimension %d", qr, d)
		}
		if nd := p.Query.Noise.Dim(); nd >= 0 && nd != qc {
			return dimErrorf("problem", "query noise is %d×%d but query design has %d columns", nd, nd, qc)
		}
	}

	return nil
}

// Regressor builds the prior regressor
func (p *Problem) Regressor() (*Regressor, error) {
	prec, err := symFromRows(p.Prior.Precision, "prior precision")
	if err != nil {
		return nil, err
	}
	return NewRegressor(p.Prior.Mean, prec)
}

// Projection applies reg to the problem's design and noise
func (p *Problem) Projection(reg *Regressor) (*Projection, error) {
	x, err := denseFromRows(p.Design, "design")
	if err != nil {
		return nil, err
	}
	return reg.Project(x, p.Noise)
}

// QueryProjection applies reg to the problem's query. It returns nil and no
// error when the problem has no query.
func (p *Problem) QueryProjection(reg *Regressor) (*Projection, error) {
	if p.Query == nil {
		return nil, nil
	}
	x, err := denseFromRows(p.Query.Design, "query design")
	if err != nil {
		return nil, err
	}
	return reg.Project(x, p.Query.Noise)
}

// UnmarshalYAML accepts either a scalar (isotropic variance) or a list of rows
// (a full covariance matrix).
func (n *Noise) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := value.Decode(&v); err != nil {
			return errors.Wrapf(err, "line %d: noise variance", value.Line)
		}
		*n = Isotropic(v)
	case yaml.SequenceNode:
		var rows [][]float64
		if err := value.Decode(&rows); err != nil {
			return errors.Wrapf(err, "line %d: noise covariance", value.Line)
		}
		sym, err := symFromRows(rows, "noise covariance")
		if err != nil {
			return errors.Wrapf(err, "line %d", value.Line)
		}
		*n = NoiseMatrix(sym)
	default:
		return errors.Errorf("line %d: noise must be a number or a matrix", value.Line)
	}
	return nil
}

// MarshalYAML writes isotropic noise as its variance and full noise as rows
func (n Noise) MarshalYAML() (interface{}, error) {
	if n.cov == nil {
		return n.variance, nil
	}
	return rowsFromMatrix(n.cov.sym), nil
}

// RowsOf returns the rows of m as nested slices, the layout problem files use
func RowsOf(m mat.Matrix) [][]float64 {
	return rowsFromMatrix(m)
}

func rowsFromMatrix(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

func denseFromRows(rows [][]float64, name string) (*mat.Dense, error) {
	if len(rows) < 1 || len(rows[0]) < 1 {
		return nil, dimErrorf("problem", "%s is empty", name)
	}
	c := len(rows[0])
	m := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		if len(row) != c {
			return nil, dimErrorf("problem", "%s row %d has %d entries, expected %d", name, i, len(row), c)
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// symFromRows requires a square matrix that is symmetric to within a small
// relative tolerance; the upper triangle is kept.
func symFromRows(rows [][]float64, name string) (*mat.SymDense, error) {
	m, err := denseFromRows(rows, name)
	if err != nil {
		return nil, err
	}
	r, c := m.Dims()
	if r != c {
		return nil, dimErrorf("problem", "%s is %d×%d, not square", name, r, c)
	}

	const tol = 1e-10
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Abs(a-b) > tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
				return nil, errors.Errorf("%s is not symmetric at (%d, %d): %g != %g", name, i, j, a, b)
			}
			s.SetSym(i, j, a)
		}
	}
	return s, nil
}
