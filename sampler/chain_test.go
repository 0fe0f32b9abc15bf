package sampler

import (
	mrand "math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/blr/model"
	"github.com/CraigKelly/blr/rand"
	"github.com/CraigKelly/blr/toy"
)

// fixedSampler always returns the same column, or an error
type fixedSampler struct {
	col []float64
	err error
}

func (f *fixedSampler) Dim() int { return len(f.col) }

func (f *fixedSampler) RandN(src mrand.Source, k int) (*mat.Dense, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := mat.NewDense(len(f.col), k, nil)
	for j := 0; j < k; j++ {
		out.SetCol(j, f.col)
	}
	return out, nil
}

func testProjection(t *testing.T, seed int64, n, d int) *model.Projection {
	gen, err := rand.NewGenerator(seed)
	require.NoError(t, err)
	prob, err := toy.NewProblem(gen, n, d)
	require.NoError(t, err)
	f, err := prob.Projection()
	require.NoError(t, err)
	return f
}

func TestNewChainErrors(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(1)
	assert.NoError(err)
	target := &fixedSampler{col: []float64{1, 2}}

	_, err = NewChain(nil, gen, 10, 4)
	assert.Error(err)
	_, err = NewChain(target, nil, 10, 4)
	assert.Error(err)
	_, err = NewChain(target, gen, 0, 4)
	assert.Error(err)
	_, err = NewChain(&fixedSampler{}, gen, 10, 4)
	assert.Error(err)

	ch, err := NewChain(target, gen, 10, 4)
	assert.NoError(err)
	assert.Nil(ch.Mean())
	assert.Nil(ch.Cov())
	assert.False(ch.Converged(1.0))
}

func TestChainConstantTarget(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(1)
	assert.NoError(err)
	ch, err := NewChain(&fixedSampler{col: []float64{1, -2, 3}}, gen, 7, 4)
	assert.NoError(err)

	for i := 0; i < 5; i++ {
		assert.NoError(ch.Advance())
	}
	assert.Equal(int64(35), ch.TotalSampleCount)
	assert.InDeltaSlice([]float64{1, -2, 3}, ch.Mean(), 1e-12)

	cov := ch.Cov()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(0.0, cov.At(i, j), 1e-10)
		}
	}

	// The mean never moves, so four history entries of zero fill the window
	assert.True(ch.History.Full())
	assert.True(ch.Converged(0))
}

func TestChainAdvanceError(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(1)
	assert.NoError(err)
	ch, err := NewChain(&fixedSampler{col: []float64{1}, err: errors.New("boom")}, gen, 10, 4)
	assert.NoError(err)
	assert.Error(ch.Advance())
	assert.Equal(int64(0), ch.TotalSampleCount)
}

func TestChainMoments(t *testing.T) {
	assert := assert.New(t)

	f := testProjection(t, 42, 4, 3)
	gen, err := rand.NewGenerator(7)
	assert.NoError(err)

	ch, err := NewChain(f, gen, 1000, 10)
	assert.NoError(err)
	for i := 0; i < 100; i++ {
		assert.NoError(ch.Advance())
	}

	std := f.Std()
	mean := ch.Mean()
	for i, mu := range f.Mean().RawVector().Data {
		// 100k draws: the standard error is std/316, allow about 6 of them
		assert.InDelta(mu, mean[i], 0.02*std[i]+1e-9)
	}

	cov := ch.Cov()
	ref := f.Cov()
	for i := 0; i < f.Dim(); i++ {
		for j := i; j < f.Dim(); j++ {
			assert.InDelta(ref.At(i, j), cov.At(i, j), 0.03*std[i]*std[j]+1e-9)
		}
	}
}

func TestMergeChains(t *testing.T) {
	assert := assert.New(t)

	_, err := MergeChains(nil)
	assert.Error(err)

	gens, err := rand.NewGenerator(3)
	assert.NoError(err)
	spawned, err := gens.Spawn(2)
	assert.NoError(err)

	f := testProjection(t, 9, 3, 2)
	ch1, err := NewChain(f, spawned[0], 50, 4)
	assert.NoError(err)
	ch2, err := NewChain(f, spawned[1], 30, 4)
	assert.NoError(err)

	_, err = MergeChains([]*Chain{ch1, ch2})
	assert.Error(err) // no samples yet

	assert.NoError(ch1.Advance())
	assert.NoError(ch1.Advance())
	assert.NoError(ch2.Advance())

	est, err := MergeChains([]*Chain{ch1, ch2})
	assert.NoError(err)
	assert.Equal(int64(130), est.Count)

	m1, m2 := ch1.Mean(), ch2.Mean()
	for i := range est.Mean {
		exp := (m1[i]*100 + m2[i]*30) / 130
		assert.InDelta(exp, est.Mean[i], 1e-10)
	}

	// A single chain merges to itself
	one, err := MergeChains([]*Chain{ch1})
	assert.NoError(err)
	assert.InDeltaSlice(m1, one.Mean, 1e-12)
	assert.True(mat.EqualApprox(ch1.Cov(), one.Cov, 1e-12))

	other, err := NewChain(&fixedSampler{col: []float64{1, 2}}, spawned[0], 5, 4)
	assert.NoError(err)
	assert.NoError(other.Advance())
	_, err = MergeChains([]*Chain{ch1, other})
	assert.Error(err)
}
