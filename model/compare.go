package model

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ErrorSuite collects the discrepancy measures we use to judge how far apart
// two projections over the same outputs are. Fields beginning with Mean are
// averaged over the outputs (or covariance entries), Max is the worst case.
// Hellinger values compare the univariate marginals; KL and JointHellinger
// compare the full joint Gaussians and are NaN when either covariance cannot
// be factored.
type ErrorSuite struct {
	MeanMeanAbsError float64
	MaxMeanAbsError  float64
	MeanCovAbsError  float64
	MaxCovAbsError   float64
	MeanHellinger    float64
	MaxHellinger     float64

	JointHellinger float64
	KLDivergence   float64 // KL(a || b)
}

// NewErrorSuite compares projections a and b output by output
func NewErrorSuite(a, b *Projection) (*ErrorSuite, error) {
	if a == nil || b == nil {
		return nil, errors.Errorf("Cannot score a nil projection")
	}
	n := a.Dim()
	if b.Dim() != n {
		return nil, dimErrorf("error suite", "projection output count mismatch %d != %d", n, b.Dim())
	}

	es := ErrorSuite{}

	ma, mb := a.Marginals(), b.Marginals()
	for i := 0; i < n; i++ {
		d := math.Abs(ma[i].Mu - mb[i].Mu)
		es.MeanMeanAbsError += d
		es.MaxMeanAbsError = math.Max(d, es.MaxMeanAbsError)

		d = HellingerNormal(ma[i].Mu, ma[i].Sigma, mb[i].Mu, mb[i].Sigma)
		es.MeanHellinger += d
		es.MaxHellinger = math.Max(d, es.MaxHellinger)
	}
	es.MeanMeanAbsError /= float64(n)
	es.MeanHellinger /= float64(n)

	ca, cb := a.Cov(), b.Cov()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := math.Abs(ca.At(i, j) - cb.At(i, j))
			es.MeanCovAbsError += d
			es.MaxCovAbsError = math.Max(d, es.MaxCovAbsError)
		}
	}
	es.MeanCovAbsError /= float64(n * n)

	es.JointHellinger, es.KLDivergence = jointDistances(a, b)

	return &es, nil
}

// jointDistances returns the joint Hellinger distance and KL(a || b), using
// the covariance factors both projections already hold. Only the average
// covariance (Σa+Σb)/2 is factored here. Either value is NaN when a needed
// factorization fails.
func jointDistances(a, b *Projection) (hel float64, kl float64) {
	hel, kl = math.NaN(), math.NaN()
	ca, errA := a.covCholesky()
	cb, errB := b.covCholesky()
	if errA != nil || errB != nil {
		return
	}

	na := distmv.NewNormalChol(a.meanSlice(), ca, nil)
	nb := distmv.NewNormalChol(b.meanSlice(), cb, nil)
	kl = distmv.KullbackLeibler{}.DistNormal(na, nb)

	// Bhattacharyya distance, then H = sqrt(1 - exp(-DB))
	var avg mat.SymDense
	avg.AddSym(a.cov.sym, b.cov.sym)
	avg.ScaleSym(0.5, &avg)
	var chol mat.Cholesky
	if ok := chol.Factorize(&avg); !ok {
		return
	}
	m := stat.Mahalanobis(a.mean, b.mean, &chol)
	db := 0.125*m*m + 0.5*chol.LogDet() - 0.25*ca.LogDet() - 0.25*cb.LogDet()
	hel = math.Sqrt(math.Max(0, 1-math.Exp(-db)))
	return
}

// HellingerNormal returns the Hellinger distance between N(mu1, s1²) and
// N(mu2, s2²). Two point masses at the same location are distance 0 apart,
// at different locations distance 1.
func HellingerNormal(mu1, s1, mu2, s2 float64) float64 {
	v := s1*s1 + s2*s2
	if v == 0 {
		if mu1 == mu2 {
			return 0
		}
		return 1
	}
	bc := math.Sqrt(2*s1*s2/v) * math.Exp(-(mu1-mu2)*(mu1-mu2)/(4*v))
	return math.Sqrt(math.Max(0, 1-bc))
}

// Normal returns the projection as a gonum multivariate normal that draws
// from src (which may be nil if the result is never sampled). The result
// holds its own copy of the covariance, which gonum's distance measures and
// marginals read, so it is built with NewNormal rather than from our factor.
func (f *Projection) Normal(src rand.Source) (*distmv.Normal, error) {
	if err := f.moments(); err != nil {
		return nil, err
	}
	norm, ok := distmv.NewNormal(f.meanSlice(), f.cov.sym, src)
	if !ok {
		return nil, numError("normal", f.cov.Name(), nil)
	}
	return norm, nil
}
