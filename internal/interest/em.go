package interest

import (
	"math"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// #region em

// covRidge keeps every estimated covariance factorizable.
const covRidge = 1e-6

// runEM fits a k-component Gaussian mixture to the rows of x by
// expectation-maximization. Means initialize from randomly chosen rows,
// covariances from the global data covariance. Returns nil when no
// factorizable mixture could be built.
func runEM(x *mat.Dense, k, iters int, rng *exprand.Rand) []gmmComponent {
	n, d := x.Dims()

	global := mat.NewSymDense(d, nil)
	stat.CovarianceMatrix(global, x, nil)
	addRidge(global, covRidge)

	comps := make([]gmmComponent, k)
	perm := rng.Perm(n)
	for j := 0; j < k; j++ {
		mean := make([]float64, d)
		mat.Row(mean, perm[j], x)
		cov := mat.NewSymDense(d, nil)
		cov.CopySym(global)
		comps[j] = gmmComponent{mean: mean, cov: cov, mix: 1 / float64(k)}
	}

	resp := mat.NewDense(n, k, nil)
	row := make([]float64, d)
	for iter := 0; iter < iters; iter++ {
		// E step: responsibilities via log-sum-exp.
		normals := make([]*distmv.Normal, k)
		for j := range comps {
			normal, ok := newRidgedNormal(comps[j].mean, comps[j].cov, rng)
			if !ok {
				return nil
			}
			normals[j] = normal
		}
		for i := 0; i < n; i++ {
			mat.Row(row, i, x)
			logp := make([]float64, k)
			maxLog := math.Inf(-1)
			for j := range comps {
				logp[j] = math.Log(comps[j].mix) + normals[j].LogProb(row)
				if logp[j] > maxLog {
					maxLog = logp[j]
				}
			}
			var sum float64
			for j := range logp {
				logp[j] = math.Exp(logp[j] - maxLog)
				sum += logp[j]
			}
			for j := range logp {
				resp.Set(i, j, logp[j]/sum)
			}
		}

		// M step: weighted mean and covariance per component.
		for j := range comps {
			weights := mat.Col(nil, j, resp)
			var nj float64
			for _, w := range weights {
				nj += w
			}
			if nj < 1e-12 {
				// Collapsed component: reseed on a random row.
				mat.Row(comps[j].mean, rng.Intn(n), x)
				comps[j].cov.CopySym(global)
				comps[j].mix = 1 / float64(k)
				continue
			}
			comps[j].mix = nj / float64(n)
			for dd := 0; dd < d; dd++ {
				var s float64
				for i := 0; i < n; i++ {
					s += resp.At(i, j) * x.At(i, dd)
				}
				comps[j].mean[dd] = s / nj
			}
			stat.CovarianceMatrix(comps[j].cov, x, weights)
			addRidge(comps[j].cov, covRidge)
		}
	}
	return comps
}

// #endregion em

// #region normal-helpers

// addRidge adds eps to the diagonal in place.
func addRidge(cov *mat.SymDense, eps float64) {
	for i := 0; i < cov.SymmetricDim(); i++ {
		cov.SetSym(i, i, cov.At(i, i)+eps)
	}
}

// newRidgedNormal builds a multivariate normal, escalating a diagonal ridge
// when the covariance is not positive definite.
func newRidgedNormal(mean []float64, cov *mat.SymDense, rng *exprand.Rand) (*distmv.Normal, bool) {
	dims := cov.SymmetricDim()
	ridge := 0.0
	for attempt := 0; attempt < 4; attempt++ {
		trial := mat.NewSymDense(dims, nil)
		trial.CopySym(cov)
		if ridge > 0 {
			addRidge(trial, ridge)
		}
		if n, ok := distmv.NewNormal(mean, trial, rng); ok {
			return n, true
		}
		if ridge == 0 {
			ridge = 1e-8
		} else {
			ridge *= 100
		}
	}
	return nil, false
}

// weightedChoiceExp draws an index in proportion to non-negative weights
// using an x/exp/rand source. Uniform fallback on zero total.
func weightedChoiceExp(rng *exprand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(weights) - 1
}

// #endregion normal-helpers
