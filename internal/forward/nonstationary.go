package forward

import (
	"fmt"
	"math"

	"github.com/c-e-smith/explauto/internal/dataset"
)

// #region ns-config

// NSConfig extends a neighborhood config with the recency-weighting
// bandwidth sigma_t. A point's weight is multiplied by a Gaussian of its
// recency rank (how many points were recorded after it), so stale
// observations fade in non-stationary environments.
type NSConfig struct {
	K      int
	Sigma  float64
	SigmaT float64
}

// DefaultNSConfig returns the stock non-stationary parameters.
func DefaultNSConfig() NSConfig {
	return NSConfig{K: 10, Sigma: 1.0, SigmaT: 100}
}

// Validate checks the non-stationary parameters.
func (c NSConfig) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("ns config: k must be >= 1, got %d", c.K)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("ns config: sigma must be > 0, got %g", c.Sigma)
	}
	if c.SigmaT <= 0 {
		return fmt.Errorf("ns config: sigma_t must be > 0, got %g", c.SigmaT)
	}
	return nil
}

// #endregion ns-config

// #region nsnn

// NSNN is WNN with recency-discounted weights.
type NSNN struct {
	store  *dataset.Store
	config NSConfig
}

// NewNSNN creates a non-stationary nearest-neighbor forward predictor.
func NewNSNN(store *dataset.Store, config NSConfig) (*NSNN, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &NSNN{store: store, config: config}, nil
}

// Predict averages the k nearest neighbors' sensory parts weighted by both
// motor distance and recency rank. Falls back to the most recent of the
// neighbors when all weights underflow.
func (p *NSNN) Predict(m []float64) ([]float64, error) {
	nbrs, err := p.store.Nearest(dataset.Motor, m, p.config.K)
	if err != nil {
		return nil, err
	}
	n := p.store.Len()
	weights := make([]float64, len(nbrs))
	var sum float64
	for i, nb := range nbrs {
		weights[i] = gaussKernel(nb.Dist, p.config.Sigma) * recencyWeight(n, nb.Index, p.config.SigmaT)
		sum += weights[i]
	}
	if sum == 0 {
		newest := nbrs[0]
		for _, nb := range nbrs[1:] {
			if nb.Index > newest.Index {
				newest = nb
			}
		}
		return p.store.Point(newest.Index).S, nil
	}
	return weightedSensoryMean(p.store, nbrs, weights, sum), nil
}

// #endregion nsnn

// #region nslwlr

// NSLWLR is LWLR with recency-discounted regression weights.
type NSLWLR struct {
	store  *dataset.Store
	config NSConfig
}

// NewNSLWLR creates a non-stationary LWLR forward predictor.
func NewNSLWLR(store *dataset.Store, config NSConfig) (*NSLWLR, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &NSLWLR{store: store, config: config}, nil
}

// Predict is LWLR with each regression weight multiplied by the recency
// Gaussian. Returns ErrSingularSystem when the local system is degenerate.
func (p *NSLWLR) Predict(m []float64) ([]float64, error) {
	nbrs, err := p.store.Nearest(dataset.Motor, m, p.config.K)
	if err != nil {
		return nil, err
	}
	n := p.store.Len()
	weights := make([]float64, len(nbrs))
	for i, nb := range nbrs {
		w := gaussKernel(nb.Dist, p.config.Sigma)
		weights[i] = w * w * recencyWeight(n, nb.Index, p.config.SigmaT)
	}
	return solveLocal(p.store, m, nbrs, weights)
}

// #endregion nslwlr

// #region helpers

// gaussKernel is exp(-(d/sigma)^2).
func gaussKernel(d, sigma float64) float64 {
	r := d / sigma
	return math.Exp(-r * r)
}

// recencyWeight is a Gaussian of the recency rank: rank 0 is the newest
// point, rank n-1 the oldest.
func recencyWeight(storeLen, index int, sigmaT float64) float64 {
	rank := float64(storeLen - 1 - index)
	r := rank / sigmaT
	return math.Exp(-r * r)
}

// weightedSensoryMean averages the neighbors' sensory parts with the given
// weights (sum must be the weight total, > 0).
func weightedSensoryMean(store *dataset.Store, nbrs []dataset.Neighbor, weights []float64, sum float64) []float64 {
	out := make([]float64, store.SensoryDims())
	for i, nb := range nbrs {
		pt := store.Point(nb.Index)
		w := weights[i] / sum
		for j, v := range pt.S {
			out[j] += w * v
		}
	}
	return out
}

// #endregion helpers
