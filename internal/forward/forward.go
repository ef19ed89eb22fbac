// Package forward implements the motor → sensory predictors over the shared
// observation store: nearest neighbor, weighted nearest neighbors, locally
// weighted linear regression, and non-stationary variants that discount
// stale observations.
package forward

import (
	"errors"
	"fmt"

	"github.com/c-e-smith/explauto/internal/dataset"
)

// #region errors

// ErrSingularSystem is returned by LWLR when the weighted normal-equations
// matrix cannot be solved. Callers fall back to WNN.
var ErrSingularSystem = errors.New("forward: singular weighted least-squares system")

// #endregion errors

// #region predictor

// Predictor estimates the sensory outcome of an unseen motor command.
type Predictor interface {
	Predict(m []float64) ([]float64, error)
}

// #endregion predictor

// #region nn

// NN predicts the sensory part of the single nearest stored point by
// motor-space distance.
type NN struct {
	store *dataset.Store
}

// NewNN creates a nearest-neighbor forward predictor.
func NewNN(store *dataset.Store) *NN {
	return &NN{store: store}
}

// Predict returns the sensory part of the motor-space nearest neighbor.
func (p *NN) Predict(m []float64) ([]float64, error) {
	nbrs, err := p.store.Nearest(dataset.Motor, m, 1)
	if err != nil {
		return nil, err
	}
	return p.store.Point(nbrs[0].Index).S, nil
}

// #endregion nn

// #region wnn-config

// WNNConfig holds the neighbor count and kernel bandwidth for WNN.
type WNNConfig struct {
	K     int
	Sigma float64
}

// DefaultWNNConfig returns the stock WNN parameters.
func DefaultWNNConfig() WNNConfig {
	return WNNConfig{K: 10, Sigma: 1.0}
}

// Validate checks the WNN parameters.
func (c WNNConfig) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("wnn config: k must be >= 1, got %d", c.K)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("wnn config: sigma must be > 0, got %g", c.Sigma)
	}
	return nil
}

// #endregion wnn-config

// #region wnn

// WNN predicts the Gaussian-kernel weighted average of the k motor-space
// nearest neighbors' sensory parts.
type WNN struct {
	store  *dataset.Store
	config WNNConfig
}

// NewWNN creates a weighted nearest-neighbor forward predictor.
func NewWNN(store *dataset.Store, config WNNConfig) (*WNN, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &WNN{store: store, config: config}, nil
}

// Predict averages the neighbors' sensory parts with weight exp(-(d/sigma)^2).
// If every weight underflows to zero the plain nearest neighbor is returned.
func (p *WNN) Predict(m []float64) ([]float64, error) {
	nbrs, err := p.store.Nearest(dataset.Motor, m, p.config.K)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(nbrs))
	var sum float64
	for i, nb := range nbrs {
		weights[i] = gaussKernel(nb.Dist, p.config.Sigma)
		sum += weights[i]
	}
	if sum == 0 {
		return p.store.Point(nbrs[0].Index).S, nil
	}
	return weightedSensoryMean(p.store, nbrs, weights, sum), nil
}

// #endregion wnn
