// Package inverse implements the sensory-goal → motor predictors: nearest
// neighbor, outcome-weighted nearest neighbors, and optimization wrappers
// that search motor space against a forward predictor under a fixed
// evaluation budget.
package inverse

import (
	"fmt"

	"github.com/c-e-smith/explauto/internal/dataset"
)

// #region predictor

// Predictor estimates a motor command expected to reach a sensory goal.
type Predictor interface {
	Predict(goal []float64) ([]float64, error)
}

// #endregion predictor

// #region nn

// NN returns the motor part of the sensory-space nearest stored point.
type NN struct {
	store *dataset.Store
}

// NewNN creates a nearest-neighbor inverse predictor.
func NewNN(store *dataset.Store) *NN {
	return &NN{store: store}
}

// Predict returns the motor part of the goal's sensory nearest neighbor.
func (p *NN) Predict(goal []float64) ([]float64, error) {
	nbrs, err := p.store.Nearest(dataset.Sensory, goal, 1)
	if err != nil {
		return nil, err
	}
	return p.store.Point(nbrs[0].Index).M, nil
}

// #endregion nn

// #region wnn-config

// WNNConfig holds the neighbor count and kernel bandwidth for inverse WNN.
type WNNConfig struct {
	K     int
	Sigma float64
}

// DefaultWNNConfig returns the stock inverse WNN parameters.
func DefaultWNNConfig() WNNConfig {
	return WNNConfig{K: 10, Sigma: 1.0}
}

// Validate checks the WNN parameters.
func (c WNNConfig) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("inverse wnn config: k must be >= 1, got %d", c.K)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("inverse wnn config: sigma must be > 0, got %g", c.Sigma)
	}
	return nil
}

// #endregion wnn-config

// #region wnn

// WNN anchors on the sensory nearest neighbor's motor command, gathers its
// motor-space neighborhood, and averages those motor commands weighted by how
// close their *outcomes* came to the goal. Weighting in sensory space avoids
// averaging motor commands that map to dissimilar outcomes.
type WNN struct {
	store  *dataset.Store
	config WNNConfig
}

// NewWNN creates an outcome-weighted nearest-neighbor inverse predictor.
func NewWNN(store *dataset.Store, config WNNConfig) (*WNN, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &WNN{store: store, config: config}, nil
}

// Predict returns the outcome-weighted motor average around the sensory
// nearest neighbor. Falls back to that neighbor's motor command when all
// weights underflow.
func (p *WNN) Predict(goal []float64) ([]float64, error) {
	anchor, err := p.store.Nearest(dataset.Sensory, goal, 1)
	if err != nil {
		return nil, err
	}
	m0 := p.store.Point(anchor[0].Index).M

	nbrs, err := p.store.Nearest(dataset.Motor, m0, p.config.K)
	if err != nil {
		return nil, err
	}

	weights := make([]float64, len(nbrs))
	var sum float64
	for i, nb := range nbrs {
		pt := p.store.Point(nb.Index)
		d := dist(pt.S, goal)
		weights[i] = gaussKernel(d, p.config.Sigma)
		sum += weights[i]
	}
	if sum == 0 {
		return m0, nil
	}

	out := make([]float64, p.store.MotorDims())
	for i, nb := range nbrs {
		pt := p.store.Point(nb.Index)
		w := weights[i] / sum
		for j, v := range pt.M {
			out[j] += w * v
		}
	}
	return out, nil
}

// #endregion wnn
