package forward

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/c-e-smith/explauto/internal/dataset"
)

// #region lwlr-config

// LWLRConfig holds the neighbor count and kernel bandwidth for LWLR.
type LWLRConfig struct {
	K     int
	Sigma float64
}

// DefaultLWLRConfig returns the stock LWLR parameters.
func DefaultLWLRConfig() LWLRConfig {
	return LWLRConfig{K: 10, Sigma: 1.0}
}

// Validate checks the LWLR parameters.
func (c LWLRConfig) Validate() error {
	if c.K < 2 {
		return fmt.Errorf("lwlr config: k must be >= 2, got %d", c.K)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("lwlr config: sigma must be > 0, got %g", c.Sigma)
	}
	return nil
}

// #endregion lwlr-config

// #region lwlr

// LWLR fits a weighted linear regression over the k motor-space nearest
// neighbors and evaluates it at the query.
type LWLR struct {
	store  *dataset.Store
	config LWLRConfig
}

// NewLWLR creates a locally weighted linear regression forward predictor.
func NewLWLR(store *dataset.Store, config LWLRConfig) (*LWLR, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &LWLR{store: store, config: config}, nil
}

// Predict solves the weighted normal equations over the local neighborhood
// and returns beta · [1, m]. Returns ErrSingularSystem when the system is
// degenerate; callers fall back to WNN.
func (p *LWLR) Predict(m []float64) ([]float64, error) {
	nbrs, err := p.store.Nearest(dataset.Motor, m, p.config.K)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(nbrs))
	for i, nb := range nbrs {
		w := gaussKernel(nb.Dist, p.config.Sigma)
		weights[i] = w * w
	}
	return solveLocal(p.store, m, nbrs, weights)
}

// #endregion lwlr

// #region solve-local

// solveLocal solves (X'WX) beta = X'WY for the local linear model and
// evaluates it at the query. X rows are [1, motor], Y rows are sensory.
func solveLocal(store *dataset.Store, query []float64, nbrs []dataset.Neighbor, weights []float64) ([]float64, error) {
	k := len(nbrs)
	mDims := store.MotorDims()
	sDims := store.SensoryDims()
	cols := mDims + 1

	if k < cols {
		return nil, fmt.Errorf("%w: %d neighbors for %d coefficients", ErrSingularSystem, k, cols)
	}

	x := mat.NewDense(k, cols, nil)
	y := mat.NewDense(k, sDims, nil)
	for i, nb := range nbrs {
		pt := store.Point(nb.Index)
		x.Set(i, 0, 1)
		for j, v := range pt.M {
			x.Set(i, j+1, v)
		}
		for j, v := range pt.S {
			y.Set(i, j, v)
		}
	}

	// X'W folded into a scaled transpose: (X'W)X and (X'W)Y.
	xtw := mat.NewDense(cols, k, nil)
	for i := 0; i < cols; i++ {
		for j := 0; j < k; j++ {
			xtw.Set(i, j, x.At(j, i)*weights[j])
		}
	}

	var a, b mat.Dense
	a.Mul(xtw, x)
	b.Mul(xtw, y)

	var beta mat.Dense
	if err := beta.Solve(&a, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularSystem, err)
	}

	out := make([]float64, sDims)
	for j := 0; j < sDims; j++ {
		v := beta.At(0, j)
		for d := 0; d < mDims; d++ {
			v += beta.At(d+1, j) * query[d]
		}
		out[j] = v
	}
	return out, nil
}

// #endregion solve-local
