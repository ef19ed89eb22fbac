package inverse

import (
	"math"

	"github.com/c-e-smith/explauto/internal/dataset"
	"github.com/c-e-smith/explauto/internal/forward"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region budget

// budget counts forward-model evaluations against a hard cap. The cap is the
// sole termination control of every optimizer: when it runs out, the best
// point found so far is returned, never an error.
type budget struct {
	fwd  forward.Predictor
	goal []float64
	max  int
	used int
}

func newBudget(fwd forward.Predictor, goal []float64, max int) *budget {
	return &budget{fwd: fwd, goal: goal, max: max}
}

// eval returns the squared reach error ||forward(x) - goal||^2 and true, or
// (0, false) once the budget is exhausted. Forward-model failures count
// against the budget and score +Inf so the search routes around them.
func (b *budget) eval(x []float64) (float64, bool) {
	if b.used >= b.max {
		return 0, false
	}
	b.used++
	s, err := b.fwd.Predict(x)
	if err != nil {
		return math.Inf(1), true
	}
	return space.SqDist(s, b.goal), true
}

func (b *budget) exhausted() bool {
	return b.used >= b.max
}

// #endregion budget

// #region seed

// seedMotor returns the search start: the motor part of the goal's sensory
// nearest neighbor.
func seedMotor(store *dataset.Store, goal []float64) ([]float64, error) {
	nbrs, err := store.Nearest(dataset.Sensory, goal, 1)
	if err != nil {
		return nil, err
	}
	return store.Point(nbrs[0].Index).M, nil
}

// #endregion seed

// #region helpers

// gaussKernel is exp(-(d/sigma)^2).
func gaussKernel(d, sigma float64) float64 {
	r := d / sigma
	return math.Exp(-r * r)
}

func dist(a, b []float64) float64 {
	return space.Dist(a, b)
}

// #endregion helpers
