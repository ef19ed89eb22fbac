package inverse

import (
	"fmt"
	"math"

	"github.com/c-e-smith/explauto/internal/dataset"
	"github.com/c-e-smith/explauto/internal/forward"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region descent-config

// DescentConfig parameterizes the finite-difference gradient descent
// inverse optimizer. MaxFun is the forward-evaluation budget per call.
type DescentConfig struct {
	MaxFun    int
	StepRatio float64 // initial step as a fraction of each dimension's range
	FDRatio   float64 // finite-difference offset as a fraction of range
}

// DefaultDescentConfig returns the stock descent parameters.
func DefaultDescentConfig() DescentConfig {
	return DescentConfig{MaxFun: 200, StepRatio: 0.05, FDRatio: 1e-3}
}

// Validate checks the descent parameters.
func (c DescentConfig) Validate() error {
	if c.MaxFun < 1 {
		return fmt.Errorf("descent config: maxfun must be >= 1, got %d", c.MaxFun)
	}
	if c.StepRatio <= 0 || c.FDRatio <= 0 {
		return fmt.Errorf("descent config: step ratio %g and fd ratio %g must be > 0", c.StepRatio, c.FDRatio)
	}
	return nil
}

// #endregion descent-config

// #region descent

// Descent minimizes the squared reach error by local gradient-style search:
// finite-difference gradients, adaptive step, coordinates clipped to the
// motor bounds.
type Descent struct {
	store  *dataset.Store
	fwd    forward.Predictor
	motor  space.Space
	config DescentConfig
}

// NewDescent creates a gradient-descent inverse optimizer over the given
// forward predictor and motor bounds.
func NewDescent(store *dataset.Store, fwd forward.Predictor, motor space.Space, config DescentConfig) (*Descent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Descent{store: store, fwd: fwd, motor: motor, config: config}, nil
}

// Predict runs the descent from the sensory nearest neighbor's motor command
// and returns the best point found when the budget runs out.
func (p *Descent) Predict(goal []float64) ([]float64, error) {
	x0, err := seedMotor(p.store, goal)
	if err != nil {
		return nil, err
	}
	b := newBudget(p.fwd, goal, p.config.MaxFun)
	dims := p.motor.Dims()

	x := p.motor.Clip(x0)
	fx, ok := b.eval(x)
	if !ok {
		return x, nil
	}
	best := append([]float64(nil), x...)
	bestF := fx

	step := p.config.StepRatio
	for !b.exhausted() && step > 1e-9 {
		// Forward-difference gradient, budget-checked per component.
		grad := make([]float64, dims)
		var gradNorm float64
		complete := true
		for d := 0; d < dims; d++ {
			h := p.config.FDRatio * p.motor.Range(d)
			xh := append([]float64(nil), x...)
			xh[d] += h
			if xh[d] > p.motor.Max[d] {
				xh[d] = x[d] - h
				h = -h
			}
			fh, ok := b.eval(xh)
			if !ok {
				complete = false
				break
			}
			grad[d] = (fh - fx) / h
			gradNorm += grad[d] * grad[d]
		}
		if !complete || gradNorm == 0 {
			break
		}

		// Step along the negative gradient, scaled per-dimension by range.
		cand := make([]float64, dims)
		scale := step / math.Sqrt(gradNorm)
		for d := 0; d < dims; d++ {
			cand[d] = x[d] - scale*p.motor.Range(d)*grad[d]
		}
		cand = p.motor.Clip(cand)

		fc, ok := b.eval(cand)
		if !ok {
			break
		}
		if fc < fx {
			x, fx = cand, fc
			step *= 1.2
			if fx < bestF {
				best = append(best[:0], x...)
				bestF = fx
			}
		} else {
			step *= 0.5
		}
	}
	return best, nil
}

// #endregion descent
