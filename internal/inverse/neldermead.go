package inverse

import (
	"fmt"
	"sort"

	"github.com/c-e-smith/explauto/internal/dataset"
	"github.com/c-e-smith/explauto/internal/forward"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region neldermead-config

// NelderMeadConfig parameterizes the derivative-free simplex inverse
// optimizer. MaxFun is the forward-evaluation budget per call.
type NelderMeadConfig struct {
	MaxFun    int
	InitRatio float64 // initial simplex spread as a fraction of range
}

// DefaultNelderMeadConfig returns the stock simplex parameters.
func DefaultNelderMeadConfig() NelderMeadConfig {
	return NelderMeadConfig{MaxFun: 200, InitRatio: 0.1}
}

// Validate checks the simplex parameters.
func (c NelderMeadConfig) Validate() error {
	if c.MaxFun < 1 {
		return fmt.Errorf("neldermead config: maxfun must be >= 1, got %d", c.MaxFun)
	}
	if c.InitRatio <= 0 {
		return fmt.Errorf("neldermead config: init ratio must be > 0, got %g", c.InitRatio)
	}
	return nil
}

// #endregion neldermead-config

// #region neldermead

// NelderMead minimizes the squared reach error with a bound-clipped
// downhill simplex.
type NelderMead struct {
	store  *dataset.Store
	fwd    forward.Predictor
	motor  space.Space
	config NelderMeadConfig
}

// NewNelderMead creates a simplex inverse optimizer over the given forward
// predictor and motor bounds.
func NewNelderMead(store *dataset.Store, fwd forward.Predictor, motor space.Space, config NelderMeadConfig) (*NelderMead, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &NelderMead{store: store, fwd: fwd, motor: motor, config: config}, nil
}

// Predict runs the simplex from the sensory nearest neighbor's motor command
// and returns the best vertex when the budget runs out.
func (p *NelderMead) Predict(goal []float64) ([]float64, error) {
	x0, err := seedMotor(p.store, goal)
	if err != nil {
		return nil, err
	}
	b := newBudget(p.fwd, goal, p.config.MaxFun)
	dims := p.motor.Dims()

	// Initial simplex: seed plus one offset vertex per dimension.
	verts := make([]vertex, 0, dims+1)
	add := func(x []float64) bool {
		x = p.motor.Clip(x)
		f, ok := b.eval(x)
		if !ok {
			return false
		}
		verts = append(verts, vertex{x: x, f: f})
		return true
	}
	if !add(x0) {
		return p.motor.Clip(x0), nil
	}
	for d := 0; d < dims; d++ {
		xv := append([]float64(nil), x0...)
		off := p.config.InitRatio * p.motor.Range(d)
		if xv[d]+off > p.motor.Max[d] {
			off = -off
		}
		xv[d] += off
		if !add(xv) {
			break
		}
	}

	const (
		alpha = 1.0 // reflection
		gamma = 2.0 // expansion
		rho   = 0.5 // contraction
		sigma = 0.5 // shrink
	)

	for len(verts) == dims+1 && !b.exhausted() {
		sort.Slice(verts, func(i, j int) bool { return verts[i].f < verts[j].f })
		worst := verts[dims]

		// Centroid of all but the worst vertex.
		centroid := make([]float64, dims)
		for _, v := range verts[:dims] {
			for d := range centroid {
				centroid[d] += v.x[d] / float64(dims)
			}
		}

		refl := p.motor.Clip(blend(centroid, worst.x, 1+alpha, -alpha))
		fr, ok := b.eval(refl)
		if !ok {
			break
		}

		switch {
		case fr < verts[0].f:
			exp := p.motor.Clip(blend(centroid, worst.x, 1+gamma, -gamma))
			fe, ok := b.eval(exp)
			if ok && fe < fr {
				verts[dims] = vertex{x: exp, f: fe}
			} else {
				verts[dims] = vertex{x: refl, f: fr}
			}
		case fr < verts[dims-1].f:
			verts[dims] = vertex{x: refl, f: fr}
		default:
			contr := p.motor.Clip(blend(centroid, worst.x, 1-rho, rho))
			fc, ok := b.eval(contr)
			if !ok {
				break
			}
			if fc < worst.f {
				verts[dims] = vertex{x: contr, f: fc}
			} else {
				// Shrink everything toward the best vertex.
				stop := false
				for i := 1; i <= dims; i++ {
					shr := p.motor.Clip(blend(verts[0].x, verts[i].x, 1-sigma, sigma))
					fs, ok := b.eval(shr)
					if !ok {
						stop = true
						break
					}
					verts[i] = vertex{x: shr, f: fs}
				}
				if stop {
					break
				}
			}
		}
	}

	best := verts[0]
	for _, v := range verts[1:] {
		if v.f < best.f {
			best = v
		}
	}
	return best.x, nil
}

// #endregion neldermead

// #region vertex

type vertex struct {
	x []float64
	f float64
}

// blend returns wa*a + wb*b element-wise.
func blend(a, b []float64, wa, wb float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = wa*a[i] + wb*b[i]
	}
	return out
}

// #endregion vertex
