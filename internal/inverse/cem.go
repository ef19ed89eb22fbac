package inverse

import (
	"fmt"
	"sort"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/c-e-smith/explauto/internal/dataset"
	"github.com/c-e-smith/explauto/internal/forward"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region cem-config

// CEMConfig parameterizes the covariance-adaptation evolutionary inverse
// optimizer. MaxFevals is the forward-evaluation budget per call; Sigma
// scales the initial isotropic search covariance as a fraction of each
// dimension's range.
type CEMConfig struct {
	MaxFevals int
	Sigma     float64
	PopSize   int
	EliteFrac float64
	Seed      uint64
}

// DefaultCEMConfig returns the stock evolutionary-search parameters.
func DefaultCEMConfig() CEMConfig {
	return CEMConfig{MaxFevals: 200, Sigma: 0.1, PopSize: 20, EliteFrac: 0.25, Seed: 1}
}

// Validate checks the evolutionary-search parameters.
func (c CEMConfig) Validate() error {
	if c.MaxFevals < 1 {
		return fmt.Errorf("cem config: maxfevals must be >= 1, got %d", c.MaxFevals)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("cem config: sigma must be > 0, got %g", c.Sigma)
	}
	if c.PopSize < 4 {
		return fmt.Errorf("cem config: pop size must be >= 4, got %d", c.PopSize)
	}
	if c.EliteFrac <= 0 || c.EliteFrac > 1 {
		return fmt.Errorf("cem config: elite fraction must be in (0, 1], got %g", c.EliteFrac)
	}
	return nil
}

// #endregion cem-config

// #region cem

// CEM minimizes the squared reach error with an elite-covariance evolution
// loop: sample a generation from N(mean, C), keep the elites, re-estimate
// mean and covariance from them. The covariance starts isotropic and is
// recomputed once per generation.
type CEM struct {
	store  *dataset.Store
	fwd    forward.Predictor
	motor  space.Space
	config CEMConfig
	rng    *exprand.Rand
}

// NewCEM creates an evolutionary inverse optimizer over the given forward
// predictor and motor bounds.
func NewCEM(store *dataset.Store, fwd forward.Predictor, motor space.Space, config CEMConfig) (*CEM, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CEM{
		store:  store,
		fwd:    fwd,
		motor:  motor,
		config: config,
		rng:    exprand.New(exprand.NewSource(config.Seed)),
	}, nil
}

// Predict runs the evolution loop from the sensory nearest neighbor's motor
// command and returns the best sample when the budget runs out.
func (p *CEM) Predict(goal []float64) ([]float64, error) {
	x0, err := seedMotor(p.store, goal)
	if err != nil {
		return nil, err
	}
	b := newBudget(p.fwd, goal, p.config.MaxFevals)
	dims := p.motor.Dims()

	mean := p.motor.Clip(x0)
	cov := mat.NewSymDense(dims, nil)
	for d := 0; d < dims; d++ {
		s := p.config.Sigma * p.motor.Range(d)
		cov.SetSym(d, d, s*s)
	}

	best := append([]float64(nil), mean...)
	bestF, ok := b.eval(mean)
	if !ok {
		return best, nil
	}

	nElite := int(float64(p.config.PopSize) * p.config.EliteFrac)
	if nElite < 2 {
		nElite = 2
	}

	for !b.exhausted() {
		normal, ok := newNormal(mean, cov, p.rng)
		if !ok {
			break
		}

		gen := make([]vertex, 0, p.config.PopSize)
		for i := 0; i < p.config.PopSize; i++ {
			x := p.motor.Clip(normal.Rand(nil))
			f, ok := b.eval(x)
			if !ok {
				break
			}
			gen = append(gen, vertex{x: x, f: f})
		}
		if len(gen) < 2 {
			break
		}

		sort.Slice(gen, func(i, j int) bool { return gen[i].f < gen[j].f })
		if gen[0].f < bestF {
			best = append(best[:0], gen[0].x...)
			bestF = gen[0].f
		}

		k := nElite
		if k > len(gen) {
			k = len(gen)
		}
		elite := mat.NewDense(k, dims, nil)
		for i := 0; i < k; i++ {
			elite.SetRow(i, gen[i].x)
		}

		for d := 0; d < dims; d++ {
			mean[d] = stat.Mean(mat.Col(nil, d, elite), nil)
		}
		stat.CovarianceMatrix(cov, elite, nil)
		// Ridge keeps the elite covariance factorizable when elites collapse.
		for d := 0; d < dims; d++ {
			cov.SetSym(d, d, cov.At(d, d)+1e-10)
		}
	}
	return best, nil
}

// #endregion cem

// #region normal

// newNormal builds a multivariate normal, escalating a diagonal ridge when
// the covariance is not positive definite.
func newNormal(mean []float64, cov *mat.SymDense, rng *exprand.Rand) (*distmv.Normal, bool) {
	dims := cov.SymmetricDim()
	ridge := 0.0
	for attempt := 0; attempt < 4; attempt++ {
		trial := mat.NewSymDense(dims, nil)
		trial.CopySym(cov)
		if ridge > 0 {
			for d := 0; d < dims; d++ {
				trial.SetSym(d, d, trial.At(d, d)+ridge)
			}
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

// #endregion normal
