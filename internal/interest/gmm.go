package interest

import (
	"fmt"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region gmm-config

// GMMConfig shapes the mixture-progress interest model: a Gaussian mixture
// refit periodically over the joint (goal, competence, time) of the most
// recent observations.
type GMMConfig struct {
	NSamples    int // refit window length
	NComponents int // mixture order
	RefitEvery  int // updates between refits
	EMIters     int // EM iterations per refit
}

// DefaultGMMConfig returns the stock mixture parameters.
func DefaultGMMConfig() GMMConfig {
	return GMMConfig{NSamples: 40, NComponents: 6, RefitEvery: 10, EMIters: 30}
}

// Validate checks the mixture parameters.
func (c GMMConfig) Validate() error {
	if c.NSamples < 4 {
		return fmt.Errorf("gmm config: n_samples must be >= 4, got %d", c.NSamples)
	}
	if c.NComponents < 1 {
		return fmt.Errorf("gmm config: n_components must be >= 1, got %d", c.NComponents)
	}
	if c.RefitEvery < 1 {
		return fmt.Errorf("gmm config: refit cadence must be >= 1, got %d", c.RefitEvery)
	}
	if c.EMIters < 1 {
		return fmt.Errorf("gmm config: em iterations must be >= 1, got %d", c.EMIters)
	}
	return nil
}

// #endregion gmm-config

// #region gmm

// GMM samples goals from mixture components whose competence is estimated to
// be rising over time. Components are recomputed wholesale at the refit
// cadence, replacing the previous set.
type GMM struct {
	space   space.Space
	config  GMMConfig
	measure Measure
	rng     *exprand.Rand

	window     []gmmObs // bounded at NSamples
	updates    int
	components []gmmComponent
}

type gmmObs struct {
	x []float64
	c float64
	t float64
}

type gmmComponent struct {
	mean     []float64
	cov      *mat.SymDense
	mix      float64 // mixing weight from EM
	progress float64 // derived sampling weight, >= 0, normalized
}

// NewGMM creates a mixture-progress interest model.
func NewGMM(sp space.Space, config GMMConfig, measure Measure, seed int64) (*GMM, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &GMM{
		space:   sp,
		config:  config,
		measure: measure,
		rng:     exprand.New(exprand.NewSource(uint64(seed))),
	}, nil
}

// #endregion gmm

// #region update

// Update appends the clamped outcome to the rolling window and refits the
// mixture at the configured cadence.
func (m *GMM) Update(goal, reached []float64, competence float64) {
	obs := gmmObs{
		x: m.space.Clip(goal),
		c: m.measure.Clamp(competence),
		t: float64(m.updates),
	}
	m.window = append(m.window, obs)
	if len(m.window) > m.config.NSamples {
		m.window = m.window[1:]
	}
	m.updates++
	if m.updates%m.config.RefitEvery == 0 {
		m.refit()
	}
}

// #endregion update

// #region sample

// Sample draws a component in proportion to its progress weight, then a
// point from the component's marginal over the interest dimensions, clipped
// to the bounds. Uniform random before the first successful refit.
func (m *GMM) Sample() []float64 {
	if len(m.components) == 0 {
		return m.uniform()
	}
	weights := make([]float64, len(m.components))
	for i, comp := range m.components {
		weights[i] = comp.progress
	}
	pick := weightedChoiceExp(m.rng, weights)
	comp := m.components[pick]

	dims := m.space.Dims()
	subMean := comp.mean[:dims]
	subCov := mat.NewSymDense(dims, nil)
	for i := 0; i < dims; i++ {
		for j := i; j < dims; j++ {
			subCov.SetSym(i, j, comp.cov.At(i, j))
		}
	}
	normal, ok := newRidgedNormal(subMean, subCov, m.rng)
	if !ok {
		return m.uniform()
	}
	return m.space.Clip(normal.Rand(nil))
}

// uniform draws uniformly within the bounds using the model's own source.
func (m *GMM) uniform() []float64 {
	out := make([]float64, m.space.Dims())
	for d := range out {
		out[d] = m.space.Min[d] + m.rng.Float64()*m.space.Range(d)
	}
	return out
}

// #endregion sample

// #region refit

// refit runs EM over the window's joint (goal, competence, time) rows and
// derives each component's progress weight from the sign of its
// competence/time covariance.
func (m *GMM) refit() {
	n := len(m.window)
	k := m.config.NComponents
	if n < 2*k || n < 4 {
		return
	}
	dims := m.space.Dims()
	joint := dims + 2
	compDim := dims
	timeDim := dims + 1

	// Times normalized to [0, 1] across the window so the time scale does
	// not dwarf the other dimensions.
	t0 := m.window[0].t
	tRange := m.window[n-1].t - t0
	if tRange == 0 {
		tRange = 1
	}
	x := mat.NewDense(n, joint, nil)
	for i, obs := range m.window {
		for d := 0; d < dims; d++ {
			x.Set(i, d, obs.x[d])
		}
		x.Set(i, compDim, obs.c)
		x.Set(i, timeDim, (obs.t-t0)/tRange)
	}

	comps := runEM(x, k, m.config.EMIters, m.rng)
	if comps == nil {
		return
	}

	// Components whose competence rises with time get positive weight;
	// negatives are clipped at zero before renormalizing.
	var total float64
	for i := range comps {
		p := comps[i].cov.At(compDim, timeDim)
		if p < 0 {
			p = 0
		}
		comps[i].progress = p
		total += p
	}
	if total == 0 {
		for i := range comps {
			comps[i].progress = 1 / float64(len(comps))
		}
	} else {
		for i := range comps {
			comps[i].progress /= total
		}
	}
	m.components = comps
}

// #endregion refit
