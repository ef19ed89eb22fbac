// Package sensorimotor composes one forward and one inverse predictor over a
// shared observation store, with an explore/exploit mode switch that scales
// exploration noise to the motor bounds.
package sensorimotor

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/c-e-smith/explauto/internal/dataset"
	"github.com/c-e-smith/explauto/internal/forward"
	"github.com/c-e-smith/explauto/internal/inverse"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region mode

// Mode selects whether inverse predictions are perturbed with exploration
// noise.
type Mode string

const (
	ModeExplore Mode = "explore"
	ModeExploit Mode = "exploit"
)

// #endregion mode

// #region config

// Config selects the predictor variants and the exploration noise scale.
type Config struct {
	Forward ForwardID
	Inverse InverseID
	Params  PredictorParams

	// SigmaExploRatio is the explore-mode noise standard deviation as a
	// fraction of each motor dimension's range.
	SigmaExploRatio float64

	Seed int64
}

// DefaultConfig returns nearest-neighbor predictors with 10% exploration
// noise.
func DefaultConfig() Config {
	return Config{
		Forward:         ForwardNN,
		Inverse:         InverseNN,
		Params:          DefaultPredictorParams(),
		SigmaExploRatio: 0.1,
		Seed:            1,
	}
}

// Validate checks the model configuration.
func (c Config) Validate() error {
	if c.SigmaExploRatio < 0 {
		return fmt.Errorf("sensorimotor config: sigma_explo_ratio must be >= 0, got %g", c.SigmaExploRatio)
	}
	return nil
}

// #endregion config

// #region model

// Model is the non-parametric sensorimotor model: a shared observation store,
// a forward predictor, an inverse predictor, and an explore/exploit mode.
type Model struct {
	store   *dataset.Store
	fwd     forward.Predictor
	fwdWNN  *forward.WNN // fallback when LWLR hits a singular system
	inv     inverse.Predictor
	motor   space.Space
	sensory space.Space
	rng     *rand.Rand

	// Mode is mutable for the model's lifetime; only inverse predictions
	// observe it.
	Mode Mode

	sigmaExplo float64
}

// New builds a Model over fresh storage using the given registry.
func New(motor, sensory space.Space, cfg Config, reg *Registry) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store := dataset.New(motor.Dims(), sensory.Dims())

	fwd, err := reg.NewForward(cfg.Forward, store, cfg.Params)
	if err != nil {
		return nil, err
	}
	fallback, err := forward.NewWNN(store, cfg.Params.WNN)
	if err != nil {
		return nil, err
	}
	inv, err := reg.NewInverse(cfg.Inverse, store, fwd, motor, cfg.Params)
	if err != nil {
		return nil, err
	}

	return &Model{
		store:      store,
		fwd:        fwd,
		fwdWNN:     fallback,
		inv:        inv,
		motor:      motor,
		sensory:    sensory,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		Mode:       ModeExplore,
		sigmaExplo: cfg.SigmaExploRatio,
	}, nil
}

// Store exposes the shared observation store (read-only use expected).
func (m *Model) Store() *dataset.Store {
	return m.store
}

// MotorSpace returns the motor bounds.
func (m *Model) MotorSpace() space.Space { return m.motor }

// SensorySpace returns the sensory bounds.
func (m *Model) SensorySpace() space.Space { return m.sensory }

// #endregion model

// #region update

// Update appends one observation. Index structures over the store are
// invalidated lazily and rebuilt on a later query, never synchronously here.
func (m *Model) Update(mv, sv []float64) error {
	return m.store.Add(mv, sv)
}

// #endregion update

// #region forward-prediction

// ForwardPrediction estimates the sensory outcome of mv. Mode has no effect.
// A singular LWLR system degrades to the WNN estimate.
func (m *Model) ForwardPrediction(mv []float64) ([]float64, error) {
	s, err := m.fwd.Predict(mv)
	if errors.Is(err, forward.ErrSingularSystem) {
		log.Printf("[SM] lwlr singular, falling back to wnn: %v", err)
		return m.fwdWNN.Predict(mv)
	}
	return s, err
}

// #endregion forward-prediction

// #region inverse-prediction

// InversePrediction estimates a motor command for the sensory goal. In
// explore mode, independent Gaussian noise with standard deviation
// sigma_explo_ratio * range is added per motor dimension and the result is
// clipped to the motor bounds; exploit mode returns the raw prediction.
func (m *Model) InversePrediction(goal []float64) ([]float64, error) {
	mv, err := m.inv.Predict(goal)
	if err != nil {
		return nil, err
	}
	if m.Mode != ModeExplore || m.sigmaExplo == 0 {
		return mv, nil
	}
	noisy := make([]float64, len(mv))
	for d := range mv {
		noisy[d] = mv[d] + m.rng.NormFloat64()*m.sigmaExplo*m.motor.Range(d)
	}
	return m.motor.Clip(noisy), nil
}

// #endregion inverse-prediction
