package sensorimotor

import (
	"fmt"

	"github.com/c-e-smith/explauto/internal/dataset"
	"github.com/c-e-smith/explauto/internal/forward"
	"github.com/c-e-smith/explauto/internal/inverse"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region ids

// ForwardID identifies a forward-predictor variant.
type ForwardID string

const (
	ForwardNN     ForwardID = "nn"
	ForwardWNN    ForwardID = "wnn"
	ForwardLWLR   ForwardID = "lwlr"
	ForwardNSNN   ForwardID = "nsnn"
	ForwardNSLWLR ForwardID = "nslwlr"
)

// InverseID identifies an inverse-predictor variant.
type InverseID string

const (
	InverseNN         InverseID = "nn"
	InverseWNN        InverseID = "wnn"
	InverseDescent    InverseID = "descent"
	InverseNelderMead InverseID = "neldermead"
	InverseCEM        InverseID = "cem"
)

// #endregion ids

// #region params

// PredictorParams bundles the validated per-variant parameter sets. Only the
// set matching the selected variant is consulted at construction.
type PredictorParams struct {
	WNN        forward.WNNConfig
	LWLR       forward.LWLRConfig
	NS         forward.NSConfig
	InvWNN     inverse.WNNConfig
	Descent    inverse.DescentConfig
	NelderMead inverse.NelderMeadConfig
	CEM        inverse.CEMConfig
}

// DefaultPredictorParams returns the stock parameters for every variant.
func DefaultPredictorParams() PredictorParams {
	return PredictorParams{
		WNN:        forward.DefaultWNNConfig(),
		LWLR:       forward.DefaultLWLRConfig(),
		NS:         forward.DefaultNSConfig(),
		InvWNN:     inverse.DefaultWNNConfig(),
		Descent:    inverse.DefaultDescentConfig(),
		NelderMead: inverse.DefaultNelderMeadConfig(),
		CEM:        inverse.DefaultCEMConfig(),
	}
}

// #endregion params

// #region registry

// Registry maps variant names to constructors. An explicit value passed to
// Model construction, never process-global state.
type Registry struct {
	forwards map[ForwardID]forwardBuilder
	inverses map[InverseID]inverseBuilder
}

type forwardBuilder func(store *dataset.Store, p PredictorParams) (forward.Predictor, error)
type inverseBuilder func(store *dataset.Store, fwd forward.Predictor, motor space.Space, p PredictorParams) (inverse.Predictor, error)

// NewRegistry returns a registry with all built-in variants.
func NewRegistry() *Registry {
	return &Registry{
		forwards: map[ForwardID]forwardBuilder{
			ForwardNN: func(store *dataset.Store, _ PredictorParams) (forward.Predictor, error) {
				return forward.NewNN(store), nil
			},
			ForwardWNN: func(store *dataset.Store, p PredictorParams) (forward.Predictor, error) {
				return forward.NewWNN(store, p.WNN)
			},
			ForwardLWLR: func(store *dataset.Store, p PredictorParams) (forward.Predictor, error) {
				return forward.NewLWLR(store, p.LWLR)
			},
			ForwardNSNN: func(store *dataset.Store, p PredictorParams) (forward.Predictor, error) {
				return forward.NewNSNN(store, p.NS)
			},
			ForwardNSLWLR: func(store *dataset.Store, p PredictorParams) (forward.Predictor, error) {
				return forward.NewNSLWLR(store, p.NS)
			},
		},
		inverses: map[InverseID]inverseBuilder{
			InverseNN: func(store *dataset.Store, _ forward.Predictor, _ space.Space, _ PredictorParams) (inverse.Predictor, error) {
				return inverse.NewNN(store), nil
			},
			InverseWNN: func(store *dataset.Store, _ forward.Predictor, _ space.Space, p PredictorParams) (inverse.Predictor, error) {
				return inverse.NewWNN(store, p.InvWNN)
			},
			InverseDescent: func(store *dataset.Store, fwd forward.Predictor, motor space.Space, p PredictorParams) (inverse.Predictor, error) {
				return inverse.NewDescent(store, fwd, motor, p.Descent)
			},
			InverseNelderMead: func(store *dataset.Store, fwd forward.Predictor, motor space.Space, p PredictorParams) (inverse.Predictor, error) {
				return inverse.NewNelderMead(store, fwd, motor, p.NelderMead)
			},
			InverseCEM: func(store *dataset.Store, fwd forward.Predictor, motor space.Space, p PredictorParams) (inverse.Predictor, error) {
				return inverse.NewCEM(store, fwd, motor, p.CEM)
			},
		},
	}
}

// NewForward constructs the named forward predictor.
func (r *Registry) NewForward(id ForwardID, store *dataset.Store, p PredictorParams) (forward.Predictor, error) {
	build, ok := r.forwards[id]
	if !ok {
		return nil, fmt.Errorf("registry: unknown forward predictor %q", id)
	}
	return build(store, p)
}

// NewInverse constructs the named inverse predictor around fwd.
func (r *Registry) NewInverse(id InverseID, store *dataset.Store, fwd forward.Predictor, motor space.Space, p PredictorParams) (inverse.Predictor, error) {
	build, ok := r.inverses[id]
	if !ok {
		return nil, fmt.Errorf("registry: unknown inverse predictor %q", id)
	}
	return build(store, fwd, motor, p)
}

// #endregion registry
