// Package interest implements goal selection over a designated sub-space:
// uniform random, fixed-grid progress, adaptive-tree progress, and
// mixture-model progress variants. All variants share one contract: Sample
// returns the next goal, Update records the outcome of one attempt.
package interest

import (
	"errors"
	"fmt"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region errors

// ErrDegenerateRegion reports a split request with fewer than two distinct
// values on every candidate axis. Handled locally by deferring the split.
var ErrDegenerateRegion = errors.New("interest: degenerate region, split deferred")

// #endregion errors

// #region model

// Model selects goals in the configured interest sub-space.
//
// Sample succeeds even before any data exists (uniform random fallback).
// Update clamps out-of-range competence values rather than rejecting them.
type Model interface {
	Sample() []float64
	Update(goal, reached []float64, competence float64)
}

// #endregion model

// #region bootstrap

// bootstrapFloor is the minimum sampling weight assigned to cells, leaves, or
// components without enough history to estimate progress. Unexplored
// structure inherits the current maximum interest (optimistic
// initialization) with this floor, so an all-empty model still samples.
const bootstrapFloor = 1e-6

// #endregion bootstrap

// #region ids

// ID identifies an interest-model variant.
type ID string

const (
	KindRandom      ID = "random"
	KindDiscretized ID = "discretized"
	KindTree        ID = "tree"
	KindGMM         ID = "gmm"
)

// #endregion ids

// #region config

// Config selects the interest-model variant and its parameters.
type Config struct {
	Kind        ID
	Measure     Measure
	Discretized DiscretizedConfig
	Tree        TreeConfig
	GMM         GMMConfig
	Seed        int64
}

// DefaultConfig returns a tree interest model with the exp competence
// measure.
func DefaultConfig() Config {
	return Config{
		Kind:        KindTree,
		Measure:     DefaultMeasure(),
		Discretized: DefaultDiscretizedConfig(),
		Tree:        DefaultTreeConfig(),
		GMM:         DefaultGMMConfig(),
		Seed:        1,
	}
}

// Validate checks the selected variant's parameters.
func (c Config) Validate() error {
	if err := c.Measure.Validate(); err != nil {
		return err
	}
	switch c.Kind {
	case KindRandom:
		return nil
	case KindDiscretized:
		return c.Discretized.Validate()
	case KindTree:
		return c.Tree.Validate()
	case KindGMM:
		return c.GMM.Validate()
	default:
		return fmt.Errorf("interest config: unknown kind %q", c.Kind)
	}
}

// #endregion config

// #region registry

// Registry maps interest-model names to constructors; an explicit value, not
// process-global state.
type Registry struct {
	builders map[ID]func(cfg Config, sp space.Space) (Model, error)
}

// NewRegistry returns a registry with all built-in variants.
func NewRegistry() *Registry {
	return &Registry{
		builders: map[ID]func(cfg Config, sp space.Space) (Model, error){
			KindRandom: func(cfg Config, sp space.Space) (Model, error) {
				return NewRandom(sp, cfg.Seed), nil
			},
			KindDiscretized: func(cfg Config, sp space.Space) (Model, error) {
				return NewDiscretized(sp, cfg.Discretized, cfg.Measure, cfg.Seed)
			},
			KindTree: func(cfg Config, sp space.Space) (Model, error) {
				return NewTree(sp, cfg.Tree, cfg.Measure, cfg.Seed)
			},
			KindGMM: func(cfg Config, sp space.Space) (Model, error) {
				return NewGMM(sp, cfg.GMM, cfg.Measure, cfg.Seed)
			},
		},
	}
}

// New constructs the configured interest model over the given sub-space.
func (r *Registry) New(cfg Config, sp space.Space) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, ok := r.builders[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("registry: unknown interest model %q", cfg.Kind)
	}
	return build(cfg, sp)
}

// #endregion registry
