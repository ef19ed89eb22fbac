package interest

import (
	"math/rand"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region random

// Random samples goals uniformly within the interest bounds and learns
// nothing from outcomes.
type Random struct {
	space space.Space
	rng   *rand.Rand
}

// NewRandom creates a uniform random interest model.
func NewRandom(sp space.Space, seed int64) *Random {
	return &Random{space: sp, rng: rand.New(rand.NewSource(seed))}
}

// Sample draws uniformly within the bounds.
func (m *Random) Sample() []float64 {
	return m.space.Sample(m.rng)
}

// Update is a no-op.
func (m *Random) Update(goal, reached []float64, competence float64) {}

// #endregion random
