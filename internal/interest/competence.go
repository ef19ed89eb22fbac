package interest

import (
	"fmt"
	"math"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region measure-id

// MeasureID identifies a competence measure.
type MeasureID string

const (
	// MeasureExp scores exp(-d/sigma), in [0, 1].
	MeasureExp MeasureID = "exp"
	// MeasureDist scores -d clamped to [-dist_max, 0].
	MeasureDist MeasureID = "dist"
)

// #endregion measure-id

// #region measure

// Measure converts a (goal, reached) pair into a bounded competence scalar.
type Measure struct {
	ID      MeasureID
	Sigma   float64 // exp: distance scale
	DistMax float64 // dist: clamp magnitude
}

// DefaultMeasure returns the exp measure with unit scale.
func DefaultMeasure() Measure {
	return Measure{ID: MeasureExp, Sigma: 1.0, DistMax: 10.0}
}

// Validate checks the measure parameters.
func (m Measure) Validate() error {
	switch m.ID {
	case MeasureExp:
		if m.Sigma <= 0 {
			return fmt.Errorf("measure config: exp sigma must be > 0, got %g", m.Sigma)
		}
	case MeasureDist:
		if m.DistMax <= 0 {
			return fmt.Errorf("measure config: dist_max must be > 0, got %g", m.DistMax)
		}
	default:
		return fmt.Errorf("measure config: unknown measure %q", m.ID)
	}
	return nil
}

// Competence scores how close reached came to goal.
func (m Measure) Competence(goal, reached []float64) float64 {
	d := space.Dist(goal, reached)
	switch m.ID {
	case MeasureDist:
		return m.Clamp(-d)
	default:
		return m.Clamp(math.Exp(-d / m.Sigma))
	}
}

// Range returns the measure's competence bounds.
func (m Measure) Range() (lo, hi float64) {
	if m.ID == MeasureDist {
		return -m.DistMax, 0
	}
	return 0, 1
}

// Clamp restricts c to the measure's range. Out-of-range competences fed to
// Update are clamped, never rejected.
func (m Measure) Clamp(c float64) float64 {
	lo, hi := m.Range()
	if c < lo {
		return lo
	}
	if c > hi {
		return hi
	}
	return c
}

// #endregion measure
