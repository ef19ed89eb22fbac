// Package loop drives active learning: the interest model picks a goal, the
// sensorimotor model proposes a motor command, the environment executes it,
// and the outcome feeds back into both models.
package loop

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/c-e-smith/explauto/internal/interest"
	"github.com/c-e-smith/explauto/internal/sensorimotor"
)

// #region environment

// Environment executes a motor command and returns the sensory outcome. It
// is the external collaborator boundary: execution details (simulation,
// hardware, RPC) live entirely behind it.
type Environment interface {
	Execute(m []float64) ([]float64, error)
}

// #endregion environment

// #region config

// Babbling selects which sub-space goals are drawn in.
type Babbling string

const (
	// GoalBabbling samples goals in sensory space and reaches them through
	// the inverse model.
	GoalBabbling Babbling = "goal"
	// MotorBabbling samples motor commands directly.
	MotorBabbling Babbling = "motor"
)

// Config parameterizes one learning session.
type Config struct {
	Babbling Babbling
	Measure  interest.Measure
	Seed     int64
}

// DefaultConfig returns goal babbling with the exp competence measure.
func DefaultConfig() Config {
	return Config{Babbling: GoalBabbling, Measure: interest.DefaultMeasure(), Seed: 1}
}

// Validate checks the session parameters.
func (c Config) Validate() error {
	if c.Babbling != GoalBabbling && c.Babbling != MotorBabbling {
		return fmt.Errorf("loop config: unknown babbling mode %q", c.Babbling)
	}
	return c.Measure.Validate()
}

// #endregion config

// #region trial

// Trial records one select-act-observe-update cycle.
type Trial struct {
	Num        int
	Goal       []float64
	Motor      []float64
	Outcome    []float64
	Competence float64
	Fallback   bool // inverse prediction failed; a random command was used
}

// #endregion trial

// #region loop

// Loop owns one strictly sequential learning session. No operation overlaps:
// select goal, act, observe, update.
type Loop struct {
	env    Environment
	model  *sensorimotor.Model
	im     interest.Model
	config Config
	rng    *rand.Rand
	trials int
}

// New wires a loop over the given environment and models.
func New(env Environment, model *sensorimotor.Model, im interest.Model, config Config) (*Loop, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Loop{
		env:    env,
		model:  model,
		im:     im,
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}, nil
}

// Trials returns the number of completed trials.
func (l *Loop) Trials() int {
	return l.trials
}

// #endregion loop

// #region step

// Step runs one trial. An inverse prediction failure (empty store) degrades
// to a uniform random motor command; only environment failures surface to
// the caller.
func (l *Loop) Step() (Trial, error) {
	goal := l.im.Sample()

	var mv []float64
	fallback := false
	if l.config.Babbling == MotorBabbling {
		mv = l.model.MotorSpace().Clip(goal)
	} else {
		pred, err := l.model.InversePrediction(goal)
		if err != nil {
			log.Printf("[LOOP] inverse prediction failed, using random command: %v", err)
			pred = l.model.MotorSpace().Sample(l.rng)
			fallback = true
		}
		mv = pred
	}

	s, err := l.env.Execute(mv)
	if err != nil {
		return Trial{}, fmt.Errorf("environment execute: %w", err)
	}

	if err := l.model.Update(mv, s); err != nil {
		return Trial{}, fmt.Errorf("model update: %w", err)
	}

	// Competence compares the goal with what was actually reached in the
	// goal's own sub-space.
	reached := s
	if l.config.Babbling == MotorBabbling {
		reached = mv
	}
	comp := l.config.Measure.Competence(goal, reached)
	l.im.Update(goal, reached, comp)

	l.trials++
	return Trial{
		Num:        l.trials,
		Goal:       goal,
		Motor:      mv,
		Outcome:    s,
		Competence: comp,
		Fallback:   fallback,
	}, nil
}

// Run executes n trials. Environment failures are logged and skipped; the
// learning loop itself never aborts.
func (l *Loop) Run(n int) []Trial {
	out := make([]Trial, 0, n)
	for i := 0; i < n; i++ {
		trial, err := l.Step()
		if err != nil {
			log.Printf("[LOOP] trial skipped: %v", err)
			continue
		}
		out = append(out, trial)
	}
	return out
}

// #endregion step
