package loop

import (
	"fmt"
	"math/rand"

	"github.com/c-e-smith/explauto/internal/sensorimotor"
	"github.com/c-e-smith/explauto/internal/space"
)

// #region eval-config

// EvalConfig fixes the test goals an evaluation runs against. Goals are held
// constant so scores are comparable across checkpoints of the same session.
// Evaluation trials stay out of the model's store unless UpdateModel is set,
// so measuring competence does not perturb the learning trajectory.
type EvalConfig struct {
	Goals       [][]float64
	UpdateModel bool
}

// UniformEvalGoals draws n evaluation goals uniformly over the sensory
// bounds with a dedicated source, independent of the learning session's
// randomness.
func UniformEvalGoals(sp space.Space, n int, seed int64) EvalConfig {
	rng := rand.New(rand.NewSource(seed))
	goals := make([][]float64, n)
	for i := range goals {
		goals[i] = sp.Sample(rng)
	}
	return EvalConfig{Goals: goals}
}

// Validate checks the evaluation parameters.
func (c EvalConfig) Validate() error {
	if len(c.Goals) == 0 {
		return fmt.Errorf("eval config: at least one test goal required")
	}
	return nil
}

// #endregion eval-config

// #region eval-result

// GoalScore is the outcome of one evaluation goal.
type GoalScore struct {
	Goal    []float64
	Motor   []float64
	Reached []float64
	Err     float64
}

// EvalResult aggregates one evaluation pass.
type EvalResult struct {
	Scores  []GoalScore
	MeanErr float64
}

// #endregion eval-result

// #region evaluation

// Evaluation measures reaching error over a fixed goal set. Each pass runs
// the model in exploit mode and restores the caller's mode afterwards.
type Evaluation struct {
	env    Environment
	model  *sensorimotor.Model
	config EvalConfig
}

// NewEvaluation wires an evaluation harness.
func NewEvaluation(env Environment, model *sensorimotor.Model, config EvalConfig) (*Evaluation, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Evaluation{env: env, model: model, config: config}, nil
}

// Run executes every test goal once and returns the per-goal and mean
// Euclidean reaching errors.
func (e *Evaluation) Run() (EvalResult, error) {
	mode := e.model.Mode
	e.model.Mode = sensorimotor.ModeExploit
	defer func() { e.model.Mode = mode }()

	result := EvalResult{Scores: make([]GoalScore, 0, len(e.config.Goals))}
	var total float64
	for _, goal := range e.config.Goals {
		mv, err := e.model.InversePrediction(goal)
		if err != nil {
			return EvalResult{}, fmt.Errorf("eval inverse prediction: %w", err)
		}
		s, err := e.env.Execute(mv)
		if err != nil {
			return EvalResult{}, fmt.Errorf("eval environment execute: %w", err)
		}
		if e.config.UpdateModel {
			if err := e.model.Update(mv, s); err != nil {
				return EvalResult{}, fmt.Errorf("eval model update: %w", err)
			}
		}
		d := space.Dist(goal, s)
		result.Scores = append(result.Scores, GoalScore{Goal: goal, Motor: mv, Reached: s, Err: d})
		total += d
	}
	result.MeanErr = total / float64(len(result.Scores))
	return result, nil
}

// #endregion evaluation
