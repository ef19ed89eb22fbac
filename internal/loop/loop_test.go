package loop

import (
	"errors"
	"testing"

	"github.com/c-e-smith/explauto/internal/interest"
	"github.com/c-e-smith/explauto/internal/sensorimotor"
	"github.com/c-e-smith/explauto/internal/space"
)

// identityEnv echoes the motor command as the sensory outcome.
type identityEnv struct {
	calls int
}

func (e *identityEnv) Execute(m []float64) ([]float64, error) {
	e.calls++
	out := make([]float64, len(m))
	copy(out, m)
	return out, nil
}

// failingEnv errors on every execution.
type failingEnv struct{}

func (failingEnv) Execute(m []float64) ([]float64, error) {
	return nil, errors.New("actuator offline")
}

func newTestLoop(t *testing.T, env Environment, babbling Babbling) *Loop {
	t.Helper()
	bounds := space.MustNew([]float64{-1}, []float64{1})
	model, err := sensorimotor.New(bounds, bounds, sensorimotor.DefaultConfig(), sensorimotor.NewRegistry())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	imCfg := interest.DefaultConfig()
	imCfg.Kind = interest.KindRandom
	im, err := interest.NewRegistry().New(imCfg, bounds)
	if err != nil {
		t.Fatalf("new interest model: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Babbling = babbling
	l, err := New(env, model, im, cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return l
}

func TestFirstTrialFallsBackToRandomCommand(t *testing.T) {
	env := &identityEnv{}
	l := newTestLoop(t, env, GoalBabbling)

	trial, err := l.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !trial.Fallback {
		t.Fatal("first goal-babbling trial must fall back: the store is empty")
	}
	if trial.Num != 1 {
		t.Fatalf("expected trial 1, got %d", trial.Num)
	}
}

func TestGoalBabblingFeedsStore(t *testing.T) {
	env := &identityEnv{}
	l := newTestLoop(t, env, GoalBabbling)
	bounds := space.MustNew([]float64{-1}, []float64{1})

	trials := l.Run(100)
	if len(trials) != 100 {
		t.Fatalf("expected 100 trials, got %d", len(trials))
	}
	if env.calls != 100 {
		t.Fatalf("expected 100 environment executions, got %d", env.calls)
	}
	fallbacks := 0
	for _, trial := range trials {
		if !bounds.Contains(trial.Motor) {
			t.Fatalf("motor command %v escaped bounds", trial.Motor)
		}
		if trial.Competence < 0 || trial.Competence > 1 {
			t.Fatalf("exp competence %g out of [0, 1]", trial.Competence)
		}
		if trial.Fallback {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		t.Fatalf("expected exactly the first trial to fall back, got %d fallbacks", fallbacks)
	}
}

func TestMotorBabblingExecutesSampledGoal(t *testing.T) {
	env := &identityEnv{}
	l := newTestLoop(t, env, MotorBabbling)

	trial, err := l.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	// On the identity map, executing the goal reaches it exactly.
	if trial.Competence != 1 {
		t.Fatalf("expected competence 1 in motor babbling, got %g", trial.Competence)
	}
	if trial.Fallback {
		t.Fatal("motor babbling never needs the inverse model")
	}
}

func TestRunSkipsEnvironmentFailures(t *testing.T) {
	l := newTestLoop(t, failingEnv{}, GoalBabbling)
	trials := l.Run(10)
	if len(trials) != 0 {
		t.Fatalf("expected 0 completed trials, got %d", len(trials))
	}
	if l.Trials() != 0 {
		t.Fatalf("failed trials must not count, got %d", l.Trials())
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Babbling = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown babbling mode")
	}
}

func TestEvaluationScoresFixedGoals(t *testing.T) {
	env := &identityEnv{}
	l := newTestLoop(t, env, GoalBabbling)
	l.Run(200)

	bounds := space.MustNew([]float64{-1}, []float64{1})
	eval, err := NewEvaluation(env, l.model, UniformEvalGoals(bounds, 20, 99))
	if err != nil {
		t.Fatalf("new evaluation: %v", err)
	}
	result, err := eval.Run()
	if err != nil {
		t.Fatalf("eval run: %v", err)
	}
	if len(result.Scores) != 20 {
		t.Fatalf("expected 20 scores, got %d", len(result.Scores))
	}
	// After 200 identity trials the nearest stored point is close to any goal.
	if result.MeanErr > 0.2 {
		t.Fatalf("mean reaching error %g too high after 200 trials", result.MeanErr)
	}
	if l.model.Mode != sensorimotor.ModeExplore {
		t.Fatalf("evaluation must restore the model mode, got %s", l.model.Mode)
	}
}

func TestEvaluationLeavesStoreUntouchedByDefault(t *testing.T) {
	env := &identityEnv{}
	l := newTestLoop(t, env, GoalBabbling)
	l.Run(50)
	before := l.model.Store().Len()

	bounds := space.MustNew([]float64{-1}, []float64{1})
	eval, err := NewEvaluation(env, l.model, UniformEvalGoals(bounds, 10, 7))
	if err != nil {
		t.Fatalf("new evaluation: %v", err)
	}
	if _, err := eval.Run(); err != nil {
		t.Fatalf("eval run: %v", err)
	}
	if got := l.model.Store().Len(); got != before {
		t.Fatalf("evaluation grew the store from %d to %d observations", before, got)
	}

	cfg := UniformEvalGoals(bounds, 10, 7)
	cfg.UpdateModel = true
	eval, err = NewEvaluation(env, l.model, cfg)
	if err != nil {
		t.Fatalf("new evaluation: %v", err)
	}
	if _, err := eval.Run(); err != nil {
		t.Fatalf("eval run: %v", err)
	}
	if got := l.model.Store().Len(); got != before+10 {
		t.Fatalf("opt-in evaluation stored %d trials, want 10", got-before)
	}
}

func TestEvaluationRequiresGoals(t *testing.T) {
	env := &identityEnv{}
	l := newTestLoop(t, env, GoalBabbling)
	if _, err := NewEvaluation(env, l.model, EvalConfig{}); err == nil {
		t.Fatal("expected error for empty goal set")
	}
}
