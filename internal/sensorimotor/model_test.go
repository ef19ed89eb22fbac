package sensorimotor

import (
	"math"
	"testing"

	"github.com/c-e-smith/explauto/internal/space"
)

func identityModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	bounds := space.MustNew([]float64{-1}, []float64{1})
	m, err := New(bounds, bounds, cfg, NewRegistry())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func feedIdentity(t *testing.T, m *Model, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		v := -1 + 2*float64(i)/float64(n-1)
		if err := m.Update([]float64{v}, []float64{v}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
}

func TestForwardPredictionIgnoresMode(t *testing.T) {
	m := identityModel(t, DefaultConfig())
	feedIdentity(t, m, 50)

	m.Mode = ModeExplore
	a, err := m.ForwardPrediction([]float64{0.3})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	m.Mode = ModeExploit
	b, err := m.ForwardPrediction([]float64{0.3})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if a[0] != b[0] {
		t.Fatalf("forward prediction changed with mode: %g vs %g", a[0], b[0])
	}
}

func TestExploitIsDeterministic(t *testing.T) {
	m := identityModel(t, DefaultConfig())
	feedIdentity(t, m, 50)
	m.Mode = ModeExploit

	first, err := m.InversePrediction([]float64{0.3})
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := m.InversePrediction([]float64{0.3})
		if err != nil {
			t.Fatalf("inverse: %v", err)
		}
		if again[0] != first[0] {
			t.Fatalf("exploit prediction not deterministic: %g vs %g", again[0], first[0])
		}
	}
}

func TestExploitReturnsStoredMotorWithNN(t *testing.T) {
	m := identityModel(t, DefaultConfig())
	feedIdentity(t, m, 201) // includes 0.3 exactly
	m.Mode = ModeExploit

	got, err := m.InversePrediction([]float64{0.3})
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if math.Abs(got[0]-0.3) > 1e-12 {
		t.Fatalf("expected stored motor 0.3, got %g", got[0])
	}
}

func TestExploreNoiseScaleAndBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SigmaExploRatio = 0.05
	m := identityModel(t, cfg)
	feedIdentity(t, m, 50)
	m.Mode = ModeExplore

	goal := []float64{0} // interior, so clipping is rare and the std stays clean
	var sum, sumSq float64
	const n = 10000
	for i := 0; i < n; i++ {
		got, err := m.InversePrediction(goal)
		if err != nil {
			t.Fatalf("inverse: %v", err)
		}
		if got[0] < -1 || got[0] > 1 {
			t.Fatalf("explore prediction %g escaped motor bounds", got[0])
		}
		sum += got[0]
		sumSq += got[0] * got[0]
	}
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)

	// sigma = ratio * range = 0.05 * 2 = 0.1
	if math.Abs(std-0.1) > 0.01 {
		t.Fatalf("expected noise std near 0.1, got %g", std)
	}
}

func TestZeroNoiseExploreEqualsExploit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SigmaExploRatio = 0
	m := identityModel(t, cfg)
	feedIdentity(t, m, 50)

	m.Mode = ModeExploit
	a, err := m.InversePrediction([]float64{0.4})
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	m.Mode = ModeExplore
	b, err := m.InversePrediction([]float64{0.4})
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if a[0] != b[0] {
		t.Fatalf("zero-noise explore differs from exploit: %g vs %g", b[0], a[0])
	}
}

func TestLWLRFallsBackToWNNOnSingularSystem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Forward = ForwardLWLR
	m := identityModel(t, cfg)

	// Identical motor commands make the local system singular.
	for i := 0; i < 12; i++ {
		if err := m.Update([]float64{0.5}, []float64{0.7}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, err := m.ForwardPrediction([]float64{0.5})
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if math.Abs(got[0]-0.7) > 1e-12 {
		t.Fatalf("expected wnn fallback outcome 0.7, got %g", got[0])
	}
}

func TestRegistryRejectsUnknownVariants(t *testing.T) {
	bounds := space.MustNew([]float64{0}, []float64{1})
	cfg := DefaultConfig()
	cfg.Forward = "nope"
	if _, err := New(bounds, bounds, cfg, NewRegistry()); err == nil {
		t.Fatal("expected error for unknown forward id")
	}

	cfg = DefaultConfig()
	cfg.Inverse = "nope"
	if _, err := New(bounds, bounds, cfg, NewRegistry()); err == nil {
		t.Fatal("expected error for unknown inverse id")
	}
}

func TestConfigValidation(t *testing.T) {
	bounds := space.MustNew([]float64{0}, []float64{1})
	cfg := DefaultConfig()
	cfg.SigmaExploRatio = -0.1
	if _, err := New(bounds, bounds, cfg, NewRegistry()); err == nil {
		t.Fatal("expected error for negative noise ratio")
	}
}

// End to end on the 1-D identity environment: after enough updates the
// exploit inverse prediction must land within one grid step of the goal.
func TestEndToEndIdentity(t *testing.T) {
	m := identityModel(t, DefaultConfig())
	const n = 200
	feedIdentity(t, m, n)
	m.Mode = ModeExploit

	got, err := m.InversePrediction([]float64{0.3})
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	gap := 2.0 / float64(n-1)
	if math.Abs(got[0]-0.3) > gap {
		t.Fatalf("prediction %g further than one grid step (%g) from goal 0.3", got[0], gap)
	}
}
