package interest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/c-e-smith/explauto/internal/space"
)

func TestMeasureCompetence(t *testing.T) {
	m := Measure{ID: MeasureExp, Sigma: 1.0}
	if c := m.Competence([]float64{0}, []float64{0}); c != 1 {
		t.Fatalf("exp competence at zero distance should be 1, got %g", c)
	}
	if c := m.Competence([]float64{0}, []float64{3}); math.Abs(c-math.Exp(-3)) > 1e-12 {
		t.Fatalf("expected exp(-3), got %g", c)
	}

	d := Measure{ID: MeasureDist, DistMax: 2}
	if c := d.Competence([]float64{0}, []float64{5}); c != -2 {
		t.Fatalf("dist competence should clamp at -2, got %g", c)
	}
	if c := d.Clamp(1); c != 0 {
		t.Fatalf("dist competence should clamp positives to 0, got %g", c)
	}
}

func TestMeasureValidation(t *testing.T) {
	if err := (Measure{ID: "nope"}).Validate(); err == nil {
		t.Fatal("expected error for unknown measure")
	}
	if err := (Measure{ID: MeasureExp, Sigma: 0}).Validate(); err == nil {
		t.Fatal("expected error for zero sigma")
	}
}

func TestProgressWindowIsNonNegative(t *testing.T) {
	w := newProgressWindow(10)
	if _, ok := w.progress(); ok {
		t.Fatal("progress defined with no data")
	}
	w.push(0.9)
	if _, ok := w.progress(); ok {
		t.Fatal("progress defined with one value")
	}
	// Falling competence still yields positive progress (absolute change).
	for _, c := range []float64{0.8, 0.6, 0.4, 0.2} {
		w.push(c)
	}
	p, ok := w.progress()
	if !ok {
		t.Fatal("progress undefined with five values")
	}
	if p <= 0 {
		t.Fatalf("expected positive progress for falling competence, got %g", p)
	}
}

func TestProgressWindowBounded(t *testing.T) {
	w := newProgressWindow(3)
	for i := 0; i < 10; i++ {
		w.push(float64(i))
	}
	if w.len() != 3 {
		t.Fatalf("expected window bounded at 3, got %d", w.len())
	}
}

func TestRandomSamplesInBounds(t *testing.T) {
	sp := space.MustNew([]float64{-2, 5}, []float64{2, 6})
	m := NewRandom(sp, 1)
	for i := 0; i < 1000; i++ {
		if g := m.Sample(); !sp.Contains(g) {
			t.Fatalf("sample %v escaped bounds", g)
		}
	}
	// Update is a no-op but must not panic.
	m.Update([]float64{0, 5.5}, []float64{0, 5.5}, 1)
}

func TestDiscretizedCellRoundTrip(t *testing.T) {
	sp := space.MustNew([]float64{0, 0}, []float64{1, 1})
	m, err := NewDiscretized(sp, DiscretizedConfig{XCard: 16, WinSize: 5}, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if m.cellsPerDim != 4 {
		t.Fatalf("expected 4 cells per dim for x_card 16 in 2-D, got %d", m.cellsPerDim)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		g := sp.Sample(rng)
		cell := m.cellOf(g)
		lo, hi := m.cellBounds(cell)
		for d := range g {
			if g[d] < lo[d] || g[d] > hi[d] {
				t.Fatalf("point %v not inside its cell box [%v, %v]", g, lo, hi)
			}
		}
	}
}

func TestDiscretizedGridHandlesInexactRoots(t *testing.T) {
	// 1000^(1/3) computes to just under 10; the grid must still be 10 per dim.
	sp := space.MustNew([]float64{0, 0, 0}, []float64{1, 1, 1})
	m, err := NewDiscretized(sp, DiscretizedConfig{XCard: 1000, WinSize: 5}, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if m.cellsPerDim != 10 {
		t.Fatalf("expected 10 cells per dim for x_card 1000 in 3-D, got %d", m.cellsPerDim)
	}
	if len(m.cells) != 1000 {
		t.Fatalf("expected 1000 cells, got %d", len(m.cells))
	}
}

func TestDiscretizedSamplesInBoundsAndLearns(t *testing.T) {
	sp := space.MustNew([]float64{0}, []float64{1})
	m, err := NewDiscretized(sp, DiscretizedConfig{XCard: 10, WinSize: 5}, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 500; i++ {
		g := m.Sample()
		if !sp.Contains(g) {
			t.Fatalf("sample %v escaped bounds", g)
		}
		// Competence rises only in the left half of the space.
		c := 0.0
		if g[0] < 0.5 {
			c = float64(i) / 500
		}
		m.Update(g, g, c)
	}
}

func TestTreeSamplesInBounds(t *testing.T) {
	sp := space.MustNew([]float64{-1, -1}, []float64{1, 1})
	m, err := NewTree(sp, DefaultTreeConfig(), DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 2000; i++ {
		g := m.Sample()
		if !sp.Contains(g) {
			t.Fatalf("sample %v escaped bounds", g)
		}
		reached := sp.Sample(rng)
		m.Update(g, reached, DefaultMeasure().Competence(g, reached))
	}
	if m.Len() != 2000 {
		t.Fatalf("expected 2000 recorded updates, got %d", m.Len())
	}
}

// Children must tile their parent's box exactly and partition its points.
func TestTreePartitionInvariant(t *testing.T) {
	sp := space.MustNew([]float64{0, 0}, []float64{1, 1})
	cfg := DefaultTreeConfig()
	cfg.MaxPointsPerRegion = 10
	m, err := NewTree(sp, cfg, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		g := sp.Sample(rng)
		m.Update(g, g, rng.Float64())
	}

	regions := m.Regions()
	if len(regions) < 3 {
		t.Fatalf("expected splits after 500 updates over budget 10, got %d regions", len(regions))
	}
	if regions[0].Points != 500 {
		t.Fatalf("root should have routed all 500 points, got %d", regions[0].Points)
	}
	for i, r := range regions {
		if r.Leaf {
			continue
		}
		c0, c1 := regions[r.Children[0]], regions[r.Children[1]]
		if c0.Points+c1.Points != r.Points {
			t.Fatalf("region %d: children hold %d+%d points, parent %d",
				i, c0.Points, c1.Points, r.Points)
		}
		for d := range r.Lo {
			if d == r.SplitDim {
				if c0.Lo[d] != r.Lo[d] || c0.Hi[d] != r.SplitVal ||
					c1.Lo[d] != r.SplitVal || c1.Hi[d] != r.Hi[d] {
					t.Fatalf("region %d: children do not tile split axis %d", i, d)
				}
			} else {
				if c0.Lo[d] != r.Lo[d] || c0.Hi[d] != r.Hi[d] ||
					c1.Lo[d] != r.Lo[d] || c1.Hi[d] != r.Hi[d] {
					t.Fatalf("region %d: children changed non-split axis %d", i, d)
				}
			}
		}
		if c0.Depth != r.Depth+1 || c1.Depth != r.Depth+1 {
			t.Fatalf("region %d: child depth mismatch", i)
		}
	}
}

func TestTreeDefersDegenerateSplit(t *testing.T) {
	sp := space.MustNew([]float64{0}, []float64{1})
	cfg := DefaultTreeConfig()
	cfg.MaxPointsPerRegion = 5
	m, err := NewTree(sp, cfg, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Identical goals leave no axis with two distinct values; the split must
	// defer, never panic or split.
	for i := 0; i < 50; i++ {
		m.Update([]float64{0.5}, []float64{0.5}, 1)
	}
	if got := len(m.Regions()); got != 1 {
		t.Fatalf("expected split deferred (1 region), got %d", got)
	}
}

func TestTreeSplitModes(t *testing.T) {
	sp := space.MustNew([]float64{0}, []float64{1})
	rng := rand.New(rand.NewSource(11))
	for _, mode := range []SplitMode{SplitRandom, SplitMedian, SplitMiddle, SplitBestInterestDiff} {
		cfg := DefaultTreeConfig()
		cfg.SplitMode = mode
		cfg.MaxPointsPerRegion = 8
		m, err := NewTree(sp, cfg, DefaultMeasure(), 1)
		if err != nil {
			t.Fatalf("%s: new: %v", mode, err)
		}
		for i := 0; i < 200; i++ {
			g := sp.Sample(rng)
			m.Update(g, g, rng.Float64())
		}
		if len(m.Regions()) < 3 {
			t.Fatalf("%s: expected splits, got %d regions", mode, len(m.Regions()))
		}
		if g := m.Sample(); !sp.Contains(g) {
			t.Fatalf("%s: sample %v escaped bounds", mode, g)
		}
	}
}

func TestGMMSamplesInBounds(t *testing.T) {
	sp := space.MustNew([]float64{-1}, []float64{1})
	cfg := GMMConfig{NSamples: 40, NComponents: 3, RefitEvery: 10, EMIters: 10}
	m, err := NewGMM(sp, cfg, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 300; i++ {
		g := m.Sample()
		if !sp.Contains(g) {
			t.Fatalf("sample %v escaped bounds at update %d", g, i)
		}
		reached := sp.Sample(rng)
		m.Update(g, reached, DefaultMeasure().Competence(g, reached))
	}
}

func TestGMMProgressWeightsNormalized(t *testing.T) {
	sp := space.MustNew([]float64{0}, []float64{1})
	m, err := NewGMM(sp, GMMConfig{NSamples: 40, NComponents: 2, RefitEvery: 10, EMIters: 10}, DefaultMeasure(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 100; i++ {
		g := sp.Sample(rng)
		m.Update(g, g, float64(i)/100)
	}
	if len(m.components) == 0 {
		t.Fatal("expected a fitted mixture after 100 updates")
	}
	var total float64
	for _, c := range m.components {
		if c.progress < 0 {
			t.Fatalf("negative progress weight %g", c.progress)
		}
		total += c.progress
	}
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("progress weights sum to %g, want 1", total)
	}
}

func TestRegistryBuildsAllKinds(t *testing.T) {
	sp := space.MustNew([]float64{0}, []float64{1})
	reg := NewRegistry()
	for _, kind := range []ID{KindRandom, KindDiscretized, KindTree, KindGMM} {
		cfg := DefaultConfig()
		cfg.Kind = kind
		m, err := reg.New(cfg, sp)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if g := m.Sample(); !sp.Contains(g) {
			t.Fatalf("%s: sample %v escaped bounds", kind, g)
		}
	}
}

func TestRegistryRejectsUnknownKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kind = "nope"
	if _, err := NewRegistry().New(cfg, space.MustNew([]float64{0}, []float64{1})); err == nil {
		t.Fatal("expected error for unknown interest kind")
	}
}
