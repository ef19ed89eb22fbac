package space

import (
	"math/rand"
	"testing"
)

func TestNewRejectsBadBounds(t *testing.T) {
	if _, err := New([]float64{0, 0}, []float64{1}); err == nil {
		t.Fatal("expected error for mismatched dims")
	}
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for empty bounds")
	}
	if _, err := New([]float64{1}, []float64{1}); err == nil {
		t.Fatal("expected error for min == max")
	}
	if _, err := New([]float64{2}, []float64{1}); err == nil {
		t.Fatal("expected error for min > max")
	}
}

func TestClipClampsAndCopies(t *testing.T) {
	s := MustNew([]float64{-1, -1}, []float64{1, 1})
	in := []float64{-2, 0.5}
	out := s.Clip(in)
	if out[0] != -1 || out[1] != 0.5 {
		t.Fatalf("expected [-1, 0.5], got %v", out)
	}
	out[1] = 99
	if in[1] != 0.5 {
		t.Fatal("Clip must not alias its input")
	}
}

func TestContains(t *testing.T) {
	s := MustNew([]float64{0}, []float64{1})
	if !s.Contains([]float64{0}) || !s.Contains([]float64{1}) {
		t.Fatal("bounds are inclusive")
	}
	if s.Contains([]float64{1.001}) {
		t.Fatal("out-of-bounds point accepted")
	}
	if s.Contains([]float64{0.5, 0.5}) {
		t.Fatal("wrong-dims point accepted")
	}
}

func TestSampleStaysInBounds(t *testing.T) {
	s := MustNew([]float64{-3, 10}, []float64{-1, 20})
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		if v := s.Sample(rng); !s.Contains(v) {
			t.Fatalf("sample %v escaped bounds", v)
		}
	}
}

func TestVolumeAndCenter(t *testing.T) {
	s := MustNew([]float64{0, -2}, []float64{2, 2})
	if got := s.Volume(); got != 8 {
		t.Fatalf("expected volume 8, got %g", got)
	}
	c := s.Center()
	if c[0] != 1 || c[1] != 0 {
		t.Fatalf("expected center [1, 0], got %v", c)
	}
}

func TestDist(t *testing.T) {
	if d := Dist([]float64{0, 0}, []float64{3, 4}); d != 5 {
		t.Fatalf("expected 5, got %g", d)
	}
	if d := SqDist([]float64{1}, []float64{1}); d != 0 {
		t.Fatalf("expected 0, got %g", d)
	}
}
