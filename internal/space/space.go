package space

import (
	"fmt"
	"math"
	"math/rand"
)

// #region space
// Space is an axis-aligned bounded box describing a motor or sensory
// sub-space. Bounds are fixed for the lifetime of any model built on them.
type Space struct {
	Min []float64
	Max []float64
}

// New validates the bounds and returns a Space.
func New(min, max []float64) (Space, error) {
	if len(min) == 0 || len(min) != len(max) {
		return Space{}, fmt.Errorf("space bounds: min has %d dims, max has %d", len(min), len(max))
	}
	for i := range min {
		if min[i] >= max[i] {
			return Space{}, fmt.Errorf("space bounds: dim %d has min %g >= max %g", i, min[i], max[i])
		}
	}
	return Space{Min: min, Max: max}, nil
}

// MustNew is New for literals known to be valid. Panics on invalid bounds.
func MustNew(min, max []float64) Space {
	s, err := New(min, max)
	if err != nil {
		panic(err)
	}
	return s
}

// Uniform builds a Space with the same [lo, hi] bounds on every dimension.
func Uniform(dims int, lo, hi float64) (Space, error) {
	min := make([]float64, dims)
	max := make([]float64, dims)
	for i := range min {
		min[i] = lo
		max[i] = hi
	}
	return New(min, max)
}

// #endregion space

// #region accessors

// Dims returns the dimensionality of the space.
func (s Space) Dims() int {
	return len(s.Min)
}

// Range returns max - min on dimension i.
func (s Space) Range(i int) float64 {
	return s.Max[i] - s.Min[i]
}

// Volume returns the product of per-dimension ranges.
func (s Space) Volume() float64 {
	v := 1.0
	for i := range s.Min {
		v *= s.Range(i)
	}
	return v
}

// Center returns the midpoint of the box.
func (s Space) Center() []float64 {
	c := make([]float64, len(s.Min))
	for i := range c {
		c[i] = (s.Min[i] + s.Max[i]) / 2
	}
	return c
}

// Contains reports whether v lies inside the box (inclusive bounds).
func (s Space) Contains(v []float64) bool {
	if len(v) != len(s.Min) {
		return false
	}
	for i := range v {
		if v[i] < s.Min[i] || v[i] > s.Max[i] {
			return false
		}
	}
	return true
}

// #endregion accessors

// #region operations

// Clip returns a copy of v with every coordinate clamped to the bounds.
func (s Space) Clip(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i]
		if out[i] < s.Min[i] {
			out[i] = s.Min[i]
		}
		if out[i] > s.Max[i] {
			out[i] = s.Max[i]
		}
	}
	return out
}

// Sample draws a uniform point inside the box.
func (s Space) Sample(rng *rand.Rand) []float64 {
	v := make([]float64, len(s.Min))
	for i := range v {
		v[i] = s.Min[i] + rng.Float64()*s.Range(i)
	}
	return v
}

// #endregion operations

// #region distance

// SqDist returns the squared Euclidean distance between a and b.
func SqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b []float64) float64 {
	return math.Sqrt(SqDist(a, b))
}

// #endregion distance
