// Package dataset holds the append-only observation store shared by the
// forward and inverse predictors: an arena of (motor, sensory) pairs plus a
// lazily rebuilt kd-tree index per sub-space.
package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// #region errors

// ErrEmptyStore is returned by queries issued before any Add.
var ErrEmptyStore = errors.New("dataset: store is empty")

// #endregion errors

// #region types

// Kind selects which sub-space a nearest-neighbor query projects onto.
type Kind int

const (
	Motor Kind = iota
	Sensory
)

// Point is one recorded (motor, sensory) observation. Immutable once stored.
type Point struct {
	M []float64
	S []float64
}

// Neighbor is one nearest-neighbor result: arena index plus Euclidean
// distance in the queried sub-space.
type Neighbor struct {
	Index int
	Dist  float64
}

// #endregion types

// #region store-struct

// Store is the growing observation arena. Insertion order is temporal order;
// points are addressed by integer index, never by pointer.
type Store struct {
	motorDims   int
	sensoryDims int
	points      []Point
	index       [2]*subIndex
}

// New creates an empty store for the given motor/sensory dimensionalities.
func New(motorDims, sensoryDims int) *Store {
	return &Store{
		motorDims:   motorDims,
		sensoryDims: sensoryDims,
		index:       [2]*subIndex{newSubIndex(), newSubIndex()},
	}
}

// #endregion store-struct

// #region add

// Add appends one observation. Inputs are copied so later caller mutation
// cannot reach the arena. Indexes are invalidated lazily: the stored trees
// keep covering their prefix and the un-indexed tail is scanned exactly at
// query time until the next rebuild trigger.
func (s *Store) Add(m, sv []float64) error {
	if len(m) != s.motorDims || len(sv) != s.sensoryDims {
		return fmt.Errorf("dataset: add with dims (%d,%d), want (%d,%d)",
			len(m), len(sv), s.motorDims, s.sensoryDims)
	}
	p := Point{M: make([]float64, len(m)), S: make([]float64, len(sv))}
	copy(p.M, m)
	copy(p.S, sv)
	s.points = append(s.points, p)
	return nil
}

// #endregion add

// #region accessors

// Len returns the number of stored observations.
func (s *Store) Len() int {
	return len(s.points)
}

// MotorDims returns the motor-space dimensionality.
func (s *Store) MotorDims() int { return s.motorDims }

// SensoryDims returns the sensory-space dimensionality.
func (s *Store) SensoryDims() int { return s.sensoryDims }

// Point returns a copy of observation i.
func (s *Store) Point(i int) Point {
	p := s.points[i]
	out := Point{M: make([]float64, len(p.M)), S: make([]float64, len(p.S))}
	copy(out.M, p.M)
	copy(out.S, p.S)
	return out
}

// proj returns the stored (shared, read-only) projection of point i.
func (s *Store) proj(kind Kind, i int) []float64 {
	if kind == Motor {
		return s.points[i].M
	}
	return s.points[i].S
}

// #endregion accessors

// #region nearest

// Nearest returns the k closest points to query by Euclidean distance in the
// chosen sub-space, ties broken by insertion order (earliest first). k is
// capped at Len(). Returns ErrEmptyStore before the first Add.
func (s *Store) Nearest(kind Kind, query []float64, k int) ([]Neighbor, error) {
	if len(s.points) == 0 {
		return nil, ErrEmptyStore
	}
	wantDims := s.motorDims
	if kind == Sensory {
		wantDims = s.sensoryDims
	}
	if len(query) != wantDims {
		return nil, fmt.Errorf("dataset: query has %d dims, want %d", len(query), wantDims)
	}
	if k < 1 {
		k = 1
	}
	if k > len(s.points) {
		k = len(s.points)
	}

	idx := s.index[kind]
	idx.maybeRebuild(s, kind)

	// Candidates from the indexed prefix.
	cands := idx.nearest(query, k)

	// Exact scan over the un-indexed tail.
	for i := idx.built; i < len(s.points); i++ {
		cands = append(cands, Neighbor{Index: i, Dist: sqDist(query, s.proj(kind, i))})
	}

	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].Dist != cands[b].Dist {
			return cands[a].Dist < cands[b].Dist
		}
		return cands[a].Index < cands[b].Index
	})
	if len(cands) > k {
		cands = cands[:k]
	}
	for i := range cands {
		cands[i].Dist = sqrt(cands[i].Dist)
	}
	return cands, nil
}

// #endregion nearest
