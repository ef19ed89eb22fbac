package dataset

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// #region rebuild-policy

// rebuildMinTail is the smallest un-indexed tail that triggers a rebuild.
// Below it, the exact linear tail scan is cheaper than re-balancing.
const rebuildMinTail = 64

// #endregion rebuild-policy

// #region sub-index

// subIndex is the kd-tree over one sub-space projection of the arena prefix
// [0, built). Points appended after the last rebuild are not in the tree;
// Store.Nearest scans them linearly so no query ever misses a point.
type subIndex struct {
	tree  *kdtree.Tree
	built int
}

func newSubIndex() *subIndex {
	return &subIndex{}
}

// maybeRebuild rebuilds the tree when the tail has outgrown the linear-scan
// budget: tail > max(rebuildMinTail, n/8).
func (x *subIndex) maybeRebuild(s *Store, kind Kind) {
	n := len(s.points)
	tail := n - x.built
	threshold := rebuildMinTail
	if n/8 > threshold {
		threshold = n / 8
	}
	if tail <= threshold {
		return
	}
	pts := make(indexedPoints, n)
	for i := 0; i < n; i++ {
		pts[i] = indexedPoint{vec: s.proj(kind, i), id: i}
	}
	x.tree = kdtree.New(pts, false)
	x.built = n
}

// nearest returns the candidate set for a k-neighbor query over the indexed
// prefix, with squared distances. It holds at least the k closest points and
// every point tied with the k-th distance: the NKeeper alone keeps an
// arbitrary k of any equidistant candidates, so a second radius pass collects
// all of them and the caller's ordered merge resolves ties by index. Empty
// when no tree has been built yet.
func (x *subIndex) nearest(query []float64, k int) []Neighbor {
	if x.tree == nil || x.built == 0 {
		return nil
	}
	if k > x.built {
		k = x.built
	}
	q := indexedPoint{vec: query, id: -1}
	keep := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keep, q)
	bound := math.Inf(-1)
	for _, cd := range keep.Heap {
		if math.IsInf(cd.Dist, 1) {
			continue
		}
		if cd.Dist > bound {
			bound = cd.Dist
		}
	}
	if math.IsInf(bound, -1) {
		return nil
	}
	within := kdtree.NewDistKeeper(bound)
	x.tree.NearestSet(within, q)
	out := make([]Neighbor, 0, len(within.Heap))
	for _, cd := range within.Heap {
		ip, ok := cd.Comparable.(indexedPoint)
		if !ok {
			continue
		}
		out = append(out, Neighbor{Index: ip.id, Dist: cd.Dist})
	}
	return out
}

// #endregion sub-index

// #region kdtree-adapters

// indexedPoint is a sub-space projection tagged with its arena index.
type indexedPoint struct {
	vec []float64
	id  int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.vec[d] - c.(indexedPoint).vec[d]
}

func (p indexedPoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance, matching the kd-tree's
// pruning expectations.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return sqDist(p.vec, c.(indexedPoint).vec)
}

// indexedPoints implements kdtree.Interface over a projection snapshot.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	plane := pointPlane{dim: d, pts: p}
	return kdtree.Partition(plane, kdtree.MedianOfMedians(plane))
}

// pointPlane sorts indexedPoints along one dimension for pivoting.
type pointPlane struct {
	dim kdtree.Dim
	pts indexedPoints
}

func (p pointPlane) Len() int { return len(p.pts) }
func (p pointPlane) Less(i, j int) bool {
	return p.pts[i].vec[p.dim] < p.pts[j].vec[p.dim]
}
func (p pointPlane) Swap(i, j int) {
	p.pts[i], p.pts[j] = p.pts[j], p.pts[i]
}
func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{dim: p.dim, pts: p.pts[start:end]}
}

// #endregion kdtree-adapters

// #region helpers

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func sqrt(v float64) float64 {
	return math.Sqrt(v)
}

// #endregion helpers
