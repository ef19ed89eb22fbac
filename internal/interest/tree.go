package interest

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region tree-config

// SplitMode selects how a leaf chooses its split value.
type SplitMode string

const (
	SplitRandom           SplitMode = "random"
	SplitMedian           SplitMode = "median"
	SplitMiddle           SplitMode = "middle"
	SplitBestInterestDiff SplitMode = "best_interest_diff"
)

// SamplingMode selects how a region is chosen for goal sampling.
type SamplingMode string

const (
	SampleGreedy        SamplingMode = "greedy"
	SampleUniform       SamplingMode = "uniform"
	SampleEpsilonGreedy SamplingMode = "epsilon_greedy"
	SampleSoftmax       SamplingMode = "softmax"
)

// TreeConfig shapes the adaptive region tree.
type TreeConfig struct {
	MaxPointsPerRegion int
	MaxDepth           int
	SplitMode          SplitMode
	ProgressWinSize    int
	SamplingMode       SamplingMode
	Epsilon            float64 // epsilon_greedy exploration rate
	Temperature        float64 // softmax temperature
	Multiscale         bool    // sample among all nodes, not just leaves
	VolumeWeight       bool    // weight region interest by its volume
}

// DefaultTreeConfig returns the stock tree parameters.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		MaxPointsPerRegion: 50,
		MaxDepth:           20,
		SplitMode:          SplitBestInterestDiff,
		ProgressWinSize:    25,
		SamplingMode:       SampleEpsilonGreedy,
		Epsilon:            0.1,
		Temperature:        1.0,
		VolumeWeight:       true,
	}
}

// Validate checks the tree parameters.
func (c TreeConfig) Validate() error {
	if c.MaxPointsPerRegion < 2 {
		return fmt.Errorf("tree config: max_points_per_region must be >= 2, got %d", c.MaxPointsPerRegion)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("tree config: max_depth must be >= 1, got %d", c.MaxDepth)
	}
	switch c.SplitMode {
	case SplitRandom, SplitMedian, SplitMiddle, SplitBestInterestDiff:
	default:
		return fmt.Errorf("tree config: unknown split mode %q", c.SplitMode)
	}
	if c.ProgressWinSize < 2 {
		return fmt.Errorf("tree config: progress_win_size must be >= 2, got %d", c.ProgressWinSize)
	}
	switch c.SamplingMode {
	case SampleGreedy, SampleUniform, SampleSoftmax:
	case SampleEpsilonGreedy:
		if c.Epsilon < 0 || c.Epsilon > 1 {
			return fmt.Errorf("tree config: epsilon must be in [0, 1], got %g", c.Epsilon)
		}
	default:
		return fmt.Errorf("tree config: unknown sampling mode %q", c.SamplingMode)
	}
	if c.SamplingMode == SampleSoftmax && c.Temperature <= 0 {
		return fmt.Errorf("tree config: softmax temperature must be > 0, got %g", c.Temperature)
	}
	return nil
}

// #endregion tree-config

// #region region

// noChild is the arena sentinel for "no child region".
const noChild = -1

// region is one node of the arena. Children are arena indices; a region is
// never destroyed: subdivision keeps the parent as an internal node so
// multiscale sampling can walk ancestors.
type region struct {
	lo, hi   []float64
	depth    int
	splitDim int
	splitVal float64
	children [2]int
	points   []int // indices into Tree.samples routed through this region
	window   progressWindow
}

func (r *region) leaf() bool {
	return r.children[0] == noChild
}

func (r *region) volume() float64 {
	v := 1.0
	for d := range r.lo {
		v *= r.hi[d] - r.lo[d]
	}
	return v
}

// #endregion region

// #region tree

// Tree is the adaptive-partition progress interest model: goals route down
// an axis-aligned region tree whose leaves split when over-full, and
// sampling favors regions whose competence is changing fastest.
type Tree struct {
	space   space.Space
	config  TreeConfig
	measure Measure
	rng     *rand.Rand

	samples []treeSample
	regions []region
}

type treeSample struct {
	x []float64
	c float64
}

// NewTree creates an adaptive-tree interest model with a single root region
// covering the full bounds.
func NewTree(sp space.Space, config TreeConfig, measure Measure, seed int64) (*Tree, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &Tree{
		space:   sp,
		config:  config,
		measure: measure,
		rng:     rand.New(rand.NewSource(seed)),
	}
	t.regions = append(t.regions, region{
		lo:       append([]float64(nil), sp.Min...),
		hi:       append([]float64(nil), sp.Max...),
		children: [2]int{noChild, noChild},
		window:   newProgressWindow(config.ProgressWinSize),
	})
	return t, nil
}

// Len returns the number of recorded updates.
func (t *Tree) Len() int {
	return len(t.samples)
}

// #endregion tree

// #region update

// Update routes the outcome down the tree, appending the clamped competence
// to every region on the path, and splits the owning leaf when it exceeds
// the per-region point budget.
func (t *Tree) Update(goal, reached []float64, competence float64) {
	c := t.measure.Clamp(competence)
	x := t.space.Clip(goal)
	idx := len(t.samples)
	t.samples = append(t.samples, treeSample{x: x, c: c})

	node := 0
	for {
		r := &t.regions[node]
		r.points = append(r.points, idx)
		r.window.push(c)
		if r.leaf() {
			if err := t.maybeSplit(node); err != nil {
				log.Printf("[TREE] %v", err)
			}
			return
		}
		if x[r.splitDim] < r.splitVal {
			node = r.children[0]
		} else {
			node = r.children[1]
		}
	}
}

// #endregion update

// #region split

// maybeSplit splits leaf node when over-full. The split axis starts at the
// round-robin choice (depth mod dims) and advances past axes with fewer than
// two distinct point values; when every axis is degenerate the split is
// deferred (ErrDegenerateRegion).
func (t *Tree) maybeSplit(node int) error {
	r := &t.regions[node]
	if len(r.points) <= t.config.MaxPointsPerRegion || r.depth >= t.config.MaxDepth {
		return nil
	}
	dims := t.space.Dims()
	axis := -1
	for off := 0; off < dims; off++ {
		cand := (r.depth + off) % dims
		if t.distinctOnAxis(r.points, cand) >= 2 {
			axis = cand
			break
		}
	}
	if axis < 0 {
		return fmt.Errorf("%w: node %d with %d points", ErrDegenerateRegion, node, len(r.points))
	}

	val := t.splitValue(r, axis)

	lo0 := append([]float64(nil), r.lo...)
	hi0 := append([]float64(nil), r.hi...)
	hi0[axis] = val
	lo1 := append([]float64(nil), r.lo...)
	hi1 := append([]float64(nil), r.hi...)
	lo1[axis] = val

	child0 := region{lo: lo0, hi: hi0, depth: r.depth + 1, children: [2]int{noChild, noChild}, window: newProgressWindow(t.config.ProgressWinSize)}
	child1 := region{lo: lo1, hi: hi1, depth: r.depth + 1, children: [2]int{noChild, noChild}, window: newProgressWindow(t.config.ProgressWinSize)}

	// Partition the parent's points; windows replay competences in temporal
	// order.
	for _, i := range r.points {
		s := t.samples[i]
		if s.x[axis] < val {
			child0.points = append(child0.points, i)
			child0.window.push(s.c)
		} else {
			child1.points = append(child1.points, i)
			child1.window.push(s.c)
		}
	}

	i0 := len(t.regions)
	t.regions = append(t.regions, child0, child1)
	r = &t.regions[node] // re-take: append may have moved the backing array
	r.splitDim = axis
	r.splitVal = val
	r.children = [2]int{i0, i0 + 1}
	return nil
}

// distinctOnAxis counts distinct point coordinates on the axis, capped at 2.
func (t *Tree) distinctOnAxis(points []int, axis int) int {
	if len(points) == 0 {
		return 0
	}
	first := t.samples[points[0]].x[axis]
	for _, i := range points[1:] {
		if t.samples[i].x[axis] != first {
			return 2
		}
	}
	return 1
}

// splitValue picks the split coordinate per the configured policy. The
// caller guarantees at least two distinct values on the axis.
func (t *Tree) splitValue(r *region, axis int) float64 {
	vals := make([]float64, len(r.points))
	for i, p := range r.points {
		vals[i] = t.samples[p].x[axis]
	}
	minV, maxV := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	switch t.config.SplitMode {
	case SplitRandom:
		return minV + t.rng.Float64()*(maxV-minV)
	case SplitMiddle:
		return (r.lo[axis] + r.hi[axis]) / 2
	case SplitMedian:
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		med := sorted[len(sorted)/2]
		if med <= minV || med >= maxV {
			return (minV + maxV) / 2
		}
		return med
	default: // SplitBestInterestDiff
		return t.bestInterestSplit(r, axis, minV, maxV)
	}
}

// maxSplitCandidates caps the candidate values scored by best_interest_diff.
const maxSplitCandidates = 16

// bestInterestSplit searches candidate split values for the one maximizing
// the absolute difference between the two subregions' progress estimates.
func (t *Tree) bestInterestSplit(r *region, axis int, minV, maxV float64) float64 {
	sorted := make([]float64, len(r.points))
	for i, p := range r.points {
		sorted[i] = t.samples[p].x[axis]
	}
	sort.Float64s(sorted)

	var candidates []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			candidates = append(candidates, (sorted[i]+sorted[i-1])/2)
		}
	}
	if len(candidates) == 0 {
		return (minV + maxV) / 2
	}
	if len(candidates) > maxSplitCandidates {
		step := float64(len(candidates)) / maxSplitCandidates
		picked := make([]float64, 0, maxSplitCandidates)
		for i := 0; i < maxSplitCandidates; i++ {
			picked = append(picked, candidates[int(float64(i)*step)])
		}
		candidates = picked
	}

	best := candidates[0]
	bestScore := -1.0
	for _, v := range candidates {
		left := newProgressWindow(t.config.ProgressWinSize)
		right := newProgressWindow(t.config.ProgressWinSize)
		for _, p := range r.points {
			s := t.samples[p]
			if s.x[axis] < v {
				left.push(s.c)
			} else {
				right.push(s.c)
			}
		}
		pl, _ := left.progress()
		pr, _ := right.progress()
		if score := math.Abs(pl - pr); score > bestScore {
			bestScore = score
			best = v
		}
	}
	return best
}

// #endregion split

// #region sample

// Sample selects a region by progress under the configured sampling mode,
// then draws uniformly within its box. Leaf-only unless multiscale is
// enabled. Before any data exists this degenerates to a uniform draw within
// the root box.
func (t *Tree) Sample() []float64 {
	cands := t.candidates()
	weights := t.sampleWeights(cands)

	var pick int
	switch t.config.SamplingMode {
	case SampleUniform:
		pick = t.rng.Intn(len(cands))
	case SampleGreedy:
		pick = argmax(weights)
	case SampleEpsilonGreedy:
		if t.rng.Float64() < t.config.Epsilon {
			pick = t.rng.Intn(len(cands))
		} else {
			pick = argmax(weights)
		}
	default: // SampleSoftmax
		soft := make([]float64, len(weights))
		maxW := weights[argmax(weights)]
		for i, w := range weights {
			soft[i] = math.Exp((w - maxW) / t.config.Temperature)
		}
		pick = weightedChoice(t.rng, soft)
	}

	r := &t.regions[cands[pick]]
	out := make([]float64, t.space.Dims())
	for d := range out {
		out[d] = r.lo[d] + t.rng.Float64()*(r.hi[d]-r.lo[d])
	}
	return out
}

// candidates lists the sampleable regions: leaves only, or every node when
// multiscale sampling is on.
func (t *Tree) candidates() []int {
	out := make([]int, 0, len(t.regions))
	for i := range t.regions {
		if t.config.Multiscale || t.regions[i].leaf() {
			out = append(out, i)
		}
	}
	return out
}

// sampleWeights scores each candidate: its progress estimate, with regions
// lacking history inheriting the current maximum (optimistic bootstrap),
// optionally scaled by region volume.
func (t *Tree) sampleWeights(cands []int) []float64 {
	maxProgress := 0.0
	for _, idx := range cands {
		if p, ok := t.regions[idx].window.progress(); ok && p > maxProgress {
			maxProgress = p
		}
	}
	weights := make([]float64, len(cands))
	for i, idx := range cands {
		r := &t.regions[idx]
		p, ok := r.window.progress()
		if !ok {
			p = maxProgress
		}
		if p < bootstrapFloor {
			p = bootstrapFloor
		}
		if t.config.VolumeWeight {
			p *= r.volume()
		}
		weights[i] = p
	}
	return weights
}

func argmax(weights []float64) int {
	best := 0
	for i, w := range weights {
		if w > weights[best] {
			best = i
		}
	}
	return best
}

// #endregion sample

// #region introspection

// RegionInfo is a read-only snapshot of one arena node, for tests, logging,
// and the trial-log summary.
type RegionInfo struct {
	Lo, Hi   []float64
	Depth    int
	Leaf     bool
	Points   int
	Children [2]int
	SplitDim int
	SplitVal float64
}

// Regions snapshots the arena. Index 0 is the root; child indices refer into
// the returned slice.
func (t *Tree) Regions() []RegionInfo {
	out := make([]RegionInfo, len(t.regions))
	for i := range t.regions {
		r := &t.regions[i]
		out[i] = RegionInfo{
			Lo:       append([]float64(nil), r.lo...),
			Hi:       append([]float64(nil), r.hi...),
			Depth:    r.depth,
			Leaf:     r.leaf(),
			Points:   len(r.points),
			Children: r.children,
			SplitDim: r.splitDim,
			SplitVal: r.splitVal,
		}
	}
	return out
}

// #endregion introspection
