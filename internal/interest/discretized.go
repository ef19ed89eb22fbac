package interest

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region discretized-config

// DiscretizedConfig shapes the fixed-grid progress model. XCard is the total
// cell budget: cells-per-dimension is floor(x_card^(1/dims)), minimum 1.
type DiscretizedConfig struct {
	XCard   int
	WinSize int
}

// DefaultDiscretizedConfig returns the stock grid parameters.
func DefaultDiscretizedConfig() DiscretizedConfig {
	return DiscretizedConfig{XCard: 100, WinSize: 10}
}

// Validate checks the grid parameters.
func (c DiscretizedConfig) Validate() error {
	if c.XCard < 1 {
		return fmt.Errorf("discretized config: x_card must be >= 1, got %d", c.XCard)
	}
	if c.WinSize < 2 {
		return fmt.Errorf("discretized config: win_size must be >= 2, got %d", c.WinSize)
	}
	return nil
}

// #endregion discretized-config

// #region discretized

// Discretized partitions the interest space into a fixed grid of
// equal-volume cells and samples cells in proportion to their competence
// progress. Cells with fewer than two observations inherit the current
// maximum interest so they are explored first.
type Discretized struct {
	space   space.Space
	config  DiscretizedConfig
	measure Measure
	rng     *rand.Rand

	cellsPerDim int
	cells       []progressWindow
}

// NewDiscretized creates a fixed-grid progress interest model.
func NewDiscretized(sp space.Space, config DiscretizedConfig, measure Measure, seed int64) (*Discretized, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	dims := sp.Dims()
	// Pow can land just under an exact integer root (1000^(1/3) = 9.999...),
	// so nudge before flooring.
	cpd := int(math.Floor(math.Pow(float64(config.XCard), 1/float64(dims)) + 1e-9))
	if cpd < 1 {
		cpd = 1
	}
	total := 1
	for d := 0; d < dims; d++ {
		total *= cpd
	}
	cells := make([]progressWindow, total)
	for i := range cells {
		cells[i] = newProgressWindow(config.WinSize)
	}
	return &Discretized{
		space:       sp,
		config:      config,
		measure:     measure,
		rng:         rand.New(rand.NewSource(seed)),
		cellsPerDim: cpd,
		cells:       cells,
	}, nil
}

// Sample picks a cell in proportion to interest, then draws uniformly within
// it.
func (m *Discretized) Sample() []float64 {
	weights := make([]float64, len(m.cells))
	maxInterest := 0.0
	for i := range m.cells {
		if p, ok := m.cells[i].progress(); ok && p > maxInterest {
			maxInterest = p
		}
	}
	for i := range m.cells {
		if p, ok := m.cells[i].progress(); ok {
			weights[i] = p
		} else {
			weights[i] = maxInterest
		}
		if weights[i] < bootstrapFloor {
			weights[i] = bootstrapFloor
		}
	}
	cell := weightedChoice(m.rng, weights)
	lo, hi := m.cellBounds(cell)
	out := make([]float64, m.space.Dims())
	for d := range out {
		out[d] = lo[d] + m.rng.Float64()*(hi[d]-lo[d])
	}
	return out
}

// Update routes the clamped competence to the goal's cell.
func (m *Discretized) Update(goal, reached []float64, competence float64) {
	c := m.measure.Clamp(competence)
	m.cells[m.cellOf(m.space.Clip(goal))].push(c)
}

// #endregion discretized

// #region grid-geometry

// cellOf maps a point (already clipped into bounds) to its flat cell index.
func (m *Discretized) cellOf(g []float64) int {
	idx := 0
	stride := 1
	for d := 0; d < m.space.Dims(); d++ {
		coord := int(float64(m.cellsPerDim) * (g[d] - m.space.Min[d]) / m.space.Range(d))
		if coord >= m.cellsPerDim {
			coord = m.cellsPerDim - 1
		}
		if coord < 0 {
			coord = 0
		}
		idx += coord * stride
		stride *= m.cellsPerDim
	}
	return idx
}

// cellBounds returns the box of one flat cell index.
func (m *Discretized) cellBounds(idx int) (lo, hi []float64) {
	dims := m.space.Dims()
	lo = make([]float64, dims)
	hi = make([]float64, dims)
	for d := 0; d < dims; d++ {
		coord := idx % m.cellsPerDim
		idx /= m.cellsPerDim
		w := m.space.Range(d) / float64(m.cellsPerDim)
		lo[d] = m.space.Min[d] + float64(coord)*w
		hi[d] = lo[d] + w
	}
	return lo, hi
}

// #endregion grid-geometry

// #region progress-window

// progressWindow is a bounded FIFO of recent competence values with the
// half-window finite-difference progress estimate.
type progressWindow struct {
	size   int
	values []float64
}

func newProgressWindow(size int) progressWindow {
	return progressWindow{size: size}
}

func (w *progressWindow) push(c float64) {
	w.values = append(w.values, c)
	if len(w.values) > w.size {
		w.values = w.values[1:]
	}
}

func (w *progressWindow) len() int {
	return len(w.values)
}

// progress is |mean(second half) - mean(first half)|, defined only once two
// observations exist. Always >= 0.
func (w *progressWindow) progress() (float64, bool) {
	n := len(w.values)
	if n < 2 {
		return 0, false
	}
	half := n / 2
	first := mean(w.values[:half])
	second := mean(w.values[n-half:])
	return math.Abs(second - first), true
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// weightedChoice draws an index in proportion to non-negative weights.
// Falls back to uniform when the total weight is zero.
func weightedChoice(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(weights) - 1
}

// #endregion progress-window
