package triallog

import (
	"fmt"
	"math"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region region-stat

// RegionStat is the decay-weighted competence of one goal-space grid cell.
type RegionStat struct {
	Cell       int
	Count      int
	Competence float64 // decay-weighted mean
}

// #endregion region-stat

// #region competence-by-region

// CompetenceByRegion buckets a session's goals into a fixed grid over the
// goal space and returns the decay-weighted mean competence per occupied
// cell. Recent trials dominate: each trial's weight is exp(-ln2 * age /
// halfLife) with age measured in trials. Cells with fewer than 3 trials are
// omitted, matching the minimum-sample rule used elsewhere for scores.
func (s *Store) CompetenceByRegion(sessionID string, sp space.Space, cellsPerDim int, halfLife float64) ([]RegionStat, error) {
	if cellsPerDim < 1 {
		return nil, fmt.Errorf("competence by region: cells_per_dim must be >= 1, got %d", cellsPerDim)
	}
	if halfLife <= 0 {
		return nil, fmt.Errorf("competence by region: half_life must be > 0, got %g", halfLife)
	}
	trials, err := s.SessionTrials(sessionID)
	if err != nil {
		return nil, err
	}

	type cellAccum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}
	accum := make(map[int]*cellAccum)

	latest := 0
	for _, t := range trials {
		if t.Num > latest {
			latest = t.Num
		}
	}
	for _, t := range trials {
		if len(t.Goal) != sp.Dims() {
			continue
		}
		age := float64(latest - t.Num)
		weight := math.Exp(-math.Ln2 * age / halfLife)

		cell := cellOf(sp, cellsPerDim, t.Goal)
		if _, ok := accum[cell]; !ok {
			accum[cell] = &cellAccum{}
		}
		accum[cell].weightedSum += t.Competence * weight
		accum[cell].totalWeight += weight
		accum[cell].count++
	}

	var stats []RegionStat
	for cell, a := range accum {
		if a.count < 3 {
			continue
		}
		stats = append(stats, RegionStat{
			Cell:       cell,
			Count:      a.count,
			Competence: a.weightedSum / a.totalWeight,
		})
	}
	return stats, nil
}

// cellOf maps a goal to its flat grid cell, clipping out-of-bounds goals to
// the boundary cells.
func cellOf(sp space.Space, cellsPerDim int, g []float64) int {
	idx := 0
	stride := 1
	for d := 0; d < sp.Dims(); d++ {
		coord := int(float64(cellsPerDim) * (g[d] - sp.Min[d]) / sp.Range(d))
		if coord >= cellsPerDim {
			coord = cellsPerDim - 1
		}
		if coord < 0 {
			coord = 0
		}
		idx += coord * stride
		stride *= cellsPerDim
	}
	return idx
}

// #endregion competence-by-region
