package spectrum

import "math"

// FindMinGap locates the avoided crossing between two levels of a sweep: the
// point where |E_b - E_a| is smallest, the design's proxy for the effective
// coupling strength between the two underlying states.
//
// Ties resolve to the first occurrence in parameter order. Points whose
// levels are NaN (first-point recovery fills) never win. Pure function of the
// sweep result.
func FindMinGap(result *SweepResult, levelA, levelB int) (MinGap, error) {
	if result == nil || len(result.Points) == 0 {
		return MinGap{}, NewValidationError("sweep_result", "must contain at least one point")
	}
	if levelA < 0 || levelA >= result.LevelCount {
		return MinGap{}, NewValidationError("level_a", "index %d out of range (have %d levels)", levelA, result.LevelCount)
	}
	if levelB < 0 || levelB >= result.LevelCount {
		return MinGap{}, NewValidationError("level_b", "index %d out of range (have %d levels)", levelB, result.LevelCount)
	}

	best := MinGap{Gap: math.Inf(1), Index: -1}
	for i, p := range result.Points {
		gap := math.Abs(p.Energies[levelB] - p.Energies[levelA])
		// NaN comparisons are false, so NaN-filled points are skipped here.
		if gap < best.Gap {
			best = MinGap{Gap: gap, Flux: p.Flux, Index: i}
		}
	}

	if best.Index < 0 {
		return MinGap{}, NewValidationError("sweep_result", "no finite energy gaps (every point failed)")
	}
	return best, nil
}
