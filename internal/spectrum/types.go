package spectrum

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SpectrumPoint is one diagonalization result inside a sweep: the flux value
// that produced it plus the ascending energy levels in GHz. States holds the
// corresponding eigenvectors (one per column); it is nil for points filled in
// by the recovery policy and is not persisted.
type SpectrumPoint struct {
	Flux     float64   `json:"flux"`
	Energies []float64 `json:"energies"`
	States   *mat.Dense `json:"-"`
	// Recovered marks points whose energies were substituted by the
	// failure-recovery policy (copied forward or NaN-filled).
	Recovered bool `json:"recovered,omitempty"`
}

// SweepResult is the ordered outcome of a flux sweep: exactly one point per
// sampled flux value, monotonically increasing in flux. Failed points are
// filled by the recovery policy, never dropped, so len(Points) always equals
// the requested point count.
type SweepResult struct {
	LoopID     string          `json:"loop_id"`
	LevelCount int             `json:"level_count"`
	Points     []SpectrumPoint `json:"points"`
}

// Fluxes returns the flux grid of the sweep.
func (r *SweepResult) Fluxes() []float64 {
	fluxes := make([]float64, len(r.Points))
	for i, p := range r.Points {
		fluxes[i] = p.Flux
	}
	return fluxes
}

// Level returns the energy of one level across all sweep points.
func (r *SweepResult) Level(level int) ([]float64, error) {
	if level < 0 || level >= r.LevelCount {
		return nil, NewValidationError("level", "index %d out of range (have %d levels)", level, r.LevelCount)
	}
	energies := make([]float64, len(r.Points))
	for i, p := range r.Points {
		energies[i] = p.Energies[level]
	}
	return energies, nil
}

// FailedPoints returns the flux values whose energies came from the recovery
// policy rather than a successful diagonalization.
func (r *SweepResult) FailedPoints() []float64 {
	var failed []float64
	for _, p := range r.Points {
		if p.Recovered {
			failed = append(failed, p.Flux)
		}
	}
	return failed
}

// GateMetrics is a derived read-only snapshot of gate figures of merit
// computed from a single eigenvalue sequence. Optional fields are nil when
// the sequence is too short to define them; absent is not zero.
type GateMetrics struct {
	GroundStateEnergy   float64  `json:"ground_state_energy"`
	FirstExcitedEnergy  *float64 `json:"first_excited_energy,omitempty"`
	TransitionFrequency *float64 `json:"transition_frequency,omitempty"`
	Anharmonicity       *float64 `json:"anharmonicity,omitempty"`
}

// MinGap locates the avoided level-crossing found by FindMinGap: the smallest
// absolute energy difference between two levels, the flux value at which it
// occurs and its index on the sweep grid.
type MinGap struct {
	Gap   float64 `json:"gap"`
	Flux  float64 `json:"flux"`
	Index int     `json:"index"`
}

// fluxGrid returns n evenly spaced samples over [lo, hi] inclusive of both
// ends. A single point collapses to lo.
func fluxGrid(lo, hi float64, n int) []float64 {
	grid := make([]float64, n)
	if n == 1 {
		grid[0] = lo
		return grid
	}
	step := (hi - lo) / float64(n-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	// Guard against accumulated rounding on the last sample
	grid[n-1] = hi
	return grid
}

// nanLevels returns a level slice with every entry set to NaN.
func nanLevels(count int) []float64 {
	levels := make([]float64, count)
	for i := range levels {
		levels[i] = math.NaN()
	}
	return levels
}
