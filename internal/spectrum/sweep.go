package spectrum

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/fluxlab/internal/progress"
)

// Control is the circuit capability the sweep engine drives: set the flux of
// a named loop, rebuild the Hamiltonian, expose it for diagonalization. The
// engine borrows the circuit for the duration of a sweep and never owns it.
type Control interface {
	// SetFlux sets the external flux of the loop with the given stable ID,
	// in units of one flux quantum.
	SetFlux(loopID string, value float64) error
	// Rebuild reconstructs the Hamiltonian from the current parameters.
	Rebuild() error
	// Hamiltonian returns the current Hamiltonian matrix.
	Hamiltonian() (mat.Symmetric, error)
}

// Request describes one flux sweep.
type Request struct {
	LoopID     string  `json:"loop_id"`
	FluxMin    float64 `json:"flux_min"`
	FluxMax    float64 `json:"flux_max"`
	NPoints    int     `json:"n_points"`
	LevelCount int     `json:"level_count"`
}

// Validate checks the request before any computation starts.
func (r Request) Validate() error {
	if r.LoopID == "" {
		return NewValidationError("loop_id", "must not be empty")
	}
	if r.FluxMin < 0 || r.FluxMax > 1 {
		return NewValidationError("flux_range", "[%g, %g] must lie within [0, 1] flux quanta", r.FluxMin, r.FluxMax)
	}
	if r.FluxMin >= r.FluxMax {
		return NewValidationError("flux_range", "min %g must be strictly below max %g", r.FluxMin, r.FluxMax)
	}
	if r.NPoints < 1 {
		return NewValidationError("n_points", "must be at least 1, got %d", r.NPoints)
	}
	if r.LevelCount < 1 {
		return NewValidationError("level_count", "must be at least 1, got %d", r.LevelCount)
	}
	return nil
}

// Engine sweeps the external flux of a circuit across a range, diagonalizing
// at every sample and assembling an ordered energy table.
//
// The sweep is intentionally sequential: every point mutates shared state on
// the circuit (the flux loop), so concurrent diagonalization against the same
// handle would race. ParallelSweep covers the one-circuit-per-worker case.
type Engine struct {
	diag     *Diagonalizer
	log      zerolog.Logger
	progress progress.Callback
}

// NewEngine creates a sweep engine.
func NewEngine(diag *Diagonalizer, log zerolog.Logger) *Engine {
	return &Engine{
		diag: diag,
		log:  log.With().Str("component", "sweep_engine").Logger(),
	}
}

// SetProgressCallback installs an observer invoked after every completed
// point. A nil callback disables reporting.
func (e *Engine) SetProgressCallback(cb progress.Callback) {
	e.progress = cb
}

// Sweep runs the flux sweep described by req against the given circuit.
//
// The returned result always holds exactly req.NPoints entries on the even
// flux grid over [FluxMin, FluxMax], each with req.LevelCount energy slots.
// A point whose diagonalization fails is filled with the previous point's
// levels (energies vary continuously in flux, so last-known-good is a
// defensible local approximation), or with NaN markers when the first point
// fails. Per-point failures never abort the sweep; configuration errors
// (unknown loop) and context cancellation do.
func (e *Engine) Sweep(ctx context.Context, circuit Control, req Request) (*SweepResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if circuit == nil {
		return nil, NewValidationError("circuit", "must not be nil")
	}

	grid := fluxGrid(req.FluxMin, req.FluxMax, req.NPoints)
	result := &SweepResult{
		LoopID:     req.LoopID,
		LevelCount: req.LevelCount,
		Points:     make([]SpectrumPoint, req.NPoints),
	}

	e.log.Info().
		Str("loop", req.LoopID).
		Float64("flux_min", req.FluxMin).
		Float64("flux_max", req.FluxMax).
		Int("n_points", req.NPoints).
		Int("levels", req.LevelCount).
		Msg("Starting flux sweep")

	for i, flux := range grid {
		// Cancellation is cooperative: checked between points because a
		// diagonalization cannot be interrupted mid-call.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		point, err := e.sweepPoint(circuit, req, flux)
		if err != nil {
			// A structurally unusable circuit cannot recover.
			var confErr *ConfigurationError
			if errors.As(err, &confErr) {
				return nil, err
			}
			result.Points[i] = e.recoverPoint(result, i, flux, req.LevelCount, err)
		} else {
			result.Points[i] = point
		}

		progress.Call(e.progress, i+1, req.NPoints, "flux sweep")
	}

	if failed := result.FailedPoints(); len(failed) > 0 {
		e.log.Warn().
			Int("failed_points", len(failed)).
			Floats64("flux_values", failed).
			Msg("Flux sweep completed with recovered points")
	} else {
		e.log.Info().Int("n_points", req.NPoints).Msg("Flux sweep completed")
	}

	return result, nil
}

// sweepPoint evaluates a single flux sample: set flux, rebuild, diagonalize.
func (e *Engine) sweepPoint(circuit Control, req Request, flux float64) (SpectrumPoint, error) {
	if err := circuit.SetFlux(req.LoopID, flux); err != nil {
		return SpectrumPoint{}, err
	}
	if err := circuit.Rebuild(); err != nil {
		return SpectrumPoint{}, err
	}
	h, err := circuit.Hamiltonian()
	if err != nil {
		return SpectrumPoint{}, err
	}

	// Diagonalize returns exactly req.LevelCount energies or an error, so
	// every successful point carries a full level table.
	energies, states, err := e.diag.Diagonalize(h, req.LevelCount)
	if err != nil {
		return SpectrumPoint{}, err
	}

	return SpectrumPoint{Flux: flux, Energies: energies, States: states}, nil
}

// recoverPoint applies the per-point failure policy: copy the previous
// point's levels forward, or fill with NaN when no previous point exists.
func (e *Engine) recoverPoint(result *SweepResult, i int, flux float64, levelCount int, cause error) SpectrumPoint {
	e.log.Warn().
		Err(cause).
		Float64("flux", flux).
		Int("point", i).
		Msg("Diagonalization failed at flux point, applying recovery")

	point := SpectrumPoint{Flux: flux, Recovered: true}
	if i > 0 {
		point.Energies = make([]float64, levelCount)
		copy(point.Energies, result.Points[i-1].Energies)
	} else {
		point.Energies = nanLevels(levelCount)
	}
	return point
}
