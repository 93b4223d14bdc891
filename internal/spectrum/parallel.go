package spectrum

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Factory builds an independently-owned circuit instance. Each parallel
// worker constructs its own circuit once, so no mutable state is shared
// between workers and no locking is needed.
type Factory func() (Control, error)

// ParallelEngine runs a flux sweep with one circuit per worker. Workers
// process contiguous chunks of the flux grid and results are merged by
// parameter index, preserving the sequential result contract.
type ParallelEngine struct {
	diag       *Diagonalizer
	numWorkers int
	log        zerolog.Logger
}

// NewParallelEngine creates a parallel sweep engine.
func NewParallelEngine(diag *Diagonalizer, numWorkers int, log zerolog.Logger) *ParallelEngine {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &ParallelEngine{
		diag:       diag,
		numWorkers: numWorkers,
		log:        log.With().Str("component", "parallel_sweep").Logger(),
	}
}

// Sweep runs req across circuits built by factory. Recovery matches the
// sequential engine exactly: a failed point copies the previous point's
// levels and only a failure at the very first grid point fills NaN. Workers
// cannot see the neighboring chunk while running, so chunk-first failures
// are NaN-filled locally and repaired against the merged neighbor below.
func (e *ParallelEngine) Sweep(ctx context.Context, factory Factory, req Request) (*SweepResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, NewValidationError("factory", "must not be nil")
	}

	numWorkers := e.numWorkers
	if req.NPoints < numWorkers {
		numWorkers = req.NPoints
	}

	grid := fluxGrid(req.FluxMin, req.FluxMax, req.NPoints)
	chunks := splitChunks(req.NPoints, numWorkers)

	e.log.Info().
		Int("n_points", req.NPoints).
		Int("workers", numWorkers).
		Msg("Starting parallel flux sweep")

	type chunkResult struct {
		start  int
		points []SpectrumPoint
		err    error
	}

	results := make(chan chunkResult, numWorkers)
	var wg sync.WaitGroup

	for _, c := range chunks {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			circuit, err := factory()
			if err != nil {
				results <- chunkResult{start: start, err: err}
				return
			}

			// Each worker owns its circuit; reuse the sequential
			// single-point logic over the assigned chunk.
			engine := &Engine{diag: e.diag, log: e.log}
			partial := &SweepResult{
				LoopID:     req.LoopID,
				LevelCount: req.LevelCount,
				Points:     make([]SpectrumPoint, end-start),
			}
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					results <- chunkResult{start: start, err: ctx.Err()}
					return
				default:
				}

				point, err := engine.sweepPoint(circuit, req, grid[i])
				if err != nil {
					var confErr *ConfigurationError
					if errors.As(err, &confErr) {
						results <- chunkResult{start: start, err: err}
						return
					}
					point = engine.recoverPoint(partial, i-start, grid[i], req.LevelCount, err)
				}
				partial.Points[i-start] = point
			}
			results <- chunkResult{start: start, points: partial.Points}
		}(c[0], c[1])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := &SweepResult{
		LoopID:     req.LoopID,
		LevelCount: req.LevelCount,
		Points:     make([]SpectrumPoint, req.NPoints),
	}
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		copy(merged.Points[r.start:], r.points)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Re-run the copy-forward policy over the merged grid. Recovered points
	// inside a chunk already hold their predecessor's levels, so recopying
	// is a no-op for them; points recovered at a chunk start pick up the
	// previous worker's last levels instead of the local NaN fill.
	for i := 1; i < len(merged.Points); i++ {
		if !merged.Points[i].Recovered {
			continue
		}
		energies := make([]float64, req.LevelCount)
		copy(energies, merged.Points[i-1].Energies)
		merged.Points[i].Energies = energies
	}

	e.log.Info().Int("n_points", req.NPoints).Msg("Parallel flux sweep completed")
	return merged, nil
}

// splitChunks divides n points into at most workers contiguous [start, end)
// ranges, balanced to within one point.
func splitChunks(n, workers int) [][2]int {
	chunks := make([][2]int, 0, workers)
	base := n / workers
	extra := n % workers
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < extra {
			size++
		}
		if size == 0 {
			continue
		}
		chunks = append(chunks, [2]int{start, start + size})
		start += size
	}
	return chunks
}
