package spectrum

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fakeCircuit is a minimal Control whose spectrum is analytically known:
// eigenvalues at flux f are {f, f+1}. Failures are injected per flux value.
type fakeCircuit struct {
	loopID string
	flux   float64
	failAt map[float64]bool
	calls  int
}

func newFakeCircuit() *fakeCircuit {
	return &fakeCircuit{loopID: "loop1", failAt: map[float64]bool{}}
}

func (c *fakeCircuit) SetFlux(loopID string, value float64) error {
	c.calls++
	if loopID != c.loopID {
		return NewConfigurationError("unknown loop %q", loopID)
	}
	c.flux = value
	return nil
}

func (c *fakeCircuit) Rebuild() error {
	if c.failAt[c.flux] {
		return &DiagonalizationError{Message: "injected failure"}
	}
	return nil
}

func (c *fakeCircuit) Hamiltonian() (mat.Symmetric, error) {
	return mat.NewSymDense(2, []float64{
		c.flux, 0,
		0, c.flux + 1,
	}), nil
}

func newTestEngine() *Engine {
	return NewEngine(NewDiagonalizer(testLogger()), testLogger())
}

func TestSweepEvenGridInclusive(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()

	result, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1.0}, result.Fluxes())
	require.Len(t, result.Points, 5)

	for _, p := range result.Points {
		require.Len(t, p.Energies, 2)
		assert.InDelta(t, p.Flux, p.Energies[0], 1e-12)
		assert.InDelta(t, p.Flux+1, p.Energies[1], 1e-12)
		assert.False(t, p.Recovered)
	}
}

func TestSweepSinglePoint(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()

	result, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "loop1", FluxMin: 0.3, FluxMax: 0.7, NPoints: 1, LevelCount: 1,
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 1)
	assert.Equal(t, 0.3, result.Points[0].Flux)
}

func TestSweepRecoveryCopiesPreviousPoint(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()
	circuit.failAt[0.5] = true

	result, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 5)

	// The failed point carries the previous point's levels, flagged.
	failed := result.Points[2]
	assert.True(t, failed.Recovered)
	assert.Equal(t, result.Points[1].Energies, failed.Energies)
	assert.Equal(t, 0.5, failed.Flux)

	// The sweep resumes normally afterwards.
	assert.False(t, result.Points[3].Recovered)
	assert.InDelta(t, 0.75, result.Points[3].Energies[0], 1e-12)

	assert.Equal(t, []float64{0.5}, result.FailedPoints())
}

func TestSweepFirstPointFailureFillsNaN(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()
	circuit.failAt[0.0] = true

	result, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 3, LevelCount: 2,
	})
	require.NoError(t, err)

	first := result.Points[0]
	assert.True(t, first.Recovered)
	for _, e := range first.Energies {
		assert.True(t, math.IsNaN(e))
	}

	// Later points are unaffected.
	assert.False(t, result.Points[1].Recovered)
	assert.InDelta(t, 0.5, result.Points[1].Energies[0], 1e-12)
}

func TestSweepAllPointsFail(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()
	for _, f := range []float64{0, 0.5, 1} {
		circuit.failAt[f] = true
	}

	result, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 3, LevelCount: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Points, 3)

	// NaN propagates through copy-forward recovery.
	for _, p := range result.Points {
		assert.True(t, p.Recovered)
		for _, e := range p.Energies {
			assert.True(t, math.IsNaN(e))
		}
	}
}

func TestSweepValidationFailFast(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()

	var validationErr *ValidationError

	cases := []Request{
		{LoopID: "", FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 2},
		{LoopID: "loop1", FluxMin: -0.1, FluxMax: 1, NPoints: 5, LevelCount: 2},
		{LoopID: "loop1", FluxMin: 0, FluxMax: 1.5, NPoints: 5, LevelCount: 2},
		{LoopID: "loop1", FluxMin: 0.8, FluxMax: 0.2, NPoints: 5, LevelCount: 2},
		{LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 0, LevelCount: 2},
		{LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 0},
	}
	for _, req := range cases {
		_, err := engine.Sweep(context.Background(), circuit, req)
		require.ErrorAs(t, err, &validationErr)
	}

	// No circuit work happened before validation.
	assert.Equal(t, 0, circuit.calls)
}

func TestSweepConfigurationErrorAborts(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()

	_, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "no_such_loop", FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 2,
	})
	require.Error(t, err)

	var confErr *ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestSweepContextCancellation(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Sweep(ctx, circuit, Request{
		LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 100, LevelCount: 2,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweepProgressCallback(t *testing.T) {
	engine := newTestEngine()
	circuit := newFakeCircuit()

	var seen []int
	total := 0
	engine.SetProgressCallback(func(current, totalPoints int, message string) {
		seen = append(seen, current)
		total = totalPoints
	})

	_, err := engine.Sweep(context.Background(), circuit, Request{
		LoopID: "loop1", FluxMin: 0, FluxMax: 1, NPoints: 4, LevelCount: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, seen)
	assert.Equal(t, 4, total)
}
