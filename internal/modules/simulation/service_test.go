package simulation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fluxlab/internal/circuit"
	"github.com/aristath/fluxlab/internal/config"
	"github.com/aristath/fluxlab/internal/database"
	"github.com/aristath/fluxlab/internal/spectrum"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "results.db"),
		Name:    "results",
		Profile: database.ProfileStandard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo, err := NewRepository(db.Conn(), log)
	require.NoError(t, err)

	return NewService(repo, config.SimulatorConfig{
		DefaultTruncation: 21,
		MaxTruncation:     200,
		MaxSweepPoints:    1000,
		MaxLevels:         50,
		SweepWorkers:      2,
		RetentionDays:     30,
	}, log)
}

func inverterSpec() circuit.GateSpec {
	return circuit.GateSpec{
		Gate:     "inverter",
		Inverter: &circuit.InverterParams{Ej: 15.0, Ec: 0.3, Flux: 0.0},
	}
}

func TestServiceDiagonalize(t *testing.T) {
	svc := setupTestService(t)

	result, err := svc.Diagonalize(inverterSpec(), 3)
	require.NoError(t, err)

	assert.Equal(t, "inverter", result.Gate)
	require.Len(t, result.Energies, 3)
	assert.Less(t, result.Energies[0], result.Energies[1])
	assert.Less(t, result.Energies[1], result.Energies[2])
}

func TestServiceDiagonalizeValidation(t *testing.T) {
	svc := setupTestService(t)

	var validationErr *spectrum.ValidationError

	_, err := svc.Diagonalize(inverterSpec(), 0)
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.Diagonalize(inverterSpec(), 100)
	require.ErrorAs(t, err, &validationErr)

	spec := inverterSpec()
	spec.Truncation = 500
	_, err = svc.Diagonalize(spec, 3)
	require.ErrorAs(t, err, &validationErr)
}

func TestServiceSweepPersists(t *testing.T) {
	svc := setupTestService(t)

	record, err := svc.Sweep(context.Background(), inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 3,
	})
	require.NoError(t, err)
	require.Len(t, record.Result.Points, 5)
	assert.Empty(t, record.Result.FailedPoints())

	loaded, err := svc.GetSweep(record.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, record.Result.Fluxes(), loaded.Result.Fluxes())

	summaries, err := svc.ListSweeps(10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, record.ID, summaries[0].ID)
}

func TestServiceSweepParallelPath(t *testing.T) {
	svc := setupTestService(t)

	// Enough points to trigger the parallel engine with 2 workers.
	record, err := svc.Sweep(context.Background(), inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 1, NPoints: 16, LevelCount: 2,
	})
	require.NoError(t, err)
	require.Len(t, record.Result.Points, 16)
	assert.Equal(t, 0.0, record.Result.Points[0].Flux)
	assert.Equal(t, 1.0, record.Result.Points[15].Flux)
}

func TestServiceSweepLimits(t *testing.T) {
	svc := setupTestService(t)

	var validationErr *spectrum.ValidationError
	_, err := svc.Sweep(context.Background(), inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 1, NPoints: 5000, LevelCount: 3,
	})
	require.ErrorAs(t, err, &validationErr)
}

func TestServiceAntiCrossing(t *testing.T) {
	svc := setupTestService(t)

	record, err := svc.Sweep(context.Background(), inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 1, NPoints: 11, LevelCount: 2,
	})
	require.NoError(t, err)

	gap, err := svc.AntiCrossing(record.ID, 0, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, gap.Gap, 0.0)
	assert.GreaterOrEqual(t, gap.Index, 0)

	_, err = svc.AntiCrossing("missing-id", 0, 1)
	require.Error(t, err)
}

func TestServiceMetrics(t *testing.T) {
	svc := setupTestService(t)

	result, err := svc.Metrics([]float64{0, 5, 9.5})
	require.NoError(t, err)
	require.NotNil(t, result.Metrics.TransitionFrequency)
	assert.Equal(t, 5.0, *result.Metrics.TransitionFrequency)
	assert.Equal(t, []float64{5, 9.5}, result.Transitions)
}

func TestServiceBackgroundSweep(t *testing.T) {
	svc := setupTestService(t)

	jobID, err := svc.StartSweep(inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 1, NPoints: 5, LevelCount: 2,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ev, ok := svc.JobStatus(jobID)
		return ok && ev.State == JobCompleted
	}, 10*time.Second, 10*time.Millisecond)

	ev, ok := svc.JobStatus(jobID)
	require.True(t, ok)
	assert.NotEmpty(t, ev.SweepID)
	assert.Equal(t, 5, ev.Total)

	stored, err := svc.GetSweep(ev.SweepID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Result.Points, 5)
}

func TestServiceBackgroundSweepValidatesUpfront(t *testing.T) {
	svc := setupTestService(t)

	var validationErr *spectrum.ValidationError
	_, err := svc.StartSweep(inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 2, NPoints: 5, LevelCount: 2,
	})
	require.ErrorAs(t, err, &validationErr)
}

func TestServiceSubscribeJob(t *testing.T) {
	svc := setupTestService(t)

	jobID, err := svc.StartSweep(inverterSpec(), spectrum.Request{
		LoopID: circuit.LoopPrimary, FluxMin: 0, FluxMax: 1, NPoints: 3, LevelCount: 2,
	})
	require.NoError(t, err)

	events, cancel, ok := svc.SubscribeJob(jobID)
	require.True(t, ok)
	defer cancel()

	var last ProgressEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, JobCompleted, last.State)
	assert.NotEmpty(t, last.SweepID)

	_, _, ok = svc.SubscribeJob("missing")
	assert.False(t, ok)
}
