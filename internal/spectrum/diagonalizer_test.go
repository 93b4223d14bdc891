package spectrum

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestDiagonalizeAscendingOrder(t *testing.T) {
	d := NewDiagonalizer(testLogger())

	// Diagonal matrix with shuffled entries: eigenvalues are the entries,
	// which must come back sorted ascending.
	h := mat.NewSymDense(3, []float64{
		3, 0, 0,
		0, 1, 0,
		0, 0, 2,
	})

	energies, states, err := d.Diagonalize(h, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, energies)

	rows, cols := states.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
}

func TestDiagonalizeTruncatesLevels(t *testing.T) {
	d := NewDiagonalizer(testLogger())

	h := mat.NewSymDense(4, []float64{
		4, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 3,
	})

	energies, states, err := d.Diagonalize(h, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, energies)

	rows, cols := states.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 2, cols)
}

func TestDiagonalizeKnownSpectrum(t *testing.T) {
	d := NewDiagonalizer(testLogger())

	// [[2,1],[1,2]] has eigenvalues 1 and 3.
	h := mat.NewSymDense(2, []float64{
		2, 1,
		1, 2,
	})

	energies, _, err := d.Diagonalize(h, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, energies[0], 1e-12)
	assert.InDelta(t, 3.0, energies[1], 1e-12)
}

func TestDiagonalizeLevelCountExceedsDimension(t *testing.T) {
	d := NewDiagonalizer(testLogger())

	h := mat.NewSymDense(2, []float64{1, 0, 0, 2})

	_, _, err := d.Diagonalize(h, 5)
	require.Error(t, err)

	var diagErr *DiagonalizationError
	require.ErrorAs(t, err, &diagErr)
	assert.Contains(t, diagErr.Error(), "5 levels")
}

func TestDiagonalizeInvalidInput(t *testing.T) {
	d := NewDiagonalizer(testLogger())

	var validationErr *ValidationError

	_, _, err := d.Diagonalize(nil, 1)
	require.ErrorAs(t, err, &validationErr)

	h := mat.NewSymDense(2, []float64{1, 0, 0, 2})
	_, _, err = d.Diagonalize(h, 0)
	require.ErrorAs(t, err, &validationErr)
}
