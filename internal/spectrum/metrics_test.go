package spectrum

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsThreeLevels(t *testing.T) {
	m, err := Metrics([]float64{0, 5, 9.5})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.GroundStateEnergy)
	require.NotNil(t, m.FirstExcitedEnergy)
	assert.Equal(t, 5.0, *m.FirstExcitedEnergy)
	require.NotNil(t, m.TransitionFrequency)
	assert.Equal(t, 5.0, *m.TransitionFrequency)
	require.NotNil(t, m.Anharmonicity)
	assert.InDelta(t, -0.5, *m.Anharmonicity, 1e-12)
}

func TestMetricsTwoLevelsAnharmonicityAbsent(t *testing.T) {
	m, err := Metrics([]float64{1.2, 6.2})
	require.NoError(t, err)

	assert.Equal(t, 1.2, m.GroundStateEnergy)
	require.NotNil(t, m.TransitionFrequency)
	assert.InDelta(t, 5.0, *m.TransitionFrequency, 1e-12)
	// Absent, not zero.
	assert.Nil(t, m.Anharmonicity)
}

func TestMetricsTooFewLevels(t *testing.T) {
	var validationErr *ValidationError

	_, err := Metrics(nil)
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "got 0")

	_, err = Metrics([]float64{4.2})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "got 1")
}

func TestMetricsNegativeGroundState(t *testing.T) {
	// Phase-basis Hamiltonians routinely have negative ground energies.
	m, err := Metrics([]float64{-12.5, -7.1, -2.4})
	require.NoError(t, err)
	assert.Equal(t, -12.5, m.GroundStateEnergy)
	assert.InDelta(t, 5.4, *m.TransitionFrequency, 1e-12)
}

func TestTransitionFrequencies(t *testing.T) {
	transitions, err := TransitionFrequencies([]float64{0, 5, 9.5, 13.2})
	require.NoError(t, err)
	require.Len(t, transitions, 3)
	assert.InDelta(t, 5.0, transitions[0], 1e-12)
	assert.InDelta(t, 9.5, transitions[1], 1e-12)
	assert.InDelta(t, 13.2, transitions[2], 1e-12)

	var validationErr *ValidationError
	_, err = TransitionFrequencies([]float64{1})
	require.ErrorAs(t, err, &validationErr)
}

func TestMetricsRandomAscendingSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		n := 3 + rng.Intn(8)
		energies := make([]float64, n)
		for j := range energies {
			energies[j] = rng.Float64()*40 - 20
		}
		sort.Float64s(energies)

		m, err := Metrics(energies)
		require.NoError(t, err)

		assert.Equal(t, energies[0], m.GroundStateEnergy)
		assert.InDelta(t, energies[1]-energies[0], *m.TransitionFrequency, 1e-12)
		assert.InDelta(t, (energies[2]-energies[1])-(energies[1]-energies[0]), *m.Anharmonicity, 1e-9)
		// Ascending input keeps the transition frequency non-negative.
		assert.GreaterOrEqual(t, *m.TransitionFrequency, 0.0)
	}
}
