package spectrum

// Metrics computes gate figures of merit from a single ascending eigenvalue
// sequence (GHz):
//
//	ground_state_energy  = energies[0]
//	transition_frequency = energies[1] - energies[0]
//	anharmonicity        = (energies[2] - energies[1]) - (energies[1] - energies[0])
//
// Anharmonicity requires at least 3 levels; with exactly 2 it is reported
// absent, not zero. Fewer than 2 levels is a validation error.
func Metrics(energies []float64) (GateMetrics, error) {
	if len(energies) < 2 {
		return GateMetrics{}, NewValidationError("energies", "need at least 2 energy levels, got %d", len(energies))
	}

	first := energies[1]
	transition := energies[1] - energies[0]
	metrics := GateMetrics{
		GroundStateEnergy:   energies[0],
		FirstExcitedEnergy:  &first,
		TransitionFrequency: &transition,
	}

	if len(energies) >= 3 {
		anharm := (energies[2] - energies[1]) - (energies[1] - energies[0])
		metrics.Anharmonicity = &anharm
	}

	return metrics, nil
}

// TransitionFrequencies returns every excited level's frequency relative to
// the ground state: energies[1:] - energies[0], element-wise.
func TransitionFrequencies(energies []float64) ([]float64, error) {
	if len(energies) < 2 {
		return nil, NewValidationError("energies", "need at least 2 energy levels, got %d", len(energies))
	}
	transitions := make([]float64, len(energies)-1)
	for i, e := range energies[1:] {
		transitions[i] = e - energies[0]
	}
	return transitions, nil
}
