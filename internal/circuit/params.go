// Package circuit constructs superconducting circuit models: validated
// physical parameters, flux-biased loops and the Hamiltonian matrices the
// spectrum engine diagonalizes.
package circuit

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/fluxlab/internal/spectrum"
)

// PlausibilityLimitGHz is the upper bound above which an energy parameter is
// accepted but flagged as suspicious. Junction and charging energies in
// superconducting circuits live well below this.
const PlausibilityLimitGHz = 1000.0

// EnergyParam is a named positive energy in GHz (Josephson, charging or
// inductive energy).
type EnergyParam struct {
	Name  string
	Value float64
}

// Validate rejects non-positive or non-finite energies. Values above the
// plausibility limit are valid but logged as a warning, never clamped.
func (p EnergyParam) Validate(log zerolog.Logger) error {
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return spectrum.NewValidationError(p.Name, "must be finite, got %g", p.Value)
	}
	if p.Value <= 0 {
		return spectrum.NewValidationError(p.Name, "must be positive, got %g GHz", p.Value)
	}
	if p.Value > PlausibilityLimitGHz {
		log.Warn().
			Str("param", p.Name).
			Float64("value_ghz", p.Value).
			Msg("Energy value seems unusually high")
	}
	return nil
}

// FluxParam is a named external flux bias in units of one flux quantum,
// constrained to [0, 1].
type FluxParam struct {
	Name  string
	Value float64
}

// Validate rejects values outside [0, 1]. Out-of-domain fluxes are never
// clamped silently.
func (p FluxParam) Validate() error {
	if math.IsNaN(p.Value) {
		return spectrum.NewValidationError(p.Name, "must be a number")
	}
	if p.Value < 0 || p.Value > 1 {
		return spectrum.NewValidationError(p.Name, "must be between 0 and 1 flux quanta, got %g", p.Value)
	}
	return nil
}
