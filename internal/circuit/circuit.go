package circuit

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/fluxlab/internal/spectrum"
)

// AssembleFunc builds the Hamiltonian matrix for the current loop fluxes and
// basis truncation. Gate builders install one at construction time; the
// truncation is resolved and validated once there, so assembly never guesses
// basis sizes.
type AssembleFunc func(fluxes map[string]float64, truncation int) (*mat.SymDense, error)

// Circuit is a constructed circuit model. It is owned by the caller that
// built it; the spectrum engine only borrows it for the duration of a
// diagonalization or sweep. Its one mutable sub-resource is the set of
// flux-biasing loops, addressed by stable IDs.
//
// Circuit satisfies spectrum.Control.
type Circuit struct {
	gate       string
	loops      map[string]*Loop
	truncation int
	assemble   AssembleFunc
	h          *mat.SymDense
	log        zerolog.Logger
}

// New creates a circuit with a validated truncation and an assembly
// function. Builders register loops afterwards and call Rebuild once so the
// circuit is immediately diagonalizable.
func New(gate string, truncation int, assemble AssembleFunc, log zerolog.Logger) (*Circuit, error) {
	if truncation < 2 {
		return nil, spectrum.NewValidationError("truncation", "basis size must be at least 2, got %d", truncation)
	}
	if assemble == nil {
		return nil, spectrum.NewConfigurationError("no Hamiltonian assembly configured for gate %q", gate)
	}
	return &Circuit{
		gate:       gate,
		loops:      make(map[string]*Loop),
		truncation: truncation,
		assemble:   assemble,
		log:        log.With().Str("component", "circuit").Str("gate", gate).Logger(),
	}, nil
}

// AddLoop registers a flux loop under its stable ID.
func (c *Circuit) AddLoop(loop *Loop) error {
	if loop == nil || loop.ID() == "" {
		return spectrum.NewValidationError("loop", "must have a non-empty ID")
	}
	if _, exists := c.loops[loop.ID()]; exists {
		return spectrum.NewConfigurationError("duplicate loop ID %q", loop.ID())
	}
	c.loops[loop.ID()] = loop
	return nil
}

// LoopIDs returns the registered loop IDs in stable (sorted) order.
func (c *Circuit) LoopIDs() []string {
	ids := make([]string, 0, len(c.loops))
	for id := range c.loops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetFlux sets the external flux of a named loop. The value is validated
// against [0, 1] before the loop is touched; an unknown loop ID is a
// configuration error because the caller must name the control explicitly.
func (c *Circuit) SetFlux(loopID string, value float64) error {
	if err := (FluxParam{Name: "flux", Value: value}).Validate(); err != nil {
		return err
	}
	loop, ok := c.loops[loopID]
	if !ok {
		return spectrum.NewConfigurationError("no flux loop %q on %s circuit (have %v)", loopID, c.gate, c.LoopIDs())
	}
	loop.value = value
	return nil
}

// Flux returns the current external flux of a named loop.
func (c *Circuit) Flux(loopID string) (float64, error) {
	loop, ok := c.loops[loopID]
	if !ok {
		return 0, spectrum.NewConfigurationError("no flux loop %q on %s circuit (have %v)", loopID, c.gate, c.LoopIDs())
	}
	return loop.value, nil
}

// Rebuild reconstructs the Hamiltonian from the current loop fluxes.
func (c *Circuit) Rebuild() error {
	fluxes := make(map[string]float64, len(c.loops))
	for id, loop := range c.loops {
		fluxes[id] = loop.value
	}
	h, err := c.assemble(fluxes, c.truncation)
	if err != nil {
		return err
	}
	c.h = h
	return nil
}

// Hamiltonian returns the current Hamiltonian matrix. The circuit must have
// been built (Rebuild called at least once); failing loudly here replaces
// any best-effort truncation guessing at diagonalization time.
func (c *Circuit) Hamiltonian() (mat.Symmetric, error) {
	if c.h == nil {
		return nil, spectrum.NewConfigurationError("%s circuit has no Hamiltonian, call Rebuild first", c.gate)
	}
	return c.h, nil
}

// Gate returns the gate type this circuit was built as.
func (c *Circuit) Gate() string { return c.gate }

// Truncation returns the configured basis truncation per mode.
func (c *Circuit) Truncation() int { return c.truncation }

// Dimension returns the dimension of the assembled Hamiltonian, or 0 when
// the circuit has not been built yet.
func (c *Circuit) Dimension() int {
	if c.h == nil {
		return 0
	}
	return c.h.SymmetricDim()
}
