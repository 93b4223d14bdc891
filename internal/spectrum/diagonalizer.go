package spectrum

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Diagonalizer wraps gonum's symmetric eigendecomposition behind the
// level-count contract the sweep engine depends on: ascending eigenvalues,
// ground state at index 0, typed errors on failure.
type Diagonalizer struct {
	log zerolog.Logger
}

// NewDiagonalizer creates a new diagonalizer.
func NewDiagonalizer(log zerolog.Logger) *Diagonalizer {
	return &Diagonalizer{
		log: log.With().Str("component", "diagonalizer").Logger(),
	}
}

// Diagonalize computes the lowest levelCount eigenvalues of h in ascending
// order, together with the matching eigenvectors (one per column).
//
// Returns a DiagonalizationError when levelCount exceeds the dimension of h
// or the factorization fails to converge. The input matrix is not mutated.
func (d *Diagonalizer) Diagonalize(h mat.Symmetric, levelCount int) ([]float64, *mat.Dense, error) {
	if h == nil {
		return nil, nil, NewValidationError("hamiltonian", "must not be nil")
	}
	if levelCount < 1 {
		return nil, nil, NewValidationError("level_count", "must be at least 1, got %d", levelCount)
	}

	dim := h.SymmetricDim()
	if levelCount > dim {
		return nil, nil, &DiagonalizationError{
			Message: fmt.Sprintf("requested %d levels but the Hamiltonian truncation only represents %d", levelCount, dim),
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(h, true); !ok {
		return nil, nil, &DiagonalizationError{Message: "eigendecomposition did not converge"}
	}

	// EigenSym returns eigenvalues in ascending order, so the first
	// levelCount entries are the lowest-lying levels.
	all := es.Values(nil)
	energies := make([]float64, levelCount)
	copy(energies, all[:levelCount])

	var vecs mat.Dense
	es.VectorsTo(&vecs)
	states := mat.DenseCopyOf(vecs.Slice(0, dim, 0, levelCount))

	d.log.Debug().
		Int("dim", dim).
		Int("levels", levelCount).
		Float64("ground", energies[0]).
		Msg("Hamiltonian diagonalized")

	return energies, states, nil
}
