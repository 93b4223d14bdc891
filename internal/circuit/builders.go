package circuit

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/fluxlab/internal/spectrum"
)

// Well-known loop IDs assigned by the gate builders. Sweep callers name one
// of these explicitly; nothing scans the circuit for "something loop-like".
const (
	LoopPrimary   = "loop1"
	LoopSecondary = "loop2"
)

// InverterParams holds the physical parameters of an RQL inverter: a single
// flux-biased junction shunted by a capacitor.
type InverterParams struct {
	Ej           float64 `json:"ej"`            // Josephson energy, GHz
	Ec           float64 `json:"ec"`            // Charging energy, GHz
	Flux         float64 `json:"flux"`          // External flux, flux quanta
	ChargeOffset float64 `json:"charge_offset"` // Gate charge ng
}

// RQLLoopParams holds the parameters of a general RQL loop: junction,
// capacitor and shunt inductor closing the flux loop.
type RQLLoopParams struct {
	Ej   float64 `json:"ej"`   // Josephson energy, GHz
	Ec   float64 `json:"ec"`   // Charging energy, GHz
	El   float64 `json:"el"`   // Inductive energy, GHz
	Flux float64 `json:"flux"` // External flux, flux quanta
}

// ANBParams holds the parameters of an A-NOT-B gate: two flux-biased
// junction modes coupled by a third junction.
type ANBParams struct {
	Ej1   float64 `json:"ej1"`   // First junction energy, GHz
	Ej2   float64 `json:"ej2"`   // Second junction energy, GHz
	Ec    float64 `json:"ec"`    // Charging energy per mode, GHz
	J     float64 `json:"j"`     // Coupling junction energy, GHz
	Flux1 float64 `json:"flux1"` // Flux through loop1, flux quanta
	Flux2 float64 `json:"flux2"` // Flux through loop2, flux quanta
}

// BuildInverter constructs an RQL inverter circuit in the charge basis.
//
// The Hamiltonian is the standard flux-tunable transmon form
//
//	H = Σ_n 4·Ec·(n - ng)² |n⟩⟨n| − (Ej(Φ)/2) Σ_n (|n⟩⟨n+1| + h.c.)
//
// with Ej(Φ) = Ej·|cos(πΦ)|, so the junction is fully frustrated at half a
// flux quantum. The basis holds `truncation` consecutive charge states
// centered on zero.
func BuildInverter(p InverterParams, truncation int, log zerolog.Logger) (*Circuit, error) {
	if err := (EnergyParam{Name: "ej", Value: p.Ej}).Validate(log); err != nil {
		return nil, err
	}
	if err := (EnergyParam{Name: "ec", Value: p.Ec}).Validate(log); err != nil {
		return nil, err
	}
	if err := (FluxParam{Name: "flux", Value: p.Flux}).Validate(); err != nil {
		return nil, err
	}

	loop := NewLoop(LoopPrimary, p.Flux)
	junction := Junction{Ej: p.Ej, Loops: []*Loop{loop}}
	shunt := Capacitor{Ec: p.Ec}

	assemble := func(fluxes map[string]float64, trunc int) (*mat.SymDense, error) {
		return chargeBasisHamiltonian(junction.EffectiveEj(fluxes), shunt.Ec, p.ChargeOffset, trunc), nil
	}

	c, err := New("inverter", truncation, assemble, log)
	if err != nil {
		return nil, err
	}
	if err := c.AddLoop(loop); err != nil {
		return nil, err
	}
	if err := c.Rebuild(); err != nil {
		return nil, err
	}

	log.Info().
		Float64("ej_ghz", p.Ej).
		Float64("ec_ghz", p.Ec).
		Float64("flux", p.Flux).
		Int("dim", c.Dimension()).
		Msg("Built RQL inverter circuit")
	return c, nil
}

// BuildRQLLoop constructs a general RQL loop circuit in the discretized
// phase basis. With an inductor closing the loop the phase is no longer
// compact, so the Hamiltonian is represented on a finite-difference grid:
//
//	H = −4·Ec·d²/dφ² + (El/2)·(φ − 2πΦ)² − Ej·cos(φ)
//
// The grid spans [−phiSpan, phiSpan] with `truncation` points.
func BuildRQLLoop(p RQLLoopParams, truncation int, log zerolog.Logger) (*Circuit, error) {
	if err := (EnergyParam{Name: "ej", Value: p.Ej}).Validate(log); err != nil {
		return nil, err
	}
	if err := (EnergyParam{Name: "ec", Value: p.Ec}).Validate(log); err != nil {
		return nil, err
	}
	if err := (EnergyParam{Name: "el", Value: p.El}).Validate(log); err != nil {
		return nil, err
	}
	if err := (FluxParam{Name: "flux", Value: p.Flux}).Validate(); err != nil {
		return nil, err
	}

	loop := NewLoop(LoopPrimary, p.Flux)
	// The flux couples through the inductive branch closing the loop, so the
	// junction keeps its bare energy in the phase basis.
	junction := Junction{Ej: p.Ej}
	shunt := Capacitor{Ec: p.Ec}
	inductor := Inductor{El: p.El, Loops: []*Loop{loop}}

	assemble := func(fluxes map[string]float64, trunc int) (*mat.SymDense, error) {
		return phaseBasisHamiltonian(junction.EffectiveEj(fluxes), shunt.Ec, inductor.El, inductor.BiasPhase(fluxes), trunc), nil
	}

	c, err := New("rql_loop", truncation, assemble, log)
	if err != nil {
		return nil, err
	}
	if err := c.AddLoop(loop); err != nil {
		return nil, err
	}
	if err := c.Rebuild(); err != nil {
		return nil, err
	}

	log.Info().
		Float64("ej_ghz", p.Ej).
		Float64("ec_ghz", p.Ec).
		Float64("el_ghz", p.El).
		Float64("flux", p.Flux).
		Int("dim", c.Dimension()).
		Msg("Built RQL loop circuit")
	return c, nil
}

// BuildANBGate constructs an A-NOT-B gate: two charge-basis junction modes
// with a charge-transfer coupling from the junction between them. Each mode
// uses `truncation` charge states, so the combined dimension is truncation².
//
// The coupling junction sits in both loops; its effective energy follows the
// flux difference, J(Φ1, Φ2) = J·cos(π(Φ1 − Φ2)).
func BuildANBGate(p ANBParams, truncation int, log zerolog.Logger) (*Circuit, error) {
	if err := (EnergyParam{Name: "ej1", Value: p.Ej1}).Validate(log); err != nil {
		return nil, err
	}
	if err := (EnergyParam{Name: "ej2", Value: p.Ej2}).Validate(log); err != nil {
		return nil, err
	}
	if err := (EnergyParam{Name: "ec", Value: p.Ec}).Validate(log); err != nil {
		return nil, err
	}
	if err := (EnergyParam{Name: "j", Value: p.J}).Validate(log); err != nil {
		return nil, err
	}
	if err := (FluxParam{Name: "flux1", Value: p.Flux1}).Validate(); err != nil {
		return nil, err
	}
	if err := (FluxParam{Name: "flux2", Value: p.Flux2}).Validate(); err != nil {
		return nil, err
	}

	loopA := NewLoop(LoopPrimary, p.Flux1)
	loopB := NewLoop(LoopSecondary, p.Flux2)
	junctionA := Junction{Ej: p.Ej1, Loops: []*Loop{loopA}}
	junctionB := Junction{Ej: p.Ej2, Loops: []*Loop{loopB}}
	// The coupling junction sits in both loops.
	coupler := Junction{Ej: p.J, Loops: []*Loop{loopA, loopB}}
	shunt := Capacitor{Ec: p.Ec}

	assemble := func(fluxes map[string]float64, trunc int) (*mat.SymDense, error) {
		ej1 := junctionA.EffectiveEj(fluxes)
		ej2 := junctionB.EffectiveEj(fluxes)
		jEff := coupler.EffectiveEj(fluxes)
		return coupledChargeHamiltonian(ej1, ej2, shunt.Ec, jEff, trunc), nil
	}

	c, err := New("anb", truncation, assemble, log)
	if err != nil {
		return nil, err
	}
	if err := c.AddLoop(loopA); err != nil {
		return nil, err
	}
	if err := c.AddLoop(loopB); err != nil {
		return nil, err
	}
	if err := c.Rebuild(); err != nil {
		return nil, err
	}

	log.Info().
		Float64("ej1_ghz", p.Ej1).
		Float64("ej2_ghz", p.Ej2).
		Float64("j_ghz", p.J).
		Int("dim", c.Dimension()).
		Msg("Built ANB gate circuit")
	return c, nil
}

// anbDefaultTruncation is the per-mode charge truncation used for ANB gates
// when a request doesn't specify one.
const anbDefaultTruncation = 12

// phiSpan is the half-width of the phase grid used by the RQL loop builder.
// ±4π comfortably contains the low-lying wells of the Ej/El regimes the
// builders accept.
const phiSpan = 4 * math.Pi

// chargeValue maps a basis index to its charge number for a basis of the
// given dimension, centered on zero.
func chargeValue(k, dim int) float64 {
	return float64(k - dim/2)
}

// chargeBasisHamiltonian assembles a single-mode charge-basis Hamiltonian.
func chargeBasisHamiltonian(ej, ec, ng float64, dim int) *mat.SymDense {
	h := mat.NewSymDense(dim, nil)
	for k := 0; k < dim; k++ {
		n := chargeValue(k, dim) - ng
		h.SetSym(k, k, 4*ec*n*n)
		if k+1 < dim {
			h.SetSym(k, k+1, -ej/2)
		}
	}
	return h
}

// phaseBasisHamiltonian assembles a finite-difference phase-basis
// Hamiltonian for a junction with an inductive shunt, with the external
// phase offset phiExt already resolved from the flux loops.
func phaseBasisHamiltonian(ej, ec, el, phiExt float64, dim int) *mat.SymDense {
	h := mat.NewSymDense(dim, nil)
	step := 2 * phiSpan / float64(dim-1)
	kinetic := 4 * ec / (step * step)

	for k := 0; k < dim; k++ {
		phi := -phiSpan + float64(k)*step
		potential := el/2*(phi-phiExt)*(phi-phiExt) - ej*math.Cos(phi)
		h.SetSym(k, k, 2*kinetic+potential)
		if k+1 < dim {
			h.SetSym(k, k+1, -kinetic)
		}
	}
	return h
}

// coupledChargeHamiltonian assembles the two-mode ANB Hamiltonian. The
// coupling junction's cos(φ1−φ2) term transfers one Cooper pair between the
// modes, connecting |n1, n2⟩ with |n1+1, n2−1⟩.
func coupledChargeHamiltonian(ej1, ej2, ec, j float64, modeDim int) *mat.SymDense {
	dim := modeDim * modeDim
	h := mat.NewSymDense(dim, nil)

	idx := func(k1, k2 int) int { return k1*modeDim + k2 }

	for k1 := 0; k1 < modeDim; k1++ {
		for k2 := 0; k2 < modeDim; k2++ {
			i := idx(k1, k2)
			n1 := chargeValue(k1, modeDim)
			n2 := chargeValue(k2, modeDim)
			h.SetSym(i, i, 4*ec*(n1*n1+n2*n2))

			// Single-mode tunneling terms.
			if k1+1 < modeDim {
				h.SetSym(i, idx(k1+1, k2), -ej1/2)
			}
			if k2+1 < modeDim {
				h.SetSym(i, idx(k1, k2+1), -ej2/2)
			}
			// Pair transfer through the coupling junction.
			if k1+1 < modeDim && k2-1 >= 0 {
				h.SetSym(i, idx(k1+1, k2-1), -j/2)
			}
		}
	}
	return h
}

// GateSpec is the serializable description of a gate circuit: the gate type,
// an optional basis truncation and exactly one parameter block matching the
// gate type.
type GateSpec struct {
	Gate       string          `json:"gate"`
	Truncation int             `json:"truncation,omitempty"`
	Inverter   *InverterParams `json:"inverter,omitempty"`
	RQLLoop    *RQLLoopParams  `json:"rql_loop,omitempty"`
	ANB        *ANBParams      `json:"anb,omitempty"`
}

// Build dispatches to the matching gate builder. A zero Truncation falls
// back to defaultTruncation; unknown gate types are a validation error
// listing the supported gates.
func (s GateSpec) Build(defaultTruncation int, log zerolog.Logger) (*Circuit, error) {
	truncation := s.Truncation
	if truncation == 0 {
		truncation = defaultTruncation
		// The two-mode ANB dimension grows quadratically with the per-mode
		// truncation, so its fallback is far smaller.
		if s.Gate == "anb" && truncation > anbDefaultTruncation {
			truncation = anbDefaultTruncation
		}
	}

	switch s.Gate {
	case "inverter":
		if s.Inverter == nil {
			return nil, spectrum.NewValidationError("inverter", "parameters required for inverter gate")
		}
		return BuildInverter(*s.Inverter, truncation, log)
	case "rql_loop":
		if s.RQLLoop == nil {
			return nil, spectrum.NewValidationError("rql_loop", "parameters required for rql_loop gate")
		}
		return BuildRQLLoop(*s.RQLLoop, truncation, log)
	case "anb":
		if s.ANB == nil {
			return nil, spectrum.NewValidationError("anb", "parameters required for anb gate")
		}
		return BuildANBGate(*s.ANB, truncation, log)
	default:
		return nil, spectrum.NewValidationError("gate", "unknown gate type %q (supported: inverter, rql_loop, anb)", s.Gate)
	}
}
