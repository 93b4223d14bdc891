package circuit

import "math"

// Loop is a flux-biasing superconducting loop, addressable by a stable
// identifier assigned at construction time. The sweep engine mutates its
// value through Circuit.SetFlux; it is never discovered by structural search.
type Loop struct {
	id    string
	value float64 // External flux in units of one flux quantum
}

// NewLoop creates a loop with the given stable ID and initial flux.
func NewLoop(id string, flux float64) *Loop {
	return &Loop{id: id, value: flux}
}

// ID returns the loop's stable identifier.
func (l *Loop) ID() string { return l.id }

// Value returns the loop's current external flux.
func (l *Loop) Value() float64 { return l.value }

// Junction is a Josephson junction with energy Ej (GHz), threaded by zero or
// more flux loops that tune its effective energy.
type Junction struct {
	Ej    float64
	Loops []*Loop
}

// EffectiveEj resolves the junction's flux-tuned energy from the given flux
// snapshot. A junction in a single loop is frustrated as Ej·|cos(πΦ)| and
// vanishes at half a flux quantum; a junction shared by two loops responds
// to the flux difference, Ej·cos(π(Φ1−Φ2)). With no loops the bare Ej
// applies.
func (j Junction) EffectiveEj(fluxes map[string]float64) float64 {
	switch len(j.Loops) {
	case 1:
		return j.Ej * math.Abs(math.Cos(math.Pi*fluxes[j.Loops[0].ID()]))
	case 2:
		return j.Ej * math.Cos(math.Pi*(fluxes[j.Loops[0].ID()]-fluxes[j.Loops[1].ID()]))
	default:
		return j.Ej
	}
}

// Capacitor carries a charging energy Ec (GHz).
type Capacitor struct {
	Ec float64
}

// Inductor carries an inductive energy El (GHz) and closes a flux loop.
type Inductor struct {
	El    float64
	Loops []*Loop
}

// BiasPhase resolves the external phase offset 2πΦ threaded through the
// loops the inductor closes.
func (ind Inductor) BiasPhase(fluxes map[string]float64) float64 {
	phi := 0.0
	for _, l := range ind.Loops {
		phi += fluxes[l.ID()]
	}
	return 2 * math.Pi * phi
}
