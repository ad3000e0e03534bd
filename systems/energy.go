package systems

import (
	"math"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/geom"
)

// Metabolism returns the energy an agent burns per second: the sum of
// charge times radius over its segments, scaled by rate.
func Metabolism(a *agent.Agent, rate float64) float64 {
	var sum float64
	for i := range a.Segments {
		seg := &a.Segments[i]
		sum += seg.State.Charge * seg.Radius()
	}
	return sum * rate
}

// UpdateEnergy drains one step of metabolism and ages the agent.
// Returns the energy left.
func UpdateEnergy(a *agent.Agent, rate, maturityAge, dt float64) float64 {
	if !a.IsAlive() {
		return a.Energy()
	}
	a.Grow(dt)
	a.Mature(dt, maturityAge)
	a.AddEnergy(-Metabolism(a, rate) * dt)
	return a.Energy()
}

// AgeCharges moves every segment charge towards its target with time
// constant tau.
func AgeCharges(a *agent.Agent, tau, dt float64) {
	k := 1.0
	if tau > 0 {
		k = 1 - math.Exp(-dt/tau)
	}
	for i := range a.Segments {
		st := &a.Segments[i].State
		st.Target = geom.Clamp01(st.Target)
		st.Charge = geom.Clamp01(st.Charge + (st.Target-st.Charge)*k)
	}
}
