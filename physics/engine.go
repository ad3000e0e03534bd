// Package physics defines the rigid-body collaborator contract and a
// kinematic reference engine that satisfies it.
package physics

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
)

// Force is an intent-derived push on one segment body.
type Force struct {
	components.Segment
	Vector  r2.Vec
	Impulse bool // instantaneous change of momentum instead of a continuous force
}

// Report is the immutable result of one physics step.
type Report struct {
	Poses     []components.Pose
	Touches   []components.Touch   // symmetric contacts between different agents
	Destroyed []components.Segment // bodies removed below the kill line
}

// Engine simulates agent bodies.
type Engine interface {
	// Create adds one body per segment and one joint per attachment.
	Create(a *agent.Agent) error
	// Destroy removes every body of an agent. Unknown ids are ignored.
	Destroy(id agent.ID)
	// Step advances the simulation by dt with the given forces.
	Step(dt float64, forces []Force) Report
}

// Forces converts the actuator intents of agents into engine forces.
// Idle segments produce nothing.
func Forces(agents []*agent.Agent) []Force {
	var out []Force
	for _, a := range agents {
		if !a.IsActive() {
			continue
		}
		packed := a.ID.Packed()
		for i := range a.Segments {
			in := a.Segments[i].State.Intent
			if in.Kind == components.IntentIdle {
				continue
			}
			out = append(out, Force{
				Segment: components.Segment{Agent: packed, Index: i},
				Vector:  in.Force,
				Impulse: in.Kind == components.IntentRunAway,
			})
		}
	}
	return out
}
