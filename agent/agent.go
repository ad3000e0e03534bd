package agent

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/neural"
	"github.com/pthm-cable/minions/shape"
)

// Segment is one rigid part of an agent's body tree.
type Segment struct {
	Index      int // 0 is the root
	Transform  geom.Transform
	Motion     geom.Motion
	Mesh       shape.Mesh
	Material   components.Material
	Livery     components.Livery
	Attachment *components.Attachment // nil for the root
	Tags       components.Tags
	State      components.ChargeState
}

// Radius returns the segment's scale.
func (s *Segment) Radius() float64 { return s.Mesh.Radius() }

// Flags is the persisted lifecycle bitmask.
type Flags uint8

const (
	FlagAlive Flags = 1 << iota
	FlagActive
	FlagRegistered
	FlagFertilised
)

// Limits bounds an agent's state.
type Limits struct {
	MaxEnergy float64
}

// Agent is one simulated creature.
type Agent struct {
	ID       ID
	Gender   Gender
	Brain    *neural.Brain
	Dna      genome.Dna
	Segments []Segment
	Limits   Limits

	Flags     Flags
	Age       SimulationTime // seconds and frames lived
	Maturity  float64        // grows from 0 to 1
	Lifecycle Timer          // reproduction or expiry countdown
	energy    float64

	Target    ID
	HasTarget bool
	TargetPos r2.Vec // last known target position

	Mate       genome.Dna // pending gamete; zero when unfertilised
	Trajectory *Trajectory
}

// Energy returns the stored energy.
func (a *Agent) Energy() float64 { return a.energy }

// SetEnergy stores e clamped to [0, MaxEnergy].
func (a *Agent) SetEnergy(e float64) {
	a.energy = math.Max(0, math.Min(e, a.Limits.MaxEnergy))
}

// AddEnergy adds e (which may be negative) and returns the amount actually
// absorbed after clamping.
func (a *Agent) AddEnergy(e float64) float64 {
	before := a.energy
	a.SetEnergy(a.energy + e)
	return a.energy - before
}

// Consume removes e if the agent holds at least that much.
func (a *Agent) Consume(e float64) bool {
	if e < 0 || a.energy < e {
		return false
	}
	a.energy -= e
	return true
}

// ConsumeRatio consumes ratio*MaxEnergy if available.
func (a *Agent) ConsumeRatio(ratio float64) bool {
	return a.Consume(ratio * a.Limits.MaxEnergy)
}

// EnergyRatio returns energy/MaxEnergy.
func (a *Agent) EnergyRatio() float64 {
	if a.Limits.MaxEnergy <= 0 {
		return 0
	}
	return a.energy / a.Limits.MaxEnergy
}

// IsAlive reports whether the agent has not died.
func (a *Agent) IsAlive() bool { return a.Flags&FlagAlive != 0 }

// IsActive reports whether systems should process the agent.
func (a *Agent) IsActive() bool { return a.Flags&FlagActive != 0 }

// Activate marks a live agent active.
func (a *Agent) Activate() {
	if a.IsAlive() {
		a.Flags |= FlagActive
	}
}

// Kill marks the agent dead and inactive.
func (a *Agent) Kill() {
	a.Flags &^= FlagAlive | FlagActive
}

// IsRegistered reports whether downstream collaborators have seen the agent.
func (a *Agent) IsRegistered() bool { return a.Flags&FlagRegistered != 0 }

// IsFertilised reports whether a gamete is pending.
func (a *Agent) IsFertilised() bool { return a.Flags&FlagFertilised != 0 }

// Fertilise records a pending gamete.
func (a *Agent) Fertilise(d genome.Dna) {
	a.Mate = d
	a.Flags |= FlagFertilised
}

// Root returns segment 0.
func (a *Agent) Root() *Segment { return &a.Segments[0] }

// Position returns the root position.
func (a *Agent) Position() r2.Vec { return a.Segments[0].Transform.Position }

// FirstSegment returns the first segment carrying every role in tag.
func (a *Agent) FirstSegment(tag components.Tags) (*Segment, bool) {
	for i := range a.Segments {
		if a.Segments[i].Tags.Has(tag) {
			return &a.Segments[i], true
		}
	}
	return nil, false
}

// Mature advances maturity by dt/maturityAge, capped at 1.
func (a *Agent) Mature(dt, maturityAge float64) {
	if maturityAge <= 0 {
		a.Maturity = 1
		return
	}
	a.Maturity = math.Min(1, a.Maturity+dt/maturityAge)
}

// Grow ages the agent by one step of dt.
func (a *Agent) Grow(dt float64) {
	a.Age = a.Age.Advance(dt)
}

// SetTarget records a target and its position.
func (a *Agent) SetTarget(id ID, pos r2.Vec) {
	a.Target = id
	a.HasTarget = true
	a.TargetPos = pos
}

// ClearTarget forgets the target id but keeps the last known position.
func (a *Agent) ClearTarget() {
	a.HasTarget = false
}
