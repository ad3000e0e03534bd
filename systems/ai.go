package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/neural"
	"github.com/pthm-cable/minions/world"
)

// SegmentDecision is the AI's output for one actuator segment.
type SegmentDecision struct {
	Index     int
	Intent    components.Intent
	Target    float64 // target charge
	Immediate bool    // set Charge = Target now
}

// Decision is the AI's output for one minion. It is computed from a
// read-only view of the world and applied later in a single thread.
type Decision struct {
	Agent     agent.ID
	Target    agent.ID
	HasTarget bool
	TargetPos r2.Vec
	Sensor    [neural.NumInputs]float64
	Response  [neural.NumOutputs]float64
	Segments  []SegmentDecision
	TouchCost float64
}

// AI steers minions towards resources.
type AI struct {
	cfg     config.AIConfig
	grid    *SpatialGrid[agent.ID]
	targets map[agent.ID]r2.Vec
}

// NewAI creates the AI system for an arena.
func NewAI(arena geom.Rect) *AI {
	cfg := config.Cfg()
	return &AI{
		cfg:     cfg.AI,
		grid:    NewSpatialGrid[agent.ID](arena, cfg.Physics.GridCellSize),
		targets: make(map[agent.ID]r2.Vec),
	}
}

// Prepare refreshes the candidate targets: every active resource.
func (ai *AI) Prepare(w *world.World) {
	ai.grid.Clear()
	clear(ai.targets)
	for _, r := range w.Agents(agent.Resource) {
		if !r.IsActive() {
			continue
		}
		ai.targets[r.ID] = r.Position()
		ai.grid.Insert(r.ID, r.Position())
	}
}

// Candidates returns the number of targets found by the last Prepare.
func (ai *AI) Candidates() int { return len(ai.targets) }

// Update runs one AI pass over every minion.
func (ai *AI) Update(w *world.World) {
	ai.Prepare(w)
	for _, a := range w.Agents(agent.Minion) {
		if d, ok := ai.Think(a, w); ok {
			d.Apply(a)
		}
	}
}

// Think computes a minion's decision without modifying anything.
// Returns false for agents that cannot sense.
func (ai *AI) Think(a *agent.Agent, w *world.World) (Decision, bool) {
	if !a.IsActive() || a.Brain == nil {
		return Decision{}, false
	}
	head, ok := a.FirstSegment(components.Sensor)
	if !ok {
		return Decision{}, false
	}

	d := Decision{Agent: a.ID, Target: a.Target, HasTarget: a.HasTarget, TargetPos: a.TargetPos}
	radar := head.Radius() * ai.cfg.RadarFactor
	headPos := head.Transform.Position

	// Target selection
	if pos, ok := ai.targets[a.Target]; a.HasTarget && ok {
		d.TargetPos = pos
	} else if n, ok := ai.grid.Nearest(headPos, radar); ok {
		d.Target, d.HasTarget, d.TargetPos = n.Key, true, n.Pos
	} else {
		d.HasTarget = false
		if beacon, ok := w.NearestFeeder(a.TargetPos); ok {
			d.TargetPos = beacon
		}
	}

	// Sensors
	root := a.Root()
	fwd := root.Transform.Forward()
	var bearing r2.Vec
	if radar > 0 {
		bearing = r2.Scale(1/radar, geom.ClampLength(r2.Sub(d.TargetPos, headPos), radar))
	}
	d.Sensor = [neural.NumInputs]float64{
		geom.NormalizeAngle(head.Transform.Angle - root.Transform.Angle - math.Pi),
		r2.Dot(fwd, bearing),
		r2.Cross(fwd, bearing),
		0,
	}
	d.Response = a.Brain.Response(d.Sensor)

	// Actuators
	p := a.Brain.Personality
	for i := range a.Segments {
		seg := &a.Segments[i]
		if !seg.Tags.IsActuator() {
			continue
		}
		f := r2.Scale(seg.State.Charge*seg.Radius()*seg.Radius()*ai.cfg.PowerBoost, seg.Transform.Forward())
		sd := SegmentDecision{Index: i, Target: p.Rest}
		r := d.Response

		switch {
		case seg.State.Touched && agent.Unpack(seg.State.LastTouched.Agent).Type != agent.Resource:
			sd.Intent = components.Intent{Kind: components.IntentRunAway, Force: r2.Scale(p.Fear, f)}
			sd.Target, sd.Immediate = p.Thrust, true
			d.TouchCost += ai.cfg.TouchCost / (1 + a.Maturity)
		case seg.Tags.Has(components.Left|components.Rudder) && r[0] > p.Hunger:
			sd.Intent = components.Intent{Kind: components.IntentMove, Force: r2.Scale(-1, f)}
			sd.Target = p.Thrust
		case seg.Tags.Has(components.Right|components.Rudder) && r[1] > p.Hunger:
			sd.Intent = components.Intent{Kind: components.IntentMove, Force: r2.Scale(-1, f)}
			sd.Target = p.Thrust
		case seg.Tags.Has(components.Thruster) && r[2] > p.Haste:
			sd.Intent = components.Intent{Kind: components.IntentMove, Force: f}
			sd.Target = p.Thrust
		case seg.Tags.Has(components.Brake) && r[3] > p.Prudence:
			sd.Intent = components.Intent{Kind: components.IntentBrake, Force: r2.Scale(-1, f)}
			sd.Target = p.Thrust
		default:
			sd.Intent = components.Intent{Kind: components.IntentIdle}
		}
		d.Segments = append(d.Segments, sd)
	}
	return d, true
}

// Apply writes a decision back to its agent.
func (d *Decision) Apply(a *agent.Agent) {
	if d.HasTarget {
		a.SetTarget(d.Target, d.TargetPos)
	} else {
		a.ClearTarget()
		a.TargetPos = d.TargetPos
	}

	for _, sd := range d.Segments {
		st := &a.Segments[sd.Index].State
		st.Intent = sd.Intent
		st.Target = sd.Target
		if sd.Immediate {
			st.Charge = sd.Target
		}
	}

	if d.TouchCost > 0 && a.Brain != nil {
		root := &a.Root().State
		root.Charge = math.Min(1, a.Brain.Thrust*d.TouchCost)
		root.Target = a.Brain.Rest
	}
}
