package physics

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/systems"
)

// assembly is the set of bodies built for one agent. Bodies are stored in
// segment order so every parent precedes its children.
type assembly struct {
	id         agent.ID
	bodies     []ecs.Entity
	invMass    float64 // whole assembly
	invInertia float64 // about the root
}

// Kinematic is a reference engine: each agent moves as one rigid assembly
// driven through its root, revolute joints flex on a damped spring, and
// contacts are overlaps of bounding circles. It makes no accuracy claims.
type Kinematic struct {
	cfg   config.PhysicsConfig
	world *ecs.World

	rootMapper  *ecs.Map4[components.Segment, components.Body, components.Kinematics, components.Accumulator]
	childMapper *ecs.Map5[components.Segment, components.Body, components.Kinematics, components.Accumulator, components.Link]
	filter      ecs.Filter3[components.Segment, components.Body, components.Kinematics]

	segMap  *ecs.Map1[components.Segment]
	kinMap  *ecs.Map1[components.Kinematics]
	bodyMap *ecs.Map1[components.Body]
	accMap  *ecs.Map1[components.Accumulator]
	linkMap *ecs.Map1[components.Link]

	assemblies map[agent.ID]*assembly
	order      []agent.ID // creation order for deterministic stepping
	grid       *systems.SpatialGrid[ecs.Entity]
	maxRadius  float64
	scratch    []systems.Neighbor[ecs.Entity]
}

var _ Engine = (*Kinematic)(nil)

// NewKinematic creates an engine covering arena. Bodies outside the arena
// are still simulated; the grid clamps them to its edge cells.
func NewKinematic(arena geom.Rect) *Kinematic {
	cfg := config.Cfg().Physics
	w := ecs.NewWorld()
	return &Kinematic{
		cfg:         cfg,
		world:       w,
		rootMapper:  ecs.NewMap4[components.Segment, components.Body, components.Kinematics, components.Accumulator](w),
		childMapper: ecs.NewMap5[components.Segment, components.Body, components.Kinematics, components.Accumulator, components.Link](w),
		filter:      *ecs.NewFilter3[components.Segment, components.Body, components.Kinematics](w),
		segMap:      ecs.NewMap1[components.Segment](w),
		kinMap:      ecs.NewMap1[components.Kinematics](w),
		bodyMap:     ecs.NewMap1[components.Body](w),
		accMap:      ecs.NewMap1[components.Accumulator](w),
		linkMap:     ecs.NewMap1[components.Link](w),
		assemblies:  make(map[agent.ID]*assembly),
		grid:        systems.NewSpatialGrid[ecs.Entity](arena, cfg.GridCellSize),
	}
}

// Len returns the number of agents with bodies.
func (k *Kinematic) Len() int { return len(k.assemblies) }

// Create builds the bodies and joints of a.
func (k *Kinematic) Create(a *agent.Agent) error {
	if _, ok := k.assemblies[a.ID]; ok {
		return fmt.Errorf("physics: agent %v already has bodies", a.ID)
	}
	if len(a.Segments) == 0 {
		return fmt.Errorf("physics: agent %v has no segments", a.ID)
	}

	packed := a.ID.Packed()
	asm := &assembly{id: a.ID, bodies: make([]ecs.Entity, len(a.Segments))}
	root := a.Root().Transform

	var mass, inertia float64
	for i := range a.Segments {
		seg := &a.Segments[i]
		m := math.Max(seg.Material.Density*seg.Mesh.Area(), 1e-6)
		r := seg.Mesh.BoundingRadius()
		offset := r2.Norm2(r2.Sub(seg.Transform.Position, root.Position))
		mass += m
		inertia += m * (0.5*r*r + offset)
		k.maxRadius = math.Max(k.maxRadius, r)

		sc := components.Segment{Agent: packed, Index: i}
		body := components.Body{
			Radius:      r,
			InvMass:     1 / m,
			InvInertia:  1 / (0.5 * m * r * r),
			LinearDamp:  seg.Material.LinearDamp,
			AngularDamp: seg.Material.AngularDamp,
		}
		kin := components.Kinematics{
			Position: seg.Transform.Position,
			Angle:    seg.Transform.Angle,
			Velocity: seg.Motion.Linear,
			Spin:     seg.Motion.Angular,
		}
		acc := components.Accumulator{}

		if seg.Attachment == nil {
			asm.bodies[i] = k.rootMapper.NewEntity(&sc, &body, &kin, &acc)
			continue
		}
		p := seg.Attachment.Parent
		if p < 0 || p >= i {
			return fmt.Errorf("physics: segment %d of %v attaches to %d", i, a.ID, p)
		}
		parent := a.Segments[p].Transform
		link := components.Link{
			Parent:    asm.bodies[p],
			Anchor:    parent.Inverse(seg.Transform.Position),
			RestAngle: seg.Transform.Angle - parent.Angle,
			Revolute:  seg.Tags.Has(components.Joint),
		}
		asm.bodies[i] = k.childMapper.NewEntity(&sc, &body, &kin, &acc, &link)
	}
	asm.invMass = 1 / mass
	asm.invInertia = 1 / inertia

	k.assemblies[a.ID] = asm
	k.order = append(k.order, a.ID)
	return nil
}

// Destroy removes every body of id.
func (k *Kinematic) Destroy(id agent.ID) {
	asm, ok := k.assemblies[id]
	if !ok {
		return
	}
	for _, e := range asm.bodies {
		if k.world.Alive(e) {
			k.world.RemoveEntity(e)
		}
	}
	delete(k.assemblies, id)
	k.order = slices.DeleteFunc(k.order, func(o agent.ID) bool { return o == id })
}

// Step applies forces, integrates every assembly and reports poses,
// contacts and bodies lost below the kill line.
func (k *Kinematic) Step(dt float64, forces []Force) Report {
	k.accumulate(forces)

	var destroyed []agent.ID
	for _, id := range k.order {
		asm := k.assemblies[id]
		k.integrate(asm, dt)
		if k.kinMap.Get(asm.bodies[0]).Position.Y < k.cfg.KillY {
			destroyed = append(destroyed, id)
		}
	}

	var report Report
	for _, id := range destroyed {
		asm := k.assemblies[id]
		for i := range asm.bodies {
			report.Destroyed = append(report.Destroyed, components.Segment{Agent: id.Packed(), Index: i})
		}
		k.Destroy(id)
	}

	report.Touches = k.contacts()

	query := k.filter.Query()
	for query.Next() {
		seg, _, kin := query.Get()
		report.Poses = append(report.Poses, components.Pose{Segment: *seg, Kinematics: *kin})
	}
	slices.SortFunc(report.Poses, func(a, b components.Pose) int {
		return compareSegments(a.Segment, b.Segment)
	})
	return report
}

func (k *Kinematic) accumulate(forces []Force) {
	for _, f := range forces {
		asm, ok := k.assemblies[agent.Unpack(f.Agent)]
		if !ok || f.Index < 0 || f.Index >= len(asm.bodies) {
			continue
		}
		acc := k.accMap.Get(asm.bodies[f.Index])
		if f.Impulse {
			acc.Impulse = r2.Add(acc.Impulse, f.Vector)
		} else {
			acc.Force = r2.Add(acc.Force, f.Vector)
		}
	}
}

// integrate moves the root from the summed forces and places every child
// from its parent. Accumulators are cleared.
func (k *Kinematic) integrate(asm *assembly, dt float64) {
	root := k.kinMap.Get(asm.bodies[0])
	rootBody := k.bodyMap.Get(asm.bodies[0])

	var force, impulse r2.Vec
	var torque, angular float64
	for _, e := range asm.bodies {
		acc := k.accMap.Get(e)
		lever := r2.Sub(k.kinMap.Get(e).Position, root.Position)
		force = r2.Add(force, acc.Force)
		impulse = r2.Add(impulse, acc.Impulse)
		torque += r2.Cross(lever, acc.Force) + acc.Torque
		angular += r2.Cross(lever, acc.Impulse)
		*acc = components.Accumulator{}
	}

	root.Velocity = r2.Add(root.Velocity, r2.Scale(asm.invMass, r2.Add(r2.Scale(dt, force), impulse)))
	root.Spin += asm.invInertia * (torque*dt + angular)
	root.Velocity = r2.Scale(math.Exp(-rootBody.LinearDamp*dt), root.Velocity)
	root.Spin *= math.Exp(-rootBody.AngularDamp * dt)
	root.Velocity = geom.ClampLength(root.Velocity, k.cfg.MaxSpeed)
	root.Spin = geom.Clamp(root.Spin, -k.cfg.MaxSpin, k.cfg.MaxSpin)

	root.Position = r2.Add(root.Position, r2.Scale(dt, root.Velocity))
	root.Angle = geom.NormalizeAngle(root.Angle + root.Spin*dt)

	for _, e := range asm.bodies[1:] {
		k.follow(e, dt)
	}
}

// follow places a child body on its parent's anchor. Revolute joints
// relax towards their rest angle on a damped spring within the joint limit.
func (k *Kinematic) follow(e ecs.Entity, dt float64) {
	link := k.linkMap.Get(e)
	kin := k.kinMap.Get(e)
	parent := k.kinMap.Get(link.Parent)

	if link.Revolute {
		omega := 2 * math.Pi * k.cfg.WeldFrequency
		accel := -omega*omega*link.Flex - 2*k.cfg.WeldDamping*omega*link.FlexSpeed
		link.FlexSpeed += accel * dt
		link.Flex += link.FlexSpeed * dt
		if math.Abs(link.Flex) > k.cfg.JointLimit {
			link.Flex = math.Copysign(k.cfg.JointLimit, link.Flex)
			link.FlexSpeed = 0
		}
	}

	pt := geom.Transform{Position: parent.Position, Angle: parent.Angle}
	pos := pt.Apply(link.Anchor)
	if dt > 0 {
		kin.Velocity = r2.Scale(1/dt, r2.Sub(pos, kin.Position))
	}
	angle := geom.NormalizeAngle(parent.Angle + link.RestAngle + link.Flex)
	kin.Spin = parent.Spin + link.FlexSpeed
	kin.Position = pos
	kin.Angle = angle
}

// contacts returns overlapping body pairs of different agents, each pair
// reported once, sorted.
func (k *Kinematic) contacts() []components.Touch {
	k.grid.Clear()
	query := k.filter.Query()
	for query.Next() {
		_, _, kin := query.Get()
		k.grid.Insert(query.Entity(), kin.Position)
	}

	var touches []components.Touch
	query = k.filter.Query()
	for query.Next() {
		seg, body, kin := query.Get()
		k.scratch = k.grid.QueryRadiusInto(k.scratch[:0], kin.Position, body.Radius+k.maxRadius)
		for _, n := range k.scratch {
			oseg := *k.segMap.Get(n.Key)
			if oseg.Agent == seg.Agent || compareSegments(*seg, oseg) >= 0 {
				continue
			}
			reach := body.Radius + k.bodyMap.Get(n.Key).Radius
			if n.DistSq >= reach*reach {
				continue
			}
			touches = append(touches, components.Touch{
				A: components.Contact{Agent: seg.Agent, Segment: seg.Index},
				B: components.Contact{Agent: oseg.Agent, Segment: oseg.Index},
			})
		}
	}
	slices.SortFunc(touches, func(a, b components.Touch) int {
		return cmp.Or(
			cmp.Compare(a.A.Agent, b.A.Agent), cmp.Compare(a.A.Segment, b.A.Segment),
			cmp.Compare(a.B.Agent, b.B.Agent), cmp.Compare(a.B.Segment, b.B.Segment),
		)
	})
	return touches
}

func compareSegments(a, b components.Segment) int {
	return cmp.Or(cmp.Compare(a.Agent, b.Agent), cmp.Compare(a.Index, b.Index))
}
