package world

import (
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/phenotype"
	"github.com/pthm-cable/minions/shape"
)

// Feeder is a beacon that periodically emits resources.
type Feeder struct {
	Position r2.Vec
	Next     float64 // simulation time of the next emission
}

// World holds every swarm and the arena they live in.
type World struct {
	Arena   geom.Rect
	Fence   shape.Mesh
	Swarms  [agent.NumTypes]*Swarm
	Feeders []Feeder

	MinionPool    *genome.GenePool
	ResourcePool  *genome.GenePool
	Regenerations int

	registered []agent.ID
}

// New creates an empty world sized by cfg. Gene pools are read from the
// configuration; swarms without a pool entry are seeded with random Dna.
func New(cfg *config.Config, rng *rand.Rand) (*World, error) {
	minions, err := parsePool(cfg.Genome.MinionPool)
	if err != nil {
		return nil, err
	}
	resources, err := parsePool(cfg.Genome.ResourcePool)
	if err != nil {
		return nil, err
	}

	w := NewEmpty(cfg.World.Width, cfg.World.Height)
	w.MinionPool = minions
	w.ResourcePool = resources

	for _, t := range agent.Types {
		var seed genome.Dna
		switch t {
		case agent.Minion:
			seed, _ = w.MinionPool.Next()
		case agent.Resource:
			seed, _ = w.ResourcePool.Next()
		}
		if seed.IsZero() {
			seed = genome.RandomDna(rng, max(1, cfg.Genome.SeedLength))
		}
		w.Swarms[t] = NewSwarm(t, seed)
	}

	w.placeFeeders(cfg, rng)
	return w, nil
}

// NewEmpty creates a world with an arena but no swarms or feeders.
func NewEmpty(width, height float64) *World {
	return &World{
		Arena:        geom.CenteredRect(width, height),
		Fence:        fence(width, height),
		MinionPool:   genome.NewGenePool(),
		ResourcePool: genome.NewGenePool(),
	}
}

// Resize moves the world into arena. The fence is rebuilt and the feeders
// are placed again inside the new bounds.
func (w *World) Resize(arena geom.Rect, cfg *config.Config, rng *rand.Rand) {
	w.Arena = arena
	w.Fence = fence(arena.Width(), arena.Height())
	w.placeFeeders(cfg, rng)
}

// fence is the arena outline in arena-local coordinates.
func fence(width, height float64) shape.Mesh {
	return shape.NewMesh(shape.Box{R: height / 2, Ratio: width / height}, shape.CounterClockwise)
}

func (w *World) placeFeeders(cfg *config.Config, rng *rand.Rand) {
	w.Feeders = w.Feeders[:0]
	for i := 0; i < cfg.Feeder.Count; i++ {
		w.Feeders = append(w.Feeders, Feeder{
			Position: w.RandomPoint(rng, 0.8),
			Next:     rng.Float64() * cfg.Feeder.Interval,
		})
	}
}

func parsePool(entries []string) (*genome.GenePool, error) {
	pool := genome.NewGenePool()
	for _, s := range entries {
		d, err := genome.ParseDna(s)
		if err != nil {
			return nil, err
		}
		pool.Add(d)
	}
	return pool, nil
}

// Swarm returns the swarm of type t.
func (w *World) Swarm(t agent.Type) *Swarm { return w.Swarms[t] }

// Get finds an agent by id.
func (w *World) Get(id agent.ID) (*agent.Agent, bool) {
	if int(id.Type) >= len(w.Swarms) || w.Swarms[id.Type] == nil {
		return nil, false
	}
	return w.Swarms[id.Type].Get(id)
}

// Population returns the number of agents of type t.
func (w *World) Population(t agent.Type) int {
	if w.Swarms[t] == nil {
		return 0
	}
	return w.Swarms[t].Len()
}

// Agents returns the agents of type t in insertion order.
func (w *World) Agents(t agent.Type) []*agent.Agent {
	if w.Swarms[t] == nil {
		return nil
	}
	return w.Swarms[t].Agents()
}

// RandomPoint returns a uniform point in the arena scaled by fill.
func (w *World) RandomPoint(rng *rand.Rand, fill float64) r2.Vec {
	c := w.Arena.Center()
	return r2.Vec{
		X: c.X + (rng.Float64()-0.5)*w.Arena.Width()*fill,
		Y: c.Y + (rng.Float64()-0.5)*w.Arena.Height()*fill,
	}
}

// InBounds reports whether p lies inside the arena.
func (w *World) InBounds(p r2.Vec) bool { return w.Arena.Contains(p) }

// NearestFeeder returns the beacon closest to p.
func (w *World) NearestFeeder(p r2.Vec) (r2.Vec, bool) {
	best := math.Inf(1)
	var pos r2.Vec
	for _, f := range w.Feeders {
		if d := r2.Norm2(r2.Sub(f.Position, p)); d < best {
			best, pos = d, f.Position
		}
	}
	return pos, len(w.Feeders) > 0
}

// Insert adds a to its swarm, starts its lifecycle timer at now and queues
// it for registration with downstream collaborators.
func (w *World) Insert(a *agent.Agent, now agent.SimulationTime) {
	a.Lifecycle.Renew(now)
	w.Swarms[a.ID.Type].Insert(a)
	if !a.IsRegistered() {
		a.Flags |= agent.FlagRegistered
		w.registered = append(w.registered, a.ID)
	}
}

// Spawn grows a new agent from gen and inserts it.
func (w *World) Spawn(t agent.Type, gen *genome.Genome, tr geom.Transform, m geom.Motion, charge float64, now agent.SimulationTime) *agent.Agent {
	id := w.Swarms[t].NextID()
	a := phenotype.Develop(t, gen, id, tr, m, charge)
	w.Insert(a, now)
	return a
}

// ConsumeRegistered returns the ids inserted since the last call.
func (w *World) ConsumeRegistered() []agent.ID {
	ids := w.registered
	w.registered = nil
	return ids
}

// Apply performs queued spawns and returns every alert to post, in order.
func (w *World) Apply(ch Changes, rng *rand.Rand, now agent.SimulationTime) []event.Alert {
	alerts := append([]event.Alert(nil), ch.Alerts...)
	mutations := config.Cfg().Genome.MutationsPerGen

	for _, req := range ch.Spawns {
		var gen *genome.Genome
		if req.Dna.IsZero() {
			gen = w.Swarms[req.Type].NextGenome(rng, mutations)
		} else {
			gen = genome.New(req.Dna)
		}
		a := w.Spawn(req.Type, gen, req.Transform, req.Motion, req.Charge, now)
		if req.Alert != nil {
			alert := *req.Alert
			alert.Other = a.ID
			alert.Time = now
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// ApplyPoses copies engine-reported body poses onto segments.
func (w *World) ApplyPoses(poses []components.Pose) {
	for _, p := range poses {
		a, ok := w.Get(agent.Unpack(p.Agent))
		if !ok || p.Index < 0 || p.Index >= len(a.Segments) {
			continue
		}
		seg := &a.Segments[p.Index]
		seg.Transform = geom.Transform{Position: p.Position, Angle: p.Angle}
		seg.Motion = geom.Motion{Linear: p.Velocity, Angular: p.Spin}
	}
}

// ApplyContacts replaces every segment's touch reference with the contacts
// reported by the last physics step.
func (w *World) ApplyContacts(touches []components.Touch) {
	for _, s := range w.Swarms {
		if s == nil {
			continue
		}
		for _, a := range s.agents {
			for i := range a.Segments {
				a.Segments[i].State.Touched = false
			}
		}
	}
	for _, t := range touches {
		w.touch(t.A, t.B)
		w.touch(t.B, t.A)
	}
}

func (w *World) touch(self, other components.Contact) {
	if self.Agent == other.Agent {
		return
	}
	a, ok := w.Get(agent.Unpack(self.Agent))
	if !ok || self.Segment < 0 || self.Segment >= len(a.Segments) {
		return
	}
	st := &a.Segments[self.Segment].State
	// Keep the lowest foreign id so contact resolution is order independent.
	if st.Touched && st.LastTouched.Agent <= other.Agent {
		return
	}
	st.Touched = true
	st.LastTouched = other
}

// ApplyDestroyed kills agents whose root body the engine destroyed.
func (w *World) ApplyDestroyed(segs []components.Segment) {
	for _, s := range segs {
		if s.Index != 0 {
			continue
		}
		if a, ok := w.Get(agent.Unpack(s.Agent)); ok {
			a.Kill()
		}
	}
}

// Sweep removes dead agents from every swarm and returns them.
func (w *World) Sweep() []*agent.Agent {
	var freed []*agent.Agent
	for _, s := range w.Swarms {
		if s != nil {
			freed = append(freed, s.sweep()...)
		}
	}
	if len(freed) > 0 && len(w.registered) > 0 {
		kept := w.registered[:0]
		for _, id := range w.registered {
			if a, ok := w.Get(id); ok && a.IsAlive() {
				kept = append(kept, id)
			}
		}
		w.registered = kept
	}
	return freed
}

// Populate spawns the initial population at random positions.
func (w *World) Populate(cfg *config.Config, rng *rand.Rand, now agent.SimulationTime) {
	for i := 0; i < cfg.Population.InitialResources; i++ {
		w.spawnRandom(agent.Resource, rng, cfg, now)
	}
	for i := 0; i < cfg.Population.InitialMinions; i++ {
		w.spawnRandom(agent.Minion, rng, cfg, now)
	}
}

func (w *World) spawnRandom(t agent.Type, rng *rand.Rand, cfg *config.Config, now agent.SimulationTime) *agent.Agent {
	var gen *genome.Genome
	pool := w.poolFor(t)
	if d, ok := pool.Next(); ok && rng.Intn(2) == 0 {
		gen = genome.New(genome.Mutate(rng, d))
	} else {
		gen = w.Swarms[t].NextGenome(rng, cfg.Genome.MutationsPerGen)
	}
	tr := geom.Transform{Position: w.RandomPoint(rng, 0.9), Angle: rng.Float64() * 2 * math.Pi}
	return w.Spawn(t, gen, tr, geom.Motion{}, phenotype.Lifecycle(t).InitialCharge, now)
}

func (w *World) poolFor(t agent.Type) *genome.GenePool {
	if t == agent.Minion {
		return w.MinionPool
	}
	if t == agent.Resource {
		return w.ResourcePool
	}
	return genome.NewGenePool()
}

// Regenerate reseeds the minion swarm from its gene pool when it falls
// below the configured threshold. Returns the alert posted, if any.
func (w *World) Regenerate(cfg *config.Config, rng *rand.Rand, now agent.SimulationTime) (event.Alert, bool) {
	if w.Population(agent.Minion) >= cfg.Population.RegenerationThreshold {
		return event.Alert{}, false
	}
	for i := 0; i < cfg.Population.RegenerationCount; i++ {
		w.spawnRandom(agent.Minion, rng, cfg, now)
	}
	w.Regenerations++
	slog.Info("regeneration",
		"count", w.Regenerations,
		"minions", w.Population(agent.Minion),
		"pool", w.MinionPool.Len(),
	)
	return event.Alert{Kind: event.Regenerated, Agent: agent.ID{Type: agent.Minion}, Time: now}, true
}
