package systems

import (
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
	"github.com/pthm-cable/minions/world"
)

// Counters tallies ecology events since the last Take.
type Counters struct {
	Eaten          int
	SporesLaid     int
	Hatched        int
	Fertilisations int
	Starved        int // minions dying of hunger
	OutOfBounds    int
	Expired        int // resources and spores reaching the end of their lifecycle
	EnergyEaten    float64
}

// Alife resolves feeding, mating, aging, spawning and death.
type Alife struct {
	cfg      *config.Config
	rng      *rand.Rand
	counters Counters
	fed      map[agent.ID]float64 // energy absorbed per eater in the last pass
}

// NewAlife creates the ecology system. rng drives crossover and corpse
// genomes.
func NewAlife(cfg *config.Config, rng *rand.Rand) *Alife {
	return &Alife{cfg: cfg, rng: rng, fed: make(map[agent.ID]float64)}
}

// Fed returns the energy each minion absorbed in the last pass.
// The map is reused by the next Update.
func (l *Alife) Fed() map[agent.ID]float64 { return l.fed }

// TakeCounters returns and resets the event tallies.
func (l *Alife) TakeCounters() Counters {
	c := l.counters
	l.counters = Counters{}
	return c
}

type meal struct {
	eater  agent.ID
	energy float64
}

type gamete struct {
	father agent.ID
	dna    genome.Dna
}

// Update runs one ecology pass and returns the world changes it requests.
// Agents are killed in place; births are returned for the world to apply.
func (l *Alife) Update(dt float64, now agent.SimulationTime, w *world.World) world.Changes {
	var ch world.Changes
	clear(l.fed)

	meals := l.feeding(w)
	gametes := l.mating(w)
	l.resources(dt, now, w, meals)
	l.minions(dt, now, w, portions(w, meals), &ch)
	l.spores(dt, now, w, gametes, &ch)
	l.feeders(now, w, &ch)

	return ch
}

// feeding snapshots which resources are being eaten and by whom.
// A resource touched by several mouths goes to the lowest eater id.
func (l *Alife) feeding(w *world.World) map[agent.ID]meal {
	meals := make(map[agent.ID]meal)
	for _, m := range w.Agents(agent.Minion) {
		if !m.IsActive() {
			continue
		}
		for i := range m.Segments {
			seg := &m.Segments[i]
			if !seg.Tags.Has(components.Mouth) || !seg.State.Touched {
				continue
			}
			rid := agent.Unpack(seg.State.LastTouched.Agent)
			if rid.Type != agent.Resource {
				continue
			}
			r, ok := w.Get(rid)
			if !ok || !r.IsActive() {
				continue
			}
			if prev, ok := meals[rid]; ok && prev.eater.Less(m.ID) {
				continue
			}
			meals[rid] = meal{eater: m.ID, energy: r.Energy()}
		}
	}
	return meals
}

// portions sums the energy each eater claims, in resource insertion order.
func portions(w *world.World, meals map[agent.ID]meal) map[agent.ID]float64 {
	food := make(map[agent.ID]float64, len(meals))
	for _, r := range w.Agents(agent.Resource) {
		if ml, ok := meals[r.ID]; ok {
			food[ml.eater] += ml.energy
		}
	}
	return food
}

// mating records the first opposite-gender minion touching each
// unfertilised spore.
func (l *Alife) mating(w *world.World) map[agent.ID]gamete {
	gametes := make(map[agent.ID]gamete)
	for _, s := range w.Agents(agent.Spore) {
		if !s.IsActive() || s.IsFertilised() {
			continue
		}
		for i := range s.Segments {
			st := &s.Segments[i].State
			if !st.Touched {
				continue
			}
			mid := agent.Unpack(st.LastTouched.Agent)
			if mid.Type != agent.Minion {
				continue
			}
			m, ok := w.Get(mid)
			if !ok || !m.IsActive() || !m.Gender.Opposite(s.Gender) {
				continue
			}
			gametes[s.ID] = gamete{father: m.ID, dna: m.Dna}
			break
		}
	}
	return gametes
}

func (l *Alife) resources(dt float64, now agent.SimulationTime, w *world.World, meals map[agent.ID]meal) {
	rate := phenotype.Lifecycle(agent.Resource).Metabolism
	for _, r := range w.Agents(agent.Resource) {
		if !r.IsActive() {
			continue
		}
		if _, eaten := meals[r.ID]; eaten {
			r.Kill()
			l.counters.Eaten++
			continue
		}
		if UpdateEnergy(r, rate, l.cfg.Alife.MaturityAge, dt) <= 0 {
			r.Kill()
			continue
		}
		if r.Lifecycle.Expired(now) {
			r.Kill()
			l.counters.Expired++
			continue
		}
		AgeCharges(r, l.cfg.Alife.ChargeTau, dt)
	}
}

func (l *Alife) minions(dt float64, now agent.SimulationTime, w *world.World, food map[agent.ID]float64, ch *world.Changes) {
	rate := phenotype.Lifecycle(agent.Minion).Metabolism
	for _, m := range w.Agents(agent.Minion) {
		if !m.IsActive() {
			continue
		}

		// Reproduction: retried every tick while the timer stays expired.
		if m.Lifecycle.Expired(now) && l.canLay(w) && m.ConsumeRatio(l.cfg.Alife.ReproductionRatio) {
			tail, ok := m.FirstSegment(components.Tail)
			if !ok {
				tail = m.Root()
			}
			ch.Spawn(world.SpawnRequest{
				Type:      agent.Spore,
				Dna:       m.Dna,
				Transform: tail.Transform,
				Motion:    tail.Motion,
				Charge:    phenotype.Lifecycle(agent.Spore).InitialCharge,
				Alert:     &event.Alert{Kind: event.NewSpore, Agent: m.ID, Position: tail.Transform.Position},
			})
			m.Lifecycle.Renew(now)
			l.counters.SporesLaid++
		}

		if !w.InBounds(m.Position()) {
			m.Kill()
			l.counters.OutOfBounds++
			ch.Alert(event.Alert{Kind: event.DieMinion, Agent: m.ID, Position: m.Position(), Time: now})
			continue
		}

		if e, ok := food[m.ID]; ok {
			got := m.AddEnergy(e)
			l.fed[m.ID] = got
			l.counters.EnergyEaten += got
		}

		if UpdateEnergy(m, rate, l.cfg.Alife.MaturityAge, dt) < l.cfg.Alife.MinionDeathEnergy {
			m.Kill()
			l.counters.Starved++
			ch.Alert(event.Alert{Kind: event.DieMinion, Agent: m.ID, Position: m.Position(), Time: now})
			l.decay(m, ch)
			continue
		}

		if tracker, ok := m.FirstSegment(components.Tracker); ok && m.Trajectory != nil {
			m.Trajectory.Push(tracker.Transform.Position)
		}
		AgeCharges(m, l.cfg.Alife.ChargeTau, dt)
	}
}

// canLay reports whether the minion population leaves room for a spore.
func (l *Alife) canLay(w *world.World) bool {
	return w.Population(agent.Minion)+w.Population(agent.Spore) < l.cfg.Population.MaxMinions
}

// decay turns a dead minion into one resource per segment.
func (l *Alife) decay(m *agent.Agent, ch *world.Changes) {
	for i := range m.Segments {
		seg := &m.Segments[i]
		ch.Spawn(world.SpawnRequest{
			Type:      agent.Resource,
			Transform: seg.Transform,
			Motion:    seg.Motion,
			Charge:    l.cfg.Alife.CorpseCharge,
		})
	}
}

func (l *Alife) spores(dt float64, now agent.SimulationTime, w *world.World, gametes map[agent.ID]gamete, ch *world.Changes) {
	rate := phenotype.Lifecycle(agent.Spore).Metabolism
	for _, s := range w.Agents(agent.Spore) {
		if !s.IsActive() {
			continue
		}

		if s.Lifecycle.Expired(now) {
			s.Kill()
			l.counters.Expired++
			dna := s.Dna
			if s.IsFertilised() && !s.Mate.IsZero() {
				dna = genome.Crossover(l.rng, s.Dna, s.Mate)
			}
			root := s.Root()
			ch.Spawn(world.SpawnRequest{
				Type:      agent.Minion,
				Dna:       dna,
				Transform: root.Transform,
				Motion:    root.Motion,
				Charge:    phenotype.Lifecycle(agent.Minion).InitialCharge,
				Alert:     &event.Alert{Kind: event.NewMinion, Agent: s.ID, Position: root.Transform.Position},
			})
			l.counters.Hatched++
			continue
		}

		if g, ok := gametes[s.ID]; ok {
			s.Fertilise(g.dna)
			l.counters.Fertilisations++
			ch.Alert(event.Alert{Kind: event.Fertilised, Agent: s.ID, Other: g.father, Position: s.Position(), Time: now})
		}

		if UpdateEnergy(s, rate, l.cfg.Alife.MaturityAge, dt) <= 0 {
			s.Kill()
			continue
		}
		AgeCharges(s, l.cfg.Alife.ChargeTau, dt)
	}
}

// feeders emits resources from each beacon on its interval.
func (l *Alife) feeders(now agent.SimulationTime, w *world.World, ch *world.Changes) {
	pending := 0
	for i := range w.Feeders {
		f := &w.Feeders[i]
		if now.Elapsed < f.Next {
			continue
		}
		f.Next = now.Elapsed + l.cfg.Feeder.Interval
		if w.Population(agent.Resource)+pending >= l.cfg.Population.MaxResources {
			continue
		}
		jitter := r2.Vec{
			X: (l.rng.Float64()*2 - 1) * l.cfg.Feeder.Spread,
			Y: (l.rng.Float64()*2 - 1) * l.cfg.Feeder.Spread,
		}
		ch.Spawn(world.SpawnRequest{
			Type:      agent.Resource,
			Transform: geom.Transform{Position: r2.Add(f.Position, jitter), Angle: l.rng.Float64() * 2 * math.Pi},
			Charge:    phenotype.Lifecycle(agent.Resource).InitialCharge,
		})
		pending++
	}
}
