package systems

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/components"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/world"
)

const testDT = 1.0 / 60

func TestMain(m *testing.M) {
	config.MustInit("")
	m.Run()
}

// newTestWorld returns a world without feeders so the ecology pass draws
// nothing from its RNG unless a spore hatches.
func newTestWorld(t *testing.T) (*world.World, *rand.Rand) {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	w, err := world.New(config.Cfg(), rng)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Feeders = nil
	return w, rng
}

func spawnDna(w *world.World, kind agent.Type, dna genome.Dna, pos r2.Vec, charge float64) *agent.Agent {
	return w.Spawn(kind, genome.New(dna), geom.Transform{Position: pos}, geom.Motion{}, charge, agent.SimulationTime{})
}

func spawn(w *world.World, rng *rand.Rand, kind agent.Type, pos r2.Vec) *agent.Agent {
	return spawnDna(w, kind, genome.RandomDna(rng, 96), pos, 0.8)
}

func testAgent(t *testing.T, kind agent.Type) *agent.Agent {
	t.Helper()
	w, rng := newTestWorld(t)
	return spawn(w, rng, kind, r2.Vec{})
}

func touch(seg *agent.Segment, other *agent.Agent) {
	seg.State.Touched = true
	seg.State.LastTouched = components.Contact{Agent: other.ID.Packed(), Segment: 0}
}

func spawnsOf(ch world.Changes, kind agent.Type) []world.SpawnRequest {
	var out []world.SpawnRequest
	for _, req := range ch.Spawns {
		if req.Type == kind {
			out = append(out, req)
		}
	}
	return out
}

func TestStarvation(t *testing.T) {
	w, rng := newTestWorld(t)
	r := spawn(w, rng, agent.Resource, r2.Vec{})
	r.SetEnergy(0.001)

	alife := NewAlife(config.Cfg(), rand.New(rand.NewSource(42)))
	now := agent.SimulationTime{}
	for i := 0; i < 1000 && r.IsAlive(); i++ {
		now = now.Advance(testDT)
		alife.Update(testDT, now, w)
	}

	if r.IsAlive() {
		t.Fatalf("resource still alive with energy %v", r.Energy())
	}
	w.Sweep()
	if _, ok := w.Get(r.ID); ok {
		t.Error("starved resource still in its swarm after sweep")
	}
}

func TestResourceExpires(t *testing.T) {
	w, rng := newTestWorld(t)
	r := spawn(w, rng, agent.Resource, r2.Vec{})

	now := agent.SimulationTime{Elapsed: r.Lifecycle.Duration + 1}
	NewAlife(config.Cfg(), rng).Update(testDT, now, w)

	if r.IsAlive() {
		t.Error("expired resource survived")
	}
}

func TestReproduction(t *testing.T) {
	w, rng := newTestWorld(t)
	m := spawn(w, rng, agent.Minion, r2.Vec{X: 10, Y: -5})
	m.SetEnergy(m.Limits.MaxEnergy)
	m.Lifecycle.Start = -m.Lifecycle.Duration

	tail, ok := m.FirstSegment(components.Tail)
	if !ok {
		t.Fatal("minion has no tail")
	}
	tailTransform := tail.Transform

	now := agent.SimulationTime{Elapsed: 1, Frame: 60}
	alife := NewAlife(config.Cfg(), rand.New(rand.NewSource(42)))
	ch := alife.Update(testDT, now, w)

	spores := spawnsOf(ch, agent.Spore)
	if len(spores) != 1 {
		t.Fatalf("%d spore requests, want 1", len(spores))
	}
	if spores[0].Transform != tailTransform {
		t.Errorf("spore at %+v, want tail %+v", spores[0].Transform, tailTransform)
	}
	if !spores[0].Dna.Equal(m.Dna) {
		t.Error("spore does not carry the parent's dna")
	}
	if m.Lifecycle.Expired(now) || m.Lifecycle.Start != now.Elapsed {
		t.Errorf("lifecycle not renewed: %+v at %v", m.Lifecycle, now.Elapsed)
	}
	if got := alife.TakeCounters().SporesLaid; got != 1 {
		t.Errorf("SporesLaid = %d, want 1", got)
	}

	alerts := w.Apply(ch, rng, now)
	if w.Population(agent.Spore) != 1 {
		t.Fatalf("spore population = %d, want 1", w.Population(agent.Spore))
	}
	spore := w.Agents(agent.Spore)[0]
	if spore.Position() != tailTransform.Position {
		t.Errorf("spore position = %v, want %v", spore.Position(), tailTransform.Position)
	}
	var found bool
	for _, a := range alerts {
		if a.Kind == event.NewSpore && a.Agent == m.ID && a.Other == spore.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("no new_spore alert in %+v", alerts)
	}
}

func TestReproductionRetriesWithoutEnergy(t *testing.T) {
	w, rng := newTestWorld(t)
	m := spawn(w, rng, agent.Minion, r2.Vec{})
	m.SetEnergy(m.Limits.MaxEnergy * 0.5)
	m.Lifecycle.Start = -m.Lifecycle.Duration

	alife := NewAlife(config.Cfg(), rand.New(rand.NewSource(42)))
	now := agent.SimulationTime{Elapsed: 1}
	if ch := alife.Update(testDT, now, w); len(spawnsOf(ch, agent.Spore)) != 0 {
		t.Fatal("spore laid without enough energy")
	}
	if !m.Lifecycle.Expired(now) {
		t.Fatal("lifecycle renewed without laying")
	}

	m.SetEnergy(m.Limits.MaxEnergy)
	now = now.Advance(testDT)
	if ch := alife.Update(testDT, now, w); len(spawnsOf(ch, agent.Spore)) != 1 {
		t.Error("retry on the next tick did not lay a spore")
	}
}

func TestMinionStarvesIntoCorpses(t *testing.T) {
	w, rng := newTestWorld(t)
	m := spawn(w, rng, agent.Minion, r2.Vec{})
	m.SetEnergy(0.5)

	alife := NewAlife(config.Cfg(), rand.New(rand.NewSource(42)))
	now := agent.SimulationTime{Elapsed: 1}
	ch := alife.Update(testDT, now, w)

	if m.IsAlive() {
		t.Fatal("minion below death energy survived")
	}
	corpses := spawnsOf(ch, agent.Resource)
	if len(corpses) != len(m.Segments) {
		t.Errorf("%d corpses, want one per segment (%d)", len(corpses), len(m.Segments))
	}
	for i, c := range corpses {
		if !c.Dna.IsZero() || c.Charge != config.Cfg().Alife.CorpseCharge {
			t.Errorf("corpse %d = %+v", i, c)
		}
	}
	if len(ch.Alerts) != 1 || ch.Alerts[0].Kind != event.DieMinion {
		t.Errorf("alerts = %+v, want one die_minion", ch.Alerts)
	}
}

func TestOutOfBoundsKills(t *testing.T) {
	w, rng := newTestWorld(t)
	m := spawn(w, rng, agent.Minion, r2.Vec{X: w.Arena.Max.X + 50})

	NewAlife(config.Cfg(), rng).Update(testDT, agent.SimulationTime{Elapsed: 1}, w)
	if m.IsAlive() {
		t.Error("minion outside the arena survived")
	}
}

func TestFeeding(t *testing.T) {
	w, rng := newTestWorld(t)
	m1 := spawn(w, rng, agent.Minion, r2.Vec{})
	m2 := spawn(w, rng, agent.Minion, r2.Vec{X: 5})
	r := spawn(w, rng, agent.Resource, r2.Vec{X: 2})
	m1.SetEnergy(m1.Limits.MaxEnergy / 2)
	m2.SetEnergy(m2.Limits.MaxEnergy / 2)
	meal := r.Energy()

	// Both mouths touch the resource; the lowest id eats.
	mouth1, _ := m1.FirstSegment(components.Mouth)
	mouth2, _ := m2.FirstSegment(components.Mouth)
	touch(mouth2, r)
	touch(mouth1, r)
	before1, before2 := m1.Energy(), m2.Energy()

	alife := NewAlife(config.Cfg(), rng)
	alife.Update(testDT, agent.SimulationTime{Elapsed: 1}, w)

	if r.IsAlive() {
		t.Error("eaten resource survived")
	}
	if m1.Energy() <= before1 {
		t.Errorf("eater energy %v did not rise from %v", m1.Energy(), before1)
	}
	if m2.Energy() >= before2 {
		t.Errorf("second eater gained energy: %v from %v", m2.Energy(), before2)
	}
	c := alife.TakeCounters()
	if c.Eaten != 1 || c.EnergyEaten <= 0 || c.EnergyEaten > meal {
		t.Errorf("counters = %+v (meal %v)", c, meal)
	}
}

func fertilisationWorld(t *testing.T) (*world.World, *agent.Agent, *agent.Agent) {
	t.Helper()
	w, rng := newTestWorld(t)
	// Different lengths so the hatchling's dna cannot equal either parent's.
	spore := spawnDna(w, agent.Spore, genome.RandomDna(rng, 64), r2.Vec{}, 0.5)
	father := spawnDna(w, agent.Minion, genome.RandomDna(rng, 48), r2.Vec{X: 1}, 0.8)
	spore.Gender = agent.Female
	father.Gender = agent.Male
	return w, spore, father
}

func TestFertilisationAndHatch(t *testing.T) {
	w, spore, father := fertilisationWorld(t)
	touch(spore.Root(), father)

	alife := NewAlife(config.Cfg(), rand.New(rand.NewSource(42)))
	now := agent.SimulationTime{Elapsed: 0.5}
	ch := alife.Update(testDT, now, w)

	if !spore.IsFertilised() || !spore.Mate.Equal(father.Dna) {
		t.Fatal("spore not fertilised by the touching minion")
	}
	if len(ch.Alerts) != 1 || ch.Alerts[0].Kind != event.Fertilised || ch.Alerts[0].Other != father.ID {
		t.Errorf("alerts = %+v, want one fertilised", ch.Alerts)
	}

	spore.Lifecycle.Start = -spore.Lifecycle.Duration
	now = now.Advance(testDT)
	ch = alife.Update(testDT, now, w)

	if spore.IsAlive() {
		t.Error("spore survived hatching")
	}
	hatched := spawnsOf(ch, agent.Minion)
	if len(hatched) != 1 {
		t.Fatalf("%d hatchlings, want 1", len(hatched))
	}
	if hatched[0].Dna.Equal(spore.Dna) {
		t.Error("hatchling dna equals the spore's: no crossover")
	}
	if hatched[0].Dna.Len() != father.Dna.Len() {
		t.Errorf("hatchling dna length = %d, want %d", hatched[0].Dna.Len(), father.Dna.Len())
	}
	if c := alife.TakeCounters(); c.Fertilisations != 1 || c.Hatched != 1 {
		t.Errorf("counters = %+v", c)
	}
}

func TestUnfertilisedHatchKeepsDna(t *testing.T) {
	w, spore, _ := fertilisationWorld(t)
	spore.Lifecycle.Start = -spore.Lifecycle.Duration

	ch := NewAlife(config.Cfg(), rand.New(rand.NewSource(42))).Update(testDT, agent.SimulationTime{Elapsed: 1}, w)
	hatched := spawnsOf(ch, agent.Minion)
	if len(hatched) != 1 {
		t.Fatalf("%d hatchlings, want 1", len(hatched))
	}
	if !hatched[0].Dna.Equal(spore.Dna) {
		t.Error("unfertilised hatchling dna changed")
	}
}

func TestSameGenderDoesNotFertilise(t *testing.T) {
	w, spore, father := fertilisationWorld(t)
	father.Gender = spore.Gender
	touch(spore.Root(), father)

	NewAlife(config.Cfg(), rand.New(rand.NewSource(42))).Update(testDT, agent.SimulationTime{Elapsed: 0.5}, w)
	if spore.IsFertilised() {
		t.Error("same-gender touch fertilised the spore")
	}
}

func TestFeederSpawnsResources(t *testing.T) {
	w, rng := newTestWorld(t)
	w.Feeders = []world.Feeder{{Position: r2.Vec{X: 10, Y: 10}}}
	cfg := config.Cfg()

	alife := NewAlife(cfg, rng)
	ch := alife.Update(testDT, agent.SimulationTime{Elapsed: 0}, w)
	res := spawnsOf(ch, agent.Resource)
	if len(res) != 1 {
		t.Fatalf("%d resources, want 1", len(res))
	}
	if d := r2.Norm(r2.Sub(res[0].Transform.Position, w.Feeders[0].Position)); d > cfg.Feeder.Spread*1.5 {
		t.Errorf("resource %v too far from feeder", res[0].Transform.Position)
	}
	if w.Feeders[0].Next != cfg.Feeder.Interval {
		t.Errorf("next emission at %v, want %v", w.Feeders[0].Next, cfg.Feeder.Interval)
	}

	ch = alife.Update(testDT, agent.SimulationTime{Elapsed: testDT}, w)
	if len(spawnsOf(ch, agent.Resource)) != 0 {
		t.Error("feeder emitted before its interval")
	}
}

func TestEnergyBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := config.Cfg()
	w, err := world.New(cfg, rng)
	if err != nil {
		t.Fatal(err)
	}
	now := agent.SimulationTime{}
	w.Populate(cfg, rng, now)

	ai := NewAI(w.Arena)
	alife := NewAlife(cfg, rng)
	for tick := 0; tick < 2400; tick++ {
		now = now.Advance(testDT)
		ai.Update(w)
		w.Apply(alife.Update(testDT, now, w), rng, now)
		w.Sweep()

		for _, kind := range agent.Types {
			for _, a := range w.Agents(kind) {
				if e := a.Energy(); e < 0 || e > a.Limits.MaxEnergy {
					t.Fatalf("tick %d: %v energy %v outside [0, %v]", tick, a.ID, e, a.Limits.MaxEnergy)
				}
				for i := range a.Segments {
					if c := a.Segments[i].State.Charge; c < 0 || c > 1 {
						t.Fatalf("tick %d: %v segment %d charge %v", tick, a.ID, i, c)
					}
				}
			}
		}
	}
}
