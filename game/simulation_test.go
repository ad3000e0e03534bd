package game

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/physics"
	"github.com/pthm-cable/minions/storage"
	"github.com/pthm-cable/minions/telemetry"
	"github.com/pthm-cable/minions/world"
)

func TestMain(m *testing.M) {
	config.MustInit("")
	os.Exit(m.Run())
}

type testSim struct {
	*Simulation
	engine *physics.Kinematic
}

// newTestSim builds a simulation bound to a freshly populated world.
func newTestSim(t *testing.T, opts Options) testSim {
	t.Helper()
	w, err := world.New(config.Cfg(), rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	engine := physics.NewKinematic(w.Arena)

	if opts.Seed == 0 {
		opts.Seed = 42
	}
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	opts.Engine = engine

	sim, err := NewSimulation(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	t.Cleanup(func() { sim.Close() })

	if err := sim.Init(w); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return testSim{Simulation: sim, engine: engine}
}

func totalAgents(w *world.World) int {
	var n int
	for _, t := range agent.Types {
		n += w.Population(t)
	}
	return n
}

func TestInitPopulatesAndRegisters(t *testing.T) {
	cfg := config.Cfg()
	sim := newTestSim(t, Options{})
	w := sim.World()

	if got := w.Population(agent.Minion); got != cfg.Population.InitialMinions {
		t.Errorf("minions = %d, want %d", got, cfg.Population.InitialMinions)
	}
	if got := w.Population(agent.Resource); got != cfg.Population.InitialResources {
		t.Errorf("resources = %d, want %d", got, cfg.Population.InitialResources)
	}
	if sim.engine.Len() != totalAgents(w) {
		t.Errorf("engine has %d assemblies, want %d", sim.engine.Len(), totalAgents(w))
	}
	if sim.Lifetimes().Count() != cfg.Population.InitialMinions {
		t.Errorf("lifetime records = %d, want %d", sim.Lifetimes().Count(), cfg.Population.InitialMinions)
	}
	if sim.RunID() == "" {
		t.Error("run id not generated")
	}
	if _, err := os.Stat(filepath.Join(sim.outputManager.Dir(), "config.yaml")); err != nil {
		t.Errorf("config snapshot: %v", err)
	}
}

func TestStepAdvancesClock(t *testing.T) {
	cfg := config.Cfg()
	sim := newTestSim(t, Options{})

	const steps = 120
	for i := 0; i < steps; i++ {
		sim.Step(cfg.Physics.DT)
	}

	if sim.Tick() != steps {
		t.Errorf("tick = %d, want %d", sim.Tick(), steps)
	}
	if want := steps * cfg.Physics.DT; math.Abs(sim.Now().Elapsed-want) > 1e-9 {
		t.Errorf("elapsed = %v, want %v", sim.Now().Elapsed, want)
	}

	w := sim.World()
	if n := w.Population(agent.Minion); n > cfg.Population.MaxMinions {
		t.Errorf("minions = %d above cap %d", n, cfg.Population.MaxMinions)
	}
	if n := w.Population(agent.Resource); n > cfg.Population.MaxResources {
		t.Errorf("resources = %d above cap %d", n, cfg.Population.MaxResources)
	}
	if sim.engine.Len() != totalAgents(w) {
		t.Errorf("engine has %d assemblies, world has %d agents", sim.engine.Len(), totalAgents(w))
	}
}

func TestSameSeedSameWorld(t *testing.T) {
	cfg := config.Cfg()
	a := newTestSim(t, Options{Seed: 7})
	b := newTestSim(t, Options{Seed: 7})

	for i := 0; i < 60; i++ {
		a.Step(cfg.Physics.DT)
		b.Step(cfg.Physics.DT)
	}

	for _, kind := range agent.Types {
		pa, pb := a.World().Agents(kind), b.World().Agents(kind)
		if len(pa) != len(pb) {
			t.Fatalf("%v population %d vs %d", kind, len(pa), len(pb))
		}
		for i := range pa {
			if pa[i].ID != pb[i].ID || pa[i].Position() != pb[i].Position() {
				t.Fatalf("%v agent %d diverged: %v at %v vs %v at %v",
					kind, i, pa[i].ID, pa[i].Position(), pb[i].ID, pb[i].Position())
			}
		}
	}
}

func TestUpdateRejectsForeignWorld(t *testing.T) {
	sim := newTestSim(t, Options{})
	other := world.NewEmpty(10, 10)

	defer func() {
		if recover() == nil {
			t.Error("Update on a foreign world did not panic")
		}
	}()
	sim.Update(config.Cfg().Physics.DT, other)
}

func TestSweepDestroysBodies(t *testing.T) {
	sim := newTestSim(t, Options{})
	w := sim.World()

	minions := w.Agents(agent.Minion)
	for _, m := range minions[:3] {
		m.Kill()
	}
	before := sim.engine.Len()

	freed := sim.Sweep()
	if len(freed) != 3 {
		t.Fatalf("freed %d agents, want 3", len(freed))
	}
	if sim.engine.Len() != before-3 {
		t.Errorf("engine has %d assemblies, want %d", sim.engine.Len(), before-3)
	}
	for _, a := range freed {
		if _, ok := w.Get(a.ID); ok {
			t.Errorf("%v still in world", a.ID)
		}
		if sim.Lifetimes().Get(a.ID) != nil {
			t.Errorf("%v still tracked", a.ID)
		}
	}
}

func TestStatsCallbackPerWindow(t *testing.T) {
	cfg := config.Cfg()
	sim := newTestSim(t, Options{})

	var windows []telemetry.WindowStats
	sim.SetStatsCallback(func(s telemetry.WindowStats) {
		windows = append(windows, s)
	})

	ticks := cfg.Derived.StatsWindowTicks
	for i := 0; i < ticks; i++ {
		sim.Step(cfg.Physics.DT)
	}

	if len(windows) != 1 {
		t.Fatalf("callback fired %d times, want 1", len(windows))
	}
	if windows[0].WindowEndTick != uint64(ticks) {
		t.Errorf("window end = %d, want %d", windows[0].WindowEndTick, ticks)
	}
	if windows[0].Minions != sim.World().Population(agent.Minion) {
		t.Errorf("window minions = %d, world has %d", windows[0].Minions, sim.World().Population(agent.Minion))
	}
}

func TestRetireArchivesParents(t *testing.T) {
	ctx := context.Background()
	archive := storage.NewMemoryArchive(16)
	sim := newTestSim(t, Options{Archive: archive})

	minions := sim.World().Agents(agent.Minion)
	parent, idle := minions[0], minions[1]
	sim.Lifetimes().RecordChild(parent.ID)
	sim.Lifetimes().RecordChild(parent.ID)
	parent.Kill()
	idle.Kill()
	sim.Sweep()

	top, err := archive.Top(ctx, agent.Minion, 16)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("archived %d entries, want 1", len(top))
	}
	if !top[0].Dna.Equal(parent.Dna) || top[0].Children != 2 {
		t.Errorf("archived %v with %d children", top[0].Dna, top[0].Children)
	}
	if top[0].RunID != sim.RunID() {
		t.Errorf("run id = %q, want %q", top[0].RunID, sim.RunID())
	}
}

func TestRegenerationReseedsFromArchive(t *testing.T) {
	ctx := context.Background()
	cfg := config.Cfg()
	rng := rand.New(rand.NewSource(42))

	archive := storage.NewMemoryArchive(16)
	archived := make([]genome.Dna, 3)
	for i := range archived {
		archived[i] = genome.RandomDna(rng, 96)
		if err := archive.Put(ctx, storage.NewEntry("old", agent.Minion, archived[i], i+1, 10, cfg.Archive)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	sim := newTestSim(t, Options{Archive: archive})
	w := sim.World()
	for _, m := range w.Agents(agent.Minion) {
		m.Kill()
	}
	sim.Sweep()
	sim.Alerts()

	sim.Update(cfg.Physics.DT, w)

	if w.Regenerations != 1 {
		t.Fatalf("regenerations = %d, want 1", w.Regenerations)
	}
	if w.MinionPool.Len() != cfg.Population.RegenerationCount {
		t.Errorf("pool size = %d, want %d", w.MinionPool.Len(), cfg.Population.RegenerationCount)
	}
	for _, d := range w.MinionPool.Entries() {
		found := false
		for _, a := range archived {
			found = found || d.Equal(a)
		}
		if !found {
			t.Errorf("pool entry %v not from the archive", d)
		}
	}
	if n := w.Population(agent.Minion); n < cfg.Population.RegenerationCount {
		t.Errorf("minions = %d after regeneration, want at least %d", n, cfg.Population.RegenerationCount)
	}
	if sim.engine.Len() != totalAgents(w) {
		t.Errorf("regenerated minions not registered: %d assemblies, %d agents", sim.engine.Len(), totalAgents(w))
	}

	var regenerated bool
	for _, a := range sim.Alerts() {
		regenerated = regenerated || a.Kind == event.Regenerated
	}
	if !regenerated {
		t.Error("no regenerated alert posted")
	}
}

func TestSnapshotResume(t *testing.T) {
	cfg := config.Cfg()
	sim := newTestSim(t, Options{})
	for i := 0; i < 30; i++ {
		sim.Step(cfg.Physics.DT)
	}

	path, err := sim.SaveSnapshot(t.TempDir())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	w, st, err := storage.LoadSnapshot(path, cfg, rand.New(rand.NewSource(1)), agent.SimulationTime{})
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if st.RunID != sim.RunID() {
		t.Errorf("run id = %q, want %q", st.RunID, sim.RunID())
	}

	engine := physics.NewKinematic(w.Arena)
	resumed, err := NewSimulation(context.Background(), Options{Seed: 1, Engine: engine})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	defer resumed.Close()
	if err := resumed.Init(w); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if engine.Len() != totalAgents(w) {
		t.Errorf("loaded world registered %d assemblies, want %d", engine.Len(), totalAgents(w))
	}
	if w.Population(agent.Minion) != sim.World().Population(agent.Minion) {
		t.Errorf("minions = %d, want %d", w.Population(agent.Minion), sim.World().Population(agent.Minion))
	}
	resumed.Step(cfg.Physics.DT)
}
