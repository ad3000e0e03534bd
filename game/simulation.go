// Package game hosts the simulation: it owns the per-tick pipeline, the
// physics collaborator and the telemetry around them.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/physics"
	"github.com/pthm-cable/minions/storage"
	"github.com/pthm-cable/minions/systems"
	"github.com/pthm-cable/minions/telemetry"
	"github.com/pthm-cable/minions/world"
)

// Options configures a Simulation.
type Options struct {
	Seed        int64
	RunID       string // empty = generate one
	LogStats    bool
	OutputDir   string
	SnapshotDir string
	Workers     int             // 0 = config value
	Archive     storage.Archive // nil = no archive
	Engine      physics.Engine  // nil = kinematic engine over the world's arena
}

// Simulation runs the per-tick pipeline: AI, Alife, world changes, physics.
type Simulation struct {
	ctx   context.Context
	cfg   *config.Config
	rng   *rand.Rand
	runID string

	world  *world.World
	now    agent.SimulationTime
	tick   uint64
	ai     *systems.AI
	alife  *systems.Alife
	engine physics.Engine
	think  *thinkPool
	bus    *event.Bus

	workers  int
	logStats bool

	// Telemetry
	collector        *telemetry.Collector
	lifetimes        *telemetry.LifetimeTracker
	perf             *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)

	// Persistence
	archive      storage.Archive
	snapshotDir  string
	nextSnapshot float64
}

// NewSimulation creates a simulation. Init must be called before Update.
func NewSimulation(ctx context.Context, opts Options) (*Simulation, error) {
	cfg := config.Cfg()

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	workers := opts.Workers
	if workers == 0 {
		workers = cfg.AI.Workers
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	return &Simulation{
		ctx:              ctx,
		cfg:              cfg,
		rng:              rng,
		runID:            runID,
		alife:            systems.NewAlife(cfg, rng),
		engine:           opts.Engine,
		bus:              event.NewBus(),
		workers:          workers,
		logStats:         opts.LogStats,
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		lifetimes:        telemetry.NewLifetimeTracker(),
		perf:             telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		outputManager:    om,
		archive:          opts.Archive,
		snapshotDir:      opts.SnapshotDir,
		nextSnapshot:     cfg.Telemetry.SnapshotInterval,
	}, nil
}

// Init binds the simulation to w. An empty world is populated first.
// Agents already in w are registered with the physics engine.
func (s *Simulation) Init(w *world.World) error {
	s.world = w
	s.ai = systems.NewAI(w.Arena)
	s.think = newThinkPool(s.ai, s.workers, s.cfg.AI.ParallelThreshold)
	if s.engine == nil {
		s.engine = physics.NewKinematic(w.Arena)
	}

	if w.Population(agent.Minion)+w.Population(agent.Resource) == 0 {
		w.Populate(s.cfg, s.rng, s.now)
	}

	for _, id := range w.ConsumeRegistered() {
		if err := s.register(id); err != nil {
			return err
		}
	}

	slog.Info("simulation_init",
		"run_id", s.runID,
		"minions", w.Population(agent.Minion),
		"resources", w.Population(agent.Resource),
		"spores", w.Population(agent.Spore),
	)
	return nil
}

// Update advances the world by dt: AI, Alife, world changes and one
// physics step. Dead agents stay in their swarms until Sweep.
func (s *Simulation) Update(dt float64, w *world.World) {
	if w != s.world {
		panic("game: Update called with a world that was not passed to Init")
	}
	s.perf.StartTick()
	s.now = s.now.Advance(dt)
	s.tick++

	s.perf.StartPhase(telemetry.PhaseAI)
	s.think.run(w)

	s.perf.StartPhase(telemetry.PhaseAlife)
	ch := s.alife.Update(dt, s.now, w)
	s.collector.RecordAlife(s.alife.TakeCounters())
	for id, e := range s.alife.Fed() {
		s.lifetimes.RecordForage(id, e)
	}

	s.perf.StartPhase(telemetry.PhaseApply)
	alerts := w.Apply(ch, s.rng, s.now)
	if alert, ok := s.regenerate(); ok {
		alerts = append(alerts, alert)
	}
	s.recordAlerts(alerts)
	for _, id := range w.ConsumeRegistered() {
		s.collector.RecordBirth(id.Type)
		if err := s.register(id); err != nil {
			slog.Error("physics_create_failed", "agent", id.String(), "error", err)
		}
	}
	s.bus.Post(alerts...)

	s.perf.StartPhase(telemetry.PhasePhysics)
	var forces []physics.Force
	for _, t := range agent.Types {
		forces = append(forces, physics.Forces(w.Agents(t))...)
	}
	report := s.engine.Step(dt, forces)
	w.ApplyPoses(report.Poses)
	w.ApplyContacts(report.Touches)
	w.ApplyDestroyed(report.Destroyed)
}

// Sweep removes dead agents, destroys their bodies and flushes telemetry.
// Returns the freed agents.
func (s *Simulation) Sweep() []*agent.Agent {
	s.perf.StartPhase(telemetry.PhaseSweep)
	freed := s.world.Sweep()
	for _, a := range freed {
		s.engine.Destroy(a.ID)
		s.collector.RecordDeath(a.ID.Type)
		s.retire(a)
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	s.maybeSnapshot()
	s.perf.EndTick()
	return freed
}

// Step runs Update followed by Sweep.
func (s *Simulation) Step(dt float64) []*agent.Agent {
	s.Update(dt, s.world)
	return s.Sweep()
}

// Alerts drains the alerts posted since the last call.
func (s *Simulation) Alerts() []event.Alert { return s.bus.Drain() }

// Bus returns the alert bus.
func (s *Simulation) Bus() *event.Bus { return s.bus }

// World returns the bound world.
func (s *Simulation) World() *world.World { return s.world }

// Now returns the simulation clock.
func (s *Simulation) Now() agent.SimulationTime { return s.now }

// SetNow sets the simulation clock, used when resuming a saved world.
func (s *Simulation) SetNow(now agent.SimulationTime) {
	s.now = now
	s.tick = now.Frame
	s.nextSnapshot = now.Elapsed + s.cfg.Telemetry.SnapshotInterval
}

// Tick returns the number of completed updates.
func (s *Simulation) Tick() uint64 { return s.tick }

// RunID returns the identifier stamped on snapshots and archive entries.
func (s *Simulation) RunID() string { return s.runID }

// Lifetimes returns the lifetime tracker.
func (s *Simulation) Lifetimes() *telemetry.LifetimeTracker { return s.lifetimes }

// SetStatsCallback registers a function called with every flushed window.
func (s *Simulation) SetStatsCallback(fn func(telemetry.WindowStats)) {
	s.statsCallback = fn
}

// Close stops the worker pool and closes output files.
func (s *Simulation) Close() error {
	if s.think != nil {
		s.think.stopWorkers()
	}
	return s.outputManager.Close()
}

// register creates the physics bodies of a newly inserted agent and starts
// its lifetime record.
func (s *Simulation) register(id agent.ID) error {
	a, ok := s.world.Get(id)
	if !ok {
		return nil
	}
	if id.Type == agent.Minion || id.Type == agent.Spore {
		s.lifetimes.Register(id, s.now)
	}
	return s.engine.Create(a)
}
