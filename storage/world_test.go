package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/world"
)

func TestMain(m *testing.M) {
	config.MustInit("")
	m.Run()
}

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	w, err := world.New(config.Cfg(), rng)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Populate(config.Cfg(), rng, agent.SimulationTime{})
	w.MinionPool.Add(genome.RandomDna(rng, 32))
	w.MinionPool.Add(genome.RandomDna(rng, 32))
	w.MinionPool.Next()
	w.Regenerations = 3
	return w
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSaveLoadWorld(t *testing.T) {
	w := newTestWorld(t)
	now := agent.SimulationTime{Elapsed: 12, Frame: 720}

	m := w.Agents(agent.Minion)[0]
	m.Age = agent.SimulationTime{Elapsed: 7.5, Frame: 450}
	m.Maturity = 0.4
	m.Lifecycle.Start = now.Elapsed - 0.25*m.Lifecycle.Duration
	m.Segments[0].State.Charge = 0.3
	m.Segments[0].State.Target = 0.9
	m.SetEnergy(m.Limits.MaxEnergy / 3)
	m.Root().Transform = geom.Transform{Position: r2.Vec{X: 5, Y: -4}, Angle: 1.2}

	var buf bytes.Buffer
	if err := SaveWorld(&buf, w, now, "run-1"); err != nil {
		t.Fatalf("SaveWorld: %v", err)
	}

	loaded, st, err := LoadWorld(&buf, config.Cfg(), rand.New(rand.NewSource(1)), now)
	if err != nil {
		t.Fatalf("LoadWorld: %v", err)
	}
	if st.RunID != "run-1" || st.Version != StateVersion {
		t.Errorf("state header = %q v%d", st.RunID, st.Version)
	}
	if loaded.Arena != w.Arena || loaded.Regenerations != 3 {
		t.Errorf("arena %v regenerations %d", loaded.Arena, loaded.Regenerations)
	}
	if loaded.MinionPool.Len() != 2 || loaded.MinionPool.Index() != 1 {
		t.Errorf("minion pool len %d index %d", loaded.MinionPool.Len(), loaded.MinionPool.Index())
	}

	for _, typ := range agent.Types {
		if got, want := loaded.Population(typ), w.Population(typ); got != want {
			t.Errorf("%v population = %d, want %d", typ, got, want)
		}
		if got, want := loaded.Swarm(typ).Seq(), w.Swarm(typ).Seq(); got != want {
			t.Errorf("%v seq = %d, want %d", typ, got, want)
		}
		if !loaded.Swarm(typ).Stream().Equal(w.Swarm(typ).Stream()) {
			t.Errorf("%v stream changed", typ)
		}
	}

	got, ok := loaded.Get(m.ID)
	if !ok {
		t.Fatalf("%v missing after load", m.ID)
	}
	if !got.Dna.Equal(m.Dna) || got.Gender != m.Gender || len(got.Segments) != len(m.Segments) {
		t.Error("agent not regrown from its dna")
	}
	if got.Age != m.Age || got.Maturity != 0.4 {
		t.Errorf("age %v maturity %v", got.Age, got.Maturity)
	}
	if !near(got.Lifecycle.Phase(now), 0.25) {
		t.Errorf("lifecycle phase = %v, want 0.25", got.Lifecycle.Phase(now))
	}
	if !near(got.Energy(), m.Energy()) {
		t.Errorf("energy = %v, want %v", got.Energy(), m.Energy())
	}
	if got.Segments[0].State.Charge != 0.3 || got.Segments[0].State.Target != 0.9 {
		t.Errorf("root charge = %+v", got.Segments[0].State)
	}
	if root := got.Root().Transform; !near(root.Position.X, 5) || !near(root.Position.Y, -4) || !near(root.Angle, 1.2) {
		t.Errorf("root transform = %+v", root)
	}
	if got.Flags&agent.FlagAlive == 0 || got.Flags&agent.FlagRegistered == 0 {
		t.Errorf("flags = %b", got.Flags)
	}

	// Every loaded agent is queued for registration with the host.
	var total int
	for _, typ := range agent.Types {
		total += loaded.Population(typ)
	}
	if n := len(loaded.ConsumeRegistered()); n != total {
		t.Errorf("registered %d agents, want %d", n, total)
	}
}

func TestLoadKeepsFertilisation(t *testing.T) {
	w := newTestWorld(t)
	rng := rand.New(rand.NewSource(42))
	s := w.Spawn(agent.Spore, genome.New(genome.RandomDna(rng, 64)), geom.Transform{}, geom.Motion{}, 0.5, agent.SimulationTime{})
	mate := genome.RandomDna(rng, 48)
	s.Fertilise(mate)

	var buf bytes.Buffer
	if err := SaveWorld(&buf, w, agent.SimulationTime{}, ""); err != nil {
		t.Fatal(err)
	}
	loaded, _, err := LoadWorld(&buf, config.Cfg(), rng, agent.SimulationTime{})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := loaded.Get(s.ID)
	if !got.IsFertilised() || !got.Mate.Equal(mate) {
		t.Error("spore lost its gamete")
	}

	// Unfertilised agents carry no mate.
	m := loaded.Agents(agent.Minion)[0]
	if !m.Mate.IsZero() {
		t.Error("minion gained a mate")
	}
}

func TestSavedIDsCarryType(t *testing.T) {
	w := newTestWorld(t)
	var buf bytes.Buffer
	if err := SaveWorld(&buf, w, agent.SimulationTime{}, ""); err != nil {
		t.Fatal(err)
	}

	var raw struct {
		Swarms []struct {
			AgentType uint8 `json:"agent_type"`
			Agents    []struct {
				ID uint32 `json:"id"`
			} `json:"agents"`
		} `json:"swarms"`
	}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	var checked int
	for _, sj := range raw.Swarms {
		for _, aj := range sj.Agents {
			if uint8(aj.ID&0xff) != sj.AgentType {
				t.Errorf("id %d low byte = %d, want agent type %d", aj.ID, aj.ID&0xff, sj.AgentType)
			}
			checked++
		}
	}
	if checked == 0 {
		t.Fatal("no agents saved")
	}

	m := w.Agents(agent.Minion)[0]
	loaded, _, err := LoadWorld(bytes.NewReader(buf.Bytes()), config.Cfg(), rand.New(rand.NewSource(1)), agent.SimulationTime{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.Get(m.ID); !ok {
		t.Errorf("%v missing after load", m.ID)
	}
}

func TestPlayerSurvivesRepeatedSaves(t *testing.T) {
	w := newTestWorld(t)
	rng := rand.New(rand.NewSource(42))
	p := w.Spawn(agent.Player, genome.New(genome.RandomDna(rng, 32)), geom.Transform{}, geom.Motion{}, 0.5, agent.SimulationTime{})

	now := agent.SimulationTime{Elapsed: 30, Frame: 1800}
	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		if err := SaveWorld(&buf, w, now, ""); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		loaded, _, err := LoadWorld(&buf, config.Cfg(), rand.New(rand.NewSource(1)), now)
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		got, ok := loaded.Get(p.ID)
		if !ok {
			t.Fatalf("load %d: %v missing", i, p.ID)
		}
		if math.IsNaN(got.Lifecycle.Start) || got.Lifecycle.Phase(now) != 0 {
			t.Errorf("load %d: lifecycle %+v phase %v", i, got.Lifecycle, got.Lifecycle.Phase(now))
		}
		w = loaded
	}
}

func TestLoadFollowsStoredArena(t *testing.T) {
	w := newTestWorld(t)
	w.Arena = geom.Rect{Min: r2.Vec{X: 200, Y: 200}, Max: r2.Vec{X: 260, Y: 230}}

	var buf bytes.Buffer
	if err := SaveWorld(&buf, w, agent.SimulationTime{}, ""); err != nil {
		t.Fatal(err)
	}
	loaded, _, err := LoadWorld(&buf, config.Cfg(), rand.New(rand.NewSource(1)), agent.SimulationTime{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Arena != w.Arena {
		t.Errorf("arena = %+v, want %+v", loaded.Arena, w.Arena)
	}
	if got := loaded.Fence.Area(); math.Abs(got-60*30) > 1e-6 {
		t.Errorf("fence area = %v, want %v", got, 60*30)
	}
	if len(loaded.Feeders) == 0 {
		t.Fatal("no feeders placed")
	}
	for _, f := range loaded.Feeders {
		if !loaded.InBounds(f.Position) {
			t.Errorf("feeder %v outside the stored arena", f.Position)
		}
	}
}

func TestLoadWorldErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		isVer bool
	}{
		{"not json", "{", false},
		{"future version", `{"version": 99, "arena": {"min_x": 0, "min_y": 0, "max_x": 1, "max_y": 1}}`, true},
		{"empty arena", `{"version": 1, "arena": {}}`, false},
		{"bad type", `{"version": 1, "arena": {"max_x": 1, "max_y": 1}, "swarms": [{"agent_type": 9}]}`, false},
		{"bad dna", `{"version": 1, "arena": {"max_x": 1, "max_y": 1}, "swarms": [{"agent_type": 1, "agents": [{"dna": "!!"}]}]}`, false},
		{"missing dna", `{"version": 1, "arena": {"max_x": 1, "max_y": 1}, "swarms": [{"agent_type": 1, "agents": [{"id": 257}]}]}`, false},
		{"wrong swarm", `{"version": 1, "arena": {"max_x": 1, "max_y": 1}, "swarms": [{"agent_type": 1, "agents": [{"id": 259, "dna": "AAEC"}]}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, st, err := LoadWorld(strings.NewReader(tt.input), config.Cfg(), rand.New(rand.NewSource(42)), agent.SimulationTime{})
			if err == nil {
				t.Fatal("expected error")
			}
			if w != nil || st != nil {
				t.Error("partial world returned with an error")
			}
			if errors.Is(err, ErrUnsupportedVersion) != tt.isVer {
				t.Errorf("err = %v, ErrUnsupportedVersion match %v", err, !tt.isVer)
			}
		})
	}
}

func TestSnapshotFile(t *testing.T) {
	w := newTestWorld(t)
	dir := filepath.Join(t.TempDir(), "snaps")
	now := agent.SimulationTime{Elapsed: 10, Frame: 600}

	path, err := SaveSnapshot(dir, w, now, "run")
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_600.json" {
		t.Errorf("path = %s", path)
	}

	loaded, _, err := LoadSnapshot(path, config.Cfg(), rand.New(rand.NewSource(42)), now)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Population(agent.Minion) != w.Population(agent.Minion) {
		t.Error("minion population changed")
	}

	if _, _, err := LoadSnapshot(filepath.Join(dir, "missing.json"), config.Cfg(), rand.New(rand.NewSource(42)), now); err == nil {
		t.Error("expected error for missing file")
	}
}
