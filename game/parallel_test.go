package game

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/systems"
	"github.com/pthm-cable/minions/world"
)

func newCrowdedWorld(t *testing.T, minions int) *world.World {
	t.Helper()
	cfg := config.Cfg()
	rng := rand.New(rand.NewSource(42))
	w, err := world.New(cfg, rng)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Populate(cfg, rng, agent.SimulationTime{})
	for w.Population(agent.Minion) < minions {
		w.Populate(cfg, rng, agent.SimulationTime{})
	}
	return w
}

func TestParallelMatchesSerial(t *testing.T) {
	tests := []struct {
		name      string
		workers   int
		threshold int
	}{
		{"serial", 1, 0},
		{"below threshold", 4, 1 << 20},
		{"parallel", 4, 1},
		{"more workers than minions", 512, 1},
	}

	serial := newCrowdedWorld(t, 100)
	ref := newThinkPool(systems.NewAI(serial.Arena), 1, 0)
	ref.run(serial)
	want := append([]systems.Decision(nil), ref.decisions...)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newCrowdedWorld(t, 100)
			p := newThinkPool(systems.NewAI(w.Arena), tt.workers, tt.threshold)
			defer p.stopWorkers()

			p.run(w)
			if len(p.decisions) != len(want) {
				t.Fatalf("%d decisions, want %d", len(p.decisions), len(want))
			}
			for i := range want {
				if !reflect.DeepEqual(p.decisions[i], want[i]) {
					t.Errorf("decision %d differs:\n got %+v\nwant %+v", i, p.decisions[i], want[i])
				}
			}
			for i, m := range w.Agents(agent.Minion) {
				if m.HasTarget != want[i].HasTarget || m.TargetPos != want[i].TargetPos {
					t.Errorf("minion %v not updated from its decision", m.ID)
				}
			}
		})
	}
}

func TestThinkPoolReusesWorkers(t *testing.T) {
	w := newCrowdedWorld(t, 100)
	p := newThinkPool(systems.NewAI(w.Arena), 3, 1)

	for i := 0; i < 5; i++ {
		p.run(w)
	}
	if !p.running {
		t.Error("workers not started above the threshold")
	}

	p.stopWorkers()
	if p.running {
		t.Error("workers still running after stop")
	}
	p.stopWorkers()
}

func TestThinkPoolEmptyWorld(t *testing.T) {
	w := world.NewEmpty(50, 50)
	p := newThinkPool(systems.NewAI(w.Arena), 2, 1)
	p.run(w)
	if len(p.decisions) != 0 || p.running {
		t.Errorf("empty world: %d decisions, running %v", len(p.decisions), p.running)
	}
}
