package event

import (
	"sync"
	"testing"

	"github.com/pthm-cable/minions/agent"
)

func TestDrainFIFO(t *testing.T) {
	b := NewBus()
	b.Post(Alert{Kind: NewSpore, Agent: agent.NewID(agent.Minion, 1)})
	b.Post(Alert{Kind: Fertilised}, Alert{Kind: NewMinion})

	got := b.Drain()
	want := []Kind{NewSpore, Fertilised, NewMinion}
	if len(got) != len(want) {
		t.Fatalf("drained %d alerts, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("alert %d = %v, want %v", i, got[i].Kind, k)
		}
	}
	if b.Drain() != nil {
		t.Error("second drain returned alerts")
	}
	if b.Total(NewSpore) != 1 {
		t.Errorf("Total(NewSpore) = %d, want 1", b.Total(NewSpore))
	}
}

func TestConcurrentPost(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Post(Alert{Kind: DieMinion})
			}
		}()
	}
	wg.Wait()

	if b.Pending() != 800 {
		t.Errorf("Pending = %d, want 800", b.Pending())
	}
	if b.Total(DieMinion) != 800 {
		t.Errorf("Total = %d, want 800", b.Total(DieMinion))
	}
}

func TestKindString(t *testing.T) {
	if NewMinion.String() != "new_minion" || Kind(99).String() != "unknown" {
		t.Error("unexpected kind names")
	}
}
