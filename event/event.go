// Package event carries simulation alerts from the systems to the host.
package event

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/agent"
)

// Kind represents the type of alert.
type Kind int

const (
	// NewSpore: a minion laid a spore.
	// Agent is the parent, Other the spore.
	NewSpore Kind = iota

	// NewMinion: a spore hatched.
	// Agent is the spore, Other the minion.
	NewMinion

	// DieMinion: a minion died.
	// Agent is the minion.
	DieMinion

	// Fertilised: a minion fertilised a spore.
	// Agent is the spore, Other the minion.
	Fertilised

	// Regenerated: the world reseeded an extinct swarm from its gene pool.
	// Agent carries only the swarm type.
	Regenerated

	numKinds
)

func (k Kind) String() string {
	switch k {
	case NewSpore:
		return "new_spore"
	case NewMinion:
		return "new_minion"
	case DieMinion:
		return "die_minion"
	case Fertilised:
		return "fertilised"
	case Regenerated:
		return "regenerated"
	default:
		return "unknown"
	}
}

// Alert is a single simulation event.
type Alert struct {
	Kind     Kind
	Agent    agent.ID
	Other    agent.ID
	Position r2.Vec
	Time     agent.SimulationTime
}

// Bus is a FIFO alert queue.
// Post is safe for concurrent producers; Drain is called by the host loop.
type Bus struct {
	mu     sync.Mutex
	alerts []Alert
	totals [numKinds]int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Post appends alerts in order.
func (b *Bus) Post(alerts ...Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range alerts {
		b.alerts = append(b.alerts, a)
		if a.Kind >= 0 && a.Kind < numKinds {
			b.totals[a.Kind]++
		}
	}
}

// Drain returns all pending alerts in FIFO order and empties the queue.
func (b *Bus) Drain() []Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.alerts) == 0 {
		return nil
	}
	out := b.alerts
	b.alerts = nil
	return out
}

// Pending returns the number of undrained alerts.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.alerts)
}

// Total returns how many alerts of kind k were ever posted.
func (b *Bus) Total(k Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k < 0 || k >= numKinds {
		return 0
	}
	return b.totals[k]
}
