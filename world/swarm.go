// Package world owns the live population and applies per-tick changes to it.
package world

import (
	"math/rand"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/genome"
)

// Swarm is the population of one agent type.
type Swarm struct {
	Type   agent.Type
	agents map[agent.ID]*agent.Agent
	order  []agent.ID // insertion order for deterministic iteration
	seq    uint32
	stream genome.Dna // running mutation stream
}

// NewSwarm returns an empty swarm whose mutation stream starts at seed.
func NewSwarm(t agent.Type, seed genome.Dna) *Swarm {
	if seed.IsZero() {
		panic("world: swarm needs a seed dna")
	}
	return &Swarm{
		Type:   t,
		agents: make(map[agent.ID]*agent.Agent),
		stream: seed,
	}
}

// NextID allocates the next id. Ids are never reused.
func (s *Swarm) NextID() agent.ID {
	id := agent.NewID(s.Type, s.seq)
	s.seq++
	return id
}

// Seq returns the next sequence number to be allocated.
func (s *Swarm) Seq() uint32 { return s.seq }

// SetSeq restores the sequence counter. It never moves backwards.
func (s *Swarm) SetSeq(seq uint32) {
	if seq > s.seq {
		s.seq = seq
	}
}

// NextGenome advances the mutation stream by the given number of point
// mutations and returns a fresh genome over the result.
func (s *Swarm) NextGenome(rng *rand.Rand, mutations int) *genome.Genome {
	for i := 0; i < mutations; i++ {
		s.stream = genome.Mutate(rng, s.stream)
	}
	return genome.New(s.stream)
}

// Stream returns the current mutation stream.
func (s *Swarm) Stream() genome.Dna { return s.stream }

// Insert adds a to the swarm. Panics if the type differs.
func (s *Swarm) Insert(a *agent.Agent) {
	if a.ID.Type != s.Type {
		panic("world: agent inserted into the wrong swarm")
	}
	if _, ok := s.agents[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.agents[a.ID] = a
	s.SetSeq(a.ID.Seq + 1)
}

// Get returns the agent with the given id.
func (s *Swarm) Get(id agent.ID) (*agent.Agent, bool) {
	a, ok := s.agents[id]
	return a, ok
}

// Remove deletes an agent.
func (s *Swarm) Remove(id agent.ID) (*agent.Agent, bool) {
	a, ok := s.agents[id]
	if !ok {
		return nil, false
	}
	delete(s.agents, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return a, true
}

// Len returns the population size.
func (s *Swarm) Len() int { return len(s.agents) }

// Agents returns the agents in insertion order.
func (s *Swarm) Agents() []*agent.Agent {
	out := make([]*agent.Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id])
	}
	return out
}

// sweep removes dead agents and returns them in insertion order.
func (s *Swarm) sweep() []*agent.Agent {
	var freed []*agent.Agent
	kept := s.order[:0]
	for _, id := range s.order {
		a := s.agents[id]
		if a.IsAlive() {
			kept = append(kept, id)
			continue
		}
		delete(s.agents, id)
		freed = append(freed, a)
	}
	s.order = kept
	return freed
}
