package world

import (
	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
)

// SpawnRequest asks the world to grow and insert a new agent.
type SpawnRequest struct {
	Type      agent.Type
	Dna       genome.Dna // zero: draw from the swarm's mutation stream
	Transform geom.Transform
	Motion    geom.Motion
	Charge    float64

	// Alert, when set, is posted with Other set to the new agent's id.
	Alert *event.Alert
}

// Changes collects the world mutations requested by one system pass.
// They are applied after the pass so systems only read a stable world.
type Changes struct {
	Spawns []SpawnRequest
	Alerts []event.Alert
}

// Spawn queues a spawn request.
func (c *Changes) Spawn(req SpawnRequest) {
	c.Spawns = append(c.Spawns, req)
}

// Alert queues an alert.
func (c *Changes) Alert(a event.Alert) {
	c.Alerts = append(c.Alerts, a)
}
