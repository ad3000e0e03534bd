// Package telemetry provides ecosystem health tracking, bookmarking and
// CSV output.
package telemetry

import (
	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/systems"
	"github.com/pthm-cable/minions/world"
)

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks uint64
	dt                  float64

	// Current window tracking
	windowStartTick uint64

	// Event counters for current window
	births        [agent.NumTypes]int
	deaths        [agent.NumTypes]int
	alife         systems.Counters
	regenerations int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := uint64(1)
	if dt > 0 && windowDurationSec/dt >= 1 {
		ticksPerWindow = uint64(windowDurationSec / dt)
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordBirth records an agent entering the world.
func (c *Collector) RecordBirth(t agent.Type) {
	c.births[t]++
}

// RecordDeath records an agent swept from the world.
func (c *Collector) RecordDeath(t agent.Type) {
	c.deaths[t]++
}

// RecordAlerts counts the alerts that are not already tallied elsewhere.
func (c *Collector) RecordAlerts(alerts []event.Alert) {
	for _, a := range alerts {
		if a.Kind == event.Regenerated {
			c.regenerations++
		}
	}
}

// RecordAlife adds one ecology pass worth of counters.
func (c *Collector) RecordAlife(n systems.Counters) {
	c.alife.Eaten += n.Eaten
	c.alife.SporesLaid += n.SporesLaid
	c.alife.Hatched += n.Hatched
	c.alife.Fertilisations += n.Fertilisations
	c.alife.Starved += n.Starved
	c.alife.OutOfBounds += n.OutOfBounds
	c.alife.Expired += n.Expired
	c.alife.EnergyEaten += n.EnergyEaten
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the counters and the world's current
// populations, then resets counters for the next window.
func (c *Collector) Flush(currentTick uint64, w *world.World, lifetimes *LifetimeTracker) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Minions:   w.Population(agent.Minion),
		Resources: w.Population(agent.Resource),
		Spores:    w.Population(agent.Spore),

		MinionBirths:   c.births[agent.Minion],
		ResourceBirths: c.births[agent.Resource],
		SporesLaid:     c.alife.SporesLaid,
		Hatched:        c.alife.Hatched,
		Fertilisations: c.alife.Fertilisations,
		MinionDeaths:   c.deaths[agent.Minion],
		Starved:        c.alife.Starved,
		OutOfBounds:    c.alife.OutOfBounds,
		Eaten:          c.alife.Eaten,
		Regenerations:  c.regenerations,
		EnergyEaten:    c.alife.EnergyEaten,
	}
	if c.alife.Hatched > 0 {
		stats.FertileRatio = float64(c.alife.Fertilisations) / float64(c.alife.Hatched)
	}

	minions := w.Agents(agent.Minion)
	ratios := make([]float64, 0, len(minions))
	segments := make([]float64, 0, len(minions))
	var maturity float64
	for _, m := range minions {
		if !m.IsAlive() {
			continue
		}
		ratios = append(ratios, m.EnergyRatio())
		segments = append(segments, float64(len(m.Segments)))
		maturity += m.Maturity
		stats.TotalMinionEnergy += m.Energy()
	}
	stats.MinionEnergyMean, stats.MinionEnergyP10, stats.MinionEnergyP50, stats.MinionEnergyP90 = ComputeEnergyStats(ratios)
	stats.SegmentsMean, stats.SegmentsStd = MeanStd(segments)
	if len(ratios) > 0 {
		stats.MaturityMean = maturity / float64(len(ratios))
	}
	for _, r := range w.Agents(agent.Resource) {
		if r.IsAlive() {
			stats.TotalResourceEnergy += r.Energy()
		}
	}
	if lifetimes != nil {
		stats.ActiveLineages, stats.MaxGeneration = lifetimes.ActiveLineages()
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = [agent.NumTypes]int{}
	c.deaths = [agent.NumTypes]int{}
	c.alife = systems.Counters{}
	c.regenerations = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowDurationTicks
}
