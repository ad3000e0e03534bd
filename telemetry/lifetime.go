package telemetry

import "github.com/pthm-cable/minions/agent"

// LifetimeStats tracks per-agent statistics over its lifetime.
type LifetimeStats struct {
	Type            agent.Type
	Birth           float64 // simulation time of registration
	SurvivalTimeSec float64

	// Lineage tracking
	Parent     agent.ID
	HasParent  bool
	Lineage    agent.ID // founder of the line
	Generation int

	// Reproduction
	Children int

	// Energy
	PeakEnergy   float64
	TotalForaged float64
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[agent.ID]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[agent.ID]*LifetimeStats),
	}
}

// Register creates lifetime stats for a founder agent.
// Registering an id twice keeps the first record.
func (lt *LifetimeTracker) Register(id agent.ID, now agent.SimulationTime) {
	if _, ok := lt.stats[id]; ok {
		return
	}
	lt.stats[id] = &LifetimeStats{Type: id.Type, Birth: now.Elapsed, Lineage: id}
}

// RegisterChild creates lifetime stats for an agent descended from parent.
// Unknown parents start a new lineage.
func (lt *LifetimeTracker) RegisterChild(id, parent agent.ID, now agent.SimulationTime) {
	if _, ok := lt.stats[id]; ok {
		return
	}
	s := &LifetimeStats{Type: id.Type, Birth: now.Elapsed, Lineage: id, Parent: parent, HasParent: true}
	if p := lt.stats[parent]; p != nil {
		s.Lineage = p.Lineage
		s.Generation = p.Generation + 1
	}
	lt.stats[id] = s
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(id agent.ID) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an agent's stats and returns them.
func (lt *LifetimeTracker) Remove(id agent.ID) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parent agent.ID) {
	if s := lt.stats[parent]; s != nil {
		s.Children++
	}
}

// RecordForage adds eaten energy to the cumulative total.
func (lt *LifetimeTracker) RecordForage(id agent.ID, amount float64) {
	if s := lt.stats[id]; s != nil {
		s.TotalForaged += amount
	}
}

// UpdateEnergy tracks peak energy.
func (lt *LifetimeTracker) UpdateEnergy(id agent.ID, energy float64) {
	if s := lt.stats[id]; s != nil && energy > s.PeakEnergy {
		s.PeakEnergy = energy
	}
}

// UpdateSurvivalTime updates the survival time from the current time.
func (lt *LifetimeTracker) UpdateSurvivalTime(id agent.ID, now agent.SimulationTime) {
	if s := lt.stats[id]; s != nil {
		s.SurvivalTimeSec = now.Elapsed - s.Birth
	}
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// ActiveLineages returns the number of distinct lineages among tracked
// minions and the deepest generation reached.
func (lt *LifetimeTracker) ActiveLineages() (lineages, maxGeneration int) {
	seen := make(map[agent.ID]struct{})
	for _, s := range lt.stats {
		if s.Type != agent.Minion {
			continue
		}
		seen[s.Lineage] = struct{}{}
		maxGeneration = max(maxGeneration, s.Generation)
	}
	return len(seen), maxGeneration
}

// LifetimeRecord is the lifetimes.csv row of a retired agent.
type LifetimeRecord struct {
	ID         string  `csv:"id"`
	Type       string  `csv:"type"`
	Lineage    string  `csv:"lineage"`
	Generation int     `csv:"generation"`
	Birth      float64 `csv:"birth"`
	Survival   float64 `csv:"survival"`
	Children   int     `csv:"children"`
	PeakEnergy float64 `csv:"peak_energy"`
	Foraged    float64 `csv:"foraged"`
	Dna        string  `csv:"dna"`
}

// NewLifetimeRecord flattens s for CSV output.
func NewLifetimeRecord(id agent.ID, s *LifetimeStats, dna string) LifetimeRecord {
	return LifetimeRecord{
		ID:         id.String(),
		Type:       s.Type.String(),
		Lineage:    s.Lineage.String(),
		Generation: s.Generation,
		Birth:      s.Birth,
		Survival:   s.SurvivalTimeSec,
		Children:   s.Children,
		PeakEnergy: s.PeakEnergy,
		Foraged:    s.TotalForaged,
		Dna:        dna,
	}
}
