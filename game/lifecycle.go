package game

import (
	"log/slog"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/event"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/storage"
	"github.com/pthm-cable/minions/telemetry"
)

// recordAlerts feeds lineage and window counters from one tick of alerts.
func (s *Simulation) recordAlerts(alerts []event.Alert) {
	s.collector.RecordAlerts(alerts)
	for _, a := range alerts {
		switch a.Kind {
		case event.NewSpore:
			s.lifetimes.RegisterChild(a.Other, a.Agent, s.now)
			s.lifetimes.RecordChild(a.Agent)
		case event.NewMinion:
			s.lifetimes.RegisterChild(a.Other, a.Agent, s.now)
		case event.Fertilised:
			s.lifetimes.RecordChild(a.Other)
		}
	}
}

// retire closes the lifetime record of a swept agent and offers
// successful minions to the archive.
func (s *Simulation) retire(a *agent.Agent) {
	s.lifetimes.UpdateSurvivalTime(a.ID, s.now)
	stats := s.lifetimes.Remove(a.ID)
	if stats == nil || a.ID.Type != agent.Minion {
		return
	}
	if err := s.outputManager.WriteLifetime(telemetry.NewLifetimeRecord(a.ID, stats, a.Dna.String())); err != nil {
		slog.Error("failed to write lifetime", "error", err)
	}
	if s.archive == nil {
		return
	}
	if !storage.Qualifies(stats.Children, stats.SurvivalTimeSec, s.cfg.Minion.Lifespan) {
		return
	}

	entry := storage.NewEntry(s.runID, a.ID.Type, a.Dna, stats.Children, stats.SurvivalTimeSec, s.cfg.Archive)
	if err := s.archive.Put(s.ctx, entry); err != nil {
		slog.Error("archive_put_failed", "agent", a.ID.String(), "error", err)
	}
}

// regenerate reseeds the minion swarm when it is nearly extinct. Archived
// sequences, when there are any, replace the gene pool first.
func (s *Simulation) regenerate() (event.Alert, bool) {
	w := s.world
	if w.Population(agent.Minion) >= s.cfg.Population.RegenerationThreshold {
		return event.Alert{}, false
	}

	if s.archive != nil {
		top, err := s.archive.Top(s.ctx, agent.Minion, s.cfg.Archive.Size)
		if err != nil {
			slog.Error("archive_read_failed", "error", err)
		}
		if len(top) > 0 {
			pool := genome.NewGenePool()
			for i := 0; i < s.cfg.Population.RegenerationCount; i++ {
				if e, ok := storage.Sample(s.rng, top); ok {
					pool.Add(e.Dna)
				}
			}
			w.MinionPool = pool
			slog.Info("archive_reseed",
				"archived", len(top),
				"pool", pool.Len(),
			)
		}
	}

	return w.Regenerate(s.cfg, s.rng, s.now)
}
