package game

import (
	"log/slog"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/storage"
	"github.com/pthm-cable/minions/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	// Update lifetime peaks before sampling lineages
	for _, m := range s.world.Agents(agent.Minion) {
		s.lifetimes.UpdateEnergy(m.ID, m.Energy())
	}

	stats := s.collector.Flush(s.tick, s.world, s.lifetimes)
	perfStats := s.perf.Stats()

	// Call stats callback if provided
	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	// Check for bookmarks
	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}

		// Save snapshot on bookmark
		if s.snapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

// maybeSnapshot saves the world every Telemetry.SnapshotInterval seconds.
func (s *Simulation) maybeSnapshot() {
	interval := s.cfg.Telemetry.SnapshotInterval
	if s.snapshotDir == "" || interval <= 0 || s.now.Elapsed < s.nextSnapshot {
		return
	}
	s.nextSnapshot = s.now.Elapsed + interval
	s.saveSnapshot(nil)
}

// saveSnapshot writes the current world state to the snapshot directory.
func (s *Simulation) saveSnapshot(bm *telemetry.Bookmark) {
	path, err := storage.SaveSnapshot(s.snapshotDir, s.world, s.now, s.runID)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	attrs := []any{"path", path, "tick", s.tick}
	if bm != nil {
		attrs = append(attrs, "bookmark", string(bm.Type))
	}
	slog.Info("snapshot_saved", attrs...)
}

// SaveSnapshot writes the current world state to dir and returns the path.
func (s *Simulation) SaveSnapshot(dir string) (string, error) {
	return storage.SaveSnapshot(dir, s.world, s.now, s.runID)
}
