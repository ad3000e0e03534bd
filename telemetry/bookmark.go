package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkBabyBoom        BookmarkType = "baby_boom"
	BookmarkFeast           BookmarkType = "feast"
	BookmarkMinionRecovery  BookmarkType = "minion_recovery"
	BookmarkMinionCrash     BookmarkType = "minion_crash"
	BookmarkStableEcosystem BookmarkType = "stable_ecosystem"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        uint64       `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentMinionMin    int  // minimum minion count in recent history
	recentMinionPeak   int  // peak minion count in recent history
	seenMin            bool // recentMinionMin holds a sample
	stableWindowsCount int  // consecutive windows with stable populations
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable ecosystem detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		checks := []func(WindowStats) *Bookmark{
			bd.checkBabyBoom,       // hatch count > 2x rolling average
			bd.checkFeast,          // eaten energy > 2x rolling average
			bd.checkMinionRecovery, // was ≤3, now ≥3x that
			bd.checkMinionCrash,    // dropped >30% from recent peak
			bd.checkStableEcosystem,
		}
		for _, check := range checks {
			if b := check(stats); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}

	bd.addToHistory(stats)

	if !bd.seenMin || stats.Minions < bd.recentMinionMin {
		bd.recentMinionMin = stats.Minions
		bd.seenMin = true
	}
	if stats.Minions > bd.recentMinionPeak {
		bd.recentMinionPeak = stats.Minions
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the recorded windows oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

// historyMean averages field over the recorded windows.
func (bd *BookmarkDetector) historyMean(field func(WindowStats) float64) (float64, int) {
	history := bd.getHistory()
	xs := make([]float64, len(history))
	for i, h := range history {
		xs[i] = field(h)
	}
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.Mean(xs, nil), len(xs)
}

func (bd *BookmarkDetector) checkBabyBoom(stats WindowStats) *Bookmark {
	avg, n := bd.historyMean(func(h WindowStats) float64 { return float64(h.Hatched) })
	if n < 3 || avg == 0 {
		return nil
	}

	current := float64(stats.Hatched)
	if current > avg*2.0 && stats.Hatched >= 5 {
		return &Bookmark{
			Type:        BookmarkBabyBoom,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d spores hatched, %.1fx average (%.1f)", stats.Hatched, current/avg, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkFeast(stats WindowStats) *Bookmark {
	avg, n := bd.historyMean(func(h WindowStats) float64 { return h.EnergyEaten })
	if n < 3 || avg == 0 {
		return nil
	}

	if stats.EnergyEaten > avg*2.0 && stats.Eaten >= 3 {
		return &Bookmark{
			Type:        BookmarkFeast,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Energy eaten %.2f is %.1fx average (%.2f)", stats.EnergyEaten, stats.EnergyEaten/avg, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkMinionRecovery(stats WindowStats) *Bookmark {
	if !bd.seenMin || bd.recentMinionMin > 3 {
		return nil
	}

	threshold := max(bd.recentMinionMin*3, 6)
	if stats.Minions >= threshold {
		// Reset the minimum after triggering
		oldMin := bd.recentMinionMin
		bd.recentMinionMin = stats.Minions

		return &Bookmark{
			Type:        BookmarkMinionRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Minion population recovered from %d to %d", oldMin, stats.Minions),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkMinionCrash(stats WindowStats) *Bookmark {
	if bd.recentMinionPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Minions)/float64(bd.recentMinionPeak)
	if dropPercent > 0.30 && stats.Minions < bd.recentMinionPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentMinionPeak
		bd.recentMinionPeak = stats.Minions

		return &Bookmark{
			Type:        BookmarkMinionCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Minions crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Minions),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	// Need both populations present
	if stats.Minions < 10 || stats.Resources < 10 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	minions := make([]float64, len(recent))
	resources := make([]float64, len(recent))
	for i, h := range recent {
		minions[i] = float64(h.Minions)
		resources[i] = float64(h.Resources)
	}

	// CV^2 < 0.04 means CV < 0.2
	if cv2(minions) < 0.04 && cv2(resources) < 0.04 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable ecosystem with %d minions, %d resources over 5+ windows", stats.Minions, stats.Resources),
		}
	}

	return nil
}

// cv2 returns the squared coefficient of variation, or 0 for a zero mean.
func cv2(xs []float64) float64 {
	mean, variance := stat.PopMeanVariance(xs, nil)
	if mean == 0 {
		return 0
	}
	return variance / (mean * mean)
}
