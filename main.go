package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/game"
	"github.com/pthm-cable/minions/storage"
	"github.com/pthm-cable/minions/world"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	loadPath := flag.String("load", "", "Resume from a saved world snapshot")
	archivePath := flag.String("archive", "", "SQLite gene archive (empty = use config; config empty = in memory)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	workers := flag.Int("workers", 0, "AI worker goroutines (0 = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runOptions{
		seed:        rngSeed,
		logStats:    *logStats,
		snapshotDir: *snapshotDir,
		outputDir:   *outputDir,
		loadPath:    *loadPath,
		archivePath: *archivePath,
		maxTicks:    *maxTicks,
		workers:     *workers,
	}); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	seed        int64
	logStats    bool
	snapshotDir string
	outputDir   string
	loadPath    string
	archivePath string
	maxTicks    int
	workers     int
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	path := opts.archivePath
	if path == "" {
		path = cfg.Archive.Path
	}
	archive := storage.NewArchive(path, cfg.Archive.Size)
	if err := archive.Init(ctx); err != nil {
		return err
	}
	defer archive.Close()

	w, err := loadWorld(ctx, cfg, opts, archive)
	if err != nil {
		return err
	}

	sim, err := game.NewSimulation(ctx, game.Options{
		Seed:        opts.seed,
		LogStats:    opts.logStats,
		OutputDir:   opts.outputDir,
		SnapshotDir: opts.snapshotDir,
		Workers:     opts.workers,
		Archive:     archive,
	})
	if err != nil {
		return err
	}
	defer sim.Close()

	if err := sim.Init(w); err != nil {
		return err
	}

	slog.Info("starting headless simulation",
		"seed", opts.seed,
		"run_id", sim.RunID(),
		"max_ticks", opts.maxTicks,
	)

	dt := cfg.Physics.DT
	start := sim.Tick()
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "tick", sim.Tick())
			return finalSnapshot(sim, opts.snapshotDir)
		default:
		}

		sim.Step(dt)
		for _, a := range sim.Alerts() {
			slog.Debug("alert", "kind", a.Kind.String(), "agent", a.Agent.String(), "other", a.Other.String())
		}

		if opts.maxTicks > 0 && sim.Tick()-start >= uint64(opts.maxTicks) {
			slog.Info("max ticks reached", "tick", sim.Tick())
			return finalSnapshot(sim, opts.snapshotDir)
		}
	}
}

// loadWorld resumes from a snapshot or builds a fresh world whose minion
// pool is seeded from the archive. Loaded worlds restart the clock at zero.
func loadWorld(ctx context.Context, cfg *config.Config, opts runOptions, archive storage.Archive) (*world.World, error) {
	rng := rand.New(rand.NewSource(opts.seed))
	if opts.loadPath != "" {
		w, st, err := storage.LoadSnapshot(opts.loadPath, cfg, rng, agent.SimulationTime{})
		if err != nil {
			return nil, err
		}
		slog.Info("world_loaded", "path", opts.loadPath, "run_id", st.RunID)
		return w, nil
	}

	w, err := world.New(cfg, rng)
	if err != nil {
		return nil, err
	}
	n, err := storage.Seed(ctx, archive, agent.Minion, cfg.Archive.Size, w.MinionPool)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		slog.Info("pool_seeded_from_archive", "entries", n)
	}
	return w, nil
}

func finalSnapshot(sim *game.Simulation, dir string) error {
	if dir == "" {
		return nil
	}
	path, err := sim.SaveSnapshot(dir)
	if err != nil {
		return err
	}
	slog.Info("snapshot_saved", "path", path, "tick", sim.Tick())
	return nil
}
