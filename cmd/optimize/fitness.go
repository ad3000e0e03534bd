package main

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/game"
	"github.com/pthm-cable/minions/storage"
	"github.com/pthm-cable/minions/telemetry"
	"github.com/pthm-cable/minions/world"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   uint64
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestArchive []storage.Entry
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks uint64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestArchive returns the archived minions of the best evaluation.
func (fe *FitnessEvaluator) BestArchive() []storage.Entry {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestArchive
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Minimum viable population: if minions stay below this for
// extinctionGraceSec, the swarm counts as functionally extinct.
const (
	minViablePop       = 3
	extinctionGraceSec = 30.0
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks uint64                  // ticks before extinction (or maxTicks if survived)
	windowStats   []telemetry.WindowStats // collected via the stats callback each window
	archive       []storage.Entry
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	archive []storage.Entry
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks: longer survival = lower (better) fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// All seeds share the same parameters, so install the config once
	// before the parallel launch.
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	if err := config.Set(cfg); err != nil {
		return 0
	}

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(cfg, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: computeQuality(result.windowStats),
				archive: result.archive,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedArchive []storage.Entry

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedArchive = r.archive
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestArchive = bestSeedArchive
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run.
// Runs until the first regeneration, functional extinction or maxTicks,
// whichever comes first.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	ctx := context.Background()
	result := &runResult{}

	archive := storage.NewMemoryArchive(cfg.Archive.Size)
	sim, err := game.NewSimulation(ctx, game.Options{Seed: seed, Archive: archive})
	if err != nil {
		return result
	}
	defer sim.Close()
	sim.SetStatsCallback(func(stats telemetry.WindowStats) {
		result.windowStats = append(result.windowStats, stats)
	})

	w, err := world.New(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return result
	}
	if err := sim.Init(w); err != nil {
		return result
	}

	dt := cfg.Physics.DT
	var belowSec float64

	// Let population establish before checking (skip first 5 sim-seconds)
	warmupTicks := uint64(5.0 / dt)

	result.survivalTicks = fe.maxTicks
	for sim.Tick() < fe.maxTicks {
		sim.Step(dt)
		sim.Alerts()

		tick := sim.Tick()
		if tick < warmupTicks {
			continue
		}

		// Hard extinction: the world had to reseed the swarm
		if w.Regenerations > 0 {
			result.survivalTicks = tick
			break
		}

		// Functional extinction: minions below viable population too long
		if w.Population(agent.Minion) < minViablePop {
			belowSec += dt
		} else {
			belowSec = 0
		}
		if belowSec >= extinctionGraceSec {
			result.survivalTicks = tick
			break
		}
	}

	result.archive, _ = archive.Top(ctx, agent.Minion, cfg.Archive.Size)
	return result
}

// copyConfig creates a copy of the base config. Gene pools are shared
// and must not be modified.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightBreeding  = 0.30
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.25
	qualityWeightMating    = 0.20

	qualityWarmupWindows = 3 // skip first N windows (warmup)
	qualityMinPop        = 3 // exclude windows with fewer minions than this
)

// computeQuality computes ecosystem quality in [0, 1] from window stats.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	valid := windows[qualityWarmupWindows:]

	var breedSum, energySum, mateSum float64
	var count int
	counts := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.Minions < qualityMinPop {
			continue
		}
		counts = append(counts, float64(w.Minions))
		count++

		// 1. Breeding: hatched spores per minion
		breedSum += 1 - math.Exp(-float64(w.Hatched)/float64(w.Minions))

		// 2. Energy health: median energy ratio near one half
		energySum += math.Exp(-math.Pow((w.MinionEnergyP50-0.5)/0.25, 2))

		// 3. Mating: share of hatched spores that were fertilised
		mateSum += clamp01(w.FertileRatio)
	}

	if count == 0 {
		return 0
	}

	stabilityScore := 0.0
	if len(counts) >= 2 {
		c := cv(counts)
		stabilityScore = math.Exp(-c * c)
	}

	n := float64(count)
	quality := qualityWeightBreeding*breedSum/n +
		qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energySum/n +
		qualityWeightMating*mateSum/n

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	if mean == 0 {
		return 0
	}
	return math.Sqrt(variance) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
