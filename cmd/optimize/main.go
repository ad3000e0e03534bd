// Package main searches for simulation parameters that keep a minion swarm
// alive and breeding without regeneration, using CMA-ES.
//
// Usage: go run ./cmd/optimize -output out/ [-config base.yaml] [-seeds 3]
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/minions/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Uint64("max-ticks", 216000, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	stepSize := flag.Float64("step", 0.3, "Initial CMA-ES step size in normalized units")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("-output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	// Simulation logs would drown the progress lines
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	params := NewParamVector()
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *maxTicks, evalSeeds, baseCfg)

	evalLog, err := newEvalLog(filepath.Join(*outputDir, "optimize_log.csv"), params)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer evalLog.Close()

	track := &progress{maxEvals: *maxEvals, dt: baseCfg.Physics.DT, start: time.Now()}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(values)
			track.record(fitness, evaluator.LastQuality(), values)
			evalLog.record(track.evals, fitness, values)
			return fitness
		},
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(params.Dim())/2.0)
	}
	method := &optimize.CmaEsChol{InitStepSize: *stepSize, Population: popSize}
	settings := &optimize.Settings{FuncEvaluations: *maxEvals}

	fmt.Printf("CMA-ES over %d parameters, population=%d, max_evals=%d, seeds=%d, ticks=%d\n",
		params.Dim(), popSize, *maxEvals, *seeds, *maxTicks)

	result, err := optimize.Minimize(problem, params.Normalize(params.ExtractFromConfig(baseCfg)), settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	best := track.best
	if best == nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	fmt.Printf("\nDone after %d evaluations in %s, best fitness %.0f\n",
		track.evals, formatDuration(time.Since(track.start)), track.bestFitness)
	for i, spec := range params.Specs {
		fmt.Printf("  %-20s %.6f\n", spec.Name, best[i])
	}

	if err := writeResults(*outputDir, *configPath, params, best, evaluator); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}
}

// progress tracks the best evaluation and prints one line per evaluation.
type progress struct {
	maxEvals    int
	dt          float64
	start       time.Time
	evals       int
	bestFitness float64
	best        []float64
}

func (p *progress) record(fitness, quality float64, values []float64) {
	p.evals++
	if p.best == nil || fitness < p.bestFitness {
		p.bestFitness = fitness
		p.best = append([]float64(nil), values...)
	}

	elapsed := time.Since(p.start)
	eta := time.Duration(p.maxEvals-p.evals) * (elapsed / time.Duration(p.evals))
	// fitness = -(ticks * (1 + 0.2*quality))
	survived := -fitness / (1 + 0.2*quality) * p.dt
	fmt.Printf("eval %d/%d: survived=%.0fs quality=%.2f best=%.0f | elapsed %s, eta %s\n",
		p.evals, p.maxEvals, survived, quality, p.bestFitness,
		formatDuration(elapsed), formatDuration(eta))
}

// evalLog writes one CSV row per evaluation with the clamped parameters.
type evalLog struct {
	f *os.File
	w *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	l := &evalLog{f: f, w: csv.NewWriter(f)}

	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *evalLog) record(eval int, fitness float64, values []float64) {
	row := []string{strconv.Itoa(eval), strconv.FormatFloat(fitness, 'f', 6, 64)}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		log.Printf("failed to write log row: %v", err)
	}
	l.w.Flush()
}

func (l *evalLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}

// writeResults saves best_config.yaml, whose minion pool holds the best
// run's archived sequences, and the archive itself as archive.json.
func writeResults(dir, configPath string, params *ParamVector, best []float64, fe *FitnessEvaluator) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(cfg, best)

	archive := fe.BestArchive()
	for _, e := range archive {
		cfg.Genome.MinionPool = append(cfg.Genome.MinionPool, e.Dna.String())
	}

	configOut := filepath.Join(dir, "best_config.yaml")
	if err := cfg.WriteYAML(configOut); err != nil {
		return err
	}
	fmt.Printf("best config saved to %s\n", configOut)

	if len(archive) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling archive: %w", err)
	}
	archiveOut := filepath.Join(dir, "archive.json")
	if err := os.WriteFile(archiveOut, data, 0644); err != nil {
		return err
	}
	fmt.Printf("archive saved to %s\n", archiveOut)
	return nil
}

// formatDuration formats a duration as 1h02m03s or 2m03s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
