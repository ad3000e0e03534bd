package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	Minions   int `csv:"minions"`
	Resources int `csv:"resources"`
	Spores    int `csv:"spores"`

	// Events during window
	MinionBirths   int `csv:"minion_births"`
	ResourceBirths int `csv:"resource_births"`
	SporesLaid     int `csv:"spores_laid"`
	Hatched        int `csv:"hatched"`
	Fertilisations int `csv:"fertilisations"`
	MinionDeaths   int `csv:"minion_deaths"`
	Starved        int `csv:"starved"`
	OutOfBounds    int `csv:"out_of_bounds"`
	Eaten          int `csv:"eaten"`
	Regenerations  int `csv:"regenerations"`

	// Feeding
	EnergyEaten  float64 `csv:"energy_eaten"`
	FertileRatio float64 `csv:"fertile_ratio"` // fertilisations per hatched spore

	// Minion energy ratio distribution (sampled at window end)
	MinionEnergyMean float64 `csv:"minion_energy_mean"`
	MinionEnergyP10  float64 `csv:"minion_energy_p10"`
	MinionEnergyP50  float64 `csv:"minion_energy_p50"`
	MinionEnergyP90  float64 `csv:"minion_energy_p90"`

	// Body plans
	SegmentsMean float64 `csv:"segments_mean"`
	SegmentsStd  float64 `csv:"segments_std"`
	MaturityMean float64 `csv:"maturity_mean"`

	// Energy pools
	TotalMinionEnergy   float64 `csv:"total_minion_energy"`
	TotalResourceEnergy float64 `csv:"total_resource_energy"`

	// Lineage tracking
	ActiveLineages int `csv:"active_lineages"`
	MaxGeneration  int `csv:"max_generation"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return mean, math.Sqrt(variance)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("minions", s.Minions),
		slog.Int("resources", s.Resources),
		slog.Int("spores", s.Spores),
		slog.Int("minion_births", s.MinionBirths),
		slog.Int("resource_births", s.ResourceBirths),
		slog.Int("spores_laid", s.SporesLaid),
		slog.Int("hatched", s.Hatched),
		slog.Int("fertilisations", s.Fertilisations),
		slog.Int("minion_deaths", s.MinionDeaths),
		slog.Int("starved", s.Starved),
		slog.Int("out_of_bounds", s.OutOfBounds),
		slog.Int("eaten", s.Eaten),
		slog.Int("regenerations", s.Regenerations),
		slog.Float64("energy_eaten", s.EnergyEaten),
		slog.Float64("fertile_ratio", s.FertileRatio),
		slog.Float64("minion_energy_mean", s.MinionEnergyMean),
		slog.Float64("minion_energy_p10", s.MinionEnergyP10),
		slog.Float64("minion_energy_p50", s.MinionEnergyP50),
		slog.Float64("minion_energy_p90", s.MinionEnergyP90),
		slog.Float64("segments_mean", s.SegmentsMean),
		slog.Float64("segments_std", s.SegmentsStd),
		slog.Float64("maturity_mean", s.MaturityMean),
		slog.Float64("total_minion_energy", s.TotalMinionEnergy),
		slog.Float64("total_resource_energy", s.TotalResourceEnergy),
		slog.Int("active_lineages", s.ActiveLineages),
		slog.Int("max_generation", s.MaxGeneration),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
