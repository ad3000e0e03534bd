// Package main provides CMA-ES optimization for minion ecosystem parameters.
package main

import (
	"github.com/pthm-cable/minions/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Minion lifecycle
			{Name: "minion_lifespan", Path: "minion.lifespan", Min: 10, Max: 60, Default: 30},
			{Name: "minion_metabolism", Path: "minion.metabolism", Min: 0.3, Max: 2.0, Default: 1.0},
			// Resource lifecycle
			{Name: "resource_lifespan", Path: "resource.lifespan", Min: 40, Max: 240, Default: 120},
			{Name: "resource_metabolism", Path: "resource.metabolism", Min: 0.01, Max: 0.2, Default: 0.05},
			// Spores
			{Name: "spore_lifespan", Path: "spore.lifespan", Min: 3, Max: 20, Default: 8},
			// Ecology
			{Name: "reproduction_ratio", Path: "alife.reproduction_ratio", Min: 0.4, Max: 0.95, Default: 0.75},
			{Name: "energy_density", Path: "alife.energy_density", Min: 40, Max: 200, Default: 100},
			{Name: "maturity_age", Path: "alife.maturity_age", Min: 5, Max: 40, Default: 20},
			{Name: "corpse_charge", Path: "alife.corpse_charge", Min: 0.1, Max: 0.6, Default: 0.3},
			// Steering
			{Name: "power_boost", Path: "ai.power_boost", Min: 10, Max: 80, Default: 40},
			{Name: "touch_cost", Path: "ai.touch_cost", Min: 0, Max: 1, Default: 0.5},
			// Feeders
			{Name: "feeder_count", Path: "feeder.count", Min: 2, Max: 12, Default: 6},
			{Name: "feeder_interval", Path: "feeder.interval", Min: 0.5, Max: 6, Default: 2.5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// fields returns pointers to the config values in Specs order. Integer
// parameters are handled by ApplyToConfig.
func fields(cfg *config.Config) []*float64 {
	return []*float64{
		&cfg.Minion.Lifespan,
		&cfg.Minion.Metabolism,
		&cfg.Resource.Lifespan,
		&cfg.Resource.Metabolism,
		&cfg.Spore.Lifespan,
		&cfg.Alife.ReproductionRatio,
		&cfg.Alife.EnergyDensity,
		&cfg.Alife.MaturityAge,
		&cfg.Alife.CorpseCharge,
		&cfg.AI.PowerBoost,
		&cfg.AI.TouchCost,
		nil, // feeder.count
		&cfg.Feeder.Interval,
	}
}

const feederCountIndex = 11

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, f := range fields(cfg) {
		if f != nil {
			*f = clamped[i]
		}
	}
	cfg.Feeder.Count = int(clamped[feederCountIndex] + 0.5)
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, f := range fields(cfg) {
		if f != nil {
			out[i] = *f
		}
	}
	out[feederCountIndex] = float64(cfg.Feeder.Count)
	return pv.Clamp(out)
}
