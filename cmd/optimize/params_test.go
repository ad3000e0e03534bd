package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/telemetry"
)

func TestDefaultsMatchConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pv := NewParamVector()
	got := pv.ExtractFromConfig(cfg)
	for i, want := range pv.DefaultVector() {
		if math.Abs(got[i]-want) > 1e-9 {
			t.Errorf("%s = %v in defaults.yaml, spec default %v", pv.Specs[i].Name, got[i], want)
		}
	}
}

func TestApplyRoundTrip(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pv := NewParamVector()

	values := pv.Denormalize([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 0, 0.5, 0.25})
	pv.ApplyToConfig(cfg, values)
	got := pv.ExtractFromConfig(cfg)

	for i, spec := range pv.Specs {
		tol := 1e-9
		if i == feederCountIndex {
			tol = 0.5
		}
		if math.Abs(got[i]-values[i]) > tol {
			t.Errorf("%s = %v, want %v", spec.Name, got[i], values[i])
		}
	}
	if cfg.Feeder.Count != 7 {
		t.Errorf("feeder count = %d, want 7", cfg.Feeder.Count)
	}
}

func TestClampAndNormalize(t *testing.T) {
	pv := NewParamVector()
	raw := make([]float64, pv.Dim())
	for i := range raw {
		raw[i] = -1e6
	}
	for i, v := range pv.Clamp(raw) {
		if v != pv.Specs[i].Min {
			t.Errorf("%s clamped to %v, want %v", pv.Specs[i].Name, v, pv.Specs[i].Min)
		}
	}

	defaults := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(defaults))
	for i := range defaults {
		if math.Abs(back[i]-defaults[i]) > 1e-9 {
			t.Errorf("%s: %v after normalize round trip, want %v", pv.Specs[i].Name, back[i], defaults[i])
		}
	}
}

func TestQuality(t *testing.T) {
	steady := make([]telemetry.WindowStats, 10)
	for i := range steady {
		steady[i] = telemetry.WindowStats{Minions: 20, Hatched: 60, MinionEnergyP50: 0.5, FertileRatio: 1}
	}

	tests := []struct {
		name    string
		windows []telemetry.WindowStats
		min     float64
		max     float64
	}{
		{"warmup only", steady[:3], 0, 0},
		{"steady and breeding", steady, 0.9, 1},
		{"too few minions", []telemetry.WindowStats{{}, {}, {}, {Minions: 1}, {Minions: 2}}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := computeQuality(tt.windows)
			if q < tt.min || q > tt.max {
				t.Errorf("quality = %v, want in [%v, %v]", q, tt.min, tt.max)
			}
		})
	}
}

func TestCV(t *testing.T) {
	if got := cv([]float64{5, 5, 5}); got != 0 {
		t.Errorf("cv of constant = %v, want 0", got)
	}
	if got := cv([]float64{1, 3}); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("cv = %v, want 0.5", got)
	}
}
