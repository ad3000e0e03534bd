package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.World.Width != 240 || cfg.World.Height != 160 {
		t.Errorf("world = %vx%v, want 240x160", cfg.World.Width, cfg.World.Height)
	}
	if cfg.Derived.HalfWidth != 120 || cfg.Derived.HalfHeight != 80 {
		t.Errorf("derived half size = %v,%v", cfg.Derived.HalfWidth, cfg.Derived.HalfHeight)
	}
	if cfg.Alife.ReproductionRatio != 0.75 {
		t.Errorf("reproduction_ratio = %v, want 0.75", cfg.Alife.ReproductionRatio)
	}
	if cfg.AI.RadarFactor != 10 {
		t.Errorf("radar_factor = %v, want 10", cfg.AI.RadarFactor)
	}
	if cfg.Derived.StatsWindowTicks < 1 {
		t.Errorf("stats window ticks = %d", cfg.Derived.StatsWindowTicks)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := []byte("world:\n  width: 100\nai:\n  power_boost: 7\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.Width != 100 {
		t.Errorf("width = %v, want 100", cfg.World.Width)
	}
	if cfg.World.Height != 160 {
		t.Errorf("height = %v, want default 160", cfg.World.Height)
	}
	if cfg.AI.PowerBoost != 7 {
		t.Errorf("power_boost = %v, want 7", cfg.AI.PowerBoost)
	}
	if cfg.AI.RadarFactor != 10 {
		t.Errorf("radar_factor = %v, want default 10", cfg.AI.RadarFactor)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero dt", "physics:\n  dt: 0\n"},
		{"negative width", "world:\n  width: -1\n"},
		{"ratio above one", "alife:\n  reproduction_ratio: 1.5\n"},
		{"no seed source", "genome:\n  seed_length: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file returned nil error")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Feeder.Count = 11

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if back.Feeder.Count != 11 {
		t.Errorf("feeder.count = %d, want 11", back.Feeder.Count)
	}
}

func TestCfgAfterMustInit(t *testing.T) {
	MustInit("")
	if Cfg().Physics.DT <= 0 {
		t.Errorf("Cfg().Physics.DT = %v", Cfg().Physics.DT)
	}
}

func TestSet(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Telemetry.StatsWindow = 1
	cfg.Physics.DT = 0.25
	if err := Set(cfg); err != nil {
		t.Fatalf("Set: %v", err)
	}
	t.Cleanup(func() { MustInit("") })

	if Cfg() != cfg {
		t.Error("Cfg did not return the installed config")
	}
	if cfg.Derived.StatsWindowTicks != 4 {
		t.Errorf("stats window ticks = %d, want 4", cfg.Derived.StatsWindowTicks)
	}

	bad := *cfg
	bad.Physics.DT = 0
	if err := Set(&bad); err == nil {
		t.Error("Set accepted a zero dt")
	}
	if Cfg() != cfg {
		t.Error("rejected config was installed")
	}
}
