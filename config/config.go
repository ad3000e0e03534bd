// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Population PopulationConfig `yaml:"population"`
	Genome     GenomeConfig     `yaml:"genome"`
	AI         AIConfig         `yaml:"ai"`
	Alife      AlifeConfig      `yaml:"alife"`
	Minion     LifecycleConfig  `yaml:"minion"`
	Resource   LifecycleConfig  `yaml:"resource"`
	Spore      LifecycleConfig  `yaml:"spore"`
	Feeder     FeederConfig     `yaml:"feeder"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Archive    ArchiveConfig    `yaml:"archive"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the arena dimensions. The arena is centred on the origin.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PhysicsConfig holds parameters for the reference physics collaborator.
type PhysicsConfig struct {
	DT             float64 `yaml:"dt"`
	GridCellSize   float64 `yaml:"grid_cell_size"`
	KillY          float64 `yaml:"kill_y"`          // Bodies below this Y are destroyed by the engine
	LinearDamping  float64 `yaml:"linear_damping"`  // Velocity decay per second
	AngularDamping float64 `yaml:"angular_damping"` // Spin decay per second
	MaxSpeed       float64 `yaml:"max_speed"`
	MaxSpin        float64 `yaml:"max_spin"`
	JointLimit     float64 `yaml:"joint_limit"`     // Revolute joint angle limit (radians)
	WeldFrequency  float64 `yaml:"weld_frequency"`  // Weld joint spring frequency (Hz)
	WeldDamping    float64 `yaml:"weld_damping"`    // Weld joint damping ratio
}

// PopulationConfig holds population management parameters.
type PopulationConfig struct {
	InitialMinions        int `yaml:"initial_minions"`
	InitialResources      int `yaml:"initial_resources"`
	MaxMinions            int `yaml:"max_minions"`
	MaxResources          int `yaml:"max_resources"`
	RegenerationThreshold int `yaml:"regeneration_threshold"` // Regenerate minions when fewer than this remain
	RegenerationCount     int `yaml:"regeneration_count"`
}

// GenomeConfig holds gene pool seeds and mutation parameters.
type GenomeConfig struct {
	SeedLength      int      `yaml:"seed_length"`       // Length of random seed Dna when no pool is given
	MinionPool      []string `yaml:"minion_pool"`       // Base64 seed Dna for minions
	ResourcePool    []string `yaml:"resource_pool"`     // Base64 seed Dna for resources
	MutationsPerGen int      `yaml:"mutations_per_gen"` // Point mutations applied per swarm genome draw
}

// AIConfig holds controller parameters.
type AIConfig struct {
	RadarFactor       float64 `yaml:"radar_factor"` // Radar range = sensor radius * this
	PowerBoost        float64 `yaml:"power_boost"`
	TouchCost         float64 `yaml:"touch_cost"`
	Workers           int     `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int     `yaml:"parallel_threshold"` // Minion count below which AI runs single-threaded
}

// AlifeConfig holds ecology parameters shared by all agent types.
type AlifeConfig struct {
	ReproductionRatio float64 `yaml:"reproduction_ratio"` // Fraction of max energy consumed to lay a spore
	EnergyDensity     float64 `yaml:"energy_density"`     // Max energy per unit of STORAGE area
	CorpseCharge      float64 `yaml:"corpse_charge"`
	MaturityAge       float64 `yaml:"maturity_age"` // Seconds until maturity reaches 1
	ChargeTau         float64 `yaml:"charge_tau"`   // Charge smoothing time constant (seconds)
	TrajectoryLen     int     `yaml:"trajectory_len"`
	MinionDeathEnergy float64 `yaml:"minion_death_energy"`
}

// LifecycleConfig holds per-agent-type lifecycle parameters.
type LifecycleConfig struct {
	Lifespan      float64 `yaml:"lifespan"`       // Lifecycle timer duration (seconds)
	Metabolism    float64 `yaml:"metabolism"`     // Energy drain multiplier
	InitialCharge float64 `yaml:"initial_charge"` // Charge fraction at birth
}

// FeederConfig holds resource emitter parameters.
type FeederConfig struct {
	Count    int     `yaml:"count"`
	Interval float64 `yaml:"interval"` // Seconds between spawns per feeder
	Spread   float64 `yaml:"spread"`   // Spawn jitter radius around the beacon
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	SnapshotInterval    float64 `yaml:"snapshot_interval"` // Seconds between world snapshots (0 = off)
}

// ArchiveConfig holds gene archive parameters.
type ArchiveConfig struct {
	Path           string  `yaml:"path"` // SQLite path; empty = in-memory archive
	Size           int     `yaml:"size"` // Entries kept per agent type
	ChildrenWeight float64 `yaml:"children_weight"`
	SurvivalWeight float64 `yaml:"survival_weight"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HalfWidth        float64 // World.Width / 2
	HalfHeight       float64 // World.Height / 2
	StatsWindowTicks int     // Telemetry.StatsWindow / Physics.DT
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Set validates cfg and installs it as the global configuration.
// Callers must not run simulations concurrently with Set.
func Set(cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	cfg.computeDerived()
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configurations the simulation cannot run with.
func (c *Config) validate() error {
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world size must be positive, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.Alife.ReproductionRatio <= 0 || c.Alife.ReproductionRatio > 1 {
		return fmt.Errorf("alife.reproduction_ratio must be in (0,1], got %v", c.Alife.ReproductionRatio)
	}
	if c.Genome.SeedLength < 1 && len(c.Genome.MinionPool) == 0 {
		return fmt.Errorf("genome.seed_length must be at least 1 when minion_pool is empty")
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.HalfWidth = c.World.Width / 2
	c.Derived.HalfHeight = c.World.Height / 2

	ticks := int(c.Telemetry.StatsWindow / c.Physics.DT)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsWindowTicks = ticks

	if c.Alife.TrajectoryLen < 1 {
		c.Alife.TrajectoryLen = 1
	}
	if c.Alife.ChargeTau <= 0 {
		c.Alife.ChargeTau = c.Physics.DT
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
