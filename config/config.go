// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Fluid     FluidConfig     `yaml:"fluid"`
	Grid      GridConfig      `yaml:"grid"`
	Solver    SolverConfig    `yaml:"solver"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Scene     SceneConfig     `yaml:"scene"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// FluidConfig holds the physical constants of the fluid.
type FluidConfig struct {
	Radius          float64    `yaml:"radius"`           // Particle radius, used for collider contact
	Mass            float64    `yaml:"mass"`             // Per-particle mass
	SmoothingRadius float64    `yaml:"smoothing_radius"` // Kernel support h
	RestDensity     float64    `yaml:"rest_density"`
	GasConstant     float64    `yaml:"gas_constant"` // Equation of state stiffness
	Viscosity       float64    `yaml:"viscosity"`
	Gravity         [3]float64 `yaml:"gravity"`
	Damping         float64    `yaml:"damping"`   // Normal restitution at colliders (negative reverses)
	Drag            float64    `yaml:"drag"`      // Tangential loss at colliders, 0..1
	TimeStep        float64    `yaml:"time_step"` // Fixed integration step (seconds)
}

// GridConfig holds spatial hash parameters.
type GridConfig struct {
	CellSize      float64 `yaml:"cell_size"`      // 0 = smoothing radius
	TableSize     int     `yaml:"table_size"`     // Initial cell slots; grows to 2x particles
	CellCapacity  int     `yaml:"cell_capacity"`  // Max indices retained per cell
	Neighborhood  string  `yaml:"neighborhood"`   // "full" (27 cells) or "reduced" (8 cells)
	ParallelBuild bool    `yaml:"parallel_build"` // Insert from workers with atomic appends
}

// SolverConfig holds execution parameters.
type SolverConfig struct {
	NeighborSearch    string `yaml:"neighbor_search"`    // "auto", "grid" or "brute_force"
	BruteForceBelow   int    `yaml:"brute_force_below"`  // auto: brute force under this count
	Workers           int    `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int    `yaml:"parallel_threshold"` // Below this, passes run single-threaded
}

// TelemetryConfig holds telemetry and logging parameters.
type TelemetryConfig struct {
	PerfWindow  int `yaml:"perf_window"`  // Steps averaged by the perf collector
	StatsEvery  int `yaml:"stats_every"`  // Steps between stats rows/log lines
	FramesEvery int `yaml:"frames_every"` // Steps between frame dumps (0 = never)
}

// SceneConfig describes what drives the solver from outside.
type SceneConfig struct {
	Seed         int64            `yaml:"seed"`
	Block        BlockConfig      `yaml:"block"`
	Colliders    []ColliderConfig `yaml:"colliders"`
	Emitters     []EmitterConfig  `yaml:"emitters"`
	DespawnAfter float64          `yaml:"despawn_after"` // Seconds before emitted particles are removed (0 = never)
	WaveWalls    []WaveWallConfig `yaml:"wave_walls"`
}

// BlockConfig describes the initial particle lattice.
type BlockConfig struct {
	Count    int        `yaml:"count"`
	Origin   [3]float64 `yaml:"origin"`
	Spacing  float64    `yaml:"spacing"` // 0 = radius / 2
	Jitter   float64    `yaml:"jitter"`
	Velocity [3]float64 `yaml:"velocity"`
}

// ColliderConfig describes a finite plane collider.
type ColliderConfig struct {
	Name        string     `yaml:"name"`
	Position    [3]float64 `yaml:"position"`
	Right       [3]float64 `yaml:"right"`
	Up          [3]float64 `yaml:"up"`
	HalfExtents [2]float64 `yaml:"half_extents"`
}

// EmitterConfig describes a periodic particle source.
type EmitterConfig struct {
	Position [3]float64 `yaml:"position"`
	Spread   [2]float64 `yaml:"spread"` // Half-width of the random X/Z velocity kick
	Velocity [3]float64 `yaml:"velocity"`
	Interval float64    `yaml:"interval"`
	Count    int        `yaml:"count"`
	Limit    int        `yaml:"limit"` // Stop emitting above this particle count (0 = no limit)
}

// WaveWallConfig animates one named collider back and forth.
type WaveWallConfig struct {
	Collider string     `yaml:"collider"`
	From     [3]float64 `yaml:"from"`
	To       [3]float64 `yaml:"to"`
	Speed    float64    `yaml:"speed"`
	Period   float64    `yaml:"period"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	CellSize      float64
	Gravity       r3.Vec
	ColliderIndex map[string]int
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
		// Only overwrites fields present in the file. Lists are replaced wholesale.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.CellSize = c.Grid.CellSize
	if c.Derived.CellSize <= 0 {
		c.Derived.CellSize = c.Fluid.SmoothingRadius
	}

	c.Derived.Gravity = Vec3(c.Fluid.Gravity)

	if c.Scene.Block.Spacing <= 0 {
		c.Scene.Block.Spacing = c.Fluid.Radius / 2
	}

	c.Derived.ColliderIndex = make(map[string]int, len(c.Scene.Colliders))
	for i, col := range c.Scene.Colliders {
		if col.Name != "" {
			c.Derived.ColliderIndex[col.Name] = i
		}
	}
}

// Vec3 converts a YAML triple to a vector.
func Vec3(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
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
