package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/systems"
	"github.com/pthm-cable/sph/telemetry"
)

// SearchMode selects the neighbor resolver.
type SearchMode uint8

const (
	// SearchAuto uses brute force below Options.BruteForceBelow particles, the grid above.
	SearchAuto SearchMode = iota
	SearchGrid
	SearchBruteForce
)

// ParseSearchMode maps a config string to a SearchMode.
func ParseSearchMode(s string) (SearchMode, error) {
	switch s {
	case "", "auto":
		return SearchAuto, nil
	case "grid":
		return SearchGrid, nil
	case "brute_force":
		return SearchBruteForce, nil
	}
	return SearchAuto, fmt.Errorf("unknown neighbor search %q", s)
}

func (m SearchMode) String() string {
	switch m {
	case SearchGrid:
		return "grid"
	case SearchBruteForce:
		return "brute_force"
	}
	return "auto"
}

// Options configures a Simulation.
type Options struct {
	Params systems.Params

	CellSize      float64 // 0 = Params.SmoothingRadius
	TableSize     int
	CellCapacity  int
	Neighborhood  systems.Neighborhood
	ParallelBuild bool

	Search          SearchMode
	BruteForceBelow int

	Workers           int // 0 = GOMAXPROCS
	ParallelThreshold int

	Perf   *telemetry.PerfCollector // optional phase timing
	Logger *slog.Logger             // nil = slog.Default()
}

// DefaultOptions returns options for params with the stock grid and pool settings.
func DefaultOptions(p systems.Params) Options {
	return Options{
		Params:            p,
		TableSize:         16381,
		CellCapacity:      64,
		Search:            SearchAuto,
		BruteForceBelow:   256,
		ParallelThreshold: parallelThreshold,
	}
}

// ParamsFromConfig converts the fluid section to solver parameters.
func ParamsFromConfig(cfg *config.Config) systems.Params {
	f := cfg.Fluid
	return systems.Params{
		Radius:          f.Radius,
		Mass:            f.Mass,
		SmoothingRadius: f.SmoothingRadius,
		RestDensity:     f.RestDensity,
		GasConstant:     f.GasConstant,
		Viscosity:       f.Viscosity,
		Gravity:         cfg.Derived.Gravity,
		Damping:         f.Damping,
		Drag:            f.Drag,
		TimeStep:        f.TimeStep,
	}
}

// OptionsFromConfig builds Options from a loaded config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	hood, ok := systems.ParseNeighborhood(cfg.Grid.Neighborhood)
	if !ok {
		return Options{}, fmt.Errorf("unknown grid neighborhood %q", cfg.Grid.Neighborhood)
	}
	search, err := ParseSearchMode(cfg.Solver.NeighborSearch)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Params:            ParamsFromConfig(cfg),
		CellSize:          cfg.Grid.CellSize,
		TableSize:         cfg.Grid.TableSize,
		CellCapacity:      cfg.Grid.CellCapacity,
		Neighborhood:      hood,
		ParallelBuild:     cfg.Grid.ParallelBuild,
		Search:            search,
		BruteForceBelow:   cfg.Solver.BruteForceBelow,
		Workers:           cfg.Solver.Workers,
		ParallelThreshold: cfg.Solver.ParallelThreshold,
	}, nil
}

// cellSize resolves the grid cell size for the current smoothing radius.
func (o Options) cellSize(p systems.Params) float64 {
	if o.CellSize > 0 {
		return o.CellSize
	}
	return p.SmoothingRadius
}

// checkCellSize rejects a full-neighborhood grid whose cells are smaller
// than h: its 27-cell scan would miss neighbors between one cell and h away.
// The reduced neighborhood is an approximation already and is not checked.
func (o Options) checkCellSize(p systems.Params) error {
	if o.Search == SearchBruteForce || o.Neighborhood != systems.NeighborhoodFull {
		return nil
	}
	if cell := o.cellSize(p); cell < p.SmoothingRadius {
		return fmt.Errorf("%w: cell %v, smoothing radius %v", ErrCellTooSmall, cell, p.SmoothingRadius)
	}
	return nil
}
