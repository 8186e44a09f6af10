// Package sim owns the particle set and advances it through the SPH passes.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sph/components"
	"github.com/pthm-cable/sph/systems"
	"github.com/pthm-cable/sph/telemetry"
)

// Errors returned by Simulation methods.
var (
	ErrUnknownParticle = errors.New("unknown particle")
	ErrInvalidParticle = errors.New("particle state must be finite")
	ErrInvalidStep     = errors.New("step size must be finite and non-negative")
	ErrClosed          = errors.New("simulation closed")
	ErrCellTooSmall    = errors.New("grid cell size is smaller than the smoothing radius")
)

// Simulation is the solver core. All methods are safe for concurrent use;
// they serialize, so spawns and despawns only ever land between steps.
type Simulation struct {
	mu sync.Mutex

	opts    Options
	params  systems.Params
	kernels systems.Kernels
	log     *slog.Logger
	perf    *telemetry.PerfCollector

	world       *ecs.World
	mapper      *ecs.Map4[components.Position, components.Velocity, components.Fluid, components.Particle]
	filter      *ecs.Filter4[components.Position, components.Velocity, components.Fluid, components.Particle]
	particleMap *ecs.Map1[components.Particle]

	// Per-step dense copy of the world, slot i <-> entities[i].
	store    *systems.Store
	entities []ecs.Entity
	ids      []uint64

	grid      *systems.HashGrid
	colliders []systems.PlaneCollider
	pool      *workerPool

	count  int
	nextID uint64
	tick   int64
	time   float64
	closed bool
}

// New creates a simulation. Params are validated.
func New(opts Options) (*Simulation, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if opts.TableSize < 1 || opts.CellCapacity < 1 {
		return nil, fmt.Errorf("grid needs positive table size and cell capacity, got %d and %d",
			opts.TableSize, opts.CellCapacity)
	}
	if err := opts.checkCellSize(opts.Params); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	world := ecs.NewWorld()
	s := &Simulation{
		opts:        opts,
		params:      opts.Params,
		kernels:     systems.NewKernels(opts.Params.SmoothingRadius),
		log:         opts.Logger,
		perf:        opts.Perf,
		world:       world,
		mapper:      ecs.NewMap4[components.Position, components.Velocity, components.Fluid, components.Particle](world),
		filter:      ecs.NewFilter4[components.Position, components.Velocity, components.Fluid, components.Particle](world),
		particleMap: ecs.NewMap1[components.Particle](world),
		store:       systems.NewStore(512),
		pool:        newWorkerPool(opts.Workers, opts.ParallelThreshold),
		nextID:      1,
	}
	s.grid = s.newGrid()
	return s, nil
}

func (s *Simulation) newGrid() *systems.HashGrid {
	return systems.NewHashGrid(s.opts.cellSize(s.params), s.opts.TableSize, s.opts.CellCapacity, s.opts.Neighborhood)
}

// Configure replaces the physical constants from the next step on.
func (s *Simulation) Configure(p systems.Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.opts.checkCellSize(p); err != nil {
		return err
	}

	resize := s.opts.CellSize <= 0 && p.SmoothingRadius != s.params.SmoothingRadius
	s.params = p
	s.kernels = systems.NewKernels(p.SmoothingRadius)
	if resize {
		s.grid = s.newGrid()
	}
	return nil
}

// Params returns the active physical constants.
func (s *Simulation) Params() systems.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetColliders replaces the collider set. The slice is copied and each
// collider's basis normalized.
func (s *Simulation) SetColliders(colliders []systems.PlaneCollider) error {
	next := make([]systems.PlaneCollider, len(colliders))
	for i, c := range colliders {
		next[i] = c.Normalized()
		if err := next[i].Validate(); err != nil {
			return fmt.Errorf("collider %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.colliders = next
	return nil
}

// Colliders returns a copy of the active collider set.
func (s *Simulation) Colliders() []systems.PlaneCollider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]systems.PlaneCollider(nil), s.colliders...)
}

// Len returns the number of live particles.
func (s *Simulation) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Time returns the accumulated simulation time.
func (s *Simulation) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time
}

// Step advances the simulation by the configured time step.
func (s *Simulation) Step() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(s.params.TimeStep)
}

// StepBy advances the simulation by dt. A zero dt refreshes density,
// pressure and force but leaves positions and velocities untouched.
func (s *Simulation) StepBy(dt float64) (Frame, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidStep, dt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(dt)
}

func (s *Simulation) step(dt float64) (Frame, error) {
	if s.closed {
		return Frame{}, ErrClosed
	}

	perf := s.perf
	if perf != nil {
		perf.StartTick()
		defer perf.EndTick()
	}
	phase := func(name string) {
		if perf != nil {
			perf.StartPhase(name)
		}
	}

	phase(telemetry.PhaseSnapshot)
	s.gather()
	n := s.store.Len()

	var nb systems.NeighborResolver
	var overflow int64
	if s.useGrid(n) {
		phase(telemetry.PhaseSpatialGrid)
		s.rebuildGrid()
		overflow = s.grid.Overflow()
		nb = systems.GridResolver{Grid: s.grid, H: s.params.SmoothingRadius}
	} else {
		nb = systems.BruteForceResolver{H: s.params.SmoothingRadius}
	}

	store, k, p := s.store, s.kernels, s.params
	s.pool.resetScratch()

	phase(telemetry.PhaseDensity)
	s.pool.run(n, func(lo, hi, _ int) {
		systems.ComputeDensityPressure(store, nb, k, p, lo, hi)
	})

	phase(telemetry.PhaseForces)
	s.pool.run(n, func(lo, hi, _ int) {
		systems.ComputeForces(store, nb, k, p, lo, hi)
	})

	phase(telemetry.PhaseIntegrate)
	s.pool.run(n, func(lo, hi, w int) {
		s.pool.scratches[w].Faulted += systems.Integrate(store, dt, lo, hi)
	})

	if dt > 0 && len(s.colliders) > 0 {
		phase(telemetry.PhaseCollide)
		colliders := s.colliders
		s.pool.run(n, func(lo, hi, w int) {
			s.pool.scratches[w].Contacts += systems.Collide(store, colliders, p, lo, hi)
		})
	}
	contacts, _ := s.pool.totals()

	phase(telemetry.PhaseApply)
	frame := s.apply()
	s.tick++
	s.time += dt
	frame.Tick = s.tick
	frame.Time = s.time
	frame.Overflow = overflow
	frame.Contacts = contacts

	if overflow > 0 {
		s.log.Debug("grid overflow", "tick", s.tick, "dropped", overflow, "max_occupancy", s.grid.MaxOccupancy())
	}
	if len(frame.Faulted) > 0 {
		s.log.Debug("particles faulted", "tick", s.tick, "count", len(frame.Faulted))
	}
	return frame, nil
}

func (s *Simulation) useGrid(n int) bool {
	switch s.opts.Search {
	case SearchGrid:
		return true
	case SearchBruteForce:
		return false
	}
	return n >= s.opts.BruteForceBelow
}

func (s *Simulation) rebuildGrid() {
	if !s.opts.ParallelBuild {
		s.grid.Rebuild(s.store.Pos)
		return
	}
	s.grid.Reserve(len(s.store.Pos))
	s.grid.Clear()
	pos, grid := s.store.Pos, s.grid
	s.pool.run(len(pos), func(lo, hi, _ int) {
		for i := lo; i < hi; i++ {
			grid.Insert(i, pos[i])
		}
	})
}

// Close stops the worker pool. Later calls return ErrClosed.
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.pool.stopWorkers()
	s.closed = true
	return nil
}

// Handle identifies a spawned particle. The zero Handle is invalid.
type Handle struct {
	entity ecs.Entity
	id     uint64
}

// ID returns the particle's stable id. IDs are never reused.
func (h Handle) ID() uint64 { return h.id }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.id == 0 }

// ParticleView is a read-only copy of one particle after a step.
type ParticleView struct {
	Handle   Handle
	Position r3.Vec
	Velocity r3.Vec
	Density  float64
	Pressure float64
}

// Frame is the result of one step.
type Frame struct {
	Tick      int64
	Time      float64
	Particles []ParticleView
	Faulted   []Handle // removed this step for non-finite state
	Overflow  int64    // grid inserts dropped at capacity
	Contacts  int      // collider contacts resolved
}
