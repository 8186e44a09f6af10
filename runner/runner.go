// Package runner drives a headless simulation run: it steps the solver,
// advances the scene and writes telemetry.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/scene"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/telemetry"
)

// Options configures a run on top of the loaded config.
type Options struct {
	Seed        int64  // Overrides scene.seed when nonzero
	Workers     int    // Overrides solver.workers when positive
	MaxSteps    int64  // Stop after N steps (0 = until cancelled)
	OutputDir   string // CSV logs and config copy (empty = disabled)
	SnapshotDir string // Final snapshot destination (empty = disabled)
	RestorePath string // Snapshot to resume particles from instead of the block
	Logger      *slog.Logger
}

// Runner owns one simulation and everything that feeds or observes it.
type Runner struct {
	cfg  config.Config
	opts Options
	log  *slog.Logger

	sim    *sim.Simulation
	scene  *scene.Scene
	perf   *telemetry.PerfCollector
	output *telemetry.OutputManager

	last     *sim.Frame
	contacts int // Since the last stats row
	faulted  int
}

// New builds the simulation and scene from cfg and runs scene setup.
// cfg is copied; the caller's value is not modified.
func New(cfg *config.Config, opts Options) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Runner{cfg: *cfg, opts: opts, log: opts.Logger}
	if opts.Seed != 0 {
		r.cfg.Scene.Seed = opts.Seed
	}
	if opts.Workers > 0 {
		r.cfg.Solver.Workers = opts.Workers
	}

	var restore *telemetry.Snapshot
	if opts.RestorePath != "" {
		snap, err := telemetry.LoadSnapshot(opts.RestorePath)
		if err != nil {
			return nil, err
		}
		restore = snap
		r.cfg.Scene.Block.Count = 0
	}

	r.perf = telemetry.NewPerfCollector(r.cfg.Telemetry.PerfWindow)

	simOpts, err := sim.OptionsFromConfig(&r.cfg)
	if err != nil {
		return nil, err
	}
	simOpts.Perf = r.perf
	simOpts.Logger = r.log
	if r.sim, err = sim.New(simOpts); err != nil {
		return nil, err
	}

	if r.scene, err = scene.FromConfig(&r.cfg); err != nil {
		r.sim.Close()
		return nil, err
	}

	if r.output, err = telemetry.NewOutputManager(opts.OutputDir); err != nil {
		r.sim.Close()
		return nil, err
	}
	if err := r.output.WriteConfig(&r.cfg); err != nil {
		r.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	if err := r.scene.Setup(r.sim); err != nil {
		r.Close()
		return nil, fmt.Errorf("scene setup: %w", err)
	}
	if restore != nil {
		if err := r.restore(restore); err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

// Sim returns the underlying simulation.
func (r *Runner) Sim() *sim.Simulation { return r.sim }

// Scene returns the scene driving the simulation.
func (r *Runner) Scene() *scene.Scene { return r.scene }

// Step advances the simulation by one fixed step, then the scene to the
// new simulation time, then flushes telemetry that is due.
func (r *Runner) Step() (sim.Frame, error) {
	frame, err := r.sim.Step()
	if err != nil {
		return frame, err
	}
	r.last = &frame
	r.contacts += frame.Contacts
	r.faulted += len(frame.Faulted)

	for _, h := range frame.Faulted {
		r.log.Warn("particle faulted", "id", h.ID(), "tick", frame.Tick)
	}

	if err := r.scene.Advance(r.sim, frame.Time); err != nil {
		return frame, fmt.Errorf("scene advance: %w", err)
	}

	if every := int64(r.cfg.Telemetry.StatsEvery); every > 0 && frame.Tick%every == 0 {
		r.flushStats(frame)
	}
	if every := int64(r.cfg.Telemetry.FramesEvery); every > 0 && frame.Tick%every == 0 {
		r.writeFrame(frame)
	}
	return frame, nil
}

// Run steps until MaxSteps is reached or ctx is cancelled. Cancellation is
// not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("starting simulation",
		"seed", r.cfg.Scene.Seed,
		"particles", r.sim.Len(),
		"max_steps", r.opts.MaxSteps,
		"time_step", r.cfg.Fluid.TimeStep,
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("run cancelled", "tick", r.sim.Tick())
			return nil
		default:
		}

		frame, err := r.Step()
		if err != nil {
			return err
		}
		if r.opts.MaxSteps > 0 && frame.Tick >= r.opts.MaxSteps {
			r.log.Info("max steps reached", "tick", frame.Tick)
			return nil
		}
	}
}

// Close writes the final snapshot, then releases output files and the
// simulation's workers.
func (r *Runner) Close() error {
	var errs []error
	if r.opts.SnapshotDir != "" && r.last != nil {
		if err := r.saveSnapshot(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.output.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.sim.Close(); err != nil && !errors.Is(err, sim.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
