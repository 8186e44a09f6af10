package runner

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/telemetry"
)

// flushStats logs and records one stats row plus the perf window.
func (r *Runner) flushStats(frame sim.Frame) {
	sample := telemetry.StepSample{
		Tick:       frame.Tick,
		Time:       frame.Time,
		Mass:       r.cfg.Fluid.Mass,
		Densities:  make([]float64, len(frame.Particles)),
		Velocities: make([]r3.Vec, len(frame.Particles)),
		Overflow:   frame.Overflow,
		Contacts:   r.contacts,
		Faulted:    r.faulted,
	}
	for i, p := range frame.Particles {
		sample.Densities[i] = p.Density
		sample.Velocities[i] = p.Velocity
	}
	r.contacts, r.faulted = 0, 0

	stats := telemetry.ComputeStepStats(sample)
	perfStats := r.perf.Stats()

	r.log.Info("step",
		"stats", stats,
		"perf", perfStats,
		"spawned", r.scene.Spawned(),
		"despawned", r.scene.Despawned(),
	)

	if err := r.output.WriteStats(stats); err != nil {
		r.log.Error("failed to write stats", "error", err)
	}
	if err := r.output.WritePerf(perfStats, frame.Tick); err != nil {
		r.log.Error("failed to write perf", "error", err)
	}
}

// writeFrame dumps every particle of frame to frames.csv.
func (r *Runner) writeFrame(frame sim.Frame) {
	records := make([]telemetry.FrameRecord, len(frame.Particles))
	for i, p := range frame.Particles {
		records[i] = telemetry.FrameRecord{
			Tick:     frame.Tick,
			ID:       p.Handle.ID(),
			X:        p.Position.X,
			Y:        p.Position.Y,
			Z:        p.Position.Z,
			VX:       p.Velocity.X,
			VY:       p.Velocity.Y,
			VZ:       p.Velocity.Z,
			Density:  p.Density,
			Pressure: p.Pressure,
		}
	}
	if err := r.output.WriteFrame(records); err != nil {
		r.log.Error("failed to write frame", "error", err)
	}
}

// saveSnapshot writes the last frame's particles to SnapshotDir.
func (r *Runner) saveSnapshot() error {
	frame := r.last
	snap := &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		Seed:      r.cfg.Scene.Seed,
		Tick:      frame.Tick,
		Time:      frame.Time,
		Particles: make([]telemetry.ParticleState, len(frame.Particles)),
	}
	for i, p := range frame.Particles {
		snap.Particles[i] = telemetry.ParticleState{
			ID:       p.Handle.ID(),
			Position: [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
			Velocity: [3]float64{p.Velocity.X, p.Velocity.Y, p.Velocity.Z},
		}
	}

	path, err := telemetry.SaveSnapshot(snap, r.opts.SnapshotDir)
	if err != nil {
		return err
	}
	r.log.Info("snapshot saved", "path", path, "tick", frame.Tick, "particles", len(snap.Particles))
	return nil
}

// restore spawns the particles of snap. Ids are reassigned; simulation
// time restarts at zero.
func (r *Runner) restore(snap *telemetry.Snapshot) error {
	for i, p := range snap.Particles {
		if _, err := r.sim.Spawn(config.Vec3(p.Position), config.Vec3(p.Velocity)); err != nil {
			return fmt.Errorf("restoring particle %d: %w", i, err)
		}
	}
	r.log.Info("snapshot restored", "tick", snap.Tick, "particles", len(snap.Particles))
	return nil
}
