package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// StepSample is the raw per-particle state a StepStats row is computed from.
type StepSample struct {
	Tick       int64
	Time       float64
	Mass       float64
	Densities  []float64
	Velocities []r3.Vec
	Overflow   int64
	Contacts   int
	Faulted    int
}

// StepStats summarizes the fluid after one step.
type StepStats struct {
	Tick      int64   `csv:"tick"`
	SimTime   float64 `csv:"sim_time"`
	Particles int     `csv:"particles"`

	// Density distribution
	DensityMean float64 `csv:"density_mean"`
	DensityStd  float64 `csv:"density_std"`
	DensityMin  float64 `csv:"density_min"`
	DensityMax  float64 `csv:"density_max"`
	DensityP50  float64 `csv:"density_p50"`
	DensityP90  float64 `csv:"density_p90"`

	// Motion
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedMax      float64 `csv:"speed_max"`
	KineticEnergy float64 `csv:"kinetic_energy"`

	// Diagnostics
	Overflow int64 `csv:"overflow"` // Grid inserts dropped at capacity
	Contacts int   `csv:"contacts"`
	Faulted  int   `csv:"faulted"`
}

// ComputeStepStats reduces a sample to summary statistics.
func ComputeStepStats(s StepSample) StepStats {
	out := StepStats{
		Tick:      s.Tick,
		SimTime:   s.Time,
		Particles: len(s.Densities),
		Overflow:  s.Overflow,
		Contacts:  s.Contacts,
		Faulted:   s.Faulted,
	}

	if n := len(s.Densities); n > 0 {
		out.DensityMean, out.DensityStd = stat.PopMeanStdDev(s.Densities, nil)
		out.DensityMin = floats.Min(s.Densities)
		out.DensityMax = floats.Max(s.Densities)

		sorted := slices.Clone(s.Densities)
		slices.Sort(sorted)
		out.DensityP50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		out.DensityP90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	}

	if n := len(s.Velocities); n > 0 {
		speeds := make([]float64, n)
		for i, v := range s.Velocities {
			speeds[i] = r3.Norm(v)
		}
		out.SpeedMean = stat.Mean(speeds, nil)
		out.SpeedMax = floats.Max(speeds)
		out.KineticEnergy = 0.5 * s.Mass * floats.Dot(speeds, speeds)
	}

	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.Tick),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("particles", s.Particles),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_std", s.DensityStd),
		slog.Float64("density_max", s.DensityMax),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Int64("overflow", s.Overflow),
		slog.Int("contacts", s.Contacts),
		slog.Int("faulted", s.Faulted),
	)
}
