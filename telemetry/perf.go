package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the simulation step.
const (
	PhaseSnapshot    = "snapshot"
	PhaseSpatialGrid = "spatial_grid"
	PhaseDensity     = "density"
	PhaseForces      = "forces"
	PhaseIntegrate   = "integrate"
	PhaseCollide     = "collide"
	PhaseApply       = "apply"
)

// Phases lists every step phase in execution order.
var Phases = []string{
	PhaseSnapshot, PhaseSpatialGrid, PhaseDensity, PhaseForces,
	PhaseIntegrate, PhaseCollide, PhaseApply,
}

// PerfSample holds timing data for a single step.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
// It is not safe for concurrent use; the simulation calls it under its own lock.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of steps to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current step and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total step time
	PhasePct map[string]float64

	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd      int64   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	SnapshotPct    float64 `csv:"snapshot_pct"`
	SpatialGridPct float64 `csv:"spatial_grid_pct"`
	DensityPct     float64 `csv:"density_pct"`
	ForcesPct      float64 `csv:"forces_pct"`
	IntegratePct   float64 `csv:"integrate_pct"`
	CollidePct     float64 `csv:"collide_pct"`
	ApplyPct       float64 `csv:"apply_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		SnapshotPct:    s.PhasePct[PhaseSnapshot],
		SpatialGridPct: s.PhasePct[PhaseSpatialGrid],
		DensityPct:     s.PhasePct[PhaseDensity],
		ForcesPct:      s.PhasePct[PhaseForces],
		IntegratePct:   s.PhasePct[PhaseIntegrate],
		CollidePct:     s.PhasePct[PhaseCollide],
		ApplyPct:       s.PhasePct[PhaseApply],
	}
}
