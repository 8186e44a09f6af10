package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/sph/config"
)

// FrameRecord is one particle in a frame dump.
type FrameRecord struct {
	Tick     int64   `csv:"tick"`
	ID       uint64  `csv:"id"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	VX       float64 `csv:"vx"`
	VY       float64 `csv:"vy"`
	VZ       float64 `csv:"vz"`
	Density  float64 `csv:"density"`
	Pressure float64 `csv:"pressure"`
}

// OutputManager handles structured run output with CSV logging.
// A nil *OutputManager is valid and discards everything.
type OutputManager struct {
	dir        string
	statsFile  *os.File
	perfFile   *os.File
	framesFile *os.File

	// Track if headers have been written
	statsHeaderWritten  bool
	perfHeaderWritten   bool
	framesHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	files := []struct {
		name string
		dst  **os.File
	}{
		{"stats.csv", &om.statsFile},
		{"perf.csv", &om.perfFile},
		{"frames.csv", &om.framesFile},
	}
	for _, f := range files {
		file, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = file
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats writes a step stats record to stats.csv.
func (om *OutputManager) WriteStats(stats StepStats) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.statsFile, &om.statsHeaderWritten, []StepStats{stats}); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.perfFile, &om.perfHeaderWritten, []PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteFrame appends one frame's particles to frames.csv.
func (om *OutputManager) WriteFrame(records []FrameRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := writeRecords(om.framesFile, &om.framesHeaderWritten, records); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// writeRecords marshals records, including the header only on first write.
func writeRecords[T any](f *os.File, headerWritten *bool, records []T) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.statsFile, om.perfFile, om.framesFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
