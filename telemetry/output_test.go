package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/sph/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	require.Nil(t, om)

	// Every method is a no-op on nil.
	assert.NoError(t, om.WriteStats(StepStats{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 1))
	assert.NoError(t, om.WriteFrame([]FrameRecord{{Tick: 1}}))
	assert.NoError(t, om.WriteConfig(nil))
	assert.Empty(t, om.Dir())
	assert.NoError(t, om.Close())
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteStats(StepStats{Tick: 1, Particles: 10}))
	require.NoError(t, om.WriteStats(StepStats{Tick: 2, Particles: 12}))
	require.NoError(t, om.WriteFrame([]FrameRecord{{Tick: 2, ID: 7, X: 1.5}, {Tick: 2, ID: 8}}))
	require.NoError(t, om.WriteFrame(nil))
	require.NoError(t, om.WritePerf(PerfStats{AvgTickDuration: 1000}, 2))

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, om.WriteConfig(cfg))
	require.NoError(t, om.Close())

	stats := readLines(t, filepath.Join(dir, "stats.csv"))
	require.Len(t, stats, 3)
	assert.True(t, strings.HasPrefix(stats[0], "tick,sim_time,particles,"), stats[0])
	assert.True(t, strings.HasPrefix(stats[2], "2,"), stats[2])

	frames := readLines(t, filepath.Join(dir, "frames.csv"))
	require.Len(t, frames, 3)
	assert.Equal(t, "tick,id,x,y,z,vx,vy,vz,density,pressure", frames[0])
	assert.True(t, strings.HasPrefix(frames[1], "2,7,1.5,"), frames[1])

	perf := readLines(t, filepath.Join(dir, "perf.csv"))
	assert.Len(t, perf, 2)

	_, err = config.Load(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
