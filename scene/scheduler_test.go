package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	var got []string
	rec := func(name string) Task {
		return func(float64) error {
			got = append(got, name)
			return nil
		}
	}

	s.After(2, rec("c"))
	s.After(1, rec("a"))
	s.After(1, rec("b"))
	s.After(5, rec("late"))

	require.NoError(t, s.Advance(3))
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 3.0, s.Now())
}

func TestSchedulerEveryCatchesUp(t *testing.T) {
	var s Scheduler
	var dues []float64
	require.NoError(t, s.Every(0.5, func(due float64) error {
		dues = append(dues, due)
		return nil
	}))

	require.NoError(t, s.Advance(1.6))
	assert.Equal(t, []float64{0.5, 1.0, 1.5}, dues)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Advance(1.9))
	assert.Len(t, dues, 3)
}

func TestSchedulerEveryRejectsBadPeriod(t *testing.T) {
	var s Scheduler
	assert.Error(t, s.Every(0, func(float64) error { return nil }))
	assert.Error(t, s.Every(-1, func(float64) error { return nil }))
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerAfterUsesTaskTime(t *testing.T) {
	var s Scheduler
	var fired float64
	s.After(1, func(float64) error {
		// Scheduled from inside a task: relative to the task's due time.
		s.After(0.5, func(due float64) error {
			fired = due
			return nil
		})
		return nil
	})

	require.NoError(t, s.Advance(10))
	assert.Equal(t, 1.5, fired)
}

func TestSchedulerStopsOnError(t *testing.T) {
	var s Scheduler
	boom := errors.New("boom")
	ran := false
	s.After(1, func(float64) error { return boom })
	s.After(2, func(float64) error {
		ran = true
		return nil
	})

	err := s.Advance(3)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Advance(3))
	assert.True(t, ran)
}
