package cover

import (
	"testing"
	"time"

	"github.com/jkaflik/sunshade2mqtt/internal/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the calibrator's monotonic elapsed measurement.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newCalibrationTestCover(t *testing.T) (*testCover, *fakeClock) {
	c := newTestCover(t, 100)
	clock := &fakeClock{now: time.Now()}
	c.calibrator.now = clock.Now
	return c, clock
}

func TestCalibrationRun(t *testing.T) {
	c, clock := newCalibrationTestCover(t)

	require.NoError(t, c.calibrator.Enter())
	assert.Equal(t, CalibrationArmed, c.calibrator.State())

	require.NoError(t, c.calibrator.BeginRun())
	assert.Equal(t, CalibrationRunning, c.calibrator.State())

	open, close := c.pair.states()
	assert.True(t, open, "calibration run drives open")
	assert.False(t, close)
	assert.Equal(t, MotionOpening, c.position.State())

	clock.Advance(5 * time.Second)
	require.NoError(t, c.calibrator.FinishRun())

	assert.Equal(t, CalibrationIdle, c.calibrator.State())
	assert.Equal(t, uint32(5000), c.travel.Milliseconds())

	persisted, err := c.kv.GetUint32(travelKey)
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), persisted)

	assert.Equal(t, FullOpenPosition, c.position.Current())
	assert.Equal(t, MotionStopped, c.position.State())

	open, close = c.pair.states()
	assert.False(t, open)
	assert.False(t, close)
}

func TestCalibrationRunTooShortIsDiscarded(t *testing.T) {
	c, clock := newCalibrationTestCover(t)

	require.NoError(t, c.calibrator.Enter())
	require.NoError(t, c.calibrator.BeginRun())

	clock.Advance(2999 * time.Millisecond)
	require.NoError(t, c.calibrator.FinishRun())

	assert.Equal(t, CalibrationIdle, c.calibrator.State())
	assert.Equal(t, uint32(100), c.travel.Milliseconds(), "travel duration unchanged")

	_, err := c.kv.GetUint32(travelKey)
	assert.Equal(t, store.ErrNotFound, errors.Cause(err))

	open, close := c.pair.states()
	assert.False(t, open)
	assert.False(t, close)
}

func TestCalibrationInvalidTransitions(t *testing.T) {
	c, _ := newCalibrationTestCover(t)

	t.Run("begin run requires armed", func(t *testing.T) {
		assert.Error(t, c.calibrator.BeginRun())
	})

	t.Run("finish run requires running", func(t *testing.T) {
		require.NoError(t, c.calibrator.Enter())
		assert.Error(t, c.calibrator.FinishRun())
	})

	t.Run("enter requires idle", func(t *testing.T) {
		assert.Error(t, c.calibrator.Enter())
	})

	t.Run("cancel is a no-op from idle", func(t *testing.T) {
		require.NoError(t, c.calibrator.Cancel())
		assert.NoError(t, c.calibrator.Cancel())
		assert.Equal(t, CalibrationIdle, c.calibrator.State())
	})
}

func TestCalibrationCancelStopsRun(t *testing.T) {
	c, clock := newCalibrationTestCover(t)

	require.NoError(t, c.calibrator.Enter())
	require.NoError(t, c.calibrator.BeginRun())
	clock.Advance(10 * time.Second)

	require.NoError(t, c.calibrator.Cancel())

	assert.Equal(t, CalibrationIdle, c.calibrator.State())
	assert.Equal(t, uint32(100), c.travel.Milliseconds(), "measurement discarded")

	open, close := c.pair.states()
	assert.False(t, open)
	assert.False(t, close)
	assert.Equal(t, MotionStopped, c.position.State())
}

func TestCalibrationInterruptsMoveRun(t *testing.T) {
	c, _ := newCalibrationTestCover(t)
	c.travel.Set(10000)

	require.NoError(t, c.position.MoveTo(FullOpenPosition))
	time.Sleep(10 * testTick)

	require.NoError(t, c.calibrator.Enter())

	assert.Equal(t, CalibrationArmed, c.calibrator.State())
	assert.Equal(t, MotionStopped, c.position.State())

	open, close := c.pair.states()
	assert.False(t, open)
	assert.False(t, close)

	require.NoError(t, c.calibrator.BeginRun())
	open, close = c.pair.states()
	assert.True(t, open)
	assert.False(t, close)

	require.NoError(t, c.calibrator.Cancel())
}

type brokenStore struct {
	*store.Memory
}

func (s *brokenStore) SetUint32(string, uint32) error {
	return errors.New("write failed")
}

func TestCalibrationPersistFailureStillAdoptsMeasurement(t *testing.T) {
	kv := &brokenStore{Memory: store.NewMemory()}
	travel := LoadTravel(kv)

	pair := newStrictPair(t)
	position := NewPosition("test", NewInterlock(pair.openSwitch(), pair.closeSwitch()), travel, testTick)
	calibrator := NewCalibrator("test", position, travel)

	clock := &fakeClock{now: time.Now()}
	calibrator.now = clock.Now

	require.NoError(t, calibrator.Enter())
	require.NoError(t, calibrator.BeginRun())
	clock.Advance(7 * time.Second)

	err := calibrator.FinishRun()
	assert.Error(t, err, "persist failure is reported")

	// The session still uses the fresh measurement.
	assert.Equal(t, uint32(7000), travel.Milliseconds())
	assert.Equal(t, CalibrationIdle, calibrator.State())
	assert.Equal(t, FullOpenPosition, position.Current())
}
