package cover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectIndicator(t *testing.T) {
	cases := []struct {
		name string

		networkReady bool
		calibration  CalibrationState
		motion       MotionState
		position     int

		want IndicatorCode
	}{
		{"network wait overrides everything", false, CalibrationRunning, MotionOpening, 50, IndicatorWaitingForNetwork},
		{"armed calibration", true, CalibrationArmed, MotionStopped, 0, IndicatorCalibrating},
		{"running calibration overrides motion", true, CalibrationRunning, MotionOpening, 20, IndicatorCalibrating},
		{"opening", true, CalibrationIdle, MotionOpening, 10, IndicatorOpening},
		{"closing", true, CalibrationIdle, MotionClosing, 90, IndicatorClosing},
		{"stopped at interior position", true, CalibrationIdle, MotionStopped, 50, IndicatorStopped},
		{"stopped fully closed is idle", true, CalibrationIdle, MotionStopped, 0, IndicatorIdle},
		{"stopped fully open is idle", true, CalibrationIdle, MotionStopped, 100, IndicatorIdle},
		{"boot idle", true, CalibrationIdle, MotionIdle, 0, IndicatorIdle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProjectIndicator(tc.networkReady, tc.calibration, tc.motion, tc.position)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatusNotifier(t *testing.T) {
	c := newTestCover(t, 100)

	var codes []IndicatorCode
	notifier := NewStatusNotifier(c.position, c.calibrator, func(code IndicatorCode) {
		codes = append(codes, code)
	})

	notifier.Refresh()
	assert.Equal(t, []IndicatorCode{IndicatorWaitingForNetwork}, codes)

	t.Run("repeated refresh emits nothing new", func(t *testing.T) {
		notifier.Refresh()
		assert.Len(t, codes, 1)
	})

	t.Run("network readiness flips to idle", func(t *testing.T) {
		notifier.SetNetworkReady(true)
		assert.Equal(t, IndicatorIdle, codes[len(codes)-1])
	})

	t.Run("calibration shows up", func(t *testing.T) {
		require.NoError(t, c.calibrator.Enter())
		notifier.Refresh()
		assert.Equal(t, IndicatorCalibrating, codes[len(codes)-1])

		require.NoError(t, c.calibrator.Cancel())
		notifier.Refresh()
		assert.Equal(t, IndicatorIdle, codes[len(codes)-1])
	})

	t.Run("stopped mid-travel shows stopped", func(t *testing.T) {
		c.forcePosition(37)
		require.NoError(t, c.position.Stop())
		notifier.Refresh()
		assert.Equal(t, IndicatorStopped, codes[len(codes)-1])
	})

	t.Run("network loss overrides again", func(t *testing.T) {
		notifier.SetNetworkReady(false)
		assert.Equal(t, IndicatorWaitingForNetwork, codes[len(codes)-1])
	})
}
