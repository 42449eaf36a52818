// Package cover implements the motion-control core of a motorized window
// covering: time-proportioned actuator drive, a continuously interpolated
// position estimate and a one-time travel-duration calibration.
//
// Position is a time-based estimate with no sensor confirmation. At boot the
// covering is assumed fully closed; if it was left elsewhere before a power
// cycle the estimate is wrong until the next full travel or calibration run.
package cover

const (
	FullClosePosition = 0
	FullOpenPosition  = 100
	MidPosition       = 50
)

type MotionState int

const (
	MotionIdle MotionState = iota
	MotionOpening
	MotionClosing
	MotionStopped
)

func (s MotionState) String() string {
	switch s {
	case MotionOpening:
		return "opening"
	case MotionClosing:
		return "closing"
	case MotionStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// UpdateHandler receives motion state and rounded position notifications.
type UpdateHandler func(state MotionState, position int)

// TargetHandler receives target position notifications.
type TargetHandler func(target int)
