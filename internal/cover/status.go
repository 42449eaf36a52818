package cover

import "sync"

// IndicatorCode is the abstract status handed to the indicator driver, which
// renders it independently. It is derived, never stored authoritatively.
type IndicatorCode int

const (
	IndicatorWaitingForNetwork IndicatorCode = iota
	IndicatorOpening
	IndicatorClosing
	IndicatorStopped
	IndicatorIdle
	IndicatorCalibrating
)

func (c IndicatorCode) String() string {
	switch c {
	case IndicatorWaitingForNetwork:
		return "waiting_for_network"
	case IndicatorOpening:
		return "opening"
	case IndicatorClosing:
		return "closing"
	case IndicatorStopped:
		return "stopped"
	case IndicatorCalibrating:
		return "calibrating"
	default:
		return "idle"
	}
}

// ProjectIndicator maps the current state to an indicator code. Waiting for
// the network overrides everything, calibration overrides motion, and
// Stopped only shows at an interior position: a covering resting fully open
// or fully closed is just idle.
func ProjectIndicator(networkReady bool, calibration CalibrationState, motion MotionState, position int) IndicatorCode {
	if !networkReady {
		return IndicatorWaitingForNetwork
	}
	if calibration != CalibrationIdle {
		return IndicatorCalibrating
	}

	switch motion {
	case MotionOpening:
		return IndicatorOpening
	case MotionClosing:
		return IndicatorClosing
	case MotionStopped:
		if position != FullClosePosition && position != FullOpenPosition {
			return IndicatorStopped
		}
	}
	return IndicatorIdle
}

// IndicatorFunc consumes indicator codes, e.g. publishing them to the
// rendering hardware's driver.
type IndicatorFunc func(code IndicatorCode)

// StatusNotifier recomputes the indicator code from current state whenever
// any input changes and pushes distinct values to the sink.
type StatusNotifier struct {
	position   *Position
	calibrator *Calibrator
	sink       IndicatorFunc

	mu           sync.Mutex
	networkReady bool
	emitted      bool
	last         IndicatorCode
}

func NewStatusNotifier(position *Position, calibrator *Calibrator, sink IndicatorFunc) *StatusNotifier {
	return &StatusNotifier{position: position, calibrator: calibrator, sink: sink}
}

func (n *StatusNotifier) SetNetworkReady(ready bool) {
	n.mu.Lock()
	n.networkReady = ready
	n.mu.Unlock()

	n.Refresh()
}

// Refresh recomputes the indicator and emits it if it changed.
func (n *StatusNotifier) Refresh() {
	code := n.project()

	n.mu.Lock()
	if n.emitted && code == n.last {
		n.mu.Unlock()
		return
	}
	n.emitted = true
	n.last = code
	n.mu.Unlock()

	n.sink(code)
}

func (n *StatusNotifier) project() IndicatorCode {
	n.mu.Lock()
	ready := n.networkReady
	n.mu.Unlock()

	return ProjectIndicator(ready, n.calibrator.State(), n.position.State(), n.position.Current())
}
