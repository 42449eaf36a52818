package cover

import (
	"sync"

	"github.com/jkaflik/sunshade2mqtt/internal/button"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Dispatcher translates button gestures and remote setter calls into
// position/calibration operations, with calibration taking precedence over
// normal movement. All commands are serialized: handlers arrive from
// independent callback contexts and must never mutate controller state
// concurrently.
type Dispatcher struct {
	mu         sync.Mutex
	position   *Position
	calibrator *Calibrator
}

func NewDispatcher(position *Position, calibrator *Calibrator) *Dispatcher {
	return &Dispatcher{position: position, calibrator: calibrator}
}

func (d *Dispatcher) HandleButton(e button.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	logrus.Debugf("%s: %s button %s press", d.position.Name(), e.Button, e.Press)

	var err error
	switch e.Button {
	case button.Open:
		err = d.handleOpenButton(e.Press)
	case button.Close:
		err = d.handleCloseButton(e.Press)
	case button.Stop:
		err = d.handleStopButton(e.Press)
	}

	if err != nil {
		logrus.Errorf("%s: %s button %s press: %s", d.position.Name(), e.Button, e.Press, err)
	}
}

func (d *Dispatcher) handleOpenButton(press button.Press) error {
	if press != button.SinglePress {
		return nil
	}

	switch d.calibrator.State() {
	case CalibrationArmed:
		return d.calibrator.BeginRun()
	case CalibrationRunning:
		logrus.Debugf("%s: open ignored, calibration run in progress", d.position.Name())
		return nil
	}
	return d.position.OpenFully()
}

func (d *Dispatcher) handleCloseButton(press button.Press) error {
	if press != button.SinglePress {
		return nil
	}

	if d.calibrator.State() != CalibrationIdle {
		logrus.Debugf("%s: close ignored, calibration in progress", d.position.Name())
		return nil
	}
	return d.position.CloseFully()
}

func (d *Dispatcher) handleStopButton(press button.Press) error {
	switch press {
	case button.SinglePress:
		if d.calibrator.State() == CalibrationRunning {
			return d.calibrator.FinishRun()
		}
		return d.position.Stop()
	case button.DoublePress:
		if d.calibrator.State() != CalibrationIdle {
			logrus.Debugf("%s: midpoint ignored, calibration in progress", d.position.Name())
			return nil
		}
		return d.position.GoToMidpoint()
	case button.LongPress:
		if d.calibrator.State() == CalibrationIdle {
			return d.calibrator.Enter()
		}
		return d.calibrator.Cancel()
	}
	return nil
}

// SetTargetPosition handles a remote target write. Unlike button inputs the
// source routed this path unguarded during calibration; here it is blocked
// for consistency, a remote user can cancel calibration first.
func (d *Dispatcher) SetTargetPosition(target int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.calibrator.State() != CalibrationIdle {
		return errors.Errorf("%s: target position rejected, calibration in progress", d.position.Name())
	}
	return d.position.MoveTo(target)
}

// HoldPosition handles a remote hold-position write; the remote layer
// self-resets the flag after this returns.
func (d *Dispatcher) HoldPosition() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.position.Stop()
}

// Recalibrate handles the remote momentary trigger: arms calibration when
// idle, cancels it otherwise.
func (d *Dispatcher) Recalibrate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.calibrator.State() == CalibrationIdle {
		return d.calibrator.Enter()
	}
	return d.calibrator.Cancel()
}
