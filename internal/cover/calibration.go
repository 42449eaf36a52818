package cover

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CalibrationState int

const (
	CalibrationIdle CalibrationState = iota
	CalibrationArmed
	CalibrationRunning
)

func (s CalibrationState) String() string {
	switch s {
	case CalibrationArmed:
		return "armed"
	case CalibrationRunning:
		return "running"
	default:
		return "idle"
	}
}

// CalibrationHandler receives calibration state notifications.
type CalibrationHandler func(state CalibrationState)

// Calibrator measures the full closed-to-open travel time. While armed or
// running it owns the actuator exclusively; a running position move is
// cancelled before the timed run starts. The state never persists across
// restarts.
type Calibrator struct {
	name     string
	position *Position
	travel   *Travel

	// now is swappable so tests can control the elapsed measurement.
	now func() time.Time

	changeHandler CalibrationHandler

	mu        sync.Mutex
	state     CalibrationState
	startedAt time.Time
}

func NewCalibrator(name string, position *Position, travel *Travel) *Calibrator {
	return &Calibrator{
		name:     name,
		position: position,
		travel:   travel,
		now:      time.Now,
		state:    CalibrationIdle,
	}
}

func (c *Calibrator) State() CalibrationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Calibrator) OnChange(h CalibrationHandler) {
	c.changeHandler = h
}

// Enter arms calibration: the operator is expected to put the covering fully
// closed and then begin the timed run. Position and target are untouched.
func (c *Calibrator) Enter() error {
	c.mu.Lock()
	if c.state != CalibrationIdle {
		state := c.state
		c.mu.Unlock()
		return errors.Errorf("%s: cannot arm calibration from %s state", c.name, state)
	}
	c.state = CalibrationArmed
	c.mu.Unlock()

	logrus.Infof("%s: calibration armed: set covering fully closed, begin run to start timing, finish when fully open", c.name)

	if err := c.position.Stop(); err != nil {
		return err
	}

	c.notify(CalibrationArmed)
	return nil
}

// BeginRun starts the timed open run. The covering is assumed (unvalidated)
// to be fully closed.
func (c *Calibrator) BeginRun() error {
	c.mu.Lock()
	if c.state != CalibrationArmed {
		state := c.state
		c.mu.Unlock()
		return errors.Errorf("%s: cannot begin calibration run from %s state", c.name, state)
	}
	c.state = CalibrationRunning
	c.startedAt = c.now()
	c.mu.Unlock()

	logrus.Infof("%s: calibration run started, opening and measuring travel time", c.name)

	if err := c.position.beginCalibrationRun(); err != nil {
		return err
	}

	c.notify(CalibrationRunning)
	return nil
}

// FinishRun stops the timed run and adopts the elapsed time as the new
// travel duration. Runs shorter than MinTravelDuration are discarded as
// spurious triggers. A persist failure still adopts the measurement for the
// session and is reported to the caller.
func (c *Calibrator) FinishRun() error {
	c.mu.Lock()
	if c.state != CalibrationRunning {
		state := c.state
		c.mu.Unlock()
		return errors.Errorf("%s: cannot finish calibration run from %s state", c.name, state)
	}
	elapsed := c.now().Sub(c.startedAt)
	c.state = CalibrationIdle
	c.mu.Unlock()

	if elapsed < MinTravelDuration {
		logrus.Warnf("%s: calibration run too short (%s), measurement discarded", c.name, elapsed)
		if err := c.position.Stop(); err != nil {
			return err
		}
		c.notify(CalibrationIdle)
		return nil
	}

	ms := uint32(elapsed / time.Millisecond)
	logrus.Infof("%s: calibration done, travel duration %dms", c.name, ms)

	c.travel.Set(ms)
	saveErr := c.travel.Save()
	if saveErr != nil {
		// In-memory value is already adopted for the session.
		logrus.Errorf("%s: %s", c.name, saveErr)
	}

	if err := c.position.finishCalibrationRun(); err != nil {
		return err
	}

	c.notify(CalibrationIdle)
	return saveErr
}

// Cancel aborts calibration from any state, discarding an in-progress
// measurement. It is a no-op when calibration is idle.
func (c *Calibrator) Cancel() error {
	c.mu.Lock()
	if c.state == CalibrationIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = CalibrationIdle
	c.mu.Unlock()

	logrus.Infof("%s: calibration cancelled", c.name)

	if err := c.position.Stop(); err != nil {
		return err
	}

	c.notify(CalibrationIdle)
	return nil
}

func (c *Calibrator) notify(state CalibrationState) {
	if c.changeHandler == nil {
		return
	}
	c.changeHandler(state)
}
