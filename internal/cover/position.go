package cover

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultMoveTick = 100 * time.Millisecond

// Position tracks the covering position estimate and owns the actuator
// during normal movement. A move is a ticker-driven interpolation run; only
// one run is active at a time and starting a new one synchronously cancels
// the previous one (last command wins).
type Position struct {
	name     string
	actuator Actuator
	travel   *Travel
	tick     time.Duration

	updateHandler UpdateHandler
	targetHandler TargetHandler

	// opMu serializes public commands so a cancellation always completes
	// before the next command touches shared state.
	opMu sync.Mutex

	mu     sync.Mutex
	pos    float64
	target int
	state  MotionState
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPosition(name string, actuator Actuator, travel *Travel, tick time.Duration) *Position {
	if tick <= 0 {
		tick = DefaultMoveTick
	}
	return &Position{
		name:     name,
		actuator: actuator,
		travel:   travel,
		tick:     tick,
		state:    MotionIdle,
		pos:      FullClosePosition, // assumed fully closed at power-up
		target:   FullClosePosition,
	}
}

func (p *Position) Name() string {
	return p.name
}

// Current returns the rounded position estimate.
func (p *Position) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return roundPosition(p.pos)
}

func (p *Position) Target() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *Position) State() MotionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Position) OnUpdate(h UpdateHandler) {
	p.updateHandler = h
}

func (p *Position) OnTargetChange(h TargetHandler) {
	p.targetHandler = h
}

// MoveTo starts an interpolation run toward target, cancelling any run in
// flight. If the covering is already at target it stops immediately.
func (p *Position) MoveTo(target int) error {
	if target < FullClosePosition || target > FullOpenPosition {
		return errors.Errorf(
			"%s: %d is out of range target position (%d/%d)",
			p.name, target, FullClosePosition, FullOpenPosition,
		)
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()

	logrus.Infof("%s: move to %d", p.name, target)

	p.interruptRun()
	if err := p.actuator.AllStop(); err != nil {
		return err
	}

	p.mu.Lock()
	p.target = target
	current := roundPosition(p.pos)
	if current == target {
		p.state = MotionStopped
		p.mu.Unlock()

		logrus.Debugf("%s: already on position %d", p.name, target)
		p.notify(MotionStopped, target)
		return nil
	}

	state := MotionClosing
	if target > current {
		state = MotionOpening
	}
	p.state = state
	p.gen++

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	gen := p.gen
	p.mu.Unlock()

	step := 100 * float64(p.tick) / float64(p.travel.Duration())

	var err error
	if state == MotionOpening {
		err = p.actuator.DriveOpen(true)
	} else {
		err = p.actuator.DriveClose(true)
	}
	if err != nil {
		cancel()
		close(done)
		p.mu.Lock()
		p.cancel = nil
		p.done = nil
		p.state = MotionStopped
		p.mu.Unlock()
		return err
	}

	p.notify(state, current)
	go p.run(ctx, done, gen, target, step, state)

	return nil
}

// Stop halts movement where it is: actuator off, state Stopped, position and
// target untouched.
func (p *Position) Stop() error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	logrus.Infof("%s: stop", p.name)

	p.interruptRun()
	if err := p.actuator.AllStop(); err != nil {
		return err
	}

	p.mu.Lock()
	p.state = MotionStopped
	current := roundPosition(p.pos)
	p.mu.Unlock()

	p.notify(MotionStopped, current)
	return nil
}

func (p *Position) OpenFully() error {
	p.notifyTarget(FullOpenPosition)
	return p.MoveTo(FullOpenPosition)
}

func (p *Position) CloseFully() error {
	p.notifyTarget(FullClosePosition)
	return p.MoveTo(FullClosePosition)
}

func (p *Position) GoToMidpoint() error {
	p.notifyTarget(MidPosition)
	return p.MoveTo(MidPosition)
}

// run advances the position estimate every tick until the rounded position
// reaches target or the run is cancelled. On normal completion it snaps the
// position to the exact target, eliminating accumulated float drift.
func (p *Position) run(ctx context.Context, done chan struct{}, gen uint64, target int, step float64, state MotionState) {
	defer close(done)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	p.mu.Lock()
	last := roundPosition(p.pos)
	p.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			logrus.Debugf("%s: move run cancelled", p.name)
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.gen != gen {
				p.mu.Unlock()
				return
			}

			var reached bool
			if state == MotionOpening {
				p.pos += step
				reached = p.pos >= float64(target)
			} else {
				p.pos -= step
				reached = p.pos <= float64(target)
			}
			p.pos = clampPosition(p.pos)

			current := roundPosition(p.pos)
			if reached {
				p.pos = float64(target)
				p.state = MotionStopped
			}
			p.mu.Unlock()

			if reached {
				if err := p.actuator.AllStop(); err != nil {
					logrus.Errorf("%s: actuator stop failed: %s", p.name, err)
				}
				logrus.Infof("%s: reached position %d", p.name, target)
				p.notify(MotionStopped, target)
				return
			}

			if current != last {
				last = current
				p.notify(state, current)
			}
		}
	}
}

// interruptRun cancels an in-flight run and waits until it has fully exited.
// Bumping the generation invalidates a tick that is already past the context
// check.
func (p *Position) interruptRun() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.gen++
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	logrus.Debugf("%s: found in-flight move run, cancel", p.name)
	cancel()
	<-done
}

// beginCalibrationRun hands the actuator to the calibration controller:
// the in-flight run (if any) is cancelled and the covering drives open
// without a position endpoint. The target is left untouched.
func (p *Position) beginCalibrationRun() error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.interruptRun()
	if err := p.actuator.DriveOpen(true); err != nil {
		return err
	}

	p.mu.Lock()
	p.state = MotionOpening
	current := roundPosition(p.pos)
	p.mu.Unlock()

	p.notify(MotionOpening, current)
	return nil
}

// finishCalibrationRun snaps the estimate to fully open after a successful
// timed run.
func (p *Position) finishCalibrationRun() error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.interruptRun()
	if err := p.actuator.AllStop(); err != nil {
		return err
	}

	p.mu.Lock()
	p.pos = FullOpenPosition
	p.state = MotionStopped
	p.mu.Unlock()

	p.notify(MotionStopped, FullOpenPosition)
	return nil
}

func (p *Position) notify(state MotionState, position int) {
	if p.updateHandler == nil {
		return
	}
	p.updateHandler(state, position)
}

func (p *Position) notifyTarget(target int) {
	p.mu.Lock()
	changed := p.target != target
	p.mu.Unlock()

	if !changed || p.targetHandler == nil {
		return
	}
	p.targetHandler(target)
}

func roundPosition(pos float64) int {
	return int(math.Round(pos))
}

func clampPosition(pos float64) float64 {
	if pos < FullClosePosition {
		return FullClosePosition
	}
	if pos > FullOpenPosition {
		return FullOpenPosition
	}
	return pos
}
