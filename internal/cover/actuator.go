package cover

import (
	"sync"

	"github.com/jkaflik/sunshade2mqtt/internal/relay"
	"github.com/pkg/errors"
)

// Actuator drives the covering motor. Implementations must guarantee the
// interlock: the two drive directions are never energized at the same time.
type Actuator interface {
	DriveOpen(on bool) error
	DriveClose(on bool) error
	AllStop() error
}

// Interlock drives a pair of relay switches, releasing the opposite
// direction before energizing the requested one.
type Interlock struct {
	mu     sync.Mutex
	rOpen  relay.Switch
	rClose relay.Switch
}

func NewInterlock(open, close relay.Switch) *Interlock {
	return &Interlock{rOpen: open, rClose: close}
}

func (a *Interlock) DriveOpen(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if on {
		if err := a.rClose.Set(false); err != nil {
			return errors.Wrap(err, "release close relay")
		}
	}
	return errors.Wrap(a.rOpen.Set(on), "set open relay")
}

func (a *Interlock) DriveClose(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if on {
		if err := a.rOpen.Set(false); err != nil {
			return errors.Wrap(err, "release open relay")
		}
	}
	return errors.Wrap(a.rClose.Set(on), "set close relay")
}

func (a *Interlock) AllStop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.rOpen.Set(false); err != nil {
		return errors.Wrap(err, "release open relay")
	}
	return errors.Wrap(a.rClose.Set(false), "release close relay")
}
