package relay

import (
	"github.com/sirupsen/logrus"
)

// Switch is a level-driven relay output. The motion controller owns all
// timing, so there is no timed enable here: a switch is either energized
// or released.
type Switch interface {
	Set(on bool) error
	IsOn() bool
}

// Dumb is an in-memory switch used in tests and dry runs.
type Dumb struct {
	Name string

	isOn bool
}

func (r *Dumb) Set(on bool) error {
	if on != r.isOn {
		logrus.Debugf("%s: dumb relay set %t", r.Name, on)
	}
	r.isOn = on
	return nil
}

func (r *Dumb) IsOn() bool {
	return r.isOn
}
