package cover

import (
	"sync"
	"testing"

	"github.com/jkaflik/sunshade2mqtt/internal/relay"
	"github.com/stretchr/testify/assert"
)

// strictPair is a relay pair that fails the test the moment both drive
// directions are energized, even transiently.
type strictPair struct {
	t *testing.T

	mu        sync.Mutex
	open      bool
	close     bool
	energizes int
}

func newStrictPair(t *testing.T) *strictPair {
	return &strictPair{t: t}
}

func (p *strictPair) openSwitch() relay.Switch {
	return &strictSwitch{pair: p, closeDir: false}
}

func (p *strictPair) closeSwitch() relay.Switch {
	return &strictSwitch{pair: p, closeDir: true}
}

func (p *strictPair) set(closeDir, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closeDir {
		p.close = on
	} else {
		p.open = on
	}
	if on {
		p.energizes++
	}

	if p.open && p.close {
		p.t.Errorf("interlock violated: both drive directions energized")
	}
}

func (p *strictPair) states() (open, close bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open, p.close
}

func (p *strictPair) energizeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.energizes
}

type strictSwitch struct {
	pair     *strictPair
	closeDir bool
}

func (s *strictSwitch) Set(on bool) error {
	s.pair.set(s.closeDir, on)
	return nil
}

func (s *strictSwitch) IsOn() bool {
	open, close := s.pair.states()
	if s.closeDir {
		return close
	}
	return open
}

func TestInterlock(t *testing.T) {
	pair := newStrictPair(t)
	actuator := NewInterlock(pair.openSwitch(), pair.closeSwitch())

	t.Run("drive open", func(t *testing.T) {
		assert.NoError(t, actuator.DriveOpen(true))
		open, close := pair.states()
		assert.True(t, open)
		assert.False(t, close)
	})

	t.Run("reversing releases the opposite direction first", func(t *testing.T) {
		assert.NoError(t, actuator.DriveClose(true))
		open, close := pair.states()
		assert.False(t, open)
		assert.True(t, close)

		assert.NoError(t, actuator.DriveOpen(true))
		open, close = pair.states()
		assert.True(t, open)
		assert.False(t, close)
	})

	t.Run("all stop releases both", func(t *testing.T) {
		assert.NoError(t, actuator.AllStop())
		open, close := pair.states()
		assert.False(t, open)
		assert.False(t, close)
	})

	t.Run("all stop is idempotent", func(t *testing.T) {
		assert.NoError(t, actuator.AllStop())
		open, close := pair.states()
		assert.False(t, open)
		assert.False(t, close)
	})
}
