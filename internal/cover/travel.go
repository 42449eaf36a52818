package cover

import (
	"sync"
	"time"

	"github.com/jkaflik/sunshade2mqtt/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTravelDuration is the fallback used until a calibration run
	// has measured the real full-travel time.
	DefaultTravelDuration = 18 * time.Second

	MinTravelDuration = 3 * time.Second
	MaxTravelDuration = 120 * time.Second

	travelKey = "full_ms"
)

// Travel holds the full 0..100 traverse duration in milliseconds. It is
// loaded once at boot and rewritten only by a successful calibration run.
type Travel struct {
	store store.Store

	mu sync.RWMutex
	ms uint32
}

// LoadTravel reads the persisted travel duration, falling back to
// DefaultTravelDuration when the key is absent, unreadable or out of the
// [MinTravelDuration, MaxTravelDuration] bound.
func LoadTravel(s store.Store) *Travel {
	t := &Travel{store: s, ms: uint32(DefaultTravelDuration / time.Millisecond)}

	ms, err := s.GetUint32(travelKey)
	if err != nil {
		if errors.Cause(err) == store.ErrNotFound {
			logrus.Warnf("no travel calibration found, using fallback %s", t.Duration())
		} else {
			logrus.Warnf("travel calibration read failed, using fallback %s: %s", t.Duration(), err)
		}
		return t
	}

	if !validTravelMs(ms) {
		logrus.Warnf("persisted travel duration %dms out of range, using fallback %s", ms, t.Duration())
		return t
	}

	t.ms = ms
	logrus.Infof("loaded travel duration: %dms", ms)
	return t
}

func validTravelMs(ms uint32) bool {
	return ms >= uint32(MinTravelDuration/time.Millisecond) &&
		ms <= uint32(MaxTravelDuration/time.Millisecond)
}

func (t *Travel) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Duration(t.ms) * time.Millisecond
}

func (t *Travel) Milliseconds() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ms
}

// Set updates the in-memory travel duration only. Save persists it.
func (t *Travel) Set(ms uint32) {
	t.mu.Lock()
	t.ms = ms
	t.mu.Unlock()
}

func (t *Travel) Save() error {
	t.mu.RLock()
	ms := t.ms
	t.mu.RUnlock()

	return errors.Wrap(t.store.SetUint32(travelKey, ms), "persist travel duration")
}
