// Package store provides the opaque key-value persistence used for the
// calibration constant: unsigned integers under fixed keys.
package store

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	GetUint32(key string) (uint32, error)
	SetUint32(key string, value uint32) error
}

// Memory is a volatile store for tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	values map[string]uint32
}

func NewMemory() *Memory {
	return &Memory{values: map[string]uint32{}}
}

func (m *Memory) GetUint32(key string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, found := m.values[key]
	if !found {
		return 0, errors.Wrap(ErrNotFound, key)
	}
	return v, nil
}

func (m *Memory) SetUint32(key string, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}
