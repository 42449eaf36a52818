package store

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// File persists values as a flat yaml map. Every write rewrites the whole
// file; the stored data is a handful of integers.
type File struct {
	mu     sync.Mutex
	path   string
	values map[string]uint32
}

func NewFile(path string) (*File, error) {
	f := &File{path: path, values: map[string]uint32{}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Debugf("store: %s does not exist yet", path)
			return f, nil
		}
		return nil, errors.Wrapf(err, "store: read %s", path)
	}

	if err := yaml.Unmarshal(raw, &f.values); err != nil {
		return nil, errors.Wrapf(err, "store: decode %s", path)
	}
	if f.values == nil {
		f.values = map[string]uint32{}
	}

	return f, nil
}

func (f *File) GetUint32(key string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, found := f.values[key]
	if !found {
		return 0, errors.Wrap(ErrNotFound, key)
	}
	return v, nil
}

func (f *File) SetUint32(key string, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value

	raw, err := yaml.Marshal(f.values)
	if err != nil {
		return errors.Wrapf(err, "store: encode %s", f.path)
	}
	return errors.Wrapf(os.WriteFile(f.path, raw, 0644), "store: write %s", f.path)
}
