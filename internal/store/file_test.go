package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := NewMemory()

	_, err := m.GetUint32("full_ms")
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	require.NoError(t, m.SetUint32("full_ms", 18000))

	v, err := m.GetUint32("full_ms")
	require.NoError(t, err)
	assert.Equal(t, uint32(18000), v)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")

	t.Run("missing file starts empty", func(t *testing.T) {
		f, err := NewFile(path)
		require.NoError(t, err)

		_, err = f.GetUint32("full_ms")
		assert.Equal(t, ErrNotFound, errors.Cause(err))
	})

	t.Run("set then get", func(t *testing.T) {
		f, err := NewFile(path)
		require.NoError(t, err)

		require.NoError(t, f.SetUint32("full_ms", 42000))

		v, err := f.GetUint32("full_ms")
		require.NoError(t, err)
		assert.Equal(t, uint32(42000), v)
	})

	t.Run("values survive a reload", func(t *testing.T) {
		f, err := NewFile(path)
		require.NoError(t, err)

		v, err := f.GetUint32("full_ms")
		require.NoError(t, err)
		assert.Equal(t, uint32(42000), v)
	})

	t.Run("corrupted file is an error", func(t *testing.T) {
		broken := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(broken, []byte("[not a map"), 0644))

		_, err := NewFile(broken)
		assert.Error(t, err)
	})
}
