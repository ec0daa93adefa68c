package runlock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "matcher.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, lock.Path())

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, lock.Release())

	again, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLabelPath(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		label string
		want  string
	}{
		{"with extension", "run/matcher.lock", "1-4", "run/matcher-1-4.lock"},
		{"without extension", "run/matcher", "75", "run/matcher-75"},
		{"no label", "run/matcher.lock", "", "run/matcher.lock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelPath(tt.path, tt.label))
		})
	}
}

func TestLabelledRunsLockIndependently(t *testing.T) {
	base := filepath.Join(t.TempDir(), "matcher.lock")

	first, err := Acquire(LabelPath(base, "1-2"))
	require.NoError(t, err)
	defer first.Release()

	second, err := Acquire(LabelPath(base, "2-2"))
	require.NoError(t, err)
	defer second.Release()

	_, err = Acquire(LabelPath(base, "1-2"))
	assert.ErrorIs(t, err, ErrLocked)

	writes, err := Acquire(base)
	require.NoError(t, err)
	require.NoError(t, writes.Release())
}
