package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another run is already in progress")

// Lock is an exclusive, non-blocking lock on a file.
type Lock struct {
	f *flock.Flock
}

// Acquire takes the lock at path or fails immediately with ErrLocked.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	f := flock.New(path)
	ok, err := f.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return &Lock{f: f}, nil
}

// LabelPath derives the lock path of a labelled run from path, so runs
// with different labels lock independently.
// "run/matcher.lock" with label "1-4" gives "run/matcher-1-4.lock".
func LabelPath(path, label string) string {
	if label == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + label + ext
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.f.Path()
}

// Release unlocks the file.
func (l *Lock) Release() error {
	return l.f.Unlock()
}
