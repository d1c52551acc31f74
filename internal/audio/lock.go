package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrBusy means another readaloud process is playing audio.
var ErrBusy = errors.New("another readaloud process is playing audio")

// Lock keeps two processes from speaking over each other.
type Lock struct {
	path string
	lock *flock.Flock
}

func NewLock(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire playback lock: %w", err)
	}
	if !ok {
		return ErrBusy
	}
	return nil
}

func (l *Lock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release playback lock: %w", err)
	}
	return nil
}

func (l *Lock) Path() string { return l.path }
