package cycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLockHeld indicates another update cycle is believed live. Recoverable
// by retrying later; never escalates to data mutation.
var ErrLockHeld = errors.New("cycle: update already in progress")

// Lock is the advisory file lock serializing update cycles across process
// boundaries. The file's content is the holder's PID, informational only.
// Staleness is judged purely by the file's modification time against the
// threshold: a young lock means contention even when its holder has
// already died, and an old lock is reclaimed even when a PID inside
// happens to be alive. This mirrors crash recovery semantics, where the
// staleness window is the only cancellation mechanism.
type Lock struct {
	path       string
	staleAfter time.Duration
	held       bool
}

// NewLock returns a lock at the given path. staleAfter bounds how old a
// lock file may grow before it is considered abandoned.
func NewLock(path string, staleAfter time.Duration) *Lock {
	return &Lock{path: path, staleAfter: staleAfter}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire attempts to take the lock without blocking. A live lock returns
// ErrLockHeld; a stale lock is reclaimed (removed and recreated).
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(l.path)
				return fmt.Errorf("writing lock file: %w", werr)
			}
			l.held = true
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("creating lock file: %w", err)
		}

		if !l.Stale() {
			if pid, age, ok := l.Holder(); ok {
				return fmt.Errorf("%w (held by pid %d for %s)", ErrLockHeld, pid, age.Round(time.Second))
			}
			return ErrLockHeld
		}

		// Stale lock: reclaim and retry the exclusive create once. Losing
		// the recreate race to another process is ordinary contention.
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reclaiming stale lock: %w", err)
		}
	}

	return ErrLockHeld
}

// Release removes the lock file. Releasing a lock that was never acquired
// is a no-op, so Release is safe on every exit path.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// Stale reports whether an existing lock file is older than the staleness
// threshold. A missing file is not stale.
func (l *Lock) Stale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > l.staleAfter
}

// Holder reports the PID recorded in an existing lock file and the file's
// age. ok is false when there is no lock or its content is not a PID.
func (l *Lock) Holder() (pid int, age time.Duration, ok bool) {
	info, err := os.Stat(l.path)
	if err != nil {
		return 0, 0, false
	}
	age = time.Since(info.ModTime())

	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, age, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, age, false
	}
	return pid, age, true
}
