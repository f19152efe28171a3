package cycle_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/cycle"
)

func TestLockAcquireWritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")
	lock := cycle.NewLock(path, 5*time.Minute)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading lock file: %v", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		t.Fatalf("lock content %q is not a pid: %v", data, err)
	}
	if pid != os.Getpid() {
		t.Errorf("lock pid = %d, want %d", pid, os.Getpid())
	}
}

func TestLockAcquireCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "update.lock")
	lock := cycle.NewLock(path, 5*time.Minute)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")

	first := cycle.NewLock(path, 5*time.Minute)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer first.Release()

	second := cycle.NewLock(path, 5*time.Minute)
	err := second.Acquire()
	if !errors.Is(err, cycle.ErrLockHeld) {
		t.Fatalf("second Acquire() error = %v, want ErrLockHeld", err)
	}
}

func TestLockYoungLockWithDeadHolderStillContends(t *testing.T) {
	// Staleness is judged by file age alone. A fresh lock naming a pid
	// that no longer runs still blocks: the holder may be mid-write on
	// another machine sharing the state directory.
	path := filepath.Join(t.TempDir(), "update.lock")
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatalf("seeding lock file: %v", err)
	}

	lock := cycle.NewLock(path, 5*time.Minute)
	err := lock.Acquire()
	if !errors.Is(err, cycle.ErrLockHeld) {
		t.Fatalf("Acquire() error = %v, want ErrLockHeld", err)
	}
}

func TestLockReclaimsStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("seeding lock file: %v", err)
	}
	old := time.Now().Add(-10 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("backdating lock file: %v", err)
	}

	lock := cycle.NewLock(path, 5*time.Minute)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() of stale lock error = %v", err)
	}
	defer lock.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading reclaimed lock: %v", err)
	}
	if got, _ := strconv.Atoi(string(data)); got != os.Getpid() {
		t.Errorf("reclaimed lock pid = %d, want %d", got, os.Getpid())
	}
}

func TestLockReleaseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")
	lock := cycle.NewLock(path, 5*time.Minute)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file still present after release")
	}
}

func TestLockReleaseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")
	lock := cycle.NewLock(path, 5*time.Minute)

	if err := lock.Release(); err != nil {
		t.Errorf("Release() before acquire error = %v", err)
	}

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first Release() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestLockHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update.lock")
	lock := cycle.NewLock(path, 5*time.Minute)

	if _, _, ok := lock.Holder(); ok {
		t.Fatal("Holder() reported a holder for a missing lock")
	}

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Release()

	pid, age, ok := lock.Holder()
	if !ok {
		t.Fatal("Holder() ok = false for held lock")
	}
	if pid != os.Getpid() {
		t.Errorf("Holder() pid = %d, want %d", pid, os.Getpid())
	}
	if age < 0 || age > time.Minute {
		t.Errorf("Holder() age = %v, want just created", age)
	}
}

func TestLockStaleMissingFile(t *testing.T) {
	lock := cycle.NewLock(filepath.Join(t.TempDir(), "absent.lock"), 5*time.Minute)
	if lock.Stale() {
		t.Error("Stale() = true for a missing lock file")
	}
}
