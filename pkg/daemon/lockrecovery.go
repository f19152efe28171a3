package daemon

import (
	"os"
	"path/filepath"

	"github.com/jamesainslie/roster/pkg/roster/logging"
)

// RecoverFromStaleDaemon checks for and cleans up artifacts a crashed
// daemon left behind: its PID file and the Badger lock under the store
// directory. Returns nil if cleanup succeeded or wasn't needed, and
// ErrDaemonAlreadyRunning if the recorded process is still alive.
func RecoverFromStaleDaemon(pidPath, storePath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		// No PID file or invalid PID means nothing to recover - this is success, not an error
		return nil //nolint:nilerr // intentional: missing/invalid PID file is not an error condition
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	log := logging.Get("daemon")
	log.Warn("cleaning up stale daemon files", "stale_pid", pid)

	// Remove stale files (ignore errors - files may not exist)
	_ = os.Remove(pidPath)
	_ = os.Remove(filepath.Join(storePath, "LOCK"))

	return nil
}
