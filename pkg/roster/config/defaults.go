// Package config provides configuration management for the roster catalog engine.
package config

import "time"

// Record store backends selectable via store.backend.
const (
	// BackendBadger is the embedded transactional store.
	BackendBadger = "badger"

	// BackendFile is the plain serialized-file store.
	BackendFile = "file"
)

// Default configuration values for roster.
const (
	// DefaultStoreBackend is the record store implementation used when none
	// is configured.
	DefaultStoreBackend = BackendBadger

	// DefaultManifestDir is the directory searched for manifest files when
	// no explicit per-type paths are configured.
	DefaultManifestDir = "."

	// DefaultLockStaleAfter is how old an update lock may grow before it is
	// considered abandoned and reclaimable.
	DefaultLockStaleAfter = 5 * time.Minute

	// DefaultBackupKeep is the number of backup run directories retained
	// by the pruning policy.
	DefaultBackupKeep = 10

	// DefaultJournalRetentionDays is the default number of days to retain
	// cycle journal entries.
	DefaultJournalRetentionDays = 30

	// DefaultDescribeTimeout bounds a single description-provider call.
	DefaultDescribeTimeout = 30 * time.Second

	// DefaultDescribeRateLimit is the pause enforced between consecutive
	// calls to a remote description provider.
	DefaultDescribeRateLimit = time.Second

	// DefaultOllamaURL is the local Ollama endpoint probed by the ollama
	// description provider.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultDescribeModel is the model requested from the ollama provider.
	DefaultDescribeModel = "llama3.2"

	// DefaultServerHost is the address the API server binds to.
	DefaultServerHost = "127.0.0.1"

	// DefaultServerPort is the port the API server listens on.
	DefaultServerPort = 8765

	// DefaultWatchDebounce is how long the watcher waits after the last
	// manifest event before triggering a sync.
	DefaultWatchDebounce = 2 * time.Second
)

// DefaultDescribeProviders is the provider chain tried in order; the first
// available provider wins. "static" never fails and belongs last.
var DefaultDescribeProviders = []string{"ollama", "static"}

// DefaultPreserveGlobs contains destination paths the self-update pipeline
// must never overwrite or delete. These guard user data living inside a
// deployed installation tree.
var DefaultPreserveGlobs = []string{
	"data/**",
	"backups/**",
	".venv/**",
	"docs/tools/tools.json",
	"docs/tools/tools.csv",
	".roster_update_state.json",
	".roster_update.lock",
}
