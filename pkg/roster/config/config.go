package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// StoreConfig selects and locates the record store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "badger" or "file"
	Path    string `mapstructure:"path"`    // Empty means use DefaultStorePath
}

// ManifestConfig locates the tracked manifest files. When the per-type
// paths are empty they are auto-detected under Dir.
type ManifestConfig struct {
	Dir  string `mapstructure:"dir"`
	Brew string `mapstructure:"brew"`
	Cask string `mapstructure:"cask"`
	Mas  string `mapstructure:"mas"`
	Tap  string `mapstructure:"tap"`
}

// SnapshotConfig locates the exported snapshot artifact.
type SnapshotConfig struct {
	Path string `mapstructure:"path"` // Empty means use DefaultSnapshotPath
}

// UpdateConfig configures the change-detection cycle's persisted state and
// its advisory lock.
type UpdateConfig struct {
	StatePath  string        `mapstructure:"state_path"` // Empty means use DefaultStatePath
	LockPath   string        `mapstructure:"lock_path"`  // Empty means use DefaultLockPath
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// BackupConfig configures where file backups land and how many runs are kept.
type BackupConfig struct {
	Dir  string `mapstructure:"dir"` // Empty means use DefaultBackupDir
	Keep int    `mapstructure:"keep"`
}

// JournalConfig configures the per-cycle outcome journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"` // Empty means use DefaultJournalDir
	RetentionDays int    `mapstructure:"retention_days"`
}

// DescribeConfig configures the description provider chain.
type DescribeConfig struct {
	Providers []string      `mapstructure:"providers"`
	OllamaURL string        `mapstructure:"ollama_url"`
	Model     string        `mapstructure:"model"`
	CLIBinary string        `mapstructure:"cli_binary"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit time.Duration `mapstructure:"rate_limit"`
}

// ServerConfig configures the rosterd API server.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	PIDPath string `mapstructure:"pid_path"` // Empty means use DefaultPIDPath
}

// WatchConfig configures manifest watching in rosterd.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// SelfUpdateConfig configures the file sync pipeline.
type SelfUpdateConfig struct {
	Source   string   `mapstructure:"source"`
	Preserve []string `mapstructure:"preserve"`
	Delete   bool     `mapstructure:"delete"`
}

// Config represents the application configuration. It is constructed once
// at process start and passed into component constructors; there is no
// package-level current config.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Manifests  ManifestConfig   `mapstructure:"manifests"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Update     UpdateConfig     `mapstructure:"update"`
	Backup     BackupConfig     `mapstructure:"backup"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Describe   DescribeConfig   `mapstructure:"describe"`
	Server     ServerConfig     `mapstructure:"server"`
	Watch      WatchConfig      `mapstructure:"watch"`
	SelfUpdate SelfUpdateConfig `mapstructure:"selfupdate"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/roster/config.yaml
//   - $HOME/.config/roster/config.yaml
//
// Environment variables are prefixed with ROSTER_ (e.g., ROSTER_STORE_BACKEND).
func Load() (*Config, error) {
	return load("")
}

// LoadFrom loads configuration from an explicit file path, with environment
// variables still applied on top.
func LoadFrom(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	return load(path)
}

func load(file string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "roster"))
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "roster"))
	}

	// Set environment variable prefix and enable auto env binding
	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file. An explicit file must exist; otherwise not-found is
	// acceptable and defaults apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in user-supplied paths
	for _, p := range []*string{
		&cfg.Store.Path, &cfg.Manifests.Dir, &cfg.Snapshot.Path,
		&cfg.Update.StatePath, &cfg.Update.LockPath, &cfg.Backup.Dir,
		&cfg.Journal.Path, &cfg.SelfUpdate.Source, &cfg.Logging.Path,
	} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.path", "") // Empty means use DefaultStorePath

	v.SetDefault("manifests.dir", DefaultManifestDir)

	v.SetDefault("snapshot.path", "") // Empty means use DefaultSnapshotPath

	v.SetDefault("update.state_path", "") // Empty means use DefaultStatePath
	v.SetDefault("update.lock_path", "")  // Empty means use DefaultLockPath
	v.SetDefault("update.stale_after", DefaultLockStaleAfter)

	v.SetDefault("backup.dir", "") // Empty means use DefaultBackupDir
	v.SetDefault("backup.keep", DefaultBackupKeep)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "") // Empty means use DefaultJournalDir
	v.SetDefault("journal.retention_days", DefaultJournalRetentionDays)

	v.SetDefault("describe.providers", DefaultDescribeProviders)
	v.SetDefault("describe.ollama_url", DefaultOllamaURL)
	v.SetDefault("describe.model", DefaultDescribeModel)
	v.SetDefault("describe.cli_binary", "")
	v.SetDefault("describe.timeout", DefaultDescribeTimeout)
	v.SetDefault("describe.rate_limit", DefaultDescribeRateLimit)

	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.pid_path", "") // Empty means use DefaultPIDPath

	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", DefaultWatchDebounce)

	v.SetDefault("selfupdate.source", "")
	v.SetDefault("selfupdate.preserve", DefaultPreserveGlobs)
	v.SetDefault("selfupdate.delete", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"cycle":   "info",
		"store":   "info",
		"server":  "info",
		"watcher": "warn",
	})
}

// StorePath returns the configured record store path, falling back to the
// XDG default for the selected backend when unset. The badger backend uses
// a directory, the file backend a single JSON file.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == BackendFile {
		return DefaultFileStorePath()
	}
	return DefaultStorePath()
}

// SnapshotPath returns the configured snapshot artifact path, falling back
// to the XDG default when unset.
func (c *Config) SnapshotPath() string {
	if c.Snapshot.Path != "" {
		return c.Snapshot.Path
	}
	return DefaultSnapshotPath()
}

// StatePath returns the configured update-state path, falling back to the
// XDG default when unset.
func (c *Config) StatePath() string {
	if c.Update.StatePath != "" {
		return c.Update.StatePath
	}
	return DefaultStatePath()
}

// LockPath returns the configured update-lock path, falling back to the
// XDG default when unset.
func (c *Config) LockPath() string {
	if c.Update.LockPath != "" {
		return c.Update.LockPath
	}
	return DefaultLockPath()
}

// BackupDir returns the configured backup directory, falling back to the
// XDG default when unset.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return DefaultBackupDir()
}

// JournalDir returns the configured journal directory, falling back to the
// XDG default when unset.
func (c *Config) JournalDir() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return DefaultJournalDir()
}

// PIDPath returns the configured daemon PID file path, falling back to the
// XDG default when unset.
func (c *Config) PIDPath() string {
	if c.Server.PIDPath != "" {
		return c.Server.PIDPath
	}
	return DefaultPIDPath()
}

// ServerAddr returns the host:port the API server binds to.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "roster"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "roster"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Roster Catalog Configuration

# Record store backend: badger (embedded transactional) or file (plain JSON)
store:
  backend: %s
  # Store path (empty means use default: $XDG_DATA_HOME/roster/records)
  path: ""

# Manifest files to track. Per-type paths are auto-detected under dir
# (Brewfile.Brew, Brewfile.Cask, Brewfile.Mas, Brewfile.Tap, or a single
# Brewfile used for all four types) unless set explicitly.
manifests:
  dir: %s
  brew: ""
  cask: ""
  mas: ""
  tap: ""

# Exported snapshot artifact (empty means use default: $XDG_DATA_HOME/roster/tools.json)
snapshot:
  path: ""

# Change-detection cycle state and lock
update:
  state_path: ""
  lock_path: ""
  stale_after: %s

# Backups written before any file is overwritten or deleted
backup:
  dir: ""
  keep: %d

# Per-cycle outcome journal
journal:
  enabled: true
  path: ""
  retention_days: %d

# Description providers, tried in order; static always succeeds
describe:
  providers: [ollama, static]
  ollama_url: %s
  model: %s
  timeout: %s
  rate_limit: %s

# rosterd API server
server:
  host: %s
  port: %d
  pid_path: ""

# Manifest watching (rosterd)
watch:
  enabled: true
  debounce: %s

# Self-update pipeline defaults
selfupdate:
  source: ""
  delete: false
  preserve:
    - data/**
    - backups/**
    - .venv/**
    - docs/tools/tools.json
    - docs/tools/tools.csv
    - .roster_update_state.json
    - .roster_update.lock

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means log to stderr)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    cycle: info
    store: info
    server: info
    watcher: warn
`, DefaultStoreBackend, DefaultManifestDir, DefaultLockStaleAfter,
		DefaultBackupKeep, DefaultJournalRetentionDays, DefaultOllamaURL,
		DefaultDescribeModel, DefaultDescribeTimeout, DefaultDescribeRateLimit,
		DefaultServerHost, DefaultServerPort, DefaultWatchDebounce)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/roster/ for the record store, snapshot,
// backups, and journal.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "roster")
}

// StateDir returns $XDG_STATE_HOME/roster/ for update state, locks, logs,
// and the daemon PID file.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "roster")
}

// CacheDir returns $XDG_CACHE_HOME/roster/ (reserved for future use).
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "roster")
}

// DefaultStorePath returns the default record store path for the badger
// backend.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "records")
}

// DefaultFileStorePath returns the default record store path for the file
// backend.
func DefaultFileStorePath() string {
	return filepath.Join(DataDir(), "records.json")
}

// DefaultSnapshotPath returns the default snapshot artifact path.
func DefaultSnapshotPath() string {
	return filepath.Join(DataDir(), "tools.json")
}

// DefaultStatePath returns the default update-state file path.
func DefaultStatePath() string {
	return filepath.Join(StateDir(), "update_state.json")
}

// DefaultLockPath returns the default update-lock file path.
func DefaultLockPath() string {
	return filepath.Join(StateDir(), "update.lock")
}

// DefaultBackupDir returns the default backup directory.
func DefaultBackupDir() string {
	return filepath.Join(DataDir(), "backups")
}

// DefaultJournalDir returns the default journal directory.
func DefaultJournalDir() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultPIDPath returns the default daemon PID file path.
func DefaultPIDPath() string {
	return filepath.Join(StateDir(), "rosterd.pid")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "roster.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
