package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/logging"
)

// defaultMaxLogSize is used when logging.rotation.max_size is absent or
// unparsable.
const defaultMaxLogSize = 10 * 1024 * 1024

// initializeLogging is the root PersistentPreRunE. It ensures the config
// directory exists and routes component logs to the configured file.
// Config load failures fall back to logging defaults rather than blocking
// the command; the command itself will surface the load error if it needs
// the config.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg = buildLogConfig(cfg)
	}

	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	return logging.Init(logCfg)
}

// initTUILogging reconfigures logging for TUI mode: console output off so
// the alternate screen stays clean, ring buffer on for the footer.
func initTUILogging() error {
	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg = buildLogConfig(cfg)
	}

	logCfg.TUIMode = true
	logCfg.BufferSize = logging.DefaultBufferSize

	return logging.Init(logCfg)
}

// buildLogConfig translates the logging section of the application config.
func buildLogConfig(cfg *config.Config) logging.Config {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.Path != "" {
		logCfg.Path = cfg.Logging.Path
	}
	logCfg.Rotation = parseRotationConfig(cfg.Logging.Rotation)
	logCfg.Components = cfg.Logging.Components
	return logCfg
}

// parseRotationConfig converts the config file rotation settings, which
// express sizes as strings like "10MB", into the logging package's form.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	size, err := parseByteSize(rc.MaxSize)
	if rc.MaxSize == "" || err != nil {
		size = defaultMaxLogSize
	}

	return logging.RotationConfig{
		MaxSize:    size,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

// parseByteSize parses sizes like "500", "10K", "10MB", "1G".
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "KB"), strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(strings.TrimSuffix(s, "B"), "K")
	case strings.HasSuffix(s, "MB"), strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(strings.TrimSuffix(s, "B"), "M")
	case strings.HasSuffix(s, "GB"), strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(strings.TrimSuffix(s, "B"), "G")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %d", n)
	}
	return n * multiplier, nil
}
