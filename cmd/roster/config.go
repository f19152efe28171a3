package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/roster/pkg/roster/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage roster configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/roster/config.yaml (if set)
  2. ~/.config/roster/config.yaml

Environment variables override config file settings using the ROSTER_
prefix:
  ROSTER_STORE_BACKEND=file
  ROSTER_MANIFESTS_DIR=~/dotfiles
  ROSTER_WATCH_ENABLED=true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by $VISUAL, then $EDITOR, falling back to 'vi'.
If the config file doesn't exist, a default one is created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the effective configuration with path defaults
// resolved.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("store.backend:        %s\n", cfg.Store.Backend)
	fmt.Printf("store.path:           %s\n", cfg.StorePath())
	fmt.Printf("manifests.dir:        %s\n", cfg.Manifests.Dir)
	fmt.Printf("snapshot.path:        %s\n", cfg.SnapshotPath())
	fmt.Printf("update.state_path:    %s\n", cfg.StatePath())
	fmt.Printf("update.lock_path:     %s\n", cfg.LockPath())
	fmt.Printf("update.stale_after:   %s\n", cfg.Update.StaleAfter)
	fmt.Printf("backup.dir:           %s\n", cfg.BackupDir())
	fmt.Printf("backup.keep:          %d\n", cfg.Backup.Keep)
	fmt.Printf("journal.enabled:      %t\n", cfg.Journal.Enabled)
	fmt.Printf("journal.path:         %s\n", cfg.JournalDir())
	fmt.Printf("journal.retention:    %d days\n", cfg.Journal.RetentionDays)
	fmt.Printf("describe.providers:   %v\n", cfg.Describe.Providers)
	fmt.Printf("server.addr:          %s\n", cfg.ServerAddr())
	fmt.Printf("server.pid_path:      %s\n", cfg.PIDPath())
	fmt.Printf("watch.enabled:        %t\n", cfg.Watch.Enabled)
	fmt.Printf("watch.debounce:       %s\n", cfg.Watch.Debounce)
	fmt.Printf("selfupdate.source:    %s\n", cfg.SelfUpdate.Source)
	fmt.Printf("selfupdate.preserve:  %v\n", cfg.SelfUpdate.Preserve)
	fmt.Printf("logging.level:        %s\n", cfg.Logging.Level)

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"ROSTER_STORE_BACKEND",
		"ROSTER_STORE_PATH",
		"ROSTER_MANIFESTS_DIR",
		"ROSTER_SNAPSHOT_PATH",
		"ROSTER_JOURNAL_ENABLED",
		"ROSTER_DESCRIBE_PROVIDERS",
		"ROSTER_SERVER_HOST",
		"ROSTER_SERVER_PORT",
		"ROSTER_WATCH_ENABLED",
		"ROSTER_LOGGING_LEVEL",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'roster config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath prints the config file location.
func runConfigPath(cmd *cobra.Command, args []string) error {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Println(configFile)
		return nil
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Println(filepath.Join(configDir, "config.yaml"))
	return nil
}
