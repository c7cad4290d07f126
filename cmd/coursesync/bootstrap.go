package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/coursesync/pkg/coursesync/config"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

// initializeLogging is the root PersistentPreRunE hook. It makes sure the
// XDG directories exist and starts the file logger; --verbose mirrors
// debug output to stderr.
func initializeLogging(cmd *cobra.Command, args []string) error {
	if err := ensureDirectories(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		cfg = &config.Config{}
		cfg.Logging.Level = "info"
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	logging.Get(logging.CLI).Debug("logging initialized", "path", logCfg.Path, "level", logCfg.Level)
	return nil
}

func ensureDirectories() error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	return config.EnsureStateDir()
}

// parseRotationConfig converts the config file's rotation settings,
// falling back to the default size when max_size is missing or invalid.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := logging.DefaultRotationConfig().MaxSize
	if rc.MaxSize != "" {
		if parsed, err := humanize.ParseBytes(rc.MaxSize); err == nil && parsed > 0 {
			maxSize = int64(parsed)
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
