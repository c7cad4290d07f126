package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/coursesync/pkg/coursesync/config"
	"github.com/jamesainslie/coursesync/pkg/coursesync/course"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage coursesync configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/coursesync/config.yaml (if set)
  2. ~/.config/coursesync/config.yaml

Environment variables override the file using the COURSESYNC_ prefix:
  COURSESYNC_LIBRARY_ROOT=~/Courses
  COURSESYNC_SOURCE_DIR=~/Downloads/new
  COURSESYNC_CACHE_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging flags, environment, file and defaults.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(w, "Config file: %s\n\n", configFile)
	} else {
		fmt.Fprintf(w, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "library_root:           %s\n", cfg.LibraryRoot)
	fmt.Fprintf(w, "source_dir:             %s\n", cfg.SourceDir)
	fmt.Fprintf(w, "output:                 %s\n", cfg.Output)
	fmt.Fprintf(w, "chunk_size:             %d\n", cfg.ChunkSize)
	fmt.Fprintf(w, "cache.enabled:          %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(w, "cache.path:             %s\n", cfg.Cache.Path)
	fmt.Fprintf(w, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(w, "history.path:           %s\n", cfg.History.Path)
	fmt.Fprintf(w, "history.retention_days: %d\n", cfg.History.RetentionDays)
	fmt.Fprintf(w, "watch.debounce:         %s\n", cfg.Watch.Debounce)
	fmt.Fprintf(w, "index.path:             %s\n", cfg.Index.Path)
	fmt.Fprintf(w, "index.formats:          %s\n", cfg.Index.Formats)
	fmt.Fprintf(w, "index.after_sync:       %t\n", cfg.Index.AfterSync)
	fmt.Fprintf(w, "logging.level:          %s\n", cfg.Logging.Level)

	aliases, err := aliasesFromConfig(cfg.Aliases)
	if err != nil {
		return err
	}
	table, err := course.NewAliasTable(aliases)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "aliases:                %d built-in, %d configured (%d distinct)\n",
		len(course.BuiltinAliases), len(aliases), table.Len())

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a := aliases[k]
		if a.Category != "" {
			fmt.Fprintf(w, "  %s -> %s [%s]\n", k, a.Course, a.Category)
		} else {
			fmt.Fprintf(w, "  %s -> %s\n", k, a.Course)
		}
	}

	fmt.Fprintln(w, "\nEnvironment Overrides:")
	fmt.Fprintln(w, "----------------------")
	envVars := []string{
		"COURSESYNC_LIBRARY_ROOT",
		"COURSESYNC_SOURCE_DIR",
		"COURSESYNC_OUTPUT",
		"COURSESYNC_CHUNK_SIZE",
		"COURSESYNC_CACHE_ENABLED",
		"COURSESYNC_CACHE_PATH",
		"COURSESYNC_HISTORY_ENABLED",
		"COURSESYNC_HISTORY_PATH",
		"COURSESYNC_HISTORY_RETENTION_DAYS",
		"COURSESYNC_WATCH_DEBOUNCE",
		"COURSESYNC_INDEX_PATH",
		"COURSESYNC_INDEX_FORMATS",
		"COURSESYNC_INDEX_AFTER_SYNC",
		"COURSESYNC_LOGGING_LEVEL",
	}
	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(w, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(w, "(none)")
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigFilePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigFilePath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
