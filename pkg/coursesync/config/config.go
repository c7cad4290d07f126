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

// EnvPrefix is the prefix for environment overrides (COURSESYNC_LIBRARY_ROOT, ...).
const EnvPrefix = "COURSESYNC"

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

// IndexConfig configures the library catalog (index.json, categories.json).
type IndexConfig struct {
	Path      string   `mapstructure:"path"`
	Formats   string   `mapstructure:"formats"`
	Pretty    bool     `mapstructure:"pretty"`
	Checksums bool     `mapstructure:"checksums"`
	AfterSync bool     `mapstructure:"after_sync"`
	Ignore    []string `mapstructure:"ignore"`
}

// AliasConfig is a user-supplied course alias. Category may be empty.
type AliasConfig struct {
	Course   string `mapstructure:"course"`
	Category string `mapstructure:"category"`
}

// Config represents the application configuration.
type Config struct {
	LibraryRoot string                 `mapstructure:"library_root"`
	SourceDir   string                 `mapstructure:"source_dir"`
	ChunkSize   int                    `mapstructure:"chunk_size"`
	Output      string                 `mapstructure:"output"`
	Aliases     map[string]AliasConfig `mapstructure:"aliases"`
	Cache       struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"cache"`
	History struct {
		Enabled       bool   `mapstructure:"enabled"`
		Path          string `mapstructure:"path"`
		RetentionDays int    `mapstructure:"retention_days"`
	} `mapstructure:"history"`
	Watch struct {
		Debounce time.Duration `mapstructure:"debounce"`
	} `mapstructure:"watch"`
	Index   IndexConfig   `mapstructure:"index"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SetDefaults registers every default on v. The CLI uses it on the global
// viper instance so flags, env and file share one precedence chain.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("library_root", DefaultLibraryRoot)
	v.SetDefault("source_dir", DefaultSourceDir)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", DefaultCachePath())

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("watch.debounce", DefaultWatchDebounce)

	v.SetDefault("index.path", DefaultIndexPath())
	v.SetDefault("index.formats", DefaultIndexFormats)
	v.SetDefault("index.pretty", true)
	v.SetDefault("index.checksums", true)
	v.SetDefault("index.after_sync", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MiB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"syncer":  "info",
		"hasher":  "info",
		"course":  "info",
		"copier":  "info",
		"watcher": "warn",
		"cache":   "warn",
		"catalog": "info",
	})
}

// AddConfigPaths points v at config.yaml in the XDG and home config dirs.
func AddConfigPaths(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "coursesync"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "coursesync"))
	}
}

// BindEnv enables COURSESYNC_ prefixed environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/coursesync/config.yaml
//   - $HOME/.config/coursesync/config.yaml
func Load() (*Config, error) {
	v := viper.New()
	AddConfigPaths(v)
	BindEnv(v)
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes the settings held by v into a Config and expands ~ in
// every path.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.LibraryRoot, &cfg.SourceDir, &cfg.Cache.Path, &cfg.History.Path, &cfg.Logging.Path, &cfg.Index.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "coursesync"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "coursesync"), nil
}

// ConfigFilePath returns the path WriteDefault writes to.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigFilePath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# coursesync configuration

# Curated course library (one folder per course)
library_root: %s

# Drop folder scanned for new files
source_dir: %s

# Console output: plain, pretty, json, yaml
output: %s

# Extra course aliases, merged over the built-in table.
# aliases:
#   高数:
#     course: 工科数学分析
#   电路实验:
#     course: 电路分析
#     category: 实验

# Digest cache for library files, keyed by path and stat data
cache:
  enabled: true
  path: %s

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

watch:
  debounce: %s

# Library catalog written by 'coursesync index'
index:
  path: %s
  formats: %s
  pretty: true
  # Include each file's SHA-256 (served from the digest cache)
  checksums: true
  # Rebuild the catalog after every sync that copied files
  after_sync: false
  # Replaces the built-in ignore list (.git, node_modules, .DS_Store, ...)
  # ignore: [".git", "drafts"]

logging:
  level: info
  # Empty means $XDG_STATE_HOME/coursesync/coursesync.log
  path: ""
  rotation:
    max_size: 10MiB
    max_age: 30
    max_backups: 5
    daily: true
`, DefaultLibraryRoot, DefaultSourceDir, DefaultOutput, DefaultCachePath(), DefaultHistoryPath(),
		DefaultRetentionDays, DefaultWatchDebounce, DefaultIndexPath(), DefaultIndexFormats)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
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

// DataDir returns $XDG_DATA_HOME/coursesync/ for the cache and history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "coursesync")
}

// StateDir returns $XDG_STATE_HOME/coursesync/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "coursesync")
}

// DefaultCachePath returns the default digest cache directory.
func DefaultCachePath() string {
	return filepath.Join(DataDir(), "digests")
}

// DefaultHistoryPath returns the default run history directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultIndexPath returns the default catalog output directory.
func DefaultIndexPath() string {
	return filepath.Join(DataDir(), "catalog")
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
