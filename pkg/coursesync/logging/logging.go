// Package logging hands out one named logger per pipeline stage (syncer,
// hasher, course, copier, ...) writing to a shared rotating file, with an
// optional stderr mirror for --verbose.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	log := logging.Get(logging.Syncer).ForRun(report.ID)
//	log.Info("sync started", logging.KeySource, "/data/new_files")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Component names. Levels can be set per component in the config file.
const (
	Syncer  = "syncer"
	Hasher  = "hasher"
	Course  = "course"
	Copier  = "copier"
	Cache   = "cache"
	Watcher = "watcher"
	History = "history"
	Catalog = "catalog"
	CLI     = "cli"
)

// Components lists every component name Init accepts an override for.
var Components = []string{Syncer, Hasher, Course, Copier, Cache, Watcher, History, Catalog, CLI}

// Keys shared by log lines across components so one run can be followed
// with a single grep.
const (
	KeyRun     = "run"
	KeyFile    = "file"
	KeySource  = "source"
	KeyDest    = "dest"
	KeyDigest  = "digest"
	KeyCourse  = "course"
	KeyLibrary = "library"
)

// Level is a log severity.
type Level = log.Level

// Levels, least to most severe.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

var (
	// ErrInvalidLevel is returned for an unrecognized level name.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrUnknownComponent is returned when Config.Components names a
	// component that never logs.
	ErrUnknownComponent = errors.New("unknown log component")
)

// ParseLevel accepts debug, info, warn (or warning) and error. Empty means info.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	case "debug", "info", "warn", "error":
		return log.ParseLevel(s)
	}
	return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default level for every component.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components overrides Level per component name.
	Components map[string]string

	// ConsoleLevel mirrors records at this level and above to stderr.
	// Empty disables the mirror.
	ConsoleLevel string
}

// Logger writes structured records for one component to every sink.
type Logger struct {
	sinks []*log.Logger
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	for _, s := range l.sinks {
		s.Debug(msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	for _, s := range l.sinks {
		s.Info(msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	for _, s := range l.sinks {
		s.Warn(msg, args...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	for _, s := range l.sinks {
		s.Error(msg, args...)
	}
}

// With returns a logger that adds the key/value pairs to every record.
func (l *Logger) With(args ...interface{}) *Logger {
	sinks := make([]*log.Logger, len(l.sinks))
	for i, s := range l.sinks {
		sinks[i] = s.With(args...)
	}
	return &Logger{sinks: sinks}
}

// ForRun tags every record with the sync run ID, which is also the ID of
// the run's history entry.
func (l *Logger) ForRun(id string) *Logger {
	return l.With(KeyRun, id)
}

// registry is the process-wide logging state.
type registry struct {
	mu      sync.RWMutex
	writer  *RotatingWriter
	level   Level
	levels  map[string]Level
	console *Level
	loggers map[string]*Logger
}

var reg = &registry{
	level:   LevelInfo,
	levels:  map[string]Level{},
	loggers: map[string]*Logger{},
}

// Init opens the log file and applies levels. Calling Init again replaces
// the previous configuration; loggers fetched afterwards use the new one.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	levels := make(map[string]Level, len(cfg.Components))
	for name, lvl := range cfg.Components {
		if !slices.Contains(Components, name) {
			return fmt.Errorf("%w: %s", ErrUnknownComponent, name)
		}
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", name, err)
		}
		levels[name] = parsed
	}

	var console *Level
	if cfg.ConsoleLevel != "" {
		cl, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = &cl
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.writer != nil {
		_ = reg.writer.Close()
	}
	reg.writer = writer
	reg.level = level
	reg.levels = levels
	reg.console = console
	reg.loggers = map[string]*Logger{}
	return nil
}

// Get returns the logger for component. Before Init, records are discarded.
func Get(component string) *Logger {
	reg.mu.RLock()
	l, ok := reg.loggers[component]
	reg.mu.RUnlock()
	if ok {
		return l
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if l, ok := reg.loggers[component]; ok {
		return l
	}
	l = reg.build(component)
	reg.loggers[component] = l
	return l
}

// build must be called with reg.mu held.
func (r *registry) build(component string) *Logger {
	level, ok := r.levels[component]
	if !ok {
		level = r.level
	}

	if r.writer == nil {
		return &Logger{sinks: []*log.Logger{
			log.NewWithOptions(io.Discard, log.Options{Level: level, Prefix: component}),
		}}
	}

	sinks := []*log.Logger{log.NewWithOptions(r.writer, log.Options{
		Level:           level,
		Prefix:          component,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})}
	if r.console != nil {
		sinks = append(sinks, log.NewWithOptions(os.Stderr, log.Options{
			Level:           *r.console,
			Prefix:          component,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		}))
	}
	return &Logger{sinks: sinks}
}

// Close closes the log file. Loggers fetched afterwards discard records
// until the next Init.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.loggers = map[string]*Logger{}
	reg.levels = map[string]Level{}
	reg.console = nil
	if reg.writer == nil {
		return nil
	}
	err := reg.writer.Close()
	reg.writer = nil
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/coursesync/coursesync.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "coursesync", "coursesync.log")
}
