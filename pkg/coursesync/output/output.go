// Package output renders sync results in the formats selectable with
// --output (plain, pretty, json, yaml, paths).
//
// Formatters are looked up through a registry:
//
//	formatter, err := output.Get("plain")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromReport(report)); err != nil {
//	    return err
//	}
//
// Formatters that also implement Streamer print each file as it is handled
// and keep per-file lines out of Format.
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/coursesync/pkg/coursesync/syncer"
)

// Action is one handled source file.
type Action struct {
	Source    string `json:"source" yaml:"source"`
	Name      string `json:"name" yaml:"name"`
	Dest      string `json:"dest" yaml:"dest"`
	RelDest   string `json:"rel_dest" yaml:"rel_dest"`
	Kind      string `json:"kind" yaml:"kind"`
	Digest    string `json:"sha256" yaml:"sha256"`
	Size      int64  `json:"size" yaml:"size"`
	SizeHuman string `json:"size_human" yaml:"size_human"`
	Renamed   bool   `json:"renamed" yaml:"renamed"`
	Course    string `json:"course,omitempty" yaml:"course,omitempty"`
	Category  string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Copied reports whether the file was placed into the library.
func (a *Action) Copied() bool {
	return a.Kind == string(syncer.KindCopied)
}

// Summary holds the run counters.
type Summary struct {
	Processed   int    `json:"processed" yaml:"processed"`
	Copied      int    `json:"copied" yaml:"copied"`
	Duplicates  int    `json:"duplicates" yaml:"duplicates"`
	Renamed     int    `json:"renamed" yaml:"renamed"`
	BytesCopied int64  `json:"bytes_copied" yaml:"bytes_copied"`
	BytesHuman  string `json:"bytes_copied_human" yaml:"bytes_copied_human"`
	CacheHits   int64  `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses int64  `json:"cache_misses" yaml:"cache_misses"`

	// Elapsed is rendered through Duration.
	Elapsed  time.Duration `json:"-" yaml:"-"`
	Duration string        `json:"duration" yaml:"duration"`
}

// Result is everything a formatter needs to render a run.
type Result struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	LibraryRoot string    `json:"library_root" yaml:"library_root"`
	SourceDir   string    `json:"source_dir" yaml:"source_dir"`
	DryRun      bool      `json:"dry_run" yaml:"dry_run"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	HistoryID   string    `json:"history_id,omitempty" yaml:"history_id,omitempty"`
	Actions     []Action  `json:"actions" yaml:"actions"`
	Summary     Summary   `json:"summary" yaml:"summary"`
}

// NewAction converts a syncer action.
func NewAction(a syncer.Action) Action {
	return Action{
		Source:    a.Source,
		Name:      a.Name,
		Dest:      a.Dest,
		RelDest:   a.RelDest,
		Kind:      string(a.Kind),
		Digest:    string(a.Digest),
		Size:      a.Size,
		SizeHuman: humanize.IBytes(uint64(a.Size)),
		Renamed:   a.Renamed,
		Course:    a.Course,
		Category:  string(a.Category),
	}
}

// FromReport converts a syncer report.
func FromReport(r *syncer.Report) *Result {
	actions := make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = NewAction(a)
	}
	return &Result{
		RunID:       r.ID,
		LibraryRoot: r.LibraryRoot,
		SourceDir:   r.SourceDir,
		DryRun:      r.DryRun,
		StartedAt:   r.StartedAt,
		Actions:     actions,
		Summary: Summary{
			Processed:   r.Processed,
			Copied:      r.Copied,
			Duplicates:  r.Duplicates,
			Renamed:     r.Renamed,
			BytesCopied: r.BytesCopied,
			BytesHuman:  humanize.IBytes(uint64(r.BytesCopied)),
			CacheHits:   r.CacheHits,
			CacheMisses: r.CacheMisses,
			Elapsed:     r.Elapsed,
			Duration:    formatDuration(r.Elapsed),
		},
	}
}

// Formatter renders a finished run.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// Streamer renders one file as soon as it has been handled.
type Streamer interface {
	FormatAction(w *bytes.Buffer, a *Action) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists the default registry's formatters.
func Available() []string {
	return DefaultRegistry.Available()
}

func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
