package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/coursesync/pkg/coursesync/syncer"
)

// ErrNotFound is returned by Get for an unknown entry ID.
var ErrNotFound = errors.New("history entry not found")

// History manages run entries in a directory.
type History struct {
	dir string
	mu  sync.Mutex
}

// New creates a History rooted at dir. The directory is created on the
// first write.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir}, nil
}

// Dir returns the history directory.
func (h *History) Dir() string {
	return h.dir
}

// Log records a finished run and returns the stored entry. The entry
// takes the report's run ID so log lines and history can be matched.
func (h *History) Log(report *syncer.Report) (*Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	entry := &Entry{
		ID:          id,
		Timestamp:   time.Now().UTC(),
		LibraryRoot: report.LibraryRoot,
		SourceDir:   report.SourceDir,
		Actions:     make([]Record, 0, len(report.Actions)),
		Summary: Summary{
			Processed:   report.Processed,
			Copied:      report.Copied,
			Duplicates:  report.Duplicates,
			Renamed:     report.Renamed,
			BytesCopied: report.BytesCopied,
			Elapsed:     report.Elapsed,
		},
	}
	for _, a := range report.Actions {
		entry.Actions = append(entry.Actions, Record{
			Source:   a.Source,
			Dest:     a.Dest,
			Kind:     string(a.Kind),
			Digest:   string(a.Digest),
			Size:     a.Size,
			Renamed:  a.Renamed,
			Course:   a.Course,
			Category: string(a.Category),
		})
	}

	if err := h.write(entry); err != nil {
		return nil, fmt.Errorf("writing history entry: %w", err)
	}
	return entry, nil
}

func (h *History) write(entry *Entry) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Timestamp prefix keeps the directory listing in run order.
	name := entry.Timestamp.Format("20060102T150405") + "-" + entry.ID + ".json"
	path := filepath.Join(h.dir, name)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID. A unique ID prefix is accepted.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry ID prefix %q", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were deleted.
func (h *History) Cleanup(retentionDays int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(h.dir, f.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (h *History) readAll() ([]Entry, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(h.dir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
