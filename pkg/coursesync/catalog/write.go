package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

// Format names an output file of Write.
type Format string

const (
	// FormatIndex is index.json: generation time, files and stats.
	FormatIndex Format = "index"
	// FormatCategories is categories.json: the folder tree as a flat list.
	FormatCategories Format = "categories"
)

// Formats lists every format in the order Write produces them.
var Formats = []Format{FormatIndex, FormatCategories}

// ErrUnknownFormat is returned by ParseFormats.
var ErrUnknownFormat = errors.New("unknown catalog format")

// FileName returns the file a format is written to.
func (f Format) FileName() string {
	return string(f) + ".json"
}

// ParseFormats reads a comma-separated format list. Empty means all.
func ParseFormats(s string) ([]Format, error) {
	if strings.TrimSpace(s) == "" {
		return Formats, nil
	}
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		switch f {
		case FormatIndex, FormatCategories:
			if !containsFormat(out, f) {
				out = append(out, f)
			}
		case "":
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, part)
		}
	}
	return out, nil
}

func containsFormat(formats []Format, f Format) bool {
	return slices.Contains(formats, f)
}

// WriteOptions configures Write.
type WriteOptions struct {
	Dir string

	// Formats to write. Nil means all. A format left out has its file
	// removed from Dir so no stale copy lingers.
	Formats []Format

	// Pretty indents the JSON by two spaces.
	Pretty bool
}

type indexDocument struct {
	GeneratedAt string `json:"generatedAt"`
	Files       []File `json:"files"`
	Stats       Stats  `json:"stats"`
}

// Write stores cat in opts.Dir and returns the paths written. Each file is
// replaced atomically.
func Write(cat *Catalog, opts WriteOptions) ([]string, error) {
	formats := opts.Formats
	if formats == nil {
		formats = Formats
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", opts.Dir, err)
	}

	log := logging.Get(logging.Catalog)
	var written []string
	for _, f := range Formats {
		path := filepath.Join(opts.Dir, f.FileName())
		if !containsFormat(formats, f) {
			if err := os.Remove(path); err == nil {
				log.Info("removed unrequested catalog file", logging.KeyDest, path)
			} else if !errors.Is(err, os.ErrNotExist) {
				return written, fmt.Errorf("removing %s: %w", path, err)
			}
			continue
		}

		var doc any
		switch f {
		case FormatIndex:
			files := cat.Files
			if files == nil {
				files = []File{}
			}
			doc = indexDocument{
				GeneratedAt: cat.GeneratedAt.UTC().Format(timeFormat),
				Files:       files,
				Stats:       cat.Stats,
			}
		case FormatCategories:
			cats := cat.Categories
			if cats == nil {
				cats = []Category{}
			}
			doc = cats
		}

		if err := writeJSON(path, doc, opts.Pretty); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	log.Info("catalog written", "dir", opts.Dir, "files", len(written), "generated_at", cat.GeneratedAt.Format(time.RFC3339))
	return written, nil
}

func writeJSON(path string, v any, pretty bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	committed = true
	return nil
}
