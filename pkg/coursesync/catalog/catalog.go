// Package catalog builds a browsable index of the course library: one
// record per file and a tree of the folders that hold them. The result is
// written as index.json and categories.json for static front ends.
//
//	cat, err := catalog.Build(ctx, "/data/课程Course", catalog.Options{})
//	if err != nil {
//	    return err
//	}
//	written, err := catalog.Write(cat, catalog.WriteOptions{Dir: out, Pretty: true})
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
	"github.com/jamesainslie/coursesync/pkg/coursesync/meta"
	"github.com/jamesainslie/coursesync/pkg/coursesync/walk"
)

// DefaultIgnore lists entries never indexed. Bare names match at any depth.
var DefaultIgnore = []string{
	".git",
	".github",
	".vscode",
	"node_modules",
	"web/dist",
	"api/dist",
	".vercel",
	".next",
	".cache",
	".DS_Store",
}

// File describes one library file.
type File struct {
	// ID and Path are the slash-separated path relative to the root.
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`

	// CategoryID is the containing folder, empty for files at the root.
	CategoryID string `json:"categoryId"`

	// Ext is null for names without an extension.
	Ext  *string `json:"ext"`
	Mime string  `json:"mime"`

	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt"`

	// Title and Digest preview text files: the first line and the
	// whitespace-collapsed opening text.
	Title  string `json:"title,omitempty"`
	Digest string `json:"digest,omitempty"`

	// SHA256 is set when the catalog is built with a hasher.
	SHA256 string `json:"sha256,omitempty"`
}

// Category is a folder holding files, directly or below it.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`

	// ParentID is null for top-level folders (courses).
	ParentID *string `json:"parentId"`

	// Depth is 0 for a course folder, 1 for its category folders.
	Depth         int `json:"depth"`
	ChildrenCount int `json:"childrenCount"`
	FileCount     int `json:"fileCount"`
}

// Stats summarizes a build.
type Stats struct {
	TotalFiles       int   `json:"totalFiles"`
	TotalCategories  int   `json:"totalCategories"`
	IgnoredPaths     int   `json:"ignoredPaths"`
	ProcessingTimeMs int64 `json:"processingTimeMs"`
}

// Catalog is a built index.
type Catalog struct {
	Root        string
	GeneratedAt time.Time
	Files       []File
	Categories  []Category
	Stats       Stats
}

// Options configures Build.
type Options struct {
	// Ignore replaces DefaultIgnore when non-nil.
	Ignore []string

	// Hasher, if set, fills File.SHA256. A cached hasher makes rebuilds
	// cheap since library files rarely change.
	Hasher *hasher.Hasher

	// Now stamps GeneratedAt. Nil means time.Now.
	Now func() time.Time
}

// Build indexes every file under root.
func Build(ctx context.Context, root string, opts Options) (*Catalog, error) {
	start := time.Now()
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = DefaultIgnore
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	listing, err := walk.Scan(ctx, abs, ignore)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", abs, err)
	}

	log := logging.Get(logging.Catalog).With(logging.KeyLibrary, abs)
	files := make([]File, 0, len(listing.Files))
	for _, path := range listing.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := describe(abs, path, opts.Hasher)
		if err != nil {
			return nil, err
		}
		if f.previewErr != nil {
			log.Warn("preview failed", logging.KeyFile, f.Path, "error", f.previewErr)
		}
		files = append(files, f.File)
	}

	cmp := newComparer()
	slices.SortFunc(files, func(a, b File) int {
		if c := cmp.compare(a.CategoryID, b.CategoryID); c != 0 {
			return c
		}
		return cmp.compare(a.Path, b.Path)
	})
	categories := buildCategories(files, cmp)

	cat := &Catalog{
		Root:        abs,
		GeneratedAt: now().UTC(),
		Files:       files,
		Categories:  categories,
		Stats: Stats{
			TotalFiles:      len(files),
			TotalCategories: len(categories),
			IgnoredPaths:    listing.Ignored,
		},
	}
	cat.Stats.ProcessingTimeMs = time.Since(start).Milliseconds()

	log.Info("catalog built", "files", len(files), "categories", len(categories), "ignored", listing.Ignored)
	return cat, nil
}

type described struct {
	File
	previewErr error
}

func describe(root, path string, h *hasher.Hasher) (described, error) {
	info, err := os.Stat(path)
	if err != nil {
		return described{}, fmt.Errorf("stat %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return described{}, err
	}
	rel = filepath.ToSlash(rel)

	name := filepath.Base(path)
	_, ext := meta.SplitExt(name)

	var d described
	d.File = File{
		ID:         rel,
		Name:       name,
		Path:       rel,
		CategoryID: parentID(rel),
		Mime:       mimeType(ext),
		Size:       info.Size(),
		ModifiedAt: info.ModTime().UTC().Format(timeFormat),
	}
	if ext != "" {
		d.Ext = &ext
	}

	if isText(ext) {
		p, err := readPreview(path)
		if err != nil {
			d.previewErr = err
		} else {
			d.Title, d.Digest = p.title, p.excerpt
		}
	}

	if h != nil {
		sum, err := h.Sum(path)
		if err != nil {
			return described{}, err
		}
		d.SHA256 = string(sum)
	}
	return d, nil
}

// timeFormat matches JavaScript's Date.toISOString.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func parentID(rel string) string {
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return ""
	}
	return rel[:i]
}

// buildCategories creates a node for each folder that holds files and for
// every folder above it. files must already be sorted.
func buildCategories(files []File, cmp *comparer) []Category {
	nodes := map[string]*Category{}
	for _, f := range files {
		if f.CategoryID == "" {
			continue
		}
		segs := strings.Split(f.CategoryID, "/")
		var parent *string
		for i, name := range segs {
			id := strings.Join(segs[:i+1], "/")
			n, ok := nodes[id]
			if !ok {
				n = &Category{ID: id, Name: name, Path: id, ParentID: parent, Depth: i}
				nodes[id] = n
				if parent != nil {
					nodes[*parent].ChildrenCount++
				}
			}
			if i == len(segs)-1 {
				n.FileCount++
			}
			parent = &n.ID
		}
	}

	out := make([]Category, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b Category) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}
		return cmp.compare(a.Path, b.Path)
	})
	return out
}

// comparer orders names the way a Chinese reader expects: Han characters
// by pinyin, case ignored. Exact byte order breaks ties so sorting is
// deterministic. Not safe for concurrent use.
type comparer struct {
	c *collate.Collator
}

func newComparer() *comparer {
	return &comparer{c: collate.New(language.SimplifiedChinese, collate.Loose)}
}

func (c *comparer) compare(a, b string) int {
	if r := c.c.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}
