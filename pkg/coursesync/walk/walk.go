// Package walk lists the regular files under a directory tree in a stable
// order. Directory reads run in parallel via fastwalk; the result is sorted
// afterwards so every caller sees the same sequence on every run.
package walk

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// Files returns the absolute paths of all regular files under root,
// recursively, in path-component order. Symlinks are not followed.
// The first error reading any entry aborts the listing.
func Files(ctx context.Context, root string) ([]string, error) {
	l, err := Scan(ctx, root, nil)
	if err != nil {
		return nil, err
	}
	return l.Files, nil
}

// Listing is the result of Scan.
type Listing struct {
	// Files holds absolute paths in path-component order.
	Files []string

	// Ignored counts entries left out: matches of the ignore list (a
	// skipped directory counts once) and anything that is neither a
	// regular file nor a directory.
	Ignored int
}

// Scan is Files with an ignore list. A pattern containing a slash matches
// the slash-separated path relative to root and everything below it; a
// leading slash anchors a single name the same way. A bare name matches
// an entry of that name at any depth.
func Scan(ctx context.Context, root string, ignore []string) (*Listing, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "walk", Path: absRoot, Err: errors.New("not a directory")}
	}

	m := newMatcher(ignore)

	var (
		mu      sync.Mutex
		files   []string
		ignored int
	)

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		skip := m.match(filepath.ToSlash(rel), d.Name())

		mu.Lock()
		defer mu.Unlock()
		switch {
		case skip && d.IsDir():
			ignored++
			return fastwalk.SkipDir
		case skip, !d.IsDir() && !d.Type().IsRegular():
			ignored++
		case d.Type().IsRegular():
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	SortPaths(files)
	return &Listing{Files: files, Ignored: ignored}, nil
}

type matcher struct {
	names map[string]bool
	paths []string
}

func newMatcher(ignore []string) matcher {
	m := matcher{names: map[string]bool{}}
	for _, p := range ignore {
		p = filepath.ToSlash(strings.TrimSpace(p))
		anchored := strings.HasPrefix(p, "/")
		p = strings.Trim(p, "/")
		switch {
		case p == "":
		case anchored, strings.Contains(p, "/"):
			m.paths = append(m.paths, p)
		default:
			m.names[p] = true
		}
	}
	return m
}

func (m matcher) match(rel, name string) bool {
	if m.names[name] {
		return true
	}
	for _, p := range m.paths {
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// SortPaths sorts paths in place by their separator-delimited components,
// so "a/x" sorts before "a-b/x" even though '-' < '/' bytewise.
func SortPaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return Less(paths[i], paths[j])
	})
}

// Less reports whether path a orders before path b component-wise.
func Less(a, b string) bool {
	ap := strings.Split(filepath.ToSlash(a), "/")
	bp := strings.Split(filepath.ToSlash(b), "/")
	for i := 0; i < len(ap) && i < len(bp); i++ {
		if ap[i] != bp[i] {
			return ap[i] < bp[i]
		}
	}
	return len(ap) < len(bp)
}
