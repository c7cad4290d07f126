// Package course maps the metadata tokens of a dropped file to a course
// directory under the library root.
package course

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

// Uncategorized names the course directory for files without any tokens.
const Uncategorized = "未分类课程"

// Match records which step of the resolution produced a course.
type Match string

const (
	MatchAlias    Match = "alias"
	MatchExisting Match = "existing"
	MatchFallback Match = "fallback"
)

// Normalize folds a course name or alias for comparison: all whitespace
// removed and letters lowercased.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Resolution is the outcome of resolving a file's tokens.
type Resolution struct {
	// Name is the course name: the alias's canonical name, the existing
	// directory's name, or the fallback token.
	Name string

	// Dir is the absolute course directory.
	Dir string

	// Category is the alias override, empty when none applies.
	Category category.Category

	Match Match
}

// Options configures a Resolver.
type Options struct {
	// Aliases are layered over BuiltinAliases.
	Aliases map[string]Alias

	// DryRun registers new course directories without creating them.
	DryRun bool
}

// Resolver owns the normalized-name to directory mapping for one run.
type Resolver struct {
	root    string
	aliases *AliasTable
	dirs    map[string]string
	dryRun  bool
	logger  *logging.Logger
}

// NewResolver lists the top-level directories of root and returns a
// resolver that knows about them.
func NewResolver(root string, opts Options) (*Resolver, error) {
	aliases, err := NewAliasTable(opts.Aliases)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing courses in %s: %w", root, err)
	}

	r := &Resolver{
		root:    root,
		aliases: aliases,
		dirs:    make(map[string]string, len(entries)),
		dryRun:  opts.DryRun,
		logger:  logging.Get(logging.Course),
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		key := Normalize(e.Name())
		if key == "" {
			continue
		}
		// ReadDir sorts by name, so the first spelling wins on a clash.
		if _, ok := r.dirs[key]; ok {
			r.logger.Warn("course directories collide after normalization",
				"kept", r.dirs[key], "ignored", e.Name())
			continue
		}
		r.dirs[key] = filepath.Join(root, e.Name())
	}

	r.logger.Debug("resolver ready", "root", root, "courses", len(r.dirs), "aliases", aliases.Len())
	return r, nil
}

// Resolve picks the course for a file's tokens. Aliases are tried first
// over all tokens, then existing directory names, then the first token is
// taken as a new course name. The course directory exists on return
// unless the resolver is in dry-run mode.
func (r *Resolver) Resolve(tokens []string) (Resolution, error) {
	var candidates []string
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			candidates = append(candidates, t)
		}
	}

	for _, t := range candidates {
		if alias, ok := r.aliases.Lookup(t); ok {
			dir, err := r.Ensure(alias.Course)
			if err != nil {
				return Resolution{}, err
			}
			return Resolution{Name: alias.Course, Dir: dir, Category: alias.Category, Match: MatchAlias}, nil
		}
	}

	for _, t := range candidates {
		if dir, ok := r.dirs[Normalize(t)]; ok {
			return Resolution{Name: filepath.Base(dir), Dir: dir, Match: MatchExisting}, nil
		}
	}

	name := Uncategorized
	if len(candidates) > 0 && isPlainName(candidates[0]) {
		name = candidates[0]
	}
	dir, err := r.Ensure(name)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Name: name, Dir: dir, Match: MatchFallback}, nil
}

// Ensure returns the directory for course name, creating it if no
// directory with the same normalized name is known yet.
func (r *Resolver) Ensure(name string) (string, error) {
	key := Normalize(name)
	if dir, ok := r.dirs[key]; ok {
		return dir, nil
	}

	dir := filepath.Join(r.root, name)
	if !r.dryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating course directory %s: %w", dir, err)
		}
	}
	r.dirs[key] = dir
	r.logger.Info("new course directory", "course", name, "dry_run", r.dryRun)
	return dir, nil
}

// Courses returns the number of known course directories.
func (r *Resolver) Courses() int {
	return len(r.dirs)
}

// isPlainName rejects tokens that would escape the library root.
func isPlainName(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
