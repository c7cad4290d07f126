// Package syncer runs one pass of the course-file pipeline: index the
// library by content, then place every new file from the source tree into
// <course>/<category>/ while skipping content the library already holds.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
	"github.com/jamesainslie/coursesync/pkg/coursesync/copier"
	"github.com/jamesainslie/coursesync/pkg/coursesync/course"
	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
	"github.com/jamesainslie/coursesync/pkg/coursesync/meta"
	"github.com/jamesainslie/coursesync/pkg/coursesync/walk"
)

// ErrMissingRoot is returned when the library root or source directory
// does not exist or is not a directory.
var ErrMissingRoot = errors.New("directory not found")

// Options configures a Syncer.
type Options struct {
	LibraryRoot string
	SourceDir   string

	// Hasher computes digests. Nil means an uncached hasher.
	Hasher *hasher.Hasher

	// Aliases extend the built-in course alias table.
	Aliases map[string]course.Alias

	// DryRun plans every placement without touching the library.
	DryRun bool

	// OnAction, if set, is called for each file as soon as it is handled.
	OnAction func(Action)
}

// Syncer runs sync passes. A Syncer may be reused; each Run starts from a
// fresh view of the library.
type Syncer struct {
	opts   Options
	logger *logging.Logger
}

// New creates a Syncer.
func New(opts Options) *Syncer {
	if opts.Hasher == nil {
		opts.Hasher = hasher.New(hasher.Options{})
	}
	return &Syncer{opts: opts, logger: logging.Get(logging.Syncer)}
}

// Run performs one sync. On error the report covers the files handled
// before the failure.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{ID: uuid.NewString(), DryRun: s.opts.DryRun, StartedAt: start}
	hits0, misses0 := s.opts.Hasher.Stats()
	defer func() {
		hits, misses := s.opts.Hasher.Stats()
		report.Elapsed = time.Since(start)
		report.CacheHits, report.CacheMisses = hits-hits0, misses-misses0
	}()

	library, err := checkDir(s.opts.LibraryRoot, "library root")
	if err != nil {
		return report, err
	}
	source, err := checkDir(s.opts.SourceDir, "source directory")
	if err != nil {
		return report, err
	}
	report.LibraryRoot, report.SourceDir = library, source

	log := s.logger.ForRun(report.ID).With(logging.KeyLibrary, library)
	log.Info("sync started", logging.KeySource, source, "dry_run", s.opts.DryRun)

	resolver, err := course.NewResolver(library, course.Options{
		Aliases: s.opts.Aliases,
		DryRun:  s.opts.DryRun,
	})
	if err != nil {
		return report, err
	}

	index, n, err := s.buildIndex(ctx, log, library)
	if err != nil {
		return report, err
	}
	report.LibraryFiles = n

	files, err := walk.Files(ctx, source)
	if err != nil {
		return report, fmt.Errorf("listing source files: %w", err)
	}

	p := &pass{
		library:  library,
		log:      log,
		index:    index,
		resolver: resolver,
		copier:   copier.New(s.opts.Hasher, s.opts.DryRun),
		hasher:   s.opts.Hasher,
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		action, err := p.handle(path)
		if err != nil {
			log.Error("sync aborted", logging.KeyFile, path, "error", err)
			return report, err
		}

		report.record(action)
		log.Debug("file handled", logging.KeyFile, action.Name, "kind", action.Kind, logging.KeyDest, action.RelDest)
		if s.opts.OnAction != nil {
			s.opts.OnAction(action)
		}
	}

	log.Info("sync finished",
		"processed", report.Processed,
		"copied", report.Copied,
		"duplicates", report.Duplicates,
		"renamed", report.Renamed,
		"elapsed", time.Since(start))

	return report, nil
}

func (s *Syncer) buildIndex(ctx context.Context, log *logging.Logger, library string) (*ContentIndex, int, error) {
	files, err := walk.Files(ctx, library)
	if err != nil {
		return nil, 0, fmt.Errorf("listing library files: %w", err)
	}

	index := NewContentIndex()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		d, err := s.opts.Hasher.Sum(path)
		if err != nil {
			return nil, 0, err
		}
		index.Add(d, path)
	}

	log.Debug("library indexed", "files", len(files), "distinct", index.Len())
	return index, len(files), nil
}

// pass holds the state mutated while processing one run's source files.
type pass struct {
	library  string
	log      *logging.Logger
	index    *ContentIndex
	resolver *course.Resolver
	copier   *copier.Copier
	hasher   *hasher.Hasher
}

func (p *pass) handle(path string) (Action, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Action{}, fmt.Errorf("stat %s: %w", path, err)
	}

	// Drop files are always hashed from their bytes: a cache hit keyed on
	// stat data could hide a rewrite and wrongly skip the file.
	digest, err := p.hasher.SumFresh(path)
	if err != nil {
		return Action{}, err
	}

	action := Action{
		Source: path,
		Name:   filepath.Base(path),
		Digest: digest,
		Size:   info.Size(),
	}

	if existing, ok := p.index.Lookup(digest); ok {
		action.Kind = KindDuplicate
		action.Dest = existing
		action.RelDest = p.rel(existing)
		return action, nil
	}

	rec := meta.Parse(path)
	res, err := p.resolver.Resolve(rec.Tokens)
	if err != nil {
		return Action{}, err
	}
	cat := category.Classify(rec.Title, rec.Tokens, res.Category)
	p.log.Debug("course resolved", logging.KeyFile, action.Name, logging.KeyCourse, res.Name, "match", res.Match, "category", cat)

	_, ext := meta.SplitExt(action.Name)
	dest := filepath.Join(res.Dir, string(cat), rec.Title+ext)

	placement, err := p.copier.PlaceDigest(path, dest, digest)
	if err != nil {
		return Action{}, err
	}
	p.index.Add(digest, placement.Path)

	action.Dest = placement.Path
	action.RelDest = p.rel(placement.Path)
	if placement.Existing {
		action.Kind = KindDuplicate
		return action, nil
	}

	action.Kind = KindCopied
	action.Written = placement.Bytes
	action.Renamed = placement.Renamed
	action.Course = res.Name
	action.Category = cat
	action.Match = res.Match
	return action, nil
}

func (p *pass) rel(path string) string {
	rel, err := filepath.Rel(p.library, path)
	if err != nil {
		return path
	}
	return rel
}

// checkDir returns the absolute form of path after making sure it is an
// existing directory.
func checkDir(path, what string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: %s not set", ErrMissingRoot, what)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s %s: %w", what, path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s %s", ErrMissingRoot, what, abs)
	}
	return abs, nil
}
