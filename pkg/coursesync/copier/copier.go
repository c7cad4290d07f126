// Package copier places files into the library without ever overwriting
// different content that already occupies the destination name.
package copier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
	"github.com/jamesainslie/coursesync/pkg/coursesync/meta"
)

// maxSuffix bounds the _N suffix search so a pathological directory cannot spin forever.
const maxSuffix = 100000

// ErrNoFreeName is returned when every suffixed candidate is taken.
var ErrNoFreeName = errors.New("no free destination name")

// Summer computes content digests. *hasher.Hasher satisfies it.
type Summer interface {
	// Sum may answer from a cache; it is used for files already in the library.
	Sum(path string) (hasher.Digest, error)
	// SumFresh always reads the file; it is used for the file being placed.
	SumFresh(path string) (hasher.Digest, error)
	// Remember records the digest of a file the copier just wrote.
	Remember(path string, digest hasher.Digest)
}

// Placement describes where a file ended up.
type Placement struct {
	// Path is the final destination.
	Path string

	// Renamed is set when the requested name was taken and a _N suffix was used.
	Renamed bool

	// Existing is set when identical content already sat at Path and
	// nothing was written.
	Existing bool

	// Bytes is the number of bytes written (zero for Existing or dry runs).
	Bytes int64
}

// Copier copies files into the library. It is not safe for concurrent use.
type Copier struct {
	sums   Summer
	dryRun bool

	// claimed holds destinations planned during a dry run, keyed by path.
	claimed map[string]hasher.Digest

	logger *logging.Logger
}

// New creates a Copier. With dryRun set nothing is written; planned
// destinations are remembered so later files see them as occupied.
func New(sums Summer, dryRun bool) *Copier {
	return &Copier{
		sums:    sums,
		dryRun:  dryRun,
		claimed: make(map[string]hasher.Digest),
		logger:  logging.Get(logging.Copier),
	}
}

// SafeCopy copies src to dest and returns the path actually used and
// whether a suffix was needed to reach it.
func (c *Copier) SafeCopy(src, dest string) (string, bool, error) {
	p, err := c.Place(src, dest)
	if err != nil {
		return "", false, err
	}
	return p.Path, p.Renamed, nil
}

// Place tries dest, dest_1, dest_2, ... and stops at the first slot that
// is free or already holds content identical to src.
func (c *Copier) Place(src, dest string) (Placement, error) {
	srcDigest, err := c.sums.SumFresh(src)
	if err != nil {
		return Placement{}, err
	}
	return c.PlaceDigest(src, dest, srcDigest)
}

// PlaceDigest is Place for a caller that has just hashed src.
func (c *Copier) PlaceDigest(src, dest string, srcDigest hasher.Digest) (Placement, error) {
	dir := filepath.Dir(dest)
	if !c.dryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Placement{}, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	stem, ext := meta.SplitExt(filepath.Base(dest))
	for i := 0; i <= maxSuffix; i++ {
		candidate := dest
		if i > 0 {
			candidate = filepath.Join(dir, stem+"_"+strconv.Itoa(i)+ext)
		}
		renamed := i > 0

		if d, ok := c.claimed[candidate]; ok {
			if d == srcDigest {
				return Placement{Path: candidate, Renamed: renamed, Existing: true}, nil
			}
			continue
		}

		info, err := os.Lstat(candidate)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return c.write(src, candidate, srcDigest, renamed)
		case err != nil:
			return Placement{}, fmt.Errorf("checking %s: %w", candidate, err)
		case !info.Mode().IsRegular():
			continue
		}

		d, err := c.sums.Sum(candidate)
		if err != nil {
			return Placement{}, err
		}
		if d == srcDigest {
			c.logger.Debug("identical file already at destination", logging.KeySource, src, logging.KeyDest, candidate)
			return Placement{Path: candidate, Renamed: renamed, Existing: true}, nil
		}
	}

	return Placement{}, fmt.Errorf("%w for %s", ErrNoFreeName, dest)
}

func (c *Copier) write(src, dest string, digest hasher.Digest, renamed bool) (Placement, error) {
	if c.dryRun {
		c.claimed[dest] = digest
		return Placement{Path: dest, Renamed: renamed}, nil
	}

	n, err := copyFile(src, dest)
	if err != nil {
		return Placement{}, err
	}
	c.sums.Remember(dest, digest)
	c.logger.Debug("copied", logging.KeySource, src, logging.KeyDest, dest, logging.KeyDigest, digest.Short(), "bytes", n, "renamed", renamed)
	return Placement{Path: dest, Renamed: renamed, Bytes: n}, nil
}

// copyFile writes src into a temp file next to dest and renames it into
// place, carrying over the permission bits and modification time.
func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file for %s: %w", dest, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, in)
	if err != nil {
		return 0, fmt.Errorf("copying %s: %w", src, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return 0, fmt.Errorf("setting times on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("renaming into %s: %w", dest, err)
	}
	committed = true

	return n, nil
}
