// Package hasher computes content digests used to decide whether two files
// hold the same bytes. Digests are for equality only, not integrity.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/jamesainslie/coursesync/pkg/coursesync/cache"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

// DefaultChunkSize is the read buffer size for streaming a file (8 MiB).
const DefaultChunkSize = 8 * 1024 * 1024

// Digest is a lowercase hex-encoded SHA-256 of a file's content.
type Digest string

// Short returns the first 12 characters of the digest for log output.
func (d Digest) Short() string {
	if len(d) <= 12 {
		return string(d)
	}
	return string(d[:12])
}

// HashFile streams path through SHA-256 in DefaultChunkSize reads.
func HashFile(path string) (Digest, error) {
	return hashFile(path, DefaultChunkSize)
}

func hashFile(path string, chunkSize int) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
	}

	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// DigestCache is the subset of *cache.Cache the Hasher needs.
type DigestCache interface {
	Lookup(path string, st cache.Stat) (string, error)
	Put(path string, entry *cache.Entry) error
	Delete(path string) error
}

// Options configures a Hasher.
type Options struct {
	// ChunkSize is the read buffer size. Zero means DefaultChunkSize.
	ChunkSize int

	// Cache, if set, short-circuits Sum for library files whose size,
	// mtime, ctime and inode match a stored entry.
	Cache DigestCache
}

// Hasher computes digests, optionally consulting a digest cache.
type Hasher struct {
	opts   Options
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Hasher.
func New(opts Options) *Hasher {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Hasher{opts: opts, logger: logging.Get(logging.Hasher)}
}

// Sum returns the digest of the library file at path, from the cache when
// the file is unchanged. Read failures are returned as-is; cache failures
// only cost a re-hash. A vanished file's entry is dropped.
func (h *Hasher) Sum(path string) (Digest, error) {
	if h.opts.Cache == nil {
		h.misses.Add(1)
		return hashFile(path, h.opts.ChunkSize)
	}

	st, err := cache.StatFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.forget(path)
		}
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	cached, err := h.opts.Cache.Lookup(path, st)
	if err == nil {
		h.hits.Add(1)
		return Digest(cached), nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		h.logger.Warn("digest cache lookup failed", logging.KeyFile, path, "error", err)
	}

	h.misses.Add(1)
	digest, err := hashFile(path, h.opts.ChunkSize)
	if err != nil {
		return "", err
	}
	h.put(path, st, digest)
	return digest, nil
}

// SumFresh always reads the file. Source files go through here: their
// digest decides whether they are duplicates, so a stale cache entry must
// never stand in for their content.
func (h *Hasher) SumFresh(path string) (Digest, error) {
	return hashFile(path, h.opts.ChunkSize)
}

// Remember records digest for a file just written to path, so the next
// run's library index does not read it back.
func (h *Hasher) Remember(path string, digest Digest) {
	if h.opts.Cache == nil {
		return
	}
	st, err := cache.StatFile(path)
	if err != nil {
		h.logger.Warn("digest cache update skipped", logging.KeyFile, path, "error", err)
		return
	}
	h.put(path, st, digest)
}

func (h *Hasher) put(path string, st cache.Stat, digest Digest) {
	if err := h.opts.Cache.Put(path, cache.NewEntry(st, string(digest))); err != nil {
		h.logger.Warn("digest cache update failed", logging.KeyFile, path, "error", err)
	}
}

func (h *Hasher) forget(path string) {
	if err := h.opts.Cache.Delete(path); err != nil {
		h.logger.Warn("digest cache delete failed", logging.KeyFile, path, "error", err)
		return
	}
	h.logger.Debug("dropped digest of vanished file", logging.KeyFile, path)
}

// Stats returns how many Sum calls were answered by the cache and how many
// read the file.
func (h *Hasher) Stats() (hits, misses int64) {
	return h.hits.Load(), h.misses.Load()
}
