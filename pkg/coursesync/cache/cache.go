// Package cache persists content digests keyed by file path so unchanged
// library files need not be re-read on every run. An entry is only trusted
// when the file's size, mtime, ctime and inode all still match.
package cache

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

// ErrNotFound is returned when no usable entry exists for a path.
var ErrNotFound = errors.New("cache entry not found")

// Cache wraps a Badger database of digest entries.
type Cache struct {
	db *badger.DB
}

// Open opens or creates a cache at the given directory.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening digest cache %s: %w", path, err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the raw entry stored for path.
func (c *Cache) Get(path string) (*Entry, error) {
	var entry Entry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Lookup returns the cached digest for path if it was computed for a file
// in state st. Stale entries yield ErrNotFound.
func (c *Cache) Lookup(path string, st Stat) (string, error) {
	entry, err := c.Get(path)
	if err != nil {
		return "", err
	}
	if !entry.Matches(st) {
		return "", ErrNotFound
	}
	return entry.Digest, nil
}

// Put stores the digest computed for path.
func (c *Cache) Put(path string, entry *Entry) error {
	value, err := entry.Encode()
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(path), value)
	})
}

// Delete removes the entry for path.
func (c *Cache) Delete(path string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(path))
	})
}

// Count returns the number of cached digests.
func (c *Cache) Count() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Clear removes every cached digest.
func (c *Cache) Clear() error {
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Prune deletes entries whose file no longer exists and returns how many
// were removed.
func (c *Cache) Prune() (int, error) {
	var gone []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			path := ParseKey(it.Item().KeyCopy(nil))
			if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
				gone = append(gone, path)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, path := range gone {
		if err := c.Delete(path); err != nil {
			return i, fmt.Errorf("pruning %s: %w", path, err)
		}
	}
	if len(gone) > 0 {
		logging.Get(logging.Cache).Info("pruned digest cache", "removed", len(gone))
	}
	return len(gone), nil
}
