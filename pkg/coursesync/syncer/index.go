package syncer

import "github.com/jamesainslie/coursesync/pkg/coursesync/hasher"

// ContentIndex maps digests to the first library file seen holding that
// content. It is owned by a single run and not safe for concurrent use.
type ContentIndex struct {
	paths map[hasher.Digest]string
}

// NewContentIndex returns an empty index.
func NewContentIndex() *ContentIndex {
	return &ContentIndex{paths: make(map[hasher.Digest]string)}
}

// Add records path as holding content with digest d. A digest keeps the
// path it was first added with.
func (idx *ContentIndex) Add(d hasher.Digest, path string) {
	if _, ok := idx.paths[d]; !ok {
		idx.paths[d] = path
	}
}

// Lookup returns the path recorded for d.
func (idx *ContentIndex) Lookup(d hasher.Digest) (string, bool) {
	path, ok := idx.paths[d]
	return path, ok
}

// Len returns the number of distinct digests.
func (idx *ContentIndex) Len() int {
	return len(idx.paths)
}
