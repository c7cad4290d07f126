package cache

import (
	"bytes"
	"encoding/gob"
)

// CacheVersion is incremented when the entry encoding changes.
const CacheVersion = 2

// keyPrefix namespaces digest entries so the store can hold other record
// kinds later without a migration.
const keyPrefix = "d\x00"

// Stat is the file state a digest was computed for. Rewriting a file in
// place and restoring its mtime still changes Ctime; replacing it by
// rename changes Inode.
type Stat struct {
	Size  int64
	Mtime int64 // UnixNano
	Ctime int64 // UnixNano; zero where the platform has none
	Inode uint64
}

// Entry is a cached digest together with the file state it was computed for.
type Entry struct {
	Size    int64
	Mtime   int64
	Ctime   int64
	Inode   uint64
	Version int
	Digest  string
}

// NewEntry returns the entry recording digest for a file in state st.
func NewEntry(st Stat, digest string) *Entry {
	return &Entry{
		Size:    st.Size,
		Mtime:   st.Mtime,
		Ctime:   st.Ctime,
		Inode:   st.Inode,
		Version: CacheVersion,
		Digest:  digest,
	}
}

// Matches reports whether the entry was computed for a file in state st.
// Entries written by an older version never match.
func (e *Entry) Matches(st Stat) bool {
	return e.Version == CacheVersion &&
		e.Size == st.Size &&
		e.Mtime == st.Mtime &&
		e.Ctime == st.Ctime &&
		e.Inode == st.Inode
}

// Encode serializes the entry using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes gob bytes into the entry.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates the store key for an absolute file path.
func MakeKey(path string) []byte {
	return []byte(keyPrefix + path)
}

// ParseKey returns the file path held in a store key.
func ParseKey(key []byte) string {
	return string(bytes.TrimPrefix(key, []byte(keyPrefix)))
}
