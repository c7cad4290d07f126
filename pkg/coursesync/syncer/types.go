package syncer

import (
	"time"

	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
	"github.com/jamesainslie/coursesync/pkg/coursesync/course"
	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
)

// Kind says what happened to a source file.
type Kind string

const (
	// KindCopied means the file was placed into the library.
	KindCopied Kind = "copied"
	// KindDuplicate means identical content was already in the library.
	KindDuplicate Kind = "duplicate"
)

// Action records the outcome for one source file.
type Action struct {
	// Source is the path of the file in the source tree.
	Source string

	// Name is the base name of Source.
	Name string

	// Dest is where the file was placed, or for a duplicate the library
	// file holding the same content.
	Dest string

	// RelDest is Dest relative to the library root.
	RelDest string

	Digest hasher.Digest
	Size   int64
	Kind   Kind

	// Written is the number of bytes written into the library; zero for
	// duplicates and dry runs.
	Written int64

	// Renamed is set when a _N suffix was needed to place the file.
	Renamed bool

	// Course and Category are empty for duplicates.
	Course   string
	Category category.Category

	// Match says how the course was resolved. Empty for duplicates.
	Match course.Match
}

// Report summarizes one run. Counters are consistent with Actions even
// when the run stopped early.
type Report struct {
	// ID identifies the run in logs and history.
	ID string

	LibraryRoot string
	SourceDir   string
	DryRun      bool

	StartedAt time.Time
	Elapsed   time.Duration

	// Processed counts source files looked at; always Copied + Duplicates.
	Processed  int
	Copied     int
	Duplicates int
	Renamed    int

	// BytesCopied counts bytes actually written, so it stays zero on a
	// dry run.
	BytesCopied int64

	// LibraryFiles is the number of files indexed before processing.
	LibraryFiles int

	// CacheHits and CacheMisses come from the digest cache.
	CacheHits   int64
	CacheMisses int64

	Actions []Action
}

func (r *Report) record(a Action) {
	r.Actions = append(r.Actions, a)
	r.Processed++
	switch a.Kind {
	case KindCopied:
		r.Copied++
		r.BytesCopied += a.Written
		if a.Renamed {
			r.Renamed++
		}
	case KindDuplicate:
		r.Duplicates++
	}
}
