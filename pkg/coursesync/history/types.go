// Package history keeps a record of completed sync runs on disk, one JSON
// document per run.
package history

import "time"

// Entry is one recorded run.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	LibraryRoot string    `json:"library_root"`
	SourceDir   string    `json:"source_dir"`
	Actions     []Record  `json:"actions"`
	Summary     Summary   `json:"summary"`
}

// Record is the outcome for one source file.
type Record struct {
	Source   string `json:"source"`
	Dest     string `json:"dest"`
	Kind     string `json:"kind"`
	Digest   string `json:"sha256"`
	Size     int64  `json:"size"`
	Renamed  bool   `json:"renamed,omitempty"`
	Course   string `json:"course,omitempty"`
	Category string `json:"category,omitempty"`
}

// Summary holds the run's counters.
type Summary struct {
	Processed   int           `json:"processed"`
	Copied      int           `json:"copied"`
	Duplicates  int           `json:"duplicates"`
	Renamed     int           `json:"renamed"`
	BytesCopied int64         `json:"bytes_copied"`
	Elapsed     time.Duration `json:"elapsed"`
}
