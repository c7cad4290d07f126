// Package config provides configuration management for coursesync.
package config

import "time"

// Default configuration values for coursesync.
const (
	// DefaultLibraryRoot is the curated course library, relative to the working directory.
	DefaultLibraryRoot = "files/课程Course"

	// DefaultSourceDir is the drop folder for new files, relative to the working directory.
	DefaultSourceDir = "new_files"

	// DefaultChunkSize is the read size used when hashing and copying (8 MiB).
	DefaultChunkSize = 8 * 1024 * 1024

	// DefaultRetentionDays is how long run history entries are kept.
	DefaultRetentionDays = 90

	// DefaultWatchDebounce is the quiet period before a watch-triggered sync.
	DefaultWatchDebounce = 2 * time.Second

	// DefaultOutput is the console output format.
	DefaultOutput = "plain"

	// DefaultIndexFormats are the catalog files written by the index command.
	DefaultIndexFormats = "index,categories"
)
