package output

import (
	"bytes"
	"fmt"
)

// PlainFormatter prints one line per file followed by a short summary.
// No colors or styling are applied.
type PlainFormatter struct{}

// FormatAction writes the line for one handled file.
func (f *PlainFormatter) FormatAction(w *bytes.Buffer, a *Action) error {
	if a.Copied() {
		_, err := fmt.Fprintf(w, "COPIED: %s -> %s\n", a.Name, a.RelDest)
		return err
	}
	_, err := fmt.Fprintf(w, "SKIP duplicate: %s\n", a.Name)
	return err
}

// Format writes the summary block.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	s := r.Summary
	fmt.Fprintf(w, "\nSummary\n-------\n")
	fmt.Fprintf(w, "Processed: %d\n", s.Processed)
	fmt.Fprintf(w, "Copied:    %d\n", s.Copied)
	fmt.Fprintf(w, "Duplicates skipped: %d\n", s.Duplicates)
	if s.Renamed > 0 {
		fmt.Fprintf(w, "Renamed due to existing names: %d\n", s.Renamed)
	}
	if r.DryRun {
		fmt.Fprintf(w, "Dry run: nothing was written\n")
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Streamer  = (*PlainFormatter)(nil)
)
