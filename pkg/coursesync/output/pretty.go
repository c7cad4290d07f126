package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders results with lipgloss styling for a terminal.
type PrettyFormatter struct{}

// FormatAction writes one styled line per file.
func (f *PrettyFormatter) FormatAction(w *bytes.Buffer, a *Action) error {
	if !a.Copied() {
		w.WriteString(MutedStyle.Render(fmt.Sprintf("  = %s (already in library)", a.Name)))
		w.WriteString("\n")
		return nil
	}

	mark := SuccessStyle.Render("  + ")
	if a.Renamed {
		mark = WarningStyle.Render("  ~ ")
	}
	dest := PathStyle.Render(a.RelDest)
	if a.Category != "" {
		dest += " " + CategoryStyle.Render("["+a.Category+"]")
	}
	size := MutedStyle.Render(a.SizeHuman)

	fmt.Fprintf(w, "%s%s %s %s  %s\n", mark, ValueStyle.Render(a.Name), MutedStyle.Render("->"), dest, size)
	return nil
}

// Format writes a header with the run's roots and a boxed summary.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		LabelStyle.Render("Library:") + " " + ValueStyle.Render(r.LibraryRoot),
		LabelStyle.Render("Source: ") + " " + ValueStyle.Render(r.SourceDir),
	}
	if r.DryRun {
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: nothing was written"))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	s := r.Summary
	parts := []string{
		label("Processed:", humanize.Comma(int64(s.Processed))),
		label("Copied:", SuccessStyle.Render(humanize.Comma(int64(s.Copied)))),
		label("Duplicates:", humanize.Comma(int64(s.Duplicates))),
	}
	if s.Renamed > 0 {
		parts = append(parts, label("Renamed:", WarningStyle.Render(humanize.Comma(int64(s.Renamed)))))
	}
	parts = append(parts,
		label("Bytes:", humanize.IBytes(uint64(s.BytesCopied))),
		label("Took:", s.Duration),
	)
	if s.CacheHits > 0 {
		parts = append(parts, MutedStyle.Render(fmt.Sprintf("%d digests from cache", s.CacheHits)))
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func label(name, value string) string {
	return LabelStyle.Render(name) + " " + ValueStyle.Render(value)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var (
	_ Formatter = (*PrettyFormatter)(nil)
	_ Streamer  = (*PrettyFormatter)(nil)
)
