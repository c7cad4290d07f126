package output

import "bytes"

// PathsFormatter prints the library path of every copied file, one per
// line, for piping into other tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, a := range r.Actions {
		if !a.Copied() {
			continue
		}
		w.WriteString(a.Dest)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

var _ Formatter = (*PathsFormatter)(nil)
