package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
	"github.com/jamesainslie/coursesync/pkg/coursesync/syncer"
)

func sampleReport() *syncer.Report {
	return &syncer.Report{
		LibraryRoot: "/lib",
		SourceDir:   "/drop",
		Processed:   3,
		Copied:      2,
		Duplicates:  1,
		Renamed:     1,
		BytesCopied: 3 * 1024,
		Elapsed:     1500 * time.Millisecond,
		Actions: []syncer.Action{
			{
				Source: "/drop/高数练习__线代__.pdf", Name: "高数练习__线代__.pdf",
				Dest: "/lib/线性代数/题库/高数练习.pdf", RelDest: "线性代数/题库/高数练习.pdf",
				Kind: syncer.KindCopied, Size: 1024, Course: "线性代数", Category: category.Bank,
			},
			{
				Source: "/drop/a__线代__.pdf", Name: "a__线代__.pdf",
				Dest: "/lib/线性代数/资料/a_1.pdf", RelDest: "线性代数/资料/a_1.pdf",
				Kind: syncer.KindCopied, Size: 2048, Renamed: true, Course: "线性代数", Category: category.Material,
			},
			{
				Source: "/drop/copy.pdf", Name: "copy.pdf",
				Dest: "/lib/线性代数/题库/高数练习.pdf", RelDest: "线性代数/题库/高数练习.pdf",
				Kind: syncer.KindDuplicate, Size: 1024,
			},
		},
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "paths", "plain", "pretty", "yaml"}, Available())

	f, err := Get("plain")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)

	_, err = Get("xml")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("x", func() Formatter { return &JSONFormatter{} })
	assert.Equal(t, []string{"x"}, r.Available())
}

func TestFromReport(t *testing.T) {
	r := FromReport(sampleReport())

	assert.Equal(t, "/lib", r.LibraryRoot)
	require.Len(t, r.Actions, 3)
	assert.Equal(t, "1.0 KiB", r.Actions[0].SizeHuman)
	assert.Equal(t, "题库", r.Actions[0].Category)
	assert.True(t, r.Actions[1].Copied())
	assert.False(t, r.Actions[2].Copied())
	assert.Equal(t, "3.0 KiB", r.Summary.BytesHuman)
	assert.Equal(t, "1.5s", r.Summary.Duration)
}

func TestPlainFormatter(t *testing.T) {
	f := &PlainFormatter{}
	r := FromReport(sampleReport())

	var buf bytes.Buffer
	for i := range r.Actions {
		require.NoError(t, f.FormatAction(&buf, &r.Actions[i]))
	}
	require.NoError(t, f.Format(&buf, r))

	want := "COPIED: 高数练习__线代__.pdf -> 线性代数/题库/高数练习.pdf\n" +
		"COPIED: a__线代__.pdf -> 线性代数/资料/a_1.pdf\n" +
		"SKIP duplicate: copy.pdf\n" +
		"\nSummary\n-------\n" +
		"Processed: 3\n" +
		"Copied:    2\n" +
		"Duplicates skipped: 1\n" +
		"Renamed due to existing names: 1\n"
	assert.Equal(t, want, buf.String())
}

func TestPlainFormatter_NoRenamedLine(t *testing.T) {
	r := FromReport(&syncer.Report{DryRun: true})

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))

	assert.NotContains(t, buf.String(), "Renamed")
	assert.Contains(t, buf.String(), "Processed: 0\n")
	assert.Contains(t, buf.String(), "Dry run")
}

func TestPrettyFormatter(t *testing.T) {
	f := &PrettyFormatter{}
	r := FromReport(sampleReport())

	var buf bytes.Buffer
	for i := range r.Actions {
		require.NoError(t, f.FormatAction(&buf, &r.Actions[i]))
	}
	require.NoError(t, f.Format(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "线性代数/题库/高数练习.pdf")
	assert.Contains(t, out, "copy.pdf")
	assert.Contains(t, out, "already in library")
	assert.Contains(t, out, "/lib")
	assert.Contains(t, out, "Renamed:")
	assert.Contains(t, out, "3.0 KiB")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, FromReport(sampleReport())))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "/lib", doc["library_root"])
	assert.Len(t, doc["actions"], 3)

	summary := doc["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["copied"])
	assert.Equal(t, "1.5s", summary["duration"])
	assert.NotContains(t, summary, "Elapsed")

	// Non-ASCII paths stay readable.
	assert.Contains(t, buf.String(), "线性代数")
}

func TestJSONFormatter_EmptyActionsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, FromReport(&syncer.Report{})))
	assert.Contains(t, buf.String(), `"actions": []`)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, FromReport(sampleReport())))

	var doc struct {
		LibraryRoot string `yaml:"library_root"`
		Actions     []struct {
			Kind     string `yaml:"kind"`
			Category string `yaml:"category"`
		} `yaml:"actions"`
		Summary struct {
			Duplicates int `yaml:"duplicates"`
		} `yaml:"summary"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "/lib", doc.LibraryRoot)
	require.Len(t, doc.Actions, 3)
	assert.Equal(t, "题库", doc.Actions[0].Category)
	assert.Equal(t, "duplicate", doc.Actions[2].Kind)
	assert.Equal(t, 1, doc.Summary.Duplicates)
}

func TestPathsFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PathsFormatter{}).Format(&buf, FromReport(sampleReport())))
	assert.Equal(t, "/lib/线性代数/题库/高数练习.pdf\n/lib/线性代数/资料/a_1.pdf\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "2.0s", formatDuration(2*time.Second))
	assert.Equal(t, "1m 5s", formatDuration(65*time.Second))
	assert.Equal(t, "2h 3m", formatDuration(123*time.Minute))
}
