package catalog

import (
	"errors"
	"io"
	"mime"
	"os"
	"strings"
)

const (
	// DefaultMime is used for unknown extensions.
	DefaultMime = "application/octet-stream"

	previewSample    = 4096
	titleMaxRunes    = 120
	excerptMaxRunes  = 240
	truncationMarker = "…"
)

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".rst":      true,
	".csv":      true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".log":      true,
}

// mimeTypes covers what lands in a course library, so results do not
// depend on the host's mime.types file.
var mimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".yml":      "text/yaml",
	".yaml":     "text/yaml",
	".csv":      "text/csv",
	".txt":      "text/plain",
	".json":     "application/json",
	".pdf":      "application/pdf",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":      "application/vnd.ms-powerpoint",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".zip":      "application/zip",
	".rar":      "application/vnd.rar",
	".7z":       "application/x-7z-compressed",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".mp4":      "video/mp4",
}

func isText(ext string) bool {
	return textExtensions[strings.ToLower(ext)]
}

func mimeType(ext string) string {
	if ext == "" {
		return DefaultMime
	}
	ext = strings.ToLower(ext)
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
	}
	return DefaultMime
}

type preview struct {
	title   string
	excerpt string
}

// readPreview samples the start of a text file.
func readPreview(path string) (preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return preview{}, err
	}
	defer f.Close()

	buf := make([]byte, previewSample)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return preview{}, err
	}
	return previewText(string(buf[:n])), nil
}

func previewText(text string) preview {
	// The sample may end inside a multi-byte character.
	text = strings.ToValidUTF8(text, "")

	var p preview
	first, _, _ := strings.Cut(text, "\n")
	if first = strings.TrimSpace(first); first != "" {
		p.title = truncate(first, titleMaxRunes)
	}
	if collapsed := strings.Join(strings.Fields(text), " "); collapsed != "" {
		p.excerpt = truncate(collapsed, excerptMaxRunes)
	}
	return p
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + truncationMarker
}
