// Package meta extracts the human title and metadata tokens encoded in a
// dropped file's name.
//
// Names follow the convention
//
//	<title>__<token1>_<token2>_..._<tokenN>__.<ext>
//
// where the trailing double underscore is optional. A name without any
// double underscore is all title.
package meta

import (
	"path/filepath"
	"strings"
)

const (
	blockSeparator = "__"
	tokenSeparator = "_"
)

// FileRecord is a source file together with what its name tells us.
type FileRecord struct {
	Path   string
	Title  string
	Tokens []string
}

// HasTokens reports whether the name carried a metadata block.
func (r FileRecord) HasTokens() bool {
	return len(r.Tokens) > 0
}

// Parse derives a FileRecord from path's base name. It never fails; an
// unstructured name yields the whole stem as title and no tokens.
func Parse(path string) FileRecord {
	title, tokens := ParseName(filepath.Base(path))
	return FileRecord{Path: path, Title: title, Tokens: tokens}
}

// ParseName splits a file name (without directory) into title and tokens.
// A name whose title part is blank keeps its full stem as the title so the
// placed file never ends up as a bare extension.
func ParseName(name string) (title string, tokens []string) {
	fullStem, _ := SplitExt(name)
	stem := strings.TrimSuffix(fullStem, blockSeparator)

	title, block, _ := strings.Cut(stem, blockSeparator)

	tokens = []string{}
	for _, token := range strings.Split(block, tokenSeparator) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = fullStem
	}
	return title, tokens
}

// SplitExt splits name into stem and extension (with its dot). Dot-files
// such as ".notes" have no extension.
func SplitExt(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}
