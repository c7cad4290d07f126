//go:build !linux && !darwin

package cache

import (
	"fmt"
	"os"
)

// StatFile returns the cache-relevant state of the file at path. Only size
// and mtime are available on this platform.
func StatFile(path string) (Stat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stat{}, err
	}
	if !info.Mode().IsRegular() {
		return Stat{}, fmt.Errorf("stat %s: not a regular file", path)
	}
	return Stat{Size: info.Size(), Mtime: info.ModTime().UnixNano()}, nil
}
