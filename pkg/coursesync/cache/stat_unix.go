//go:build linux || darwin

package cache

import (
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

// StatFile returns the cache-relevant state of the file at path.
// Symlinks are followed, as they are when the file is read.
func StatFile(path string) (Stat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Stat{}, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return Stat{}, fmt.Errorf("stat %s: not a regular file", path)
	}
	return Stat{
		Size:  int64(st.Size),
		Mtime: st.Mtim.Nano(),
		Ctime: st.Ctim.Nano(),
		Inode: uint64(st.Ino),
	}, nil
}
