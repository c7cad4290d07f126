package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize in bytes. Zero means 10 MiB.
	MaxSize int64

	// MaxAge in days for rotated files. Zero keeps them regardless of age.
	MaxAge int

	// MaxBackups caps the number of rotated files. Zero means no cap.
	MaxBackups int

	// Daily starts a new file on the first write of each calendar day.
	Daily bool
}

// DefaultRotationConfig returns the rotation used when the config file is silent.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// due reports whether a file of size bytes opened at opened must be
// rotated before n more bytes are appended.
func (c RotationConfig) due(size, n int64, opened, now time.Time) bool {
	if size == 0 {
		return false
	}
	if size+n > c.MaxSize {
		return true
	}
	if !c.Daily {
		return false
	}
	y1, m1, d1 := opened.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// RotatingWriter is an io.WriteCloser over a log file that rotates itself.
// A sync and a watch process may append to the same file; each write holds
// an exclusive flock on it.
type RotatingWriter struct {
	mu     sync.Mutex
	path   string
	cfg    RotationConfig
	file   *os.File
	size   int64
	opened time.Time
}

// NewRotatingWriter opens (or creates) the log at path and prunes old backups.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune(time.Now())
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	now := time.Now()
	if w.cfg.due(w.size, int64(len(p)), w.opened, now) {
		if err := w.rotate(now); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	fd := int(w.file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	n, err := w.file.Write(p)
	_ = unix.Flock(fd, unix.LOCK_UN)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the file. It is safe to call more than once.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("syncing log file: %w", err)
	}
	return f.Close()
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	w.opened = time.Now()
	if w.size > 0 {
		// An existing log belongs to the day it was last written.
		w.opened = info.ModTime()
	}
	return nil
}

func (w *RotatingWriter) rotate(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	w.file = nil

	if err := os.Rename(w.path, w.backupName(now)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}
	if err := w.open(); err != nil {
		return err
	}
	w.prune(now)
	return nil
}

// backupName returns <stem>.<stamp>[.N]<ext> that does not exist yet.
func (w *RotatingWriter) backupName(now time.Time) string {
	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext)
	stamp := now.Format("2006-01-02-150405")

	name := stem + "." + stamp + ext
	for i := 1; ; i++ {
		if _, err := os.Lstat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s.%s.%d%s", stem, stamp, i, ext)
	}
}

type backup struct {
	path    string
	modTime time.Time
}

// backups lists rotated files, newest first.
func (w *RotatingWriter) backups() []backup {
	dir, base := filepath.Split(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil
	}

	var out []backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == base || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, backup{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	slices.SortFunc(out, func(a, b backup) int {
		return b.modTime.Compare(a.modTime)
	})
	return out
}

// prune removes backups past MaxBackups or older than MaxAge days.
func (w *RotatingWriter) prune(now time.Time) {
	cutoff := now.AddDate(0, 0, -w.cfg.MaxAge)
	for i, b := range w.backups() {
		if (w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups) || (w.cfg.MaxAge > 0 && b.modTime.Before(cutoff)) {
			_ = os.Remove(b.path)
		}
	}
}
