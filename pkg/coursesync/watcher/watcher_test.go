package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 100 * time.Millisecond

func newWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(testDebounce)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// settled collects onSettle calls.
type settled struct {
	mu    sync.Mutex
	calls [][]string
	ch    chan struct{}
}

func newSettled() *settled {
	return &settled{ch: make(chan struct{}, 16)}
}

func (s *settled) fn(_ context.Context, changed []string) {
	s.mu.Lock()
	s.calls = append(s.calls, changed)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *settled) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for settle")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func TestNew_DefaultDebounce(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatch_Recursive(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	require.NoError(t, w.Watch(root))
	assert.Equal(t, 3, w.Watched())
}

func TestWatch_Errors(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()

	assert.Error(t, w.Watch(filepath.Join(root, "missing")))

	file := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, w.Watch(file))
}

func TestRun_DebouncesBurst(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	s := newSettled()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, s.fn)

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0o644))
	}

	changed := s.wait(t)
	assert.Contains(t, changed, filepath.Join(root, "a.pdf"))
	assert.Contains(t, changed, filepath.Join(root, "c.pdf"))

	select {
	case <-s.ch:
		t.Fatal("burst produced more than one settle")
	case <-time.After(3 * testDebounce):
	}
}

func TestRun_WatchesNewSubdirectories(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	s := newSettled()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, s.fn)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	s.wait(t)
	assert.Equal(t, 2, w.Watched())

	file := filepath.Join(sub, "x.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Contains(t, s.wait(t), file)
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := newWatcher(t)
	require.NoError(t, w.Watch(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandleEvent_IgnoresChmod(t *testing.T) {
	w := newWatcher(t)
	assert.False(t, w.handleEvent(fsnotify.Event{Name: "/x", Op: fsnotify.Chmod}))
	assert.True(t, w.handleEvent(fsnotify.Event{Name: "/x", Op: fsnotify.Write}))
	assert.Equal(t, []string{"/x"}, w.drain())
	assert.Empty(t, w.drain())
}

func TestIsSubPath(t *testing.T) {
	sep := string(filepath.Separator)
	assert.True(t, isSubPath("a"+sep+"b", "a"))
	assert.False(t, isSubPath("ab", "a"))
	assert.False(t, isSubPath("a", "a"))
}

func TestClose_Idempotent(t *testing.T) {
	w, err := New(testDebounce)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
