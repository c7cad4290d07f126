package copier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/coursesync/pkg/coursesync/cache"
	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newCopier(dryRun bool) *Copier {
	return New(hasher.New(hasher.Options{}), dryRun)
}

func TestSafeCopy_FreeDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.pdf")
	dest := filepath.Join(dir, "lib", "线性代数", "题库", "a.pdf")
	writeFile(t, src, "alpha")

	mtime := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chmod(src, 0o600))
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	got, renamed, err := newCopier(false).SafeCopy(src, dest)
	require.NoError(t, err)

	assert.Equal(t, dest, got)
	assert.False(t, renamed)
	assert.Equal(t, "alpha", readFile(t, dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime), "mtime %v", info.ModTime())
}

func TestSafeCopy_IdenticalContentIsNotCopied(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dest := filepath.Join(dir, "lib", "a.pdf")
	writeFile(t, src, "same")
	writeFile(t, dest, "same")

	p, err := newCopier(false).Place(src, dest)
	require.NoError(t, err)

	assert.Equal(t, dest, p.Path)
	assert.True(t, p.Existing)
	assert.False(t, p.Renamed)
	assert.Zero(t, p.Bytes)
}

func TestSafeCopy_CollisionRename(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "lib", "a.pdf")
	writeFile(t, dest, "X")

	src1 := filepath.Join(dir, "src", "one.pdf")
	src2 := filepath.Join(dir, "src", "two.pdf")
	writeFile(t, src1, "Y")
	writeFile(t, src2, "Z")

	c := newCopier(false)

	got, renamed, err := c.SafeCopy(src1, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "a_1.pdf"), got)
	assert.True(t, renamed)

	got, renamed, err = c.SafeCopy(src2, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "a_2.pdf"), got)
	assert.True(t, renamed)

	assert.Equal(t, "X", readFile(t, dest))
	assert.Equal(t, "Y", readFile(t, filepath.Join(dir, "lib", "a_1.pdf")))
	assert.Equal(t, "Z", readFile(t, filepath.Join(dir, "lib", "a_2.pdf")))
}

func TestSafeCopy_IdenticalContentBehindSuffix(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "lib", "a.pdf")
	writeFile(t, dest, "X")
	writeFile(t, filepath.Join(dir, "lib", "a_1.pdf"), "Y")

	src := filepath.Join(dir, "src", "a.pdf")
	writeFile(t, src, "Y")

	p, err := newCopier(false).Place(src, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "a_1.pdf"), p.Path)
	assert.True(t, p.Existing)
	assert.True(t, p.Renamed)
}

func TestSafeCopy_NoExtension(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "lib", "README")
	writeFile(t, dest, "X")
	src := filepath.Join(dir, "README")
	writeFile(t, src, "Y")

	got, _, err := newCopier(false).SafeCopy(src, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "README_1"), got)
}

func TestSafeCopy_SkipsDirectoryAtDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "lib", "a.pdf")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	src := filepath.Join(dir, "a.pdf")
	writeFile(t, src, "Y")

	got, renamed, err := newCopier(false).SafeCopy(src, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "a_1.pdf"), got)
	assert.True(t, renamed)
}

func TestSafeCopy_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	writeFile(t, src, "alpha")
	lib := filepath.Join(dir, "lib")

	_, _, err := newCopier(false).SafeCopy(src, filepath.Join(lib, "a.pdf"))
	require.NoError(t, err)

	entries, err := os.ReadDir(lib)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.pdf", entries[0].Name())
}

func TestSafeCopy_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, _, err := newCopier(false).SafeCopy(filepath.Join(dir, "missing"), filepath.Join(dir, "lib", "x"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSafeCopy_DryRun(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "lib", "a.pdf")
	src1 := filepath.Join(dir, "src", "one.pdf")
	src2 := filepath.Join(dir, "src", "two.pdf")
	src3 := filepath.Join(dir, "src", "three.pdf")
	writeFile(t, src1, "Y")
	writeFile(t, src2, "Z")
	writeFile(t, src3, "Y")

	c := newCopier(true)

	p, err := c.Place(src1, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, p.Path)
	assert.False(t, p.Renamed)

	p, err = c.Place(src2, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib", "a_1.pdf"), p.Path)
	assert.True(t, p.Renamed)

	p, err = c.Place(src3, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, p.Path)
	assert.True(t, p.Existing)

	assert.NoDirExists(t, filepath.Join(dir, "lib"))
}

func TestPlaceDigest_RecordsWrittenFileInCache(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.pdf")
	dest := filepath.Join(dir, "lib", "a.pdf")
	writeFile(t, src, "alpha")

	c, err := cache.Open(filepath.Join(t.TempDir(), "digests"))
	require.NoError(t, err)
	defer c.Close()
	h := hasher.New(hasher.Options{Cache: c})

	d, err := h.SumFresh(src)
	require.NoError(t, err)
	p, err := New(h, false).PlaceDigest(src, dest, d)
	require.NoError(t, err)
	assert.Equal(t, int64(len("alpha")), p.Bytes)

	st, err := cache.StatFile(dest)
	require.NoError(t, err)
	cached, err := c.Lookup(dest, st)
	require.NoError(t, err)
	assert.Equal(t, string(d), cached)
}

func TestPlace_DryRunWritesNoBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.pdf")
	writeFile(t, src, "alpha")

	p, err := newCopier(true).Place(src, filepath.Join(dir, "lib", "a.pdf"))
	require.NoError(t, err)
	assert.False(t, p.Existing)
	assert.Zero(t, p.Bytes)
}
