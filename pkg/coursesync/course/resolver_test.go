package course

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
)

func newTestResolver(t *testing.T, opts Options, existing ...string) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	for _, name := range existing {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	}
	r, err := NewResolver(root, opts)
	require.NoError(t, err)
	return r, root
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "大物", Normalize("大物 "))
	assert.Equal(t, "大物", Normalize(" 大\t物"))
	assert.Equal(t, "plc", Normalize("PLC"))
	assert.Equal(t, "dawu", Normalize("DaWu"))
	assert.Equal(t, "", Normalize("  "))
}

func TestResolve_Alias(t *testing.T) {
	r, root := newTestResolver(t, Options{})

	res, err := r.Resolve([]string{"线代"})
	require.NoError(t, err)

	assert.Equal(t, "线性代数", res.Name)
	assert.Equal(t, filepath.Join(root, "线性代数"), res.Dir)
	assert.Equal(t, MatchAlias, res.Match)
	assert.Empty(t, res.Category)
	assert.DirExists(t, res.Dir)
}

func TestResolve_AliasOverride(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	res, err := r.Resolve([]string{"电机"})
	require.NoError(t, err)
	assert.Equal(t, "电机实验", res.Name)
	assert.Equal(t, category.Lab, res.Category)
}

func TestResolve_FirstAliasWins(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	res, err := r.Resolve([]string{"电机", "大物实验"})
	require.NoError(t, err)
	assert.Equal(t, "电机实验", res.Name)

	res, err = r.Resolve([]string{"大物实验", "电机"})
	require.NoError(t, err)
	assert.Equal(t, "大学物理", res.Name)
}

func TestResolve_AliasBeatsEarlierExistingDirectory(t *testing.T) {
	r, _ := newTestResolver(t, Options{}, "信号与系统")

	res, err := r.Resolve([]string{"信号与系统", "线代"})
	require.NoError(t, err)
	assert.Equal(t, "线性代数", res.Name)
	assert.Equal(t, MatchAlias, res.Match)
}

func TestResolve_Normalization(t *testing.T) {
	r, root := newTestResolver(t, Options{})

	a, err := r.Resolve([]string{"大物 "})
	require.NoError(t, err)
	b, err := r.Resolve([]string{"大物"})
	require.NoError(t, err)
	c, err := r.Resolve([]string{"plc"})
	require.NoError(t, err)

	assert.Equal(t, a.Dir, b.Dir)
	assert.Equal(t, filepath.Join(root, "PLC"), c.Dir)
}

func TestResolve_ExistingDirectory(t *testing.T) {
	r, root := newTestResolver(t, Options{}, "Signals And Systems")

	res, err := r.Resolve([]string{"unknown", "signalsandsystems"})
	require.NoError(t, err)

	assert.Equal(t, MatchExisting, res.Match)
	assert.Equal(t, "Signals And Systems", res.Name)
	assert.Equal(t, filepath.Join(root, "Signals And Systems"), res.Dir)
	assert.Empty(t, res.Category)
}

func TestResolve_FallbackCreatesDirectory(t *testing.T) {
	r, root := newTestResolver(t, Options{})

	res, err := r.Resolve([]string{"", " 信号与系统 ", "other"})
	require.NoError(t, err)
	assert.Equal(t, MatchFallback, res.Match)
	assert.Equal(t, "信号与系统", res.Name)
	assert.DirExists(t, filepath.Join(root, "信号与系统"))

	// A later lookup in the same run sees the new directory.
	again, err := r.Resolve([]string{"信号与系统"})
	require.NoError(t, err)
	assert.Equal(t, MatchExisting, again.Match)
	assert.Equal(t, res.Dir, again.Dir)
}

func TestResolve_NoTokens(t *testing.T) {
	r, root := newTestResolver(t, Options{})

	res, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, Uncategorized, res.Name)
	assert.Equal(t, filepath.Join(root, Uncategorized), res.Dir)
	assert.DirExists(t, res.Dir)
}

func TestResolve_PathTokenFallsBackToUncategorized(t *testing.T) {
	r, root := newTestResolver(t, Options{})

	res, err := r.Resolve([]string{".."})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, Uncategorized), res.Dir)
}

func TestResolve_DryRunDoesNotCreate(t *testing.T) {
	r, root := newTestResolver(t, Options{DryRun: true})

	res, err := r.Resolve([]string{"线代"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "线性代数"), res.Dir)
	assert.NoDirExists(t, res.Dir)
	assert.Equal(t, 1, r.Courses())
}

func TestEnsure_Idempotent(t *testing.T) {
	r, root := newTestResolver(t, Options{}, "线性代数")

	dir, err := r.Ensure(" 线性代数")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "线性代数"), dir)
	assert.Equal(t, 1, r.Courses())
}

func TestNewResolver_MissingRoot(t *testing.T) {
	_, err := NewResolver(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewResolver_IgnoresFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "线性代数"), []byte("x"), 0o644))

	r, err := NewResolver(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Courses())
}

func TestAliasTable_Extra(t *testing.T) {
	table, err := NewAliasTable(map[string]Alias{
		"信号": {Course: "信号与系统"},
		"线代": {Course: "高等代数", Category: category.Bank},
	})
	require.NoError(t, err)

	got, ok := table.Lookup(" 信号 ")
	require.True(t, ok)
	assert.Equal(t, "信号与系统", got.Course)

	got, ok = table.Lookup("线代")
	require.True(t, ok)
	assert.Equal(t, "高等代数", got.Course)
	assert.Equal(t, category.Bank, got.Category)

	_, ok = table.Lookup("不存在")
	assert.False(t, ok)
}

func TestAliasTable_InvalidExtra(t *testing.T) {
	_, err := NewAliasTable(map[string]Alias{"x": {Course: "X", Category: "视频"}})
	assert.ErrorIs(t, err, category.ErrUnknownCategory)

	_, err = NewAliasTable(map[string]Alias{"x": {Course: " "}})
	assert.Error(t, err)

	_, err = NewAliasTable(map[string]Alias{" ": {Course: "X"}})
	assert.Error(t, err)
}
