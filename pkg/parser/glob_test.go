package parser

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	}
}

func TestExpandGlobs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "auth.log")
	file := filepath.Join(dir, "auth.log")

	result, err := ExpandGlobs([]string{file})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, result)
}

func TestExpandGlobs_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "auth.log", "auth.log.1", "secure.log", "notes.txt")

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.log")})
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestExpandGlobs_NoMatch(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	require.NoError(t, err)
	// Returned as-is so the open error names it
	assert.Equal(t, []string{pattern}, result)
}

func TestExpandGlobs_Deduplication(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "auth.log")
	file := filepath.Join(dir, "auth.log")

	result, err := ExpandGlobs([]string{file, file, filepath.Join(dir, "*.log")})
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	assert.Error(t, err)
}

func TestExpandGlobs_Stdin(t *testing.T) {
	result, err := ExpandGlobs([]string{StdinPath, StdinPath})
	require.NoError(t, err)
	assert.Equal(t, []string{StdinPath}, result)
}

func TestExpandGlobs_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.log", "a.log", "sub/b.log")

	result, err := ExpandGlobs([]string{
		filepath.Join(dir, "*.log"),
		filepath.Join(dir, "sub", "*.log"),
	})
	require.NoError(t, err)
	assert.Len(t, result, 3)
	assert.True(t, sort.StringsAreSorted(result), "result not sorted: %v", result)
}

func TestExpandGlobs_EmptyInput(t *testing.T) {
	result, err := ExpandGlobs([]string{})
	require.NoError(t, err)
	assert.Empty(t, result)
}
