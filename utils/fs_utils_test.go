package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteFileIfChanged verifies files are only rewritten when their content differs.
func TestWriteFileIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.go")

	written, err := WriteFileIfChanged(path, []byte("package a\n"))
	require.NoError(t, err)
	assert.True(t, written)

	written, err = WriteFileIfChanged(path, []byte("package a\n"))
	require.NoError(t, err)
	assert.False(t, written)

	written, err = WriteFileIfChanged(path, []byte("package b\n"))
	require.NoError(t, err)
	assert.True(t, written)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package b\n", string(content))
}

// TestRemoveFileIfExists verifies missing files are not treated as an error.
func TestRemoveFileIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	removed, err := RemoveFileIfExists(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = RemoveFileIfExists(path)
	require.NoError(t, err)
	assert.False(t, removed)
}

// TestCopyDirectory verifies nested directories are copied when requested and skipped otherwise.
func TestCopyDirectory(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, MakeDirectory(filepath.Join(source, "nested")))
	require.NoError(t, os.WriteFile(filepath.Join(source, "top.go"), []byte("top"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "nested", "inner.go"), []byte("inner"), 0644))

	shallow := filepath.Join(t.TempDir(), "shallow")
	require.NoError(t, CopyDirectory(source, shallow, false))
	assert.FileExists(t, filepath.Join(shallow, "top.go"))
	assert.NoFileExists(t, filepath.Join(shallow, "nested", "inner.go"))

	deep := filepath.Join(t.TempDir(), "deep")
	require.NoError(t, CopyDirectory(source, deep, true))
	content, err := os.ReadFile(filepath.Join(deep, "nested", "inner.go"))
	require.NoError(t, err)
	assert.Equal(t, "inner", string(content))
}

// TestGetFileNameWithoutExtension verifies directory and extension are stripped.
func TestGetFileNameWithoutExtension(t *testing.T) {
	assert.Equal(t, "counter_test", GetFileNameWithoutExtension(filepath.Join("examples", "counter", "counter_test.go")))
	assert.Equal(t, "Makefile", GetFileNameWithoutExtension("Makefile"))
}

// TestCreateFile verifies the directory is created on demand and refused when a file occupies it.
func TestCreateFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")
	file, err := CreateFile(dir, "run.log")
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.FileExists(t, filepath.Join(dir, "run.log"))

	_, err = CreateFile(filepath.Join(dir, "run.log"), "other.log")
	assert.Error(t, err)
}
