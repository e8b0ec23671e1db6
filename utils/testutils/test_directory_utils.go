package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/seedfuzz/utils"
	"github.com/stretchr/testify/require"
)

// TestModulePath is the module path of the modules created by WriteTestModule.
const TestModulePath = "example.com/seedfuzztest"

// CopyToTestDirectory copies files or directories from the provided filePath (relative to the working directory) to an
// ephemeral directory used for unit tests.
func CopyToTestDirectory(t *testing.T, filePath string) string {
	// Construct our file path relative to our working directory
	cwd, err := os.Getwd()
	require.NoError(t, err)
	sourcePath := filepath.Join(cwd, filePath)

	// Verify the file path exists
	sourcePathInfo, err := os.Stat(sourcePath)
	require.NoError(t, err)

	// Obtain an isolated test directory path.
	targetDirectory := filepath.Join(t.TempDir(), "seedfuzzTest")
	targetPath := filepath.Join(targetDirectory, sourcePathInfo.Name())
	// Copy our source to the target destination
	if sourcePathInfo.IsDir() {
		err = utils.CopyDirectory(sourcePath, targetPath, true)
	} else {
		err = utils.CopyFile(sourcePath, targetPath)
	}
	require.NoError(t, err)

	// Get a normalized absolute path
	targetPath, err = filepath.Abs(targetPath)
	require.NoError(t, err)
	return targetPath
}

// WriteTestModule creates an ephemeral Go module declaring go 1.22 with the provided files, keyed by slash-separated
// paths relative to the module root. Returns the absolute module directory.
func WriteTestModule(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	WriteTestFiles(t, dir, map[string]string{"go.mod": "module " + TestModulePath + "\n\ngo 1.22\n"})
	WriteTestFiles(t, dir, files)
	return dir
}

// WriteTestFiles writes the provided files, keyed by slash-separated paths relative to dir, creating directories as
// needed.
func WriteTestFiles(t *testing.T, dir string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, utils.MakeDirectory(filepath.Dir(path)))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// ExecuteInDirectory executes the given method in a given test directory. It changes the current working directory
// to the directory specified, runs the provided method, then restores the working directory. This wraps tests so
// any file artifacts generated do not end up in the codebase directories.
func ExecuteInDirectory(t *testing.T, testPath string, method func()) {
	// Backup our old working directory
	cwd, err := os.Getwd()
	require.NoError(t, err)

	// Check if the test path refers to a file or directory, as we'll want to change our working directory to a
	// directory path.
	testPathInfo, err := os.Stat(testPath)
	require.NoError(t, err)

	// Ensure we obtained a directory from our path
	testDirectory := testPath
	if !testPathInfo.IsDir() {
		testDirectory = filepath.Dir(testPath)
	}

	// Change our working directory to the test directory, restoring it even if method fails the test
	require.NoError(t, os.Chdir(testDirectory))
	defer func() {
		require.NoError(t, os.Chdir(cwd))
	}()

	// Execute the given method
	method()
}
