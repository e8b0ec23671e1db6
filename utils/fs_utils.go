package utils

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// CreateFile creates (or truncates) fileName inside dir, creating dir first if needed. An empty dir creates the file
// in the working directory.
func CreateFile(dir string, fileName string) (*os.File, error) {
	if dir != "" {
		if err := MakeDirectory(dir); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(filepath.Join(dir, fileName))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// WriteFileIfChanged writes content to a file only if it differs from the existing content, so that unchanged
// harnesses keep their modification time and do not invalidate the `go test` cache.
// Returns true if the file was written, false if it was unchanged.
func WriteFileIfChanged(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// RemoveFileIfExists removes the file at the given path. Returns true if a file was removed, false if none existed.
func RemoveFileIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.WithStack(err)
}

// MakeDirectory creates a directory and any missing parents. It fails if a file already occupies the path.
func MakeDirectory(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.WithStack(os.MkdirAll(dir, 0755))
	case err != nil:
		return errors.WithStack(err)
	case !info.IsDir():
		return errors.Errorf("there is a file with the same name as %s", dir)
	}
	return nil
}

// CopyFile copies the regular file at sourcePath to targetPath, creating the target directory and keeping the source
// permissions.
func CopyFile(sourcePath string, targetPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return errors.WithStack(err)
	}
	if info.IsDir() {
		return errors.Errorf("cannot copy %s to %s: source is a directory", sourcePath, targetPath)
	}
	if err = MakeDirectory(filepath.Dir(targetPath)); err != nil {
		return err
	}

	target, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err = io.Copy(target, source); err != nil {
		target.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(target.Close())
}

// CopyDirectory copies the files of sourcePath into targetPath. Subdirectories are only copied when recursively is set.
func CopyDirectory(sourcePath string, targetPath string, recursively bool) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !info.IsDir() {
		return errors.Errorf("cannot copy %s to %s: source is not a directory", sourcePath, targetPath)
	}

	return filepath.WalkDir(sourcePath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		rel, err := filepath.Rel(sourcePath, path)
		if err != nil {
			return errors.WithStack(err)
		}
		target := filepath.Join(targetPath, rel)

		if !entry.IsDir() {
			return CopyFile(path, target)
		}
		if path != sourcePath && !recursively {
			return filepath.SkipDir
		}
		return MakeDirectory(target)
	})
}

// GetFileNameWithoutExtension returns the base name of filePath without its extension.
func GetFileNameWithoutExtension(filePath string) string {
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}
