package codegen

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ExpandPatterns resolves package patterns to package directories. A pattern is a directory, or a directory followed
// by "/..." to select it and every directory below it containing Go files. Directories named in excludeDirs, testdata
// and names starting with "." or "_" are skipped while walking, as the go command does. No pattern selects ".".
func ExpandPatterns(patterns []string, excludeDirs []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	excluded := map[string]bool{"testdata": true}
	for _, dir := range excludeDirs {
		excluded[dir] = true
	}

	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		root, recursive := strings.CutSuffix(filepath.ToSlash(pattern), "/...")
		if pattern == "..." {
			root, recursive = ".", true
		}
		root = filepath.FromSlash(root)

		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid package pattern %q", pattern)
		}
		if !info.IsDir() {
			return nil, errors.Errorf("invalid package pattern %q: %s is not a directory", pattern, root)
		}
		if !recursive {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.IsDir() {
				return nil
			}
			name := entry.Name()
			if path != root && (excluded[name] || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			hasGo, err := containsGoFiles(path)
			if err != nil {
				return err
			}
			if hasGo {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// containsGoFiles reports whether dir directly contains a .go file.
func containsGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
			return true, nil
		}
	}
	return false, nil
}
