package codegen

import (
	"os"
	"path"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
)

// minimumGoVersion is the oldest go directive a module using generated harnesses may declare. The generators depend on
// math/rand/v2.
const minimumGoVersion = ">= 1.22"

// Module describes the Go module governing a package directory.
type Module struct {
	// Dir is the directory containing go.mod.
	Dir string

	// Path is the module path declared by go.mod.
	Path string

	// GoVersion is the version of the go directive, or empty if go.mod has none.
	GoVersion string
}

// FindModule walks up from dir to the closest go.mod and parses it.
func FindModule(dir string) (*Module, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for current := absDir; ; {
		goModPath := filepath.Join(current, "go.mod")
		data, err := os.ReadFile(goModPath)
		if err == nil {
			file, err := modfile.ParseLax(goModPath, data, nil)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse %s", goModPath)
			}
			if file.Module == nil {
				return nil, errors.Errorf("%s has no module directive", goModPath)
			}
			module := &Module{Dir: current, Path: file.Module.Mod.Path}
			if file.Go != nil {
				module.GoVersion = file.Go.Version
			}
			return module, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.WithStack(err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, errors.Errorf("no go.mod found in %s or any parent directory", absDir)
		}
		current = parent
	}
}

// ImportPath returns the import path of the package in dir, which must be inside the module.
func (m *Module) ImportPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WithStack(err)
	}
	rel, err := filepath.Rel(m.Dir, absDir)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if rel == "." {
		return m.Path, nil
	}
	return path.Join(m.Path, filepath.ToSlash(rel)), nil
}

// CheckGoVersion reports whether the module's go directive satisfies the minimum version required by generated
// harnesses. A module without a go directive is accepted.
func (m *Module) CheckGoVersion() (bool, error) {
	if m.GoVersion == "" {
		return true, nil
	}
	constraint, err := semver.NewConstraint(minimumGoVersion)
	if err != nil {
		return false, errors.WithStack(err)
	}
	version, err := semver.NewVersion(m.GoVersion)
	if err != nil {
		return false, errors.Wrapf(err, "invalid go version %q in %s", m.GoVersion, filepath.Join(m.Dir, "go.mod"))
	}
	return constraint.Check(version), nil
}

// OutdatedModules returns the modules governing the packages matched by patterns whose go directive is older than
// generated harnesses require, logging a warning for each. Every module is checked once, and directories outside any
// module are left to the go command to report.
func (g *Generator) OutdatedModules(patterns ...string) ([]*Module, error) {
	dirs, err := ExpandPatterns(patterns, g.config.ExcludeDirs)
	if err != nil {
		return nil, err
	}

	checked := make(map[string]bool)
	var outdated []*Module
	for _, dir := range dirs {
		module, err := FindModule(dir)
		if err != nil {
			codegenLogger.Debug("Skipping the go version check of ", dir, err)
			continue
		}
		if checked[module.Dir] {
			continue
		}
		checked[module.Dir] = true

		ok, err := module.CheckGoVersion()
		if err != nil {
			return nil, err
		}
		if !ok {
			codegenLogger.Warn("Module ", module.Path, " declares go ", module.GoVersion,
				"; generated harnesses require go 1.22 or newer")
			outdated = append(outdated, module)
		}
	}
	return outdated, nil
}
