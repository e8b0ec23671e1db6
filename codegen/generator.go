package codegen

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/crytic/seedfuzz/config"
	"github.com/crytic/seedfuzz/definition"
	"github.com/crytic/seedfuzz/logging"
	"github.com/crytic/seedfuzz/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// codegenLogger describes the logger used by the codegen package.
var codegenLogger = logging.GlobalLogger.NewSubLogger("module", logging.CODEGEN_SERVICE)

// generatedHeader is the first line of every harness file. Files with the output suffix that do not start with it are
// never removed.
var generatedHeader = []byte("// Code generated by seedfuzz. DO NOT EDIT.")

// Package describes the parsed test definitions of one package directory.
type Package struct {
	// Dir is the package directory.
	Dir string

	// Files are the source files declaring test definitions, sorted by path.
	Files []*definition.File
}

// Specs returns the test definitions of every file of the package, in file and source order.
func (p *Package) Specs() []*definition.TestSpec {
	var specs []*definition.TestSpec
	for _, file := range p.Files {
		specs = append(specs, file.Specs...)
	}
	return specs
}

// Result describes the outcome of generating the harnesses of one package directory.
type Result struct {
	// Dir is the package directory.
	Dir string

	// Tests is the number of harness tests generated.
	Tests int

	// Written are the harness files created or updated. In dry-run mode, the files that would be written.
	Written []string

	// Unchanged are the harness files whose content was already up to date.
	Unchanged []string

	// Removed are stale harness files removed because their source no longer declares tests. In dry-run mode, the
	// files that would be removed.
	Removed []string
}

// Generator generates harness files for packages annotated with seedfuzz directives.
type Generator struct {
	// config describes the generation configuration.
	config config.GenerationConfig

	// dryRun describes whether files are only rendered and compared, never written or removed.
	dryRun bool
}

// NewGenerator returns a Generator for the provided generation configuration.
func NewGenerator(generationConfig config.GenerationConfig) *Generator {
	return &Generator{config: generationConfig}
}

// SetDryRun sets whether the Generator only reports the changes it would make.
func (g *Generator) SetDryRun(dryRun bool) {
	g.dryRun = dryRun
}

// jobs returns the number of packages processed concurrently.
func (g *Generator) jobs() int {
	if g.config.Jobs <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return g.config.Jobs
}

// outputPath returns the harness file path for a source file. A "_test" suffix of the source name is dropped, so
// definitions in counter_test.go are generated into counter_seedfuzz_test.go.
func (g *Generator) outputPath(sourcePath string) string {
	base := strings.TrimSuffix(utils.GetFileNameWithoutExtension(sourcePath), "_test")
	return filepath.Join(filepath.Dir(sourcePath), base+g.config.OutputSuffix)
}

// ParseDirectory parses the test definitions of one package directory.
func (g *Generator) ParseDirectory(dir string) (*Package, error) {
	files, err := definition.ParseDirectory(dir, g.config.ParseOptions())
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		codegenLogger.Trace("Parsed ", file.Path, ": ", len(file.Specs), " test definitions")
	}
	return &Package{Dir: dir, Files: files}, nil
}

// ParsePackages expands the package patterns and parses every matched package directory concurrently. Definition
// errors of every package are returned together as definition.DefinitionErrors.
func (g *Generator) ParsePackages(ctx context.Context, patterns ...string) ([]*Package, error) {
	dirs, err := ExpandPatterns(patterns, g.config.ExcludeDirs)
	if err != nil {
		return nil, err
	}

	packages := make([]*Package, len(dirs))
	defErrs := make([]definition.DefinitionErrors, len(dirs))
	err = g.forEachDir(ctx, dirs, func(i int, dir string) error {
		pkg, err := g.ParseDirectory(dir)
		if err != nil {
			if !errors.As(err, &defErrs[i]) {
				return err
			}
			return nil
		}
		packages[i] = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := mergeDefinitionErrors(defErrs); err != nil {
		return nil, err
	}
	return packages, nil
}

// GenerateDirectory parses, renders and writes the harness files of one package directory. Any definition error in
// the package prevents every write for it.
func (g *Generator) GenerateDirectory(dir string) (*Result, error) {
	pkg, err := g.ParseDirectory(dir)
	if err != nil {
		return nil, err
	}
	return g.generatePackage(pkg)
}

// Generate expands the package patterns and generates the harness files of every matched package directory
// concurrently. Packages with definition errors are left untouched; their errors are returned together as
// definition.DefinitionErrors after every other package was generated.
func (g *Generator) Generate(ctx context.Context, patterns ...string) ([]*Result, error) {
	dirs, err := ExpandPatterns(patterns, g.config.ExcludeDirs)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(dirs))
	defErrs := make([]definition.DefinitionErrors, len(dirs))
	err = g.forEachDir(ctx, dirs, func(i int, dir string) error {
		result, err := g.GenerateDirectory(dir)
		if err != nil {
			if !errors.As(err, &defErrs[i]) {
				return errors.Wrapf(err, "failed to generate harnesses for %s", dir)
			}
			return nil
		}
		results[i] = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Packages which failed are dropped from the results
	generated := make([]*Result, 0, len(results))
	for _, result := range results {
		if result != nil {
			generated = append(generated, result)
		}
	}
	return generated, mergeDefinitionErrors(defErrs)
}

// forEachDir calls fn for every directory with at most jobs() calls running at once. Each call owns index i.
func (g *Generator) forEachDir(ctx context.Context, dirs []string, fn func(i int, dir string) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, min(g.jobs(), len(dirs))))
	for i, dir := range dirs {
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			return fn(i, dir)
		})
	}
	return eg.Wait()
}

// mergeDefinitionErrors flattens per-package definition errors into one sorted list, or nil if there are none.
func mergeDefinitionErrors(perPackage []definition.DefinitionErrors) error {
	var all definition.DefinitionErrors
	for _, errs := range perPackage {
		all = append(all, errs...)
	}
	return all.Err()
}

// generatePackage renders every harness of a parsed package, then writes changed files and removes stale ones.
func (g *Generator) generatePackage(pkg *Package) (*Result, error) {
	result := &Result{Dir: pkg.Dir}

	// Render everything before touching the file system so a failure leaves the package unchanged
	outputs := map[string][]byte{}
	sources := map[string]string{}
	for _, file := range pkg.Files {
		outPath := g.outputPath(file.Path)
		if other, exists := sources[outPath]; exists {
			return nil, errors.Errorf("%s and %s would both generate %s; move the definitions into one file", other, file.Path, outPath)
		}
		content, err := Render(file)
		if err != nil {
			return nil, err
		}
		outputs[outPath] = content
		sources[outPath] = file.Path
		result.Tests += len(file.Specs)
	}

	outPaths := make([]string, 0, len(outputs))
	for outPath := range outputs {
		outPaths = append(outPaths, outPath)
	}
	sort.Strings(outPaths)

	for _, outPath := range outPaths {
		changed, err := g.writeFile(outPath, outputs[outPath])
		if err != nil {
			return nil, err
		}
		if changed {
			result.Written = append(result.Written, outPath)
			codegenLogger.Debug("Generated ", outPath, " from ", sources[outPath])
		} else {
			result.Unchanged = append(result.Unchanged, outPath)
		}
	}

	stale, err := g.staleFiles(pkg.Dir, outputs)
	if err != nil {
		return nil, err
	}
	for _, stalePath := range stale {
		if !g.dryRun {
			if _, err := utils.RemoveFileIfExists(stalePath); err != nil {
				return nil, err
			}
		}
		result.Removed = append(result.Removed, stalePath)
		codegenLogger.Debug("Removed stale harness ", stalePath)
	}
	return result, nil
}

// writeFile writes content when it differs from the file on disk. In dry-run mode nothing is written.
func (g *Generator) writeFile(outPath string, content []byte) (bool, error) {
	if !g.dryRun {
		return utils.WriteFileIfChanged(outPath, content)
	}
	existing, err := os.ReadFile(outPath)
	if err != nil && !os.IsNotExist(err) {
		return false, errors.WithStack(err)
	}
	return !bytes.Equal(existing, content), nil
}

// staleFiles returns the generated harness files of dir which are not part of the current outputs.
func (g *Generator) staleFiles(dir string, outputs map[string][]byte) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var stale []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), g.config.OutputSuffix) {
			continue
		}
		filePath := filepath.Join(dir, entry.Name())
		if _, current := outputs[filePath]; current {
			continue
		}
		generated, err := isGeneratedHarness(filePath)
		if err != nil {
			return nil, err
		}
		if generated {
			stale = append(stale, filePath)
		}
	}
	return stale, nil
}

// isGeneratedHarness reports whether the file at path starts with the seedfuzz generated header.
func isGeneratedHarness(path string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return bytes.HasPrefix(content, generatedHeader), nil
}
