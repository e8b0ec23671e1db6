package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crytic/seedfuzz/config"
	"github.com/crytic/seedfuzz/definition"
	"github.com/crytic/seedfuzz/logging"
	"github.com/crytic/seedfuzz/utils/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vaultSource declares one fuzz and one test definition with explicit seeds, so generation is reproducible.
const vaultSource = `package vault

type Vault struct{ balance uint64 }

func (*Vault) Setup() *Vault { return &Vault{balance: 100} }

//seedfuzz:fuzz(*Vault, runs = 16, seed = 7)
func Deposit(v *Vault, amount uint32 /*seedfuzz:range(1..1000)*/) error {
	v.balance += uint64(amount)
	return nil
}

//seedfuzz:test(*Vault)
func StartsFunded(v *Vault) {}
`

// plainSource is the vault package without any test definitions.
const plainSource = `package vault

type Vault struct{ balance uint64 }
`

// brokenSource declares a definition with an unknown option and one with a parameter of an unsupported type.
const brokenSource = `package broken

//seedfuzz:fuzz(Fixture, repeat = 3)
func Repeated(f Fixture) {}

//seedfuzz:fuzz(Fixture, seed = 3)
func Named(f Fixture, s string) {}
`

// newTestGenerator returns a Generator with the default configuration and a fixed default seed.
func newTestGenerator() *Generator {
	projectConfig := config.GetDefaultProjectConfig()
	seed := uint64(1)
	projectConfig.Generation.DefaultSeed = &seed
	return NewGenerator(projectConfig.Generation)
}

// TestGenerateWritesHarness ensures a package with definitions gets one gofmt-formatted harness file next to its
// source, and that regenerating unchanged definitions leaves the file untouched.
func TestGenerateWritesHarness(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault.go": vaultSource})
	harnessPath := filepath.Join(dir, "vault", "vault_seedfuzz_test.go")
	generator := newTestGenerator()

	results, err := generator.Generate(context.Background(), filepath.Join(dir, "..."))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Tests)
	assert.Equal(t, []string{harnessPath}, results[0].Written)
	assert.Empty(t, results[0].Removed)

	content, err := os.ReadFile(harnessPath)
	require.NoError(t, err)
	generated, err := isGeneratedHarness(harnessPath)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Contains(t, string(content), "func TestDeposit(t *testing.T) {")
	assert.Contains(t, string(content), "func TestStartsFunded(t *testing.T) {")

	// Rendering is deterministic, so a second generation has nothing to write
	info, err := os.Stat(harnessPath)
	require.NoError(t, err)
	results, err = generator.Generate(context.Background(), filepath.Join(dir, "..."))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Written)
	assert.Equal(t, []string{harnessPath}, results[0].Unchanged)
	after, err := os.Stat(harnessPath)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

// TestGenerateRemovesStaleHarnesses ensures a harness whose source no longer declares definitions is removed, while
// files with the harness suffix that were not generated are kept.
func TestGenerateRemovesStaleHarnesses(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault.go": vaultSource})
	pkgDir := filepath.Join(dir, "vault")
	harnessPath := filepath.Join(pkgDir, "vault_seedfuzz_test.go")
	handWritten := filepath.Join(pkgDir, "manual_seedfuzz_test.go")
	generator := newTestGenerator()

	_, err := generator.GenerateDirectory(pkgDir)
	require.NoError(t, err)
	testutils.WriteTestFiles(t, pkgDir, map[string]string{
		"vault.go":                plainSource,
		"manual_seedfuzz_test.go": "package vault\n",
	})

	result, err := generator.GenerateDirectory(pkgDir)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Tests)
	assert.Equal(t, []string{harnessPath}, result.Removed)
	assert.NoFileExists(t, harnessPath)
	assert.FileExists(t, handWritten)
}

// TestGenerateDryRun ensures dry-run mode reports the files it would write and remove without touching them.
func TestGenerateDryRun(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault.go": vaultSource})
	pkgDir := filepath.Join(dir, "vault")
	harnessPath := filepath.Join(pkgDir, "vault_seedfuzz_test.go")
	generator := newTestGenerator()
	generator.SetDryRun(true)

	result, err := generator.GenerateDirectory(pkgDir)
	require.NoError(t, err)
	assert.Equal(t, []string{harnessPath}, result.Written)
	assert.NoFileExists(t, harnessPath)

	// A stale harness is reported but kept
	generator.SetDryRun(false)
	_, err = generator.GenerateDirectory(pkgDir)
	require.NoError(t, err)
	testutils.WriteTestFiles(t, pkgDir, map[string]string{"vault.go": plainSource})
	generator.SetDryRun(true)

	result, err = generator.GenerateDirectory(pkgDir)
	require.NoError(t, err)
	assert.Equal(t, []string{harnessPath}, result.Removed)
	assert.FileExists(t, harnessPath)
}

// TestGenerateDefinitionErrors ensures a package with definition errors is left untouched, every error is reported,
// and other packages are still generated.
func TestGenerateDefinitionErrors(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{
		"vault/vault.go":                       vaultSource,
		"broken/broken.go":                     brokenSource,
		"broken/broken_seedfuzz_test.go":       "// Code generated by seedfuzz. DO NOT EDIT.\n\npackage broken\n",
		"broken/testdata/ignored/ignored.go":   brokenSource,
		"_scratch/scratch.go":                  brokenSource,
		"vendor/example.com/dep/dep.go":        brokenSource,
		".hidden/hidden.go":                    brokenSource,
		"broken/subpackage/nothing_here.txt":   "not go",
		"vault/internal/sealed/sealed.go":      "package sealed\n",
		"vault/internal/sealed/sealed_test.go": "package sealed\n",
	})
	generator := newTestGenerator()

	results, err := generator.Generate(context.Background(), filepath.Join(dir, "..."))
	var defErrs definition.DefinitionErrors
	require.ErrorAs(t, err, &defErrs)
	require.Len(t, defErrs, 2)
	assert.Equal(t, definition.UnknownOption, defErrs[0].Kind)
	assert.Equal(t, definition.UnsupportedType, defErrs[1].Kind)
	for _, defErr := range defErrs {
		assert.Equal(t, filepath.Join(dir, "broken", "broken.go"), defErr.Pos.Filename)
	}

	// The broken package keeps its previous harness, the other packages are generated
	assert.FileExists(t, filepath.Join(dir, "broken", "broken_seedfuzz_test.go"))
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "vault"), results[0].Dir)
	assert.Len(t, results[0].Written, 1)
	assert.Equal(t, filepath.Join(dir, "vault", "internal", "sealed"), results[1].Dir)
	assert.Equal(t, 0, results[1].Tests)

	// Parsing alone reports the same errors
	_, err = generator.ParsePackages(context.Background(), filepath.Join(dir, "..."))
	assert.ErrorAs(t, err, &defErrs)
}

// TestGenerateTestFileOutputName ensures definitions in a _test.go file generate a harness without a doubled "_test"
// and that two sources generating the same harness are rejected.
func TestGenerateTestFileOutputName(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault_test.go": vaultSource})
	pkgDir := filepath.Join(dir, "vault")
	generator := newTestGenerator()

	result, err := generator.GenerateDirectory(pkgDir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(pkgDir, "vault_seedfuzz_test.go")}, result.Written)

	testutils.WriteTestFiles(t, pkgDir, map[string]string{"vault.go": `package vault

//seedfuzz:test
func AlsoHere() {}
`})
	_, err = generator.GenerateDirectory(pkgDir)
	assert.ErrorContains(t, err, "would both generate")
}

// TestGenerateCustomSuffix ensures the configured output suffix names generated files.
func TestGenerateCustomSuffix(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault.go": vaultSource})
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Generation.OutputSuffix = "_harness_test.go"
	projectConfig.Generation.Jobs = 1

	results, err := NewGenerator(projectConfig.Generation).Generate(context.Background(), filepath.Join(dir, "vault"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{filepath.Join(dir, "vault", "vault_harness_test.go")}, results[0].Written)
}

// TestExpandPatterns ensures patterns resolve to sorted, unique package directories, skipping the directories the go
// command ignores.
func TestExpandPatterns(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{
		"a/a.go":               "package a\n",
		"a/b/b.go":             "package b\n",
		"a/testdata/t.go":      "package t\n",
		"a/_skip/s.go":         "package s\n",
		"a/.git/g.go":          "package g\n",
		"a/node_modules/n.go":  "package n\n",
		"a/empty/readme.md":    "",
		"c/c.go":               "package c\n",
		"c/custom/excluded.go": "package custom\n",
	})

	dirs, err := ExpandPatterns([]string{
		filepath.Join(dir, "a", "..."),
		filepath.Join(dir, "a"),
		filepath.Join(dir, "c", "..."),
	}, []string{"node_modules", "custom"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a"),
		filepath.Join(dir, "a", "b"),
		filepath.Join(dir, "c"),
	}, dirs)

	_, err = ExpandPatterns([]string{filepath.Join(dir, "missing")}, nil)
	assert.Error(t, err)
	_, err = ExpandPatterns([]string{filepath.Join(dir, "a", "a.go")}, nil)
	assert.Error(t, err)

	// No pattern selects the working directory
	testutils.ExecuteInDirectory(t, filepath.Join(dir, "c"), func() {
		dirs, err := ExpandPatterns(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"."}, dirs)
	})
}

// TestFindModule ensures the closest go.mod is found from nested directories and import paths are derived from it.
func TestFindModule(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"pkg/inner/inner.go": "package inner\n"})

	module, err := FindModule(filepath.Join(dir, "pkg", "inner"))
	require.NoError(t, err)
	assert.Equal(t, testutils.TestModulePath, module.Path)
	assert.Equal(t, "1.22", module.GoVersion)

	importPath, err := module.ImportPath(filepath.Join(dir, "pkg", "inner"))
	require.NoError(t, err)
	assert.Equal(t, testutils.TestModulePath+"/pkg/inner", importPath)
	importPath, err = module.ImportPath(dir)
	require.NoError(t, err)
	assert.Equal(t, testutils.TestModulePath, importPath)

	ok, err := module.CheckGoVersion()
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestOutdatedModules ensures the go version of every module matched by the patterns is checked once, including
// modules outside the working directory.
func TestOutdatedModules(t *testing.T) {
	current := testutils.WriteTestModule(t, map[string]string{"a/a.go": "package a\n", "b/b.go": "package b\n"})
	old := testutils.WriteTestModule(t, map[string]string{"c/c.go": "package c\n", "d/d.go": "package d\n"})
	testutils.WriteTestFiles(t, old, map[string]string{"go.mod": "module example.com/old\n\ngo 1.21\n"})

	generator := newTestGenerator()
	outdated, err := generator.OutdatedModules(filepath.Join(current, "..."))
	require.NoError(t, err)
	assert.Empty(t, outdated)

	outdated, err = generator.OutdatedModules(filepath.Join(current, "..."), filepath.Join(old, "..."))
	require.NoError(t, err)
	require.Len(t, outdated, 1)
	assert.Equal(t, "example.com/old", outdated[0].Path)
	assert.Equal(t, old, outdated[0].Dir)
}

// TestModuleCheckGoVersion ensures modules declaring a go version older than generated harnesses need are detected.
func TestModuleCheckGoVersion(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"", true},
		{"1.21", false},
		{"1.21.13", false},
		{"1.22", true},
		{"1.22.0", true},
		{"1.23.4", true},
	}
	for _, tc := range tests {
		ok, err := (&Module{Path: "example.com/m", GoVersion: tc.version}).CheckGoVersion()
		require.NoError(t, err, tc.version)
		assert.Equal(t, tc.ok, ok, tc.version)
	}

	_, err := (&Module{GoVersion: "not-a-version"}).CheckGoVersion()
	assert.Error(t, err)
}

// TestWatchRegeneratesOnChange ensures watching generates once at start and again after a source file changes, and
// stops when its context is cancelled.
func TestWatchRegeneratesOnChange(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault.go": plainSource})
	pkgDir := filepath.Join(dir, "vault")
	generator := newTestGenerator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	generated := make(chan []*Result, 8)
	done := make(chan error, 1)
	go func() {
		done <- generator.Watch(ctx, []string{pkgDir}, func(results []*Result, err error) {
			assert.NoError(t, err)
			generated <- results
		})
	}()

	select {
	case results := <-generated:
		require.Len(t, results, 1)
		assert.Empty(t, results[0].Written)
	case <-time.After(10 * time.Second):
		t.Fatal("no initial generation")
	}

	testutils.WriteTestFiles(t, pkgDir, map[string]string{"vault.go": vaultSource})
	select {
	case results := <-generated:
		require.Len(t, results, 1)
		assert.Equal(t, []string{filepath.Join(pkgDir, "vault_seedfuzz_test.go")}, results[0].Written)
	case <-time.After(10 * time.Second):
		t.Fatal("no generation after the source changed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// TestParseDirectoryTracesFiles ensures every parsed file is traced with its number of test definitions.
func TestParseDirectoryTracesFiles(t *testing.T) {
	dir := testutils.WriteTestModule(t, map[string]string{"vault/vault.go": vaultSource})

	var buf bytes.Buffer
	previousLevel := logging.GlobalLogger.Level()
	logging.GlobalLogger.SetLevel(zerolog.TraceLevel)
	logging.GlobalLogger.AddWriter(&buf, logging.STRUCTURED, false)
	defer func() {
		logging.GlobalLogger.RemoveWriter(&buf, logging.STRUCTURED, false)
		logging.GlobalLogger.SetLevel(previousLevel)
	}()

	_, err := newTestGenerator().ParseDirectory(filepath.Join(dir, "vault"))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "trace", entry["level"])
	assert.Equal(t, logging.CODEGEN_SERVICE, entry["module"])
	assert.Equal(t, "Parsed "+filepath.Join(dir, "vault", "vault.go")+": 2 test definitions", entry["message"])
}
