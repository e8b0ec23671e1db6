package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/seedfuzz/definition"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultProjectConfig ensures the default configuration is valid and mirrors the parser defaults.
func TestDefaultProjectConfig(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	require.NoError(t, projectConfig.Validate())

	assert.Equal(t, definition.DefaultRuns, projectConfig.Generation.DefaultRuns)
	assert.Nil(t, projectConfig.Generation.DefaultSeed)
	assert.Equal(t, definition.GeneratedFileSuffix, projectConfig.Generation.OutputSuffix)
	assert.Equal(t, zerolog.InfoLevel, projectConfig.Logging.Level)

	opts := projectConfig.Generation.ParseOptions()
	require.NotNil(t, opts.DefaultRuns)
	assert.Equal(t, definition.DefaultRuns, *opts.DefaultRuns)
	assert.Nil(t, opts.DefaultSeed)
}

// TestZeroDefaultRuns ensures a configured zero run count is valid and reaches parsed fuzz tests unchanged.
func TestZeroDefaultRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seedfuzz.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation": {"defaultRuns": 0}}`), 0644))
	projectConfig, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	require.NoError(t, projectConfig.Validate())
	assert.Zero(t, projectConfig.Generation.DefaultRuns)

	src := "package p\n\n//seedfuzz:fuzz(F, seed = 1)\nfunc Body(f F, x uint8) {}\n"
	file, err := definition.ParseSource("p.go", []byte(src), projectConfig.Generation.ParseOptions())
	require.NoError(t, err)
	require.Len(t, file.Specs, 1)
	assert.Zero(t, file.Specs[0].Runs)
}

// TestWriteAndReadProjectConfig ensures a written JSON configuration is read back unchanged.
func TestWriteAndReadProjectConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seedfuzz.json")

	seed := uint64(42)
	projectConfig := GetDefaultProjectConfig()
	projectConfig.Generation.DefaultRuns = 1000
	projectConfig.Generation.DefaultSeed = &seed
	projectConfig.Logging.Level = zerolog.DebugLevel
	require.NoError(t, projectConfig.WriteToFile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"level": "debug"`)

	readConfig, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, projectConfig, readConfig)
}

// TestWriteAndReadTOMLProjectConfig ensures a configuration written to a .toml path is TOML and reads back unchanged.
func TestWriteAndReadTOMLProjectConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seedfuzz.toml")

	seed := uint64(9)
	projectConfig := GetDefaultProjectConfig()
	projectConfig.Generation.DefaultSeed = &seed
	projectConfig.Generation.Jobs = 2
	projectConfig.Logging.NoColor = true
	require.NoError(t, projectConfig.WriteToFile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[generation]")
	assert.Contains(t, string(b), `level = "info"`)

	readConfig, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, projectConfig, readConfig)
}

// TestReadPartialProjectConfig ensures fields missing from a file keep their defaults, for JSON and TOML files.
func TestReadPartialProjectConfig(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "seedfuzz.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"generation": {"defaultSeed": 7}}`), 0644))
	jsonConfig, err := ReadProjectConfigFromFile(jsonPath)
	require.NoError(t, err)
	require.NotNil(t, jsonConfig.Generation.DefaultSeed)
	assert.EqualValues(t, 7, *jsonConfig.Generation.DefaultSeed)
	assert.Equal(t, definition.DefaultRuns, jsonConfig.Generation.DefaultRuns)
	assert.Equal(t, zerolog.InfoLevel, jsonConfig.Logging.Level)

	tomlPath := filepath.Join(dir, "seedfuzz.toml")
	tomlSource := `
[generation]
defaultRuns = 64
excludeDirs = ["fixtures"]

[logging]
level = "warn"
noColor = true
`
	require.NoError(t, os.WriteFile(tomlPath, []byte(tomlSource), 0644))
	tomlConfig, err := ReadProjectConfigFromFile(tomlPath)
	require.NoError(t, err)
	assert.EqualValues(t, 64, tomlConfig.Generation.DefaultRuns)
	assert.Equal(t, []string{"fixtures"}, tomlConfig.Generation.ExcludeDirs)
	assert.Equal(t, definition.GeneratedFileSuffix, tomlConfig.Generation.OutputSuffix)
	assert.Equal(t, zerolog.WarnLevel, tomlConfig.Logging.Level)
	assert.True(t, tomlConfig.Logging.NoColor)
}

// TestReadMalformedProjectConfig ensures decoding failures are reported.
func TestReadMalformedProjectConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seedfuzz.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation": {"defaultRuns": -1}}`), 0644))
	_, err := ReadProjectConfigFromFile(path)
	assert.Error(t, err)

	_, err = ReadProjectConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestValidate ensures invalid generation and logging settings are rejected.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *ProjectConfig)
	}{
		{name: "non-test suffix", modify: func(p *ProjectConfig) { p.Generation.OutputSuffix = "_gen.go" }},
		{name: "suffix with separator", modify: func(p *ProjectConfig) { p.Generation.OutputSuffix = "gen/x_test.go" }},
		{name: "empty exclude", modify: func(p *ProjectConfig) { p.Generation.ExcludeDirs = []string{""} }},
		{name: "nested exclude", modify: func(p *ProjectConfig) { p.Generation.ExcludeDirs = []string{"a/b"} }},
		{name: "log level", modify: func(p *ProjectConfig) { p.Logging.Level = zerolog.Level(42) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			projectConfig := GetDefaultProjectConfig()
			tc.modify(projectConfig)
			assert.Error(t, projectConfig.Validate())
		})
	}
}
