package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the configuration of seedfuzz for a project.
type ProjectConfig struct {
	// Generation describes the configuration used when generating harness files.
	Generation GenerationConfig `json:"generation" toml:"generation"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging" toml:"logging"`
}

// GenerationConfig describes the configuration options used by the codegen.Generator.
type GenerationConfig struct {
	// DefaultRuns describes the number of iterations of a fuzz directive that does not set `runs`.
	DefaultRuns uint32 `json:"defaultRuns" toml:"defaultRuns"`

	// DefaultSeed describes the base seed of a fuzz directive that does not set `seed`. If nil, the seed is derived
	// from the time of generation and harnesses are not reproducible across regenerations.
	DefaultSeed *uint64 `json:"defaultSeed" toml:"defaultSeed"`

	// OutputSuffix describes the file name suffix of generated harness files. It must end in "_test.go" so the
	// harnesses are only built by `go test`.
	OutputSuffix string `json:"outputSuffix" toml:"outputSuffix"`

	// Jobs describes how many packages are processed concurrently. Zero or a negative value uses one job per CPU.
	Jobs int `json:"jobs" toml:"jobs"`

	// ExcludeDirs describes directory names which are skipped when expanding `./...` patterns.
	ExcludeDirs []string `json:"excludeDirs" toml:"excludeDirs"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level" toml:"level"`

	// NoColor describes whether console output should be printed without ANSI colors.
	NoColor bool `json:"noColor" toml:"noColor"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory" toml:"logDirectory"`
}

// ReadProjectConfigFromFile reads a ProjectConfig from a provided file path. Files with a ".toml" extension are
// decoded as TOML, every other file as JSON. Fields missing from the file keep their default values.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration on top of the defaults
	projectConfig := GetDefaultProjectConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err = toml.Decode(string(b), projectConfig); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
		return projectConfig, nil
	}

	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path, TOML-serialized for a ".toml" extension and
// JSON-serialized otherwise.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	var b []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return errors.WithStack(err)
		}
		b = buf.Bytes()
	} else {
		var err error
		if b, err = json.MarshalIndent(p, "", "\t"); err != nil {
			return errors.WithStack(err)
		}
	}

	// Save it to the provided output path and return the result
	return errors.WithStack(os.WriteFile(path, b, 0644))
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Generated harnesses must only be compiled by `go test`
	if !strings.HasSuffix(p.Generation.OutputSuffix, "_test.go") {
		return errors.Errorf("output suffix %q must end with _test.go", p.Generation.OutputSuffix)
	}
	if strings.ContainsAny(p.Generation.OutputSuffix, `/\`) {
		return errors.Errorf("output suffix %q must not contain a path separator", p.Generation.OutputSuffix)
	}

	// Excluded directories are matched against single path elements
	for _, dir := range p.Generation.ExcludeDirs {
		if dir == "" || strings.ContainsAny(dir, `/\`) {
			return errors.Errorf("excluded directory %q must be a single directory name", dir)
		}
	}

	// Verify the log level is one zerolog knows
	if p.Logging.Level < zerolog.TraceLevel || p.Logging.Level > zerolog.Disabled {
		return errors.Errorf("invalid log level %d", p.Logging.Level)
	}
	return nil
}
