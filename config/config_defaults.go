package config

import (
	"github.com/crytic/seedfuzz/definition"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Generation: GenerationConfig{
			DefaultRuns:  definition.DefaultRuns,
			DefaultSeed:  nil,
			OutputSuffix: definition.GeneratedFileSuffix,
			Jobs:         0,
			ExcludeDirs:  []string{"testdata", "vendor", "node_modules"},
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			NoColor:      false,
			LogDirectory: "",
		},
	}
}

// ParseOptions returns the parser defaults described by the generation configuration. DefaultRuns is always explicit,
// so a configured zero is kept.
func (g *GenerationConfig) ParseOptions() definition.Options {
	runs := g.DefaultRuns
	return definition.Options{
		DefaultRuns: &runs,
		DefaultSeed: g.DefaultSeed,
	}
}
