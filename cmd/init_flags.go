package cmd

import (
	"github.com/crytic/seedfuzz/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Overwrite without prompting
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without asking")

	// Default runs and seed written into the configuration
	initCmd.Flags().Int("runs", 0, "default iterations of fuzz tests written into the configuration")
	initCmd.Flags().Uint64("seed", 0, "default seed of fuzz tests written into the configuration")
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the
// init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// The generation defaults are shared with the generate command
	return updateProjectConfigWithGenerateFlags(cmd, projectConfig)
}
