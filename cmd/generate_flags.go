package cmd

import (
	"fmt"

	"fortio.org/safecast"
	"github.com/crytic/seedfuzz/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// addGenerateFlags adds the various flags for the generate command
func addGenerateFlags() error {
	// Get the default project config
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	generateCmd.Flags().SortFlags = false

	// Config file
	addConfigFlag(generateCmd)

	// Default runs
	generateCmd.Flags().Int("runs", 0,
		fmt.Sprintf("iterations of fuzz tests without a runs option (unless a config file is provided, default is %d)", defaultConfig.Generation.DefaultRuns))

	// Default seed
	generateCmd.Flags().Uint64("seed", 0,
		"seed of fuzz tests without a seed option (unless a config file is provided, default is the generation time in unix seconds)")

	// Output suffix
	generateCmd.Flags().String("suffix", "",
		fmt.Sprintf("file name suffix of generated harness files (unless a config file is provided, default is %q)", defaultConfig.Generation.OutputSuffix))

	// Jobs
	generateCmd.Flags().Int("jobs", 0,
		"number of packages processed concurrently (unless a config file is provided, default is the number of CPUs)")

	// Watch mode
	generateCmd.Flags().Bool("watch", false, "regenerate harnesses whenever a package source file changes, until interrupted")

	// Dry run
	generateCmd.Flags().Bool("dry-run", false, "report the harness files that would be written or removed without changing them")
	return nil
}

// updateProjectConfigWithGenerateFlags will update the given projectConfig with any CLI arguments that were provided to
// the generate command
func updateProjectConfigWithGenerateFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// If --runs was used
	if cmd.Flags().Changed("runs") {
		runs, err := cmd.Flags().GetInt("runs")
		if err != nil {
			return err
		}
		projectConfig.Generation.DefaultRuns, err = safecast.Conv[uint32](runs)
		if err != nil {
			return errors.Errorf("invalid --runs value %d: must be between 0 and 4294967295", runs)
		}
	}

	// If --seed was used
	if cmd.Flags().Changed("seed") {
		seed, err := cmd.Flags().GetUint64("seed")
		if err != nil {
			return err
		}
		projectConfig.Generation.DefaultSeed = &seed
	}

	// If --suffix was used
	if cmd.Flags().Changed("suffix") {
		suffix, err := cmd.Flags().GetString("suffix")
		if err != nil {
			return err
		}
		projectConfig.Generation.OutputSuffix = suffix
	}

	// If --jobs was used
	if cmd.Flags().Changed("jobs") {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return err
		}
		projectConfig.Generation.Jobs = jobs
	}
	return nil
}
