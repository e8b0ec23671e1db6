package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/crytic/seedfuzz/cmd/exitcodes"
	"github.com/crytic/seedfuzz/codegen"
	"github.com/crytic/seedfuzz/logging/colors"
	"github.com/spf13/cobra"
)

// generateCmd represents the command provider for harness generation
var generateCmd = &cobra.Command{
	Use:   "generate [patterns...]",
	Short: "Generates the harness files of annotated packages",
	Long: `Generates the harness files of annotated packages.

Each pattern is a package directory, or a directory followed by "/..." to include every
package below it. With no pattern, the package in the working directory is generated.`,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunGenerate,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the generate command
	err := addGenerateFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the generate command", err)
	}

	// Add the generate command and its associated flags to the root command
	rootCmd.AddCommand(generateCmd)
}

// cmdRunGenerate executes the CLI generate command
func cmdRunGenerate(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithGenerateFlags(cmd, projectConfig)
	if err != nil {
		return err
	}
	if err = projectConfig.Validate(); err != nil {
		return err
	}

	closeLogs, err := configureLogging(projectConfig.Logging)
	if err != nil {
		return err
	}
	defer closeLogs()

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	generator := codegen.NewGenerator(projectConfig.Generation)
	generator.SetDryRun(dryRun)

	// A module too old for generated harnesses is only a warning
	if _, err = generator.OutdatedModules(args...); err != nil {
		return err
	}

	// Stop watching on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if watch {
		return generator.Watch(ctx, args, func(results []*codegen.Result, err error) {
			reportResults(results, dryRun)
			if err = reportDefinitionErrors(err, exitcodes.ExitCodeGeneralError); err != nil {
				cmdLogger.Error("Failed to generate harnesses", err)
			}
		})
	}

	results, err := generator.Generate(ctx, args...)
	reportResults(results, dryRun)
	if err != nil {
		return reportDefinitionErrors(err, exitcodes.ExitCodeGeneralError)
	}
	return nil
}

// reportResults logs the files written and removed by a generation, followed by a summary.
func reportResults(results []*codegen.Result, dryRun bool) {
	writeVerb, removeVerb := "Generated ", "Removed stale harness "
	if dryRun {
		writeVerb, removeVerb = "Would generate ", "Would remove stale harness "
	}

	var tests, written, unchanged, removed int
	for _, result := range results {
		for _, path := range result.Written {
			cmdLogger.Info(writeVerb, colors.Bold, path, colors.Reset)
		}
		for _, path := range result.Removed {
			cmdLogger.Info(removeVerb, colors.Bold, path, colors.Reset)
		}
		tests += result.Tests
		written += len(result.Written)
		unchanged += len(result.Unchanged)
		removed += len(result.Removed)
	}
	cmdLogger.Info(tests, " harness tests in ", len(results), " packages: ",
		written, " written, ", unchanged, " unchanged, ", removed, " removed")
}
