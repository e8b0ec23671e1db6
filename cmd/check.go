package cmd

import (
	"context"

	"github.com/crytic/seedfuzz/cmd/exitcodes"
	"github.com/crytic/seedfuzz/codegen"
	"github.com/crytic/seedfuzz/logging/colors"
	"github.com/spf13/cobra"
)

// checkCmd represents the command provider for validating test definitions without generating harnesses
var checkCmd = &cobra.Command{
	Use:   "check [patterns...]",
	Short: "Validates the test definitions of annotated packages",
	Long: `Validates the test definitions of annotated packages without writing any file.

Every definition error of every matched package is reported. The command exits with code 8
if any definition is malformed.`,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunCheck,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addConfigFlag(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

// cmdRunCheck executes the CLI check command
func cmdRunCheck(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
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

	generator := codegen.NewGenerator(projectConfig.Generation)
	packages, err := generator.ParsePackages(context.Background(), args...)
	if err != nil {
		return reportDefinitionErrors(err, exitcodes.ExitCodeDefinitionError)
	}

	tests := 0
	for _, pkg := range packages {
		tests += len(pkg.Specs())
	}
	cmdLogger.Info(colors.GreenBold, "OK", colors.Reset, " ", tests, " test definitions in ", len(packages), " packages")
	return nil
}
