package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crytic/seedfuzz/config"
	"github.com/crytic/seedfuzz/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes a project configuration",
	Long: `Initializes a project configuration with the default generation and logging settings.

The configuration is written as TOML when the output path ends in .toml, and as JSON otherwise.`,
	Args:              cobra.NoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addInitFlags()
	rootCmd.AddCommand(initCmd)
}

// cmdRunInit executes the init CLI command and updates the project configuration with any flags
func cmdRunInit(cmd *cobra.Command, args []string) error {
	outputPath, err := initOutputPath(cmd)
	if err != nil {
		return err
	}

	projectConfig := config.GetDefaultProjectConfig()
	if err = updateProjectConfigWithInitFlags(cmd, projectConfig); err != nil {
		return err
	}
	if err = projectConfig.Validate(); err != nil {
		return err
	}

	ok, err := confirmOverwrite(cmd, outputPath)
	if err != nil || !ok {
		return err
	}
	if err = projectConfig.WriteToFile(outputPath); err != nil {
		return err
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}

// initOutputPath returns the absolute path of the configuration to write, defaulting to the default project
// configuration file in the working directory.
func initOutputPath(cmd *cobra.Command) (string, error) {
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		outputPath = DefaultProjectConfigFilename
	}
	absolutePath, err := filepath.Abs(outputPath)
	return absolutePath, errors.WithStack(err)
}

// confirmOverwrite reports whether the configuration may be written to path. An existing file is only replaced with
// --force or after the user confirms on the command's input.
func confirmOverwrite(cmd *cobra.Command, path string) (bool, error) {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return false, err
	}
	if _, err = os.Stat(path); force || err != nil {
		return true, nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s already exists. Overwrite? (y/n): ", path)
	response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && response == "" {
		return false, errors.WithStack(err)
	}
	if answer := strings.TrimSpace(response); !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(cmd.OutOrStdout(), "Operation canceled.")
		return false, nil
	}
	return true, nil
}
