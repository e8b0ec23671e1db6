package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crytic/seedfuzz/cmd/exitcodes"
	"github.com/crytic/seedfuzz/config"
	"github.com/crytic/seedfuzz/definition"
	"github.com/crytic/seedfuzz/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addConfigFlag adds the --config flag shared by the commands which read a project configuration.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", fmt.Sprintf("path to config file (default is %s in the working directory, if present)", DefaultProjectConfigFilename))
}

// loadProjectConfig obtains the project configuration for a command and navigates through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (seedfuzz.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If seedfuzz.json can't be found, use the default project configuration.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `seedfuzz.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Debug("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		return config.ReadProjectConfigFromFile(configPath)
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed {
		return nil, existenceError
	}

	// Possibility #3: --config flag was not used and seedfuzz.json was not found, so use the default project config
	cmdLogger.Debug("No configuration file found at ", configPath, ", using the default project configuration")
	return config.GetDefaultProjectConfig(), nil
}

// cmdValidFlagArgs will return the flags of a command which are valid for dynamic completion because they have not
// been used yet.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string

	// Examine all the flags, and add any flags that have not been set in the current command line
	// to a list of unused flags
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// When adding a flag to a command, include the "--" prefix to indicate that it is a flag
			// and not a positional argument.
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})

	// Package patterns are directories, so let the shell complete those alongside the flags
	return unusedFlags, cobra.ShellCompDirectiveFilterDirs
}

// reportDefinitionErrors logs every definition error carried by err on its own line and returns a summary error with
// the provided exit code. Any other error is returned unchanged.
func reportDefinitionErrors(err error, exitCode int) error {
	var defErrs definition.DefinitionErrors
	if !errors.As(err, &defErrs) {
		return err
	}
	for _, defErr := range defErrs {
		cmdLogger.Error(colors.RedBold, colors.CROSS, colors.Reset, " ", colors.Cyan, defErr.Pos, colors.Reset, " ",
			colors.Red, defErr.Kind, colors.Reset, ": ", defErr.Msg)
	}
	return exitcodes.NewErrorWithExitCode(errors.Errorf("found %d definition errors", len(defErrs)), exitCode)
}
