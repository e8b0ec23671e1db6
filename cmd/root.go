package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/crytic/seedfuzz/config"
	"github.com/crytic/seedfuzz/logging"
	"github.com/crytic/seedfuzz/utils"
	"github.com/crytic/seedfuzz/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cmdLogger is the logger used by the cmd package
var cmdLogger = logging.GlobalLogger.NewSubLogger("module", logging.CLI_SERVICE)

// rootCmd represents the root command of the seedfuzz CLI
var rootCmd = &cobra.Command{
	Use:   "seedfuzz",
	Short: "A deterministic fuzz harness generator for Go",
	Long: `seedfuzz generates reproducible, seeded fuzz harnesses from annotated Go functions.

Functions annotated with //seedfuzz:fuzz or //seedfuzz:test directives are turned into
standard "go test" functions that draw their parameters from seeded generators.`,
	Version: version.GetInfo().Short(),
}

func init() {
	// Log to the console until a project configuration says otherwise
	logging.GlobalLogger.SetLevel(zerolog.InfoLevel)
	logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, isTerminal(os.Stdout))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// isTerminal reports whether f is attached to a terminal, in which case console logs are colorized.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// configureLogging applies the logging configuration to the global logger. If a log directory is configured,
// structured logs are also written to a new file in it. The returned function closes that file.
func configureLogging(loggingConfig config.LoggingConfig) (func(), error) {
	logging.GlobalLogger.SetLevel(loggingConfig.Level)

	// Swap the console writer if coloring was disabled
	if loggingConfig.NoColor {
		logging.GlobalLogger.RemoveWriter(os.Stdout, logging.UNSTRUCTURED, true)
		logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, false)
	}

	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}
	filename := fmt.Sprintf("seedfuzz-%d.log", time.Now().Unix())
	file, err := utils.CreateFile(loggingConfig.LogDirectory, filename)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	return func() {
		logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
		closeQuietly(file)
	}, nil
}

// closeQuietly closes c, logging rather than returning any error.
func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		cmdLogger.Warn("Failed to close the log file", err)
	}
}
