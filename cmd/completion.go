package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completionShells lists the shells completion scripts can be generated for
var completionShells = []string{"bash", "zsh", "fish", "powershell"}

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate shell completion code for the specified shell",
	Long: `To load completions:

Bash:

  $ source <(%[1]s completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ %[1]s completion bash > /etc/bash_completion.d/%[1]s
  # macOS:
  $ %[1]s completion bash > $(brew --prefix)/etc/bash_completion.d/%[1]s

Zsh:

  $ %[1]s completion zsh > "${fpath[1]}/_%[1]s"

Fish:

  $ %[1]s completion fish > ~/.config/fish/completions/%[1]s.fish`,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs:             completionShells,
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var err error
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			err = cmd.Root().GenZshCompletion(out)
		case "fish":
			err = cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		if err != nil {
			return fmt.Errorf("unable to generate a %s completion: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	completionCmd.Long = fmt.Sprintf(completionCmd.Long, rootCmd.Use)
	rootCmd.AddCommand(completionCmd)
}
