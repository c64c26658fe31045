package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for k8postal.

Load completions for the current session:

  bash:       source <(k8postal completion bash)
  zsh:        source <(k8postal completion zsh)
  fish:       k8postal completion fish | source
  powershell: k8postal completion powershell | Out-String | Invoke-Expression

To load them in every session, write the script to your shell's completion
directory, for example:

  k8postal completion bash > /etc/bash_completion.d/k8postal
  k8postal completion zsh > "${fpath[1]}/_k8postal"
  k8postal completion fish > ~/.config/fish/completions/k8postal.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}
