package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for nodebundle.

To load completions:

Bash:
  $ source <(nodebundle completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ nodebundle completion bash > /etc/bash_completion.d/nodebundle
  # macOS:
  $ nodebundle completion bash > $(brew --prefix)/etc/bash_completion.d/nodebundle

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ nodebundle completion zsh > "${fpath[1]}/_nodebundle"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ nodebundle completion fish | source

  # To load completions for each session, execute once:
  $ nodebundle completion fish > ~/.config/fish/completions/nodebundle.fish

PowerShell:
  PS> nodebundle completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> nodebundle completion powershell > nodebundle.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}
	return cmd
}
