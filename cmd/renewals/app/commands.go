package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/agentstation/renewals/cmd/renewals/cmd/export"
	"github.com/agentstation/renewals/cmd/renewals/cmd/list"
	"github.com/agentstation/renewals/cmd/renewals/cmd/mark"
	"github.com/agentstation/renewals/cmd/renewals/cmd/serve"
)

func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(list.NewCommand(a))
	rootCmd.AddCommand(list.NewShowCommand(a))
	rootCmd.AddCommand(list.NewServicesCommand(a))
	rootCmd.AddCommand(mark.NewCommand(a))
	rootCmd.AddCommand(export.NewCommand(a))

	rootCmd.AddCommand(serve.NewCommand(a))

	rootCmd.AddCommand(a.newVersionCommand())
	rootCmd.AddCommand(newCompletionCommand())
	rootCmd.AddCommand(a.newManCommand())
}

// newManCommand writes the man page for the whole command tree.
func (a *App) newManCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Generate the man page",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := &doc.GenManHeader{
				Title:   "RENEWALS",
				Section: "1",
				Source:  "renewals " + a.version,
				Manual:  "renewals Manual",
			}
			return doc.GenMan(cmd.Root(), header, cmd.OutOrStdout())
		},
	}
}

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate a shell completion script",
		Long: `Print a completion script for the given shell.

  $ source <(renewals completion bash)
  $ renewals completion zsh > "${fpath[1]}/_renewals"
  $ renewals completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
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
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "renewals version %s\n", a.version)
			fmt.Fprintf(out, "commit: %s\n", a.commit)
			fmt.Fprintf(out, "built: %s\n", a.date)
			fmt.Fprintf(out, "built by: %s\n", a.builtBy)
			fmt.Fprintf(out, "go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
