package main

import (
	"os"

	"github.com/aretw0/dynamo/internal/cli"
	"github.com/aretw0/dynamo/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <workspace.dyn>",
	Short: "Evaluate a workspace",
	Long: `Opens a workspace, loads the custom nodes of the definitions directory and
evaluates every node once. With --watch the workspace is evaluated again on
every change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")
		quiet, _ := cmd.Flags().GetBool("quiet")

		opts := cli.RunOptions{
			Options: options(cmd),
			Path:    args[0],
			JSON:    jsonMode,
		}
		if !jsonMode {
			opts.Renderer = tui.NewRenderer(os.Stdout)
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		if watchMode {
			if !quiet && !jsonMode {
				tui.PrintBanner(cmd.OutOrStdout())
			}
			return cli.Watch(sigCtx, cmd.OutOrStdout(), opts)
		}
		return cli.Run(sigCtx, cmd.OutOrStdout(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Print the outcome as JSON")
	runCmd.Flags().BoolP("watch", "w", false, "Evaluate again whenever the workspace changes")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner in watch mode")
}
