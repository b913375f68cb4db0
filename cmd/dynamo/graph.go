package main

import (
	"fmt"

	"github.com/aretw0/dynamo/internal/cli"
	"github.com/aretw0/dynamo/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <document>",
	Short: "Export the workspace as a Mermaid diagram",
	Long: `Opens the document and prints a Mermaid flowchart (graph LR) of its nodes and
connectors. With --run the workspace is evaluated first and the diagram shows
values and the nodes that were evaluated, blocked or failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withRun, _ := cmd.Flags().GetBool("run")
		ctx := cmd.Context()

		wb, closeStore, err := cli.NewWorkbench(options(cmd))
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()
		if _, err := wb.LoadDefinitions(ctx); err != nil {
			return fmt.Errorf("error loading custom nodes: %w", err)
		}
		if _, err := wb.Open(ctx, args[0]); err != nil {
			return err
		}

		var overlay *graph.Overlay
		if withRun {
			res, err := wb.RunExpression(ctx, false)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFrom(res)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(wb.CurrentSpace(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("run", false, "Evaluate the workspace and overlay the outcome")
}
