package main

import (
	"fmt"
	"os"

	"github.com/aretw0/dynamo/internal/cli"
	"github.com/aretw0/dynamo/internal/validator"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Check a workspace or custom node document for consistency",
	Long: `Loads the document against the built-in kinds and the custom nodes of the
definitions directory and reports unknown kinds, broken connectors, cycles
and unconnected inputs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := format.Unmarshal(data)
		if err != nil {
			return err
		}

		wb, closeStore, err := cli.NewWorkbench(options(cmd))
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()
		if _, err := wb.LoadDefinitions(cmd.Context()); err != nil {
			return fmt.Errorf("error loading custom nodes: %w", err)
		}

		report, err := validator.ValidateDocument(doc, wb.Kinds())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "Document is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
