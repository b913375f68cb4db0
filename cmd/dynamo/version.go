package main

import (
	"fmt"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dynamo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dynamo version %s (file format %s)\n", dynamo.Version, format.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
