package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/dynamo/internal/cli"
	"github.com/aretw0/dynamo/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dynamo",
	Short: "Dynamo is a node-graph dataflow engine",
	Long: `Dynamo evaluates visual-programming workspaces: nodes joined by connectors,
with custom nodes defined as reusable subgraphs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		var err error
		if cmd.Flags().Changed("config") {
			cfg, err = config.Load(path)
		} else {
			cfg, err = config.LoadOrDefault(path)
		}
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("definitions") {
			cfg.Definitions.Dir, _ = cmd.Flags().GetString("definitions")
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		debug, _ := cmd.Flags().GetBool("debug")
		logger, err = cli.NewLogger(cfg.Log.Level, debug)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "dynamo.yaml", "Configuration file")
	rootCmd.PersistentFlags().String("definitions", "", "Directory of custom node documents (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every run and node evaluation")
}

func options(cmd *cobra.Command) cli.Options {
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{Config: cfg, Logger: logger, Debug: debug}
}
