package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/dynamo/internal/cli"
	"github.com/aretw0/dynamo/pkg/adapters/mcp"
	"github.com/aretw0/dynamo/pkg/commands"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [workspace.dyn]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts a workbench as an MCP Server.
This allows AI agents to build and evaluate workspaces through tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		wb, closeStore, err := cli.NewWorkbench(options(cmd))
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		owner, wait := cli.StartOwner(sigCtx, commands.New(wb))
		defer func() {
			sigCtx.Cancel()
			wait()
		}()
		if err := startWorkbench(sigCtx, owner, args); err != nil {
			return err
		}

		srv := mcp.NewServer(owner, mcp.WithLogger(logger))
		switch transport {
		case "stdio":
			// Logs must not corrupt JSON-RPC on Stdout.
			log.SetOutput(os.Stderr)
			logger.Info("starting dynamo MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("starting dynamo MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
