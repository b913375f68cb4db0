package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/dynamo/internal/cli"
	httpAdapter "github.com/aretw0/dynamo/pkg/adapters/http"
	"github.com/aretw0/dynamo/pkg/commands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [workspace.dyn]",
	Short: "Start the HTTP server",
	Long: `Starts a workbench behind a JSON API over HTTP: commands, workspace views,
server-sent graph events and Prometheus metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		opts := options(cmd)
		opts.Metrics = prometheus.DefaultRegisterer
		wb, closeStore, err := cli.NewWorkbench(opts)
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

		srv := &http.Server{
			Addr:    addr,
			Handler: httpAdapter.NewHandler(owner, httpAdapter.WithLogger(logger)),
		}
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting dynamo server", "addr", addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			logger.Info("shutting down", "signal", sigCtx.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete in %v: %w", 5*time.Second, err)
			}
			logger.Info("dynamo server stopped gracefully")
			return nil
		}
	},
}

// startWorkbench loads the custom nodes, opens the optional workspace and
// starts the definition watcher when configured.
func startWorkbench(ctx context.Context, owner *commands.Owner, args []string) error {
	wb := owner.Commands().Workbench()
	err := owner.Do(ctx, func() error {
		if _, err := wb.LoadDefinitions(ctx); err != nil {
			return fmt.Errorf("error loading custom nodes: %w", err)
		}
		if len(args) > 0 {
			if _, err := wb.Open(ctx, args[0]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if cfg.Definitions.Watch {
		go func() {
			if err := wb.WatchDefinitions(ctx, owner.Post); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("definition watcher stopped", "err", err)
			}
		}()
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides config http.addr)")
}
