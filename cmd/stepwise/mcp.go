package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/pkg/adapters/mcp"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [flow]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Serves a flow as an MCP Server, so AI agents can walk a person through a
check-in with tools (start_flow, answer, toggle, navigate, ...).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger := serverLogger(cmd)

		def, err := cli.LoadDefinition(flowSource(cmd, args))
		if err != nil {
			return err
		}

		opts := backendOptions(cmd)
		if transport == "stdio" && (opts.Sink == "" || opts.Sink == cli.SinkStdout) {
			// stdout carries the protocol.
			opts.Output = os.Stderr
		}
		backend, err := cli.OpenBackend(cmd.Context(), opts, def.Name)
		if err != nil {
			return err
		}
		defer backend.Close()

		engine, err := cli.NewEngine(def, cli.EngineOptions{Logger: logger, Debug: debugEnabled(cmd)})
		if err != nil {
			return err
		}

		manager := session.NewManager(backend.Store, session.WithLocker(backend.Locker), session.WithLogger(logger))
		srv := mcp.NewServer(engine, manager, mcp.WithSink(backend.Sink), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting Stepwise MCP Server (Stdio)...", "flow", def.Name)
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			return nil
		case "sse":
			logger.Info("Starting Stepwise MCP Server (SSE)", "flow", def.Name, "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP Server execution failed: %w", err)
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
