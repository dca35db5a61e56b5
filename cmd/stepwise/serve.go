package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/stepwise/internal/cli"
	httpAdapter "github.com/aretw0/stepwise/pkg/adapters/http"
	"github.com/aretw0/stepwise/pkg/observability"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [flow]",
	Short: "Start the HTTP server",
	Long: `Serves a flow over a JSON API. Flow state lives in the configured store and
completed flows are submitted to the configured sink. Prometheus metrics are
exposed on /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		debug := debugEnabled(cmd)
		logger := serverLogger(cmd)

		def, err := cli.LoadDefinition(flowSource(cmd, args))
		if err != nil {
			return err
		}
		backend, err := cli.OpenBackend(cmd.Context(), backendOptions(cmd), def.Name)
		if err != nil {
			return err
		}
		defer backend.Close()

		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
		engine, err := cli.NewEngine(def, cli.EngineOptions{Logger: logger, Debug: debug, Metrics: metrics})
		if err != nil {
			return err
		}

		manager := session.NewManager(backend.Store,
			session.WithLocker(backend.Locker),
			session.WithLogger(logger),
		)

		router := chi.NewRouter()
		router.Handle("/metrics", promhttp.Handler())
		router.Mount("/", httpAdapter.NewHandler(engine, manager,
			httpAdapter.WithSink(backend.Sink),
			httpAdapter.WithLogger(logger),
		))

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Stepwise Server on %s\n", srv.Addr)
			fmt.Printf("Serving flow: %s\n", def.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Stepwise Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
