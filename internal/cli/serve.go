package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todostore/internal/api"
	"github.com/mesh-intelligence/todostore/internal/logging"
	"github.com/mesh-intelligence/todostore/pkg/store"
)

const metricsNamespace = "todostore"

func newServeCmd(a *app) *cobra.Command {
	var (
		addr            string
		driver          string
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the todo persistence HTTP API",
		Long: `Serve connects to the configured database, creates the todos table if it
is missing, and serves the HTTP API until interrupted. On SIGINT or SIGTERM
in-flight requests are drained before exit.

Example:
  todostore serve
  todostore serve --addr 127.0.0.1:9000 --driver sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a.settings, shutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: "+defaultAddr+")")
	cmd.Flags().StringVar(&driver, "driver", "", "database driver: postgres or sqlite")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed for in-flight requests on shutdown")
	return cmd
}

func runServe(ctx context.Context, s *settings, shutdownTimeout time.Duration) error {
	log, err := logging.New(s.Log)
	if err != nil {
		return sysErr("open log output: %w", err)
	}

	st, err := store.Open(ctx, s.Store)
	if err != nil {
		log.Error().Err(err).Str("driver", s.Store.Driver).Msg("database connection failed")
		return sysErr("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("closing store")
		}
	}()
	log.Info().Str("driver", s.Store.Driver).Msg("store ready")

	srv := api.NewServer(st, logging.Component(log, "api"), api.NewMetrics(s.Metrics, metricsNamespace))
	if err := srv.ListenAndServe(ctx, s.Addr, shutdownTimeout); err != nil {
		return sysErr("serve: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}
