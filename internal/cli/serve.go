package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the histories HTTP API",
		Long: `Open the configured store and serve the histories API until interrupted.

Routes:
  GET    /api/histories       ten most recent records
  POST   /api/histories       insert a record
  DELETE /api/histories       delete by {"_id": "..."}
  DELETE /api/histories/{id}  delete by path
  GET    /health              store reachability
  GET    /metrics             Prometheus metrics

Example:
  histories serve --addr :3000 --db ./histories.db
  HISTORIES_BACKEND=mongo HISTORIES_MONGO_URI=mongodb://localhost:27017 histories serve`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default \":3000\")")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	logger := opts.Logger
	cfg := opts.Config

	// Use the command's context if available (for testing)
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return opts.withBackend(ctx, func(b history.Backend) error {
		srv := server.New(b, logger, server.Config{
			Addr:            cfg.HTTP.Addr,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
			BodyLimit:       cfg.HTTP.BodyLimit,
		})

		logger.Info("server starting", "addr", cfg.HTTP.Addr, "backend", describeBackend(cfg))
		fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s. Press Ctrl-C to stop.\n", cfg.HTTP.Addr)

		if err := srv.Run(ctx); err != nil {
			return WrapExitError(ExitFailure, "server error", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	})
}
