package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/api"
	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command: periodic runs plus the status API.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Run the replay on an interval and expose the status API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			if port == "" {
				port = opts.cfg.Server.Port
			}
			return serve(cmd.Context(), opts, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to $PORT)")
	return cmd
}

// serve runs the scheduler and the HTTP API until a signal arrives or the server fails
func serve(parent context.Context, opts *RootOptions, port string) error {
	logger := opts.logger

	a, err := newApp(opts.cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.tracker.WatchProgress(ctx, a.processor.GetProgress())

	handler := api.NewHandler(ctx, a.scheduler, a.tracker, a.store, logger)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      api.SetupRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("port", port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	a.scheduler.Start(ctx)

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			runErr = apperrors.NewInternalError("server failed", err)
		}
		stop()
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	a.scheduler.Wait()
	logger.WithFields(logrus.Fields{"status": a.tracker.Status().State}).Info("Server exited properly")
	return runErr
}
