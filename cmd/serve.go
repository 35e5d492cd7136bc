package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/api"
	"github.com/JakeFAU/jobsift/internal/app"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run on demand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer syncLogger(logger)
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			apiServer := api.NewServer(ctx, a, logger.Named("api"))
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           apiServer.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("http server started", zap.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			var runErr error
			select {
			case <-ctx.Done():
			case err, ok := <-serveErr:
				if ok {
					runErr = fmt.Errorf("http server: %w", err)
				}
			}
			logger.Info("shutdown initiated")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
			}
			if err := apiServer.Wait(shutdownCtx); err != nil {
				logger.Warn("active run did not finish", zap.Error(err))
			}
			if err := a.Close(shutdownCtx); err != nil {
				logger.Warn("shutdown incomplete", zap.Error(err))
			}
			logger.Info("shutdown complete")
			return runErr
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
