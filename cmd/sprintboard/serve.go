package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sprintboard/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and board frontend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			logger.Info("sprintboard starting", slog.String("version", Version), slog.String("driver", cfg.Database.Driver))

			repo, closeStore, err := openStore(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					logger.Error("close store", slog.String("error", err.Error()))
				}
			}()

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(server.NewServices(repo, nil, logger), logger, cfg.HTTP.StaticDir)

			httpServer := &http.Server{
				Addr:    cfg.HTTP.Addr,
				Handler: srv.Engine(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", slog.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errCh:
				logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			}

			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides http.addr)")
	return cmd
}
