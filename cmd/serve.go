package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fridaforge/fridaforge/internal/config"
	"github.com/fridaforge/fridaforge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the compile service",
	Long:         `Start the HTTP server that accepts agent sources and returns bundled scripts.`,
	RunE:         runServe,
	SilenceUsage: true,
}

func init() {
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := config.NewLoader().LoadForCommand(cmd)
	if err != nil {
		return err
	}

	f, cache, err := newForge(cfg, logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(f, cfg.CompilerPath, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}
