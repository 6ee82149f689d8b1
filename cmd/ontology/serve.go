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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ontology/internal/version"
	chiTransport "github.com/kailas-cloud/ontology/internal/transport/chi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build prototypes and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), resolveEnv())
	},
}

func serve(ctx context.Context, env string) error {
	a, err := newApplication(ctx, env)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("Starting ontology API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.String("default_policy", string(a.attribution.DefaultPolicy())),
	)

	server := chiTransport.NewServer(a.attribution, a.vocab, a.prototypes, a.health(), logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        a.cfg.Auth.APIKeys,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
	}, logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
