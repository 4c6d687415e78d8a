package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"gateway/internal/app"
	"gateway/internal/config"
	"gateway/internal/logger"
)

func apiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the merchant HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPI(config.Load())
		},
	}
}

func runAPI(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	infra, err := app.NewInfrastructure(startCtx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer infra.Close()

	components := app.NewComponents(cfg, infra)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      components.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx).
			Str("port", cfg.Server.Port).
			Str("idempotency_backend", cfg.Idempotency.Backend).
			Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(ctx).Msg("shutting down API server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info(shutdownCtx).Msg("API server exited")
	return nil
}
