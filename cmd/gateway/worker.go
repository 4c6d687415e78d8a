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

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the payment, refund and webhook workers and the retry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(config.Load())
		},
	}
}

func runWorker(cfg *config.Config) error {
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

	mux := http.NewServeMux()
	mux.Handle("/metrics", infra.MetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx).Str("port", cfg.Worker.MetricsPort).Msg("starting worker metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx).Err(err).Msg("metrics server error")
		}
	}()

	done := make(chan struct{})
	go func() {
		components.Runner().Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info(context.WithoutCancel(ctx)).Msg("shutting down workers, waiting for in-flight jobs")

	select {
	case <-done:
	case <-time.After(cfg.Worker.ShutdownDeadline):
		logger.Warn(context.WithoutCancel(ctx)).Dur("deadline", cfg.Worker.ShutdownDeadline).Msg("workers did not stop before deadline")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server forced to shutdown: %w", err)
	}

	return nil
}
