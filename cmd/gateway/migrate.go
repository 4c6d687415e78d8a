package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gateway/internal/app"
	"gateway/internal/config"
	"gateway/internal/logger"
	"gateway/internal/repository/postgres"
)

var (
	migrateSeed       bool
	migrateWebhookURL string
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the gateway schema",
		Long: `Create the gateway schema in PostgreSQL.

The migration is idempotent. With --seed, the well-known test merchant
(api key key_test_abc123) is inserted if absent.

Examples:
  gateway migrate
  gateway migrate --seed --webhook-url http://host.docker.internal:4000/webhook`,
		RunE: runMigrate,
	}

	cmd.Flags().BoolVar(&migrateSeed, "seed", false, "insert the test merchant")
	cmd.Flags().StringVar(&migrateWebhookURL, "webhook-url", "", "webhook URL of the test merchant")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	db, err := app.NewDatabase(ctx, cfg.Database, cfg.Worker, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info(ctx).Str("database", cfg.Database.DBName).Msg("schema up to date")

	if migrateSeed {
		if err := postgres.SeedTestMerchant(ctx, db, migrateWebhookURL); err != nil {
			return err
		}
		logger.Info(ctx).Str("merchant_id", postgres.TestMerchantID).Msg("test merchant seeded")
	}

	return nil
}
