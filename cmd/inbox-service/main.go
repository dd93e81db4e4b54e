package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "inboxhook/cmd/inbox-service/docs"
	"inboxhook/internal/config"
	"inboxhook/internal/logger"
	"inboxhook/pkg/logging"
)

const serviceName = "inbox-service"

var (
	configFile string
)

// @title           Inbox Service API
// @version         1.0
// @description     Receives Facebook and Instagram webhooks, stores the messages and exposes them to the inbox UI.

// @host      localhost:8080
// @BasePath  /

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Inbox webhook service",
		Long:  "Inbox Service ingests Facebook and Instagram webhook deliveries and serves the stored conversations",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (falls back to CONFIG_FILE, then environment only)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env (if present) and the config file. Without a file the
// service runs on defaults plus environment variables.
func loadConfig(earlyLog *logging.EarlyLog) (*config.Loader, *config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		earlyLog.Warn("Failed to read .env: %v", err)
	}

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		earlyLog.Info("No config file given, using defaults and environment")
	}

	loader := config.NewLoader(configFile)
	cfg, err := loader.Load()
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}
	return loader, cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the inbox service",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			loader, cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Inbox Service",
				"store_backend", cfg.Store.Backend,
				"credentials_backend", cfg.Credentials.Backend,
				"broker_enabled", cfg.Broker.Enabled,
			)

			app := NewApp(cfg, loader, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			if err := app.Run(ctx); err != nil && err != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), migrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), migrateDown)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), migrateVersion)
			},
		},
	)

	return cmd
}

func requirePostgres(cfg *config.Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is not configured")
	}
	return nil
}
