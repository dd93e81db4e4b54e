package main

import (
	"context"
	"database/sql"

	"inboxhook/internal/logger"
	"inboxhook/pkg/bootstrap"
	"inboxhook/pkg/logging"
	"inboxhook/pkg/migrations"
)

type migration func(ctx context.Context, db *sql.DB, log logger.Logger) error

func runMigration(ctx context.Context, fn migration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	earlyLog := logging.NewEarlyLog()

	_, cfg, err := loadConfig(earlyLog)
	if err != nil {
		return err
	}
	if err := requirePostgres(cfg); err != nil {
		earlyLog.Error("%v", err)
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return err
	}
	defer log.Sync()

	db, err := bootstrap.NewDatabaseConnector(cfg, log).OpenPostgreSQL(ctx)
	if err != nil {
		log.ErrorwCtx(ctx, "Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer db.Close()

	return fn(ctx, db, log)
}

func migrateUp(ctx context.Context, db *sql.DB, log logger.Logger) error {
	if err := migrations.PostgresUp(db); err != nil {
		log.ErrorwCtx(ctx, "Migration up failed", "error", err)
		return err
	}
	return migrateVersion(ctx, db, log)
}

func migrateDown(ctx context.Context, db *sql.DB, log logger.Logger) error {
	if err := migrations.PostgresDown(db); err != nil {
		log.ErrorwCtx(ctx, "Migration down failed", "error", err)
		return err
	}
	log.InfowCtx(ctx, "All migrations rolled back")
	return nil
}

func migrateVersion(ctx context.Context, db *sql.DB, log logger.Logger) error {
	version, dirty, err := migrations.PostgresVersion(db)
	if err != nil {
		log.ErrorwCtx(ctx, "Failed to read schema version", "error", err)
		return err
	}
	log.InfowCtx(ctx, "Schema version", "version", version, "dirty", dirty)
	return nil
}
