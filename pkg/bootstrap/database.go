package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inboxhook/internal/config"
	"inboxhook/internal/constants"
	"inboxhook/internal/logger"
	"inboxhook/pkg/migrations"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// NeedsRedis reports whether the message store or the credential store is
// backed by Redis.
func (dc *DatabaseConnector) NeedsRedis() bool {
	return dc.Config.Store.Backend == constants.StoreBackendRedis ||
		dc.Config.Credentials.Backend == constants.CredentialsBackendRedis
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	if !dc.NeedsRedis() {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Infow("Redis connected successfully")
	return rdb, nil
}

// PostgresDSN builds the lib/pq connection string from the config.
func PostgresDSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode,
	)
}

// OpenPostgreSQL opens and pings the configured database without looking at
// the store backend. The migrate command uses it directly.
func (dc *DatabaseConnector) OpenPostgreSQL(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresDSN(dc.Config.Database.Postgres))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	if dc.Config.Store.Backend != constants.StoreBackendPostgres {
		return nil, nil
	}

	db, err := dc.OpenPostgreSQL(ctx)
	if err != nil {
		return nil, err
	}

	if dc.Config.Database.RunMigrations {
		if err := migrations.PostgresUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		version, dirty, err := migrations.PostgresVersion(db)
		if err == nil {
			dc.Logger.Infow("PostgreSQL migrations applied", "version", version, "dirty", dirty)
		}
	}

	dc.Logger.Infow("PostgreSQL connected successfully")
	return db, nil
}

// InitMongoDB connects when the store backend is mongodb and makes sure the
// message indexes exist.
func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	if dc.Config.Store.Backend != constants.StoreBackendMongoDB {
		return nil, nil, nil
	}

	mongoOpts := options.Client().ApplyURI(dc.Config.Database.MongoDB.URI)
	mongoClient, err := mongo.Connect(ctx, mongoOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	name := dc.Config.Database.MongoDB.Database
	if name == "" {
		name = constants.DefaultMongoDBName
	}
	db := mongoClient.Database(name)

	if err := migrations.EnsureMongoIndexes(ctx, db); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}

	dc.Logger.Infow("MongoDB connected successfully", "database", name)
	return mongoClient, db, nil
}
