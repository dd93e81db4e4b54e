package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxhook/internal/config"
	"inboxhook/internal/logger"
)

func TestNeedsRedis(t *testing.T) {
	tests := []struct {
		store string
		creds string
		want  bool
	}{
		{"memory", "config", false},
		{"redis", "config", true},
		{"postgres", "redis", true},
		{"mongodb", "config", false},
	}

	for _, tt := range tests {
		t.Run(tt.store+"/"+tt.creds, func(t *testing.T) {
			cfg := &config.Config{
				Store:       config.StoreConfig{Backend: tt.store},
				Credentials: config.CredentialsConfig{Backend: tt.creds},
			}
			assert.Equal(t, tt.want, NewDatabaseConnector(cfg, logger.NopLogger()).NeedsRedis())
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "inbox",
		Password: "secret",
		DBName:   "inbox",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://inbox:secret@db:5432/inbox?sslmode=disable", dsn)
}

func TestInit_SkipsUnusedBackends(t *testing.T) {
	cfg := &config.Config{
		Store:       config.StoreConfig{Backend: "memory"},
		Credentials: config.CredentialsConfig{Backend: "config"},
	}
	dc := NewDatabaseConnector(cfg, logger.NopLogger())
	ctx := context.Background()

	rdb, err := dc.InitRedis(ctx)
	require.NoError(t, err)
	assert.Nil(t, rdb)

	db, err := dc.InitPostgreSQL(ctx)
	require.NoError(t, err)
	assert.Nil(t, db)

	client, mdb, err := dc.InitMongoDB(ctx)
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Nil(t, mdb)
}
