package eventstore

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"inboxhook/internal/config"
	"inboxhook/internal/constants"
)

// Backends holds the connections a store may be built on. Only the one the
// configured backend needs has to be set.
type Backends struct {
	Redis    *redis.Client
	Postgres *sql.DB
	Mongo    *mongo.Database
}

// New builds the configured backend wrapped with metrics and, when enabled,
// a circuit breaker.
func New(cfg config.StoreConfig, cbCfg config.CircuitBreakerConfig, b Backends) (Store, error) {
	var store Store

	switch cfg.Backend {
	case constants.StoreBackendMemory, "":
		store = NewMemoryStore()
	case constants.StoreBackendRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("store backend %q requires a redis client", cfg.Backend)
		}
		store = NewRedisStore(b.Redis)
	case constants.StoreBackendPostgres:
		if b.Postgres == nil {
			return nil, fmt.Errorf("store backend %q requires a postgres connection", cfg.Backend)
		}
		store = NewPostgresStore(b.Postgres)
	case constants.StoreBackendMongoDB:
		if b.Mongo == nil {
			return nil, fmt.Errorf("store backend %q requires a mongodb database", cfg.Backend)
		}
		store = NewMongoStore(b.Mongo)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	backend := cfg.Backend
	if backend == "" {
		backend = constants.StoreBackendMemory
	}

	store = WithMetrics(store, backend)
	// The in-process store cannot become unreachable.
	if cbCfg.Enabled && backend != constants.StoreBackendMemory {
		store = NewCircuitBreakerStore(store, "event-store-"+backend, cbCfg)
	}

	return store, nil
}
