package config

import (
	"errors"
	"fmt"
	"strings"

	"inboxhook/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks the parts of the config that do not need any backing
// service. All problems are reported together.
func ValidateStatic(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(cfg.Server)...)
	errs = append(errs, validateStore(cfg)...)
	errs = append(errs, validateCredentials(cfg)...)
	errs = append(errs, validateDatabase(cfg.Database)...)
	if cfg.Broker.Enabled {
		errs = append(errs, validateKafka(cfg.Broker.Kafka)...)
	}
	errs = append(errs, validateRetry("outbound.retry", cfg.Outbound.Retry)...)

	if cfg.Ingestion.MaxBodyBytes <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "ingestion.max_body_bytes",
			Message: "must be positive",
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func validateServer(cfg ServerConfig) []error {
	var errs []error

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}

	return errs
}

func validateStore(cfg *Config) []error {
	switch cfg.Store.Backend {
	case constants.StoreBackendMemory:
		return nil
	case constants.StoreBackendRedis:
		if cfg.Database.Redis.Host == "" {
			return []error{&ValidationError{Field: "database.redis.host", Message: "required by store.backend=redis"}}
		}
	case constants.StoreBackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return []error{&ValidationError{Field: "database.postgres.host", Message: "required by store.backend=postgres"}}
		}
	case constants.StoreBackendMongoDB:
		if cfg.Database.MongoDB.URI == "" {
			return []error{&ValidationError{Field: "database.mongodb.uri", Message: "required by store.backend=mongodb"}}
		}
	default:
		return []error{&ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q (supported: memory, redis, postgres, mongodb)", cfg.Store.Backend),
		}}
	}
	return nil
}

func validateCredentials(cfg *Config) []error {
	switch cfg.Credentials.Backend {
	case constants.CredentialsBackendConfig:
		return nil
	case constants.CredentialsBackendRedis:
		if cfg.Database.Redis.Host == "" {
			return []error{&ValidationError{Field: "database.redis.host", Message: "required by credentials.backend=redis"}}
		}
		return nil
	}
	return []error{&ValidationError{
		Field:   "credentials.backend",
		Message: fmt.Sprintf("unknown backend %q (supported: config, redis)", cfg.Credentials.Backend),
	}}
}

func validateDatabase(cfg DatabaseConfig) []error {
	var errs []error

	if cfg.Postgres.Host != "" {
		if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
			errs = append(errs, &ValidationError{
				Field:   "database.postgres.port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Postgres.Port),
			})
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, &ValidationError{Field: "database.postgres.user", Message: "PostgreSQL user is required"})
		}
		if cfg.Postgres.DBName == "" {
			errs = append(errs, &ValidationError{Field: "database.postgres.dbname", Message: "PostgreSQL database name is required"})
		}
		validSSLModes := map[string]bool{
			"disable": true, "allow": true, "prefer": true,
			"require": true, "verify-ca": true, "verify-full": true,
		}
		if cfg.Postgres.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.Postgres.SSLMode)] {
			errs = append(errs, &ValidationError{
				Field:   "database.postgres.sslmode",
				Message: fmt.Sprintf("invalid SSL mode: %s", cfg.Postgres.SSLMode),
			})
		}
	}

	if cfg.Redis.Host != "" && (cfg.Redis.Port < 1 || cfg.Redis.Port > 65535) {
		errs = append(errs, &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
		})
	}

	if cfg.MongoDB.URI != "" {
		if !strings.HasPrefix(cfg.MongoDB.URI, "mongodb://") && !strings.HasPrefix(cfg.MongoDB.URI, "mongodb+srv://") {
			errs = append(errs, &ValidationError{
				Field:   "database.mongodb.uri",
				Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
			})
		}
		if cfg.MongoDB.Database == "" {
			errs = append(errs, &ValidationError{Field: "database.mongodb.database", Message: "MongoDB database name is required"})
		}
	}

	return errs
}

func validateKafka(cfg KafkaConfig) []error {
	var errs []error

	if len(cfg.Brokers) == 0 {
		errs = append(errs, &ValidationError{Field: "broker.kafka.brokers", Message: "at least one Kafka broker is required"})
	}
	for i, b := range cfg.Brokers {
		if b == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			})
		}
	}
	if cfg.SinkTopic == "" && cfg.BackfillTopic == "" {
		errs = append(errs, &ValidationError{
			Field:   "broker.kafka.sink_topic",
			Message: "at least one of sink_topic or backfill_topic is required when the broker is enabled",
		})
	}
	if cfg.BackfillTopic != "" && cfg.GroupID == "" {
		errs = append(errs, &ValidationError{Field: "broker.kafka.group_id", Message: "consumer group ID is required for backfill"})
	}

	return append(errs, validateRetry("broker.kafka.retry", cfg.Retry)...)
}

func validateRetry(prefix string, cfg RetryConfig) []error {
	var errs []error

	if cfg.MaxAttempts < 0 {
		errs = append(errs, &ValidationError{Field: prefix + ".max_attempts", Message: "max_attempts must be non-negative"})
	}
	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		errs = append(errs, &ValidationError{Field: prefix + ".initial_interval", Message: "intervals must be non-negative"})
	}
	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		errs = append(errs, &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		})
	}
	if cfg.Multiplier <= 0 {
		errs = append(errs, &ValidationError{Field: prefix + ".multiplier", Message: "multiplier must be positive"})
	}

	return errs
}
