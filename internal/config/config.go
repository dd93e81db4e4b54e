package config

import (
	"time"

	"inboxhook/internal/constants"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Store          StoreConfig          `mapstructure:"store"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Platforms      PlatformsConfig      `mapstructure:"platforms"`
	Credentials    CredentialsConfig    `mapstructure:"credentials"`
	Ingestion      IngestionConfig      `mapstructure:"ingestion"`
	Outbound       OutboundConfig       `mapstructure:"outbound"`
	Management     ManagementConfig     `mapstructure:"management"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig `mapstructure:"postgres"`
	Redis         RedisConfig    `mapstructure:"redis"`
	MongoDB       MongoDBConfig  `mapstructure:"mongodb"`
	RunMigrations bool           `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type StoreConfig struct {
	// Backend is one of memory, redis, postgres, mongodb.
	Backend string `mapstructure:"backend"`
}

type BrokerConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// SinkTopic receives every newly stored message.
	SinkTopic string `mapstructure:"sink_topic"`
	// BackfillTopic is consumed to import messages from sync jobs.
	BackfillTopic string      `mapstructure:"backfill_topic"`
	DLQTopic      string      `mapstructure:"dlq_topic"`
	Retry         RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type PlatformsConfig struct {
	Facebook  PlatformConfig `mapstructure:"facebook"`
	Instagram PlatformConfig `mapstructure:"instagram"`
}

// Get returns the section for platform ("facebook" or "instagram").
func (p PlatformsConfig) Get(platform string) (PlatformConfig, bool) {
	switch platform {
	case constants.PlatformFacebook:
		return p.Facebook, true
	case constants.PlatformInstagram:
		return p.Instagram, true
	}
	return PlatformConfig{}, false
}

type PlatformConfig struct {
	VerifyToken string `mapstructure:"verify_token"`
	AppSecret   string `mapstructure:"app_secret"`
	AccessToken string `mapstructure:"access_token"`
	AccountID   string `mapstructure:"account_id"`
	DisplayName string `mapstructure:"display_name"`
	// ExpiresAt is epoch milliseconds; zero means no expiry is known.
	ExpiresAt   int64  `mapstructure:"expires_at"`
	GraphAPIURL string `mapstructure:"graph_api_url"`
}

type CredentialsConfig struct {
	// Backend is config (platform sections, hot reloaded) or redis.
	Backend string `mapstructure:"backend"`
}

type IngestionConfig struct {
	// SkipExpression is an optional CEL expression, or "@name" for one of the
	// presets in pkg/cel. Events it matches are normalized but not stored.
	SkipExpression string `mapstructure:"skip_expression"`
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"`
}

type OutboundConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPS             float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}
