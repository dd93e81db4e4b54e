package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"inboxhook/internal/constants"
)

// Loader reads the YAML config file with environment overrides. A Loader
// keeps its own viper instance so Watch can re-decode the same sources.
type Loader struct {
	v    *viper.Viper
	file string
}

func NewLoader(configFile string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	return &Loader{v: v, file: configFile}
}

func Load(configFile string) (*Config, error) {
	return NewLoader(configFile).Load()
}

// Load reads the file (when one was given) and decodes it. Without a file the
// configuration comes from defaults and the environment only.
func (l *Loader) Load() (*Config, error) {
	if l.file != "" {
		l.v.SetConfigFile(l.file)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.file, err)
		}
	}

	return l.decode()
}

// Watch calls onReload every time the config file changes on disk. cfg is nil
// when the new contents fail to decode or validate.
func (l *Loader) Watch(onReload func(file string, cfg *Config, err error)) {
	if l.file == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		onReload(e.Name, cfg, err)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(l.v, &cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("store.backend", constants.StoreBackendMemory)
	v.SetDefault("credentials.backend", constants.CredentialsBackendConfig)

	v.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("broker.kafka.group_id", "inbox-service")
	v.SetDefault("broker.kafka.retry.max_attempts", 3)
	v.SetDefault("broker.kafka.retry.initial_interval", time.Second)
	v.SetDefault("broker.kafka.retry.max_interval", 30*time.Second)
	v.SetDefault("broker.kafka.retry.multiplier", 2.0)

	v.SetDefault("platforms.facebook.graph_api_url", constants.DefaultGraphAPIURL)
	v.SetDefault("platforms.instagram.graph_api_url", constants.DefaultInstagramGraphURL)

	v.SetDefault("ingestion.max_body_bytes", constants.DefaultMaxBodyBytes)

	v.SetDefault("outbound.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("outbound.retry.max_attempts", 3)
	v.SetDefault("outbound.retry.initial_interval", 200*time.Millisecond)
	v.SetDefault("outbound.retry.max_interval", 5*time.Second)
	v.SetDefault("outbound.retry.multiplier", 2.0)
	v.SetDefault("outbound.retry.max_elapsed_time", 30*time.Second)

	v.SetDefault("management.rate_limit.enabled", true)
	v.SetDefault("management.rate_limit.rps", 10.0)
	v.SetDefault("management.rate_limit.burst", 20)
	v.SetDefault("management.rate_limit.cleanup_interval", 5*time.Minute)
	v.SetDefault("management.rate_limit.max_age", 10*time.Minute)

	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_ratio", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.service_name", "inbox-service")
	v.SetDefault("tracing.sampler.type", "always_on")
}

func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")

	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("credentials.backend", "CREDENTIALS_BACKEND")

	_ = v.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	_ = v.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	_ = v.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	_ = v.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	_ = v.BindEnv("broker.enabled", "BROKER_ENABLED")
	_ = v.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	_ = v.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	_ = v.BindEnv("broker.kafka.sink_topic", "BROKER_KAFKA_SINK_TOPIC")
	_ = v.BindEnv("broker.kafka.backfill_topic", "BROKER_KAFKA_BACKFILL_TOPIC")
	_ = v.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	// The unprefixed names are what existing deployments already export.
	_ = v.BindEnv("platforms.facebook.verify_token", "PLATFORMS_FACEBOOK_VERIFY_TOKEN", "FACEBOOK_VERIFY_TOKEN")
	_ = v.BindEnv("platforms.facebook.app_secret", "PLATFORMS_FACEBOOK_APP_SECRET", "FACEBOOK_APP_SECRET")
	_ = v.BindEnv("platforms.facebook.access_token", "PLATFORMS_FACEBOOK_ACCESS_TOKEN", "FACEBOOK_PAGE_ACCESS_TOKEN")
	_ = v.BindEnv("platforms.facebook.account_id", "PLATFORMS_FACEBOOK_ACCOUNT_ID", "FACEBOOK_PAGE_ID")
	_ = v.BindEnv("platforms.instagram.verify_token", "PLATFORMS_INSTAGRAM_VERIFY_TOKEN", "INSTAGRAM_VERIFY_TOKEN")
	_ = v.BindEnv("platforms.instagram.app_secret", "PLATFORMS_INSTAGRAM_APP_SECRET", "INSTAGRAM_APP_SECRET")
	_ = v.BindEnv("platforms.instagram.access_token", "PLATFORMS_INSTAGRAM_ACCESS_TOKEN", "INSTAGRAM_ACCESS_TOKEN")
	_ = v.BindEnv("platforms.instagram.account_id", "PLATFORMS_INSTAGRAM_ACCOUNT_ID", "INSTAGRAM_ACCOUNT_ID")

	_ = v.BindEnv("ingestion.skip_expression", "INGESTION_SKIP_EXPRESSION")

	_ = v.BindEnv("logging.level", "LOGGING_LEVEL")
	_ = v.BindEnv("logging.format", "LOGGING_FORMAT")

	_ = v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	_ = v.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	_ = v.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
}

func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	raw := v.GetString("BROKER_KAFKA_BROKERS")
	if raw == "" {
		return
	}

	brokers := make([]string, 0)
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) > 0 {
		cfg.Broker.Kafka.Brokers = brokers
	}
}
