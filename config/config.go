package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName            string `env:"APP_NAME" env-default:"possync"`
	Port               int    `env:"PORT" env-default:"3006"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" env-default:"false"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (central multi-tenant store)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"possync"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// AMQP (POS terminal event broker)
	AmqpHost              string `env:"AMQP_HOST" env-default:"localhost"`
	AmqpPort              int    `env:"AMQP_PORT" env-default:"5672"`
	AmqpUser              string `env:"AMQP_USER" env-default:"guest"`
	AmqpPassword          string `env:"AMQP_PASSWORD" env-default:"guest"`
	AmqpVHost             string `env:"AMQP_VHOST" env-default:"/"`
	AmqpUseTLS            bool   `env:"AMQP_USE_TLS" env-default:"false"`
	AmqpExchange          string `env:"AMQP_EXCHANGE" env-default:"pos_events"`
	AmqpCommandExchange   string `env:"AMQP_COMMAND_EXCHANGE" env-default:"pos_commands"`
	AmqpQueue             string `env:"AMQP_QUEUE" env-default:"possync_events"`
	AmqpBindingPattern    string `env:"AMQP_BINDING_PATTERN" env-default:"pos.#"`
	AmqpDeadLetterSuffix  string `env:"AMQP_DEAD_LETTER_SUFFIX" env-default:".dlq"`
	ConsumerPrefetch      int    `env:"CONSUMER_PREFETCH" env-default:"8"`
	ConsumerMaxDeliveries int    `env:"CONSUMER_MAX_DELIVERIES" env-default:"2"`

	// Kafka (operator alert emission)
	KafkaBrokers       string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaAlertTopic    string `env:"KAFKA_ALERT_TOPIC" env-default:"pos.reconciliation.alerts"`
	KafkaAlertsEnabled bool   `env:"KAFKA_ALERTS_ENABLED" env-default:"true"`

	// Redis (dead-letter mirror for operator review)
	RedisHost      string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort      int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword  string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB        int    `env:"REDIS_DB" env-default:"0"`
	RedisDLQStream string `env:"REDIS_DLQ_STREAM" env-default:"possync:dlq"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"console"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
}

// GetConfig loads the configuration from the environment. A local .env file
// is applied first when present.
func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
