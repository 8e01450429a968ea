package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Notification sinks accepted by NOTIFY_SINKS.
const (
	SinkLog     = "log"
	SinkWebhook = "webhook"
	SinkKafka   = "kafka"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV:
//
//	SERVER_PORT=8080
//	STORAGE_DRIVER=postgres
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=admin
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=escrowd
//	POSTGRES_SSLMODE=disable
//	AUTH_JWT_SECRET=change-me-to-something-long
//	NOTIFY_SINKS=log,webhook
//	NOTIFY_WEBHOOK_URL=https://hooks.example.com/escrowd
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string // TCP port the HTTP server listens on (e.g., "8080")
	RateLimitPerMinute int    // requests allowed per client IP each minute
}

// StorageConfig selects the backend that keeps balances and trades.
type StorageConfig struct {
	Driver      string // memory | postgres | badger
	BadgerDir   string // empty keeps badger in memory
	AutoMigrate bool   // apply postgres migrations on startup
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// NotifyConfig configures settlement notifications.
type NotifyConfig struct {
	Sinks           []string
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
	Webhook         WebhookConfig
	Kafka           KafkaConfig
}

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	RPS     int
	Secret  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// HasSink reports whether name is among the configured sinks.
func (n NotifyConfig) HasSink(name string) bool {
	for _, s := range n.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() terminates the app
//     with a descriptive log message.
func LoadConfig() {
	setDefaults()

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:               viper.GetString("SERVER_PORT"),
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(strings.TrimSpace(viper.GetString("STORAGE_DRIVER"))),
			BadgerDir:   viper.GetString("BADGER_DIR"),
			AutoMigrate: viper.GetBool("STORAGE_AUTO_MIGRATE"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("AUTH_JWT_SECRET"),
			TokenTTL:  viper.GetDuration("AUTH_TOKEN_TTL"),
		},
		Notify: NotifyConfig{
			Sinks:           splitList(viper.GetString("NOTIFY_SINKS")),
			QueueSize:       viper.GetInt("NOTIFY_QUEUE_SIZE"),
			Workers:         viper.GetInt("NOTIFY_WORKERS"),
			DeliveryTimeout: viper.GetDuration("NOTIFY_DELIVERY_TIMEOUT"),
			Webhook: WebhookConfig{
				URL:     viper.GetString("NOTIFY_WEBHOOK_URL"),
				Timeout: viper.GetDuration("NOTIFY_WEBHOOK_TIMEOUT"),
				RPS:     viper.GetInt("NOTIFY_WEBHOOK_RPS"),
				Secret:  viper.GetString("NOTIFY_WEBHOOK_SECRET"),
			},
			Kafka: KafkaConfig{
				Brokers: splitList(viper.GetString("NOTIFY_KAFKA_BROKERS")),
				Topic:   viper.GetString("NOTIFY_KAFKA_TOPIC"),
			},
		},
	}

	// Construct Postgres DSN (used by database/sql)
	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)

	viper.SetDefault("STORAGE_DRIVER", DriverPostgres)
	viper.SetDefault("BADGER_DIR", "")
	viper.SetDefault("STORAGE_AUTO_MIGRATE", false)

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "escrowd")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_TOKEN_TTL", "24h")

	viper.SetDefault("NOTIFY_SINKS", SinkLog)
	viper.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	viper.SetDefault("NOTIFY_WORKERS", 2)
	viper.SetDefault("NOTIFY_DELIVERY_TIMEOUT", "5s")
	viper.SetDefault("NOTIFY_WEBHOOK_URL", "")
	viper.SetDefault("NOTIFY_WEBHOOK_TIMEOUT", "3s")
	viper.SetDefault("NOTIFY_WEBHOOK_RPS", 10)
	viper.SetDefault("NOTIFY_WEBHOOK_SECRET", "")
	viper.SetDefault("NOTIFY_KAFKA_BROKERS", "")
	viper.SetDefault("NOTIFY_KAFKA_TOPIC", "escrowd.trades.settled")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// problems lists every missing or invalid setting in cfg.
func problems(cfg Config) []string {
	var out []string

	if cfg.Server.Port == "" {
		out = append(out, "SERVER_PORT")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		out = append(out, "AUTH_JWT_SECRET (at least 16 characters)")
	}

	switch cfg.Storage.Driver {
	case DriverMemory, DriverBadger:
	case DriverPostgres:
		if cfg.Postgres.Host == "" {
			out = append(out, "POSTGRES_HOST")
		}
		if cfg.Postgres.Port == 0 {
			out = append(out, "POSTGRES_PORT")
		}
		if cfg.Postgres.User == "" {
			out = append(out, "POSTGRES_USER")
		}
		if cfg.Postgres.Password == "" {
			out = append(out, "POSTGRES_PASSWORD")
		}
		if cfg.Postgres.DBName == "" {
			out = append(out, "POSTGRES_DB")
		}
	default:
		out = append(out, fmt.Sprintf("STORAGE_DRIVER (%q is not memory, postgres or badger)", cfg.Storage.Driver))
	}

	for _, s := range cfg.Notify.Sinks {
		switch s {
		case SinkLog:
		case SinkWebhook:
			if cfg.Notify.Webhook.URL == "" {
				out = append(out, "NOTIFY_WEBHOOK_URL")
			}
		case SinkKafka:
			if len(cfg.Notify.Kafka.Brokers) == 0 {
				out = append(out, "NOTIFY_KAFKA_BROKERS")
			}
			if cfg.Notify.Kafka.Topic == "" {
				out = append(out, "NOTIFY_KAFKA_TOPIC")
			}
		default:
			out = append(out, fmt.Sprintf("NOTIFY_SINKS (unknown sink %q)", s))
		}
	}
	return out
}

// validateConfig terminates the application if required variables are missing
// or invalid, listing all of them at once.
func validateConfig() {
	if missing := problems(AppConfig); len(missing) > 0 {
		log.Fatalf("❌ Missing or invalid environment variables: %v\n", missing)
	}
}
