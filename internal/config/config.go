// Package config loads server settings from .env, the environment and
// command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/yvesmugisha901/umuturage-backend/internal/broker"
	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/logging"
)

type Config struct {
	Port          string
	DBDriver      string
	DatabaseURL   string
	JWTSecret     string
	TokenTTL      time.Duration
	LogLevel      string
	LogFormat     string
	AMQPURL       string
	AMQPExchange  string
	PostmarkToken string
	PostmarkFrom  string
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present), then the environment, then args.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	ttl, err := time.ParseDuration(getenv("UMUTURAGE_TOKEN_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("UMUTURAGE_TOKEN_TTL: %w", err)
	}

	cfg := Config{
		Port:         getenv("UMUTURAGE_PORT", "8080"),
		DBDriver:     getenv("UMUTURAGE_DB_DRIVER", database.DriverSQLite),
		DatabaseURL:  getenv("DATABASE_URL", "umuturage.db"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     ttl,
		LogLevel:     getenv("UMUTURAGE_LOG_LEVEL", "info"),
		LogFormat:    getenv("UMUTURAGE_LOG_FORMAT", "text"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getenv("AMQP_EXCHANGE", broker.DefaultExchange),

		PostmarkToken: os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkFrom:  os.Getenv("POSTMARK_FROM"),
	}

	fs := flag.NewFlagSet("umuturage", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite or pgx")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "SQLite path or Postgres URL")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "access token lifetime")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	fs.StringVar(&cfg.AMQPURL, "amqp-url", cfg.AMQPURL, "RabbitMQ URL; empty disables publishing")
	fs.StringVar(&cfg.AMQPExchange, "amqp-exchange", cfg.AMQPExchange, "RabbitMQ exchange")
	fs.StringVar(&cfg.PostmarkFrom, "postmark-from", cfg.PostmarkFrom, "sender address for notification emails")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.DBDriver != database.DriverSQLite && c.DBDriver != database.DriverPostgres {
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c Config) Database() database.Config {
	return database.Config{Driver: c.DBDriver, DSN: c.DatabaseURL}
}
