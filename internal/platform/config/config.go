package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	DatabaseDriver     string `env:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL        string `env:"DATABASE_URL"`
	RedisURL           string `env:"REDIS_URL"`
	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	WebhookSecret      string `env:"WEBHOOK_SECRET"`
	WebhookCallbackURL string `env:"WEBHOOK_CALLBACK_URL"`
	BotUserID          string `env:"BOT_USER_ID"`
	ChannelIDs         string `env:"CHANNEL_IDS"`
	AdminToken         string `env:"ADMIN_TOKEN"`
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`
	OTLPEndpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Channels returns the broadcaster ids listed in CHANNEL_IDS.
func (c *Config) Channels() []string {
	var ids []string
	for id := range strings.SplitSeq(c.ChannelIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":         cfg.DatabaseURL,
		"REDIS_URL":            cfg.RedisURL,
		"TWITCH_CLIENT_ID":     cfg.TwitchClientID,
		"TWITCH_CLIENT_SECRET": cfg.TwitchClientSecret,
		"WEBHOOK_SECRET":       cfg.WebhookSecret,
		"BOT_USER_ID":          cfg.BotUserID,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.WebhookSecret) < 10 || len(cfg.WebhookSecret) > 100 {
		return errors.New("WEBHOOK_SECRET must be between 10 and 100 characters")
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.IsProduction() {
			if err := validateSSLMode(cfg.DatabaseURL); err != nil {
				return err
			}
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.DatabaseDriver)
	}

	if cfg.TokenEncryptionKey != "" && len(cfg.TokenEncryptionKey) != 64 {
		return errors.New("TOKEN_ENCRYPTION_KEY must be 64 hex characters")
	}

	if cfg.CommandTimeout <= 0 {
		return errors.New("COMMAND_TIMEOUT must be positive")
	}

	if len(cfg.Channels()) > 0 && cfg.WebhookCallbackURL == "" {
		return errors.New("CHANNEL_IDS requires WEBHOOK_CALLBACK_URL")
	}

	return nil
}

func validateSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
