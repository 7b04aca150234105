// Package config loads process settings from the environment, optionally
// seeded from a .env file. Both the web server and tourneyadmin use it.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddress   string
	DBPath          string
	NATSURL         string
	NATSToken       string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("listen_address", ":8080")
	v.SetDefault("db_path", "tourney.db")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_token", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 15*time.Second)
	for _, key := range []string{"listen_address", "db_path", "nats_url", "nats_token", "log_level", "shutdown_timeout"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, err
	}

	return &Config{
		ListenAddress:   v.GetString("listen_address"),
		DBPath:          v.GetString("db_path"),
		NATSURL:         v.GetString("nats_url"),
		NATSToken:       v.GetString("nats_token"),
		LogLevel:        level,
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}, nil
}
