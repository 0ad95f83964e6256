// Package config loads application configuration from env vars and optional
// config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		// DSN is the PostgreSQL connection string. When empty the server
		// runs on in-memory stores (state lives for the process lifetime).
		DSN string
	}
	Auth struct {
		// JWTKey signs the bearer tokens wrapping session ids at the HTTP
		// boundary. Required when the HTTP server is started.
		JWTKey        string
		SessionTTL    time.Duration
		ResetTokenTTL time.Duration
		SweepInterval time.Duration
	}
}

// Load reads configuration from environment variables (prefix AUTHD), an
// optional .env file and an optional config.yaml in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env

	v := viper.New()
	v.SetEnvPrefix("AUTHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwtkey", "")
	v.SetDefault("auth.sessionttl", 24*time.Hour)
	v.SetDefault("auth.resettokenttl", 30*time.Minute)
	v.SetDefault("auth.sweepinterval", 5*time.Minute)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.sessionttl must be positive")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return errors.New("auth.resettokenttl must be positive")
	}
	if c.Auth.SweepInterval <= 0 {
		return errors.New("auth.sweepinterval must be positive")
	}
	return nil
}
