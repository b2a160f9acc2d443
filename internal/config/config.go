// Package config loads the service settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every setting of the catalog service.
type Config struct {
	AppPort           string
	AppEnv            string
	DBDriver          string
	DatabaseDSN       string
	RabbitMQURL       string // empty disables product events
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
}

// Development reports whether the service runs in development mode.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.AppPort == "" {
		errs = append(errs, errors.New("APP_PORT is required"))
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AdminUsername == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME is required"))
	}
	if c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required"))
	}
	return errors.Join(errs...)
}

// Load reads the configuration into v and returns it validated. Environment
// variables override values from an optional config.yaml in the working directory.
func Load(v *viper.Viper) (Config, error) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "catalog.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		AppPort:           v.GetString("APP_PORT"),
		AppEnv:            v.GetString("APP_ENV"),
		DBDriver:          v.GetString("DB_DRIVER"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
