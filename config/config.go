package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`

	// Server
	Port            int           `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Database
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMinConns       int           `mapstructure:"DB_MIN_CONNS"`
	DBMaxConns       int           `mapstructure:"DB_MAX_CONNS"`
	DBAcquireTimeout time.Duration `mapstructure:"DB_ACQUIRE_TIMEOUT"`

	// Redis
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SearchCacheTTL time.Duration `mapstructure:"SEARCH_CACHE_TTL"`

	// RabbitMQ
	RabbitURL  string `mapstructure:"RABBIT_URL"`
	EventQueue string `mapstructure:"EVENT_QUEUE"`

	// Review reminder sweep
	ReminderInterval time.Duration `mapstructure:"REMINDER_INTERVAL"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables take precedence
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("SHUTDOWN_TIMEOUT", time.Second*30)
	viper.SetDefault("DB_MIN_CONNS", 5)
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("DB_ACQUIRE_TIMEOUT", time.Second*60)
	viper.SetDefault("EVENT_QUEUE", "new_users")
	viper.SetDefault("SEARCH_CACHE_TTL", time.Hour)
	viper.SetDefault("REMINDER_INTERVAL", time.Hour*6)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK if we're using env vars
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if config.RabbitURL == "" {
		return nil, fmt.Errorf("RABBIT_URL is required")
	}
	if config.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if config.DBMinConns > config.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}

	return config, nil
}
