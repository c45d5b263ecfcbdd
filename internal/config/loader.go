package config

import (
	"fmt"

	"github.com/jessevdk/go-flags"
)

type rawConfig struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Full Postgres connection string; takes precedence over the discrete DB_* fields"`

	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"pulsefeed" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"pulsefeed" description:"Database password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"pulsefeed" description:"Database name"`

	Port                string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	UserAgent           string `long:"user-agent" env:"USER_AGENT" default:"PulseFeed/1.0" description:"User agent string for HTTP requests"`
	FetchTimeoutSeconds int    `long:"fetch-timeout-seconds" env:"FETCH_TIMEOUT_SECONDS" default:"30" description:"Per-feed fetch deadline in seconds"`
	ImageCacheSize      int    `long:"image-cache-size" env:"IMAGE_CACHE_SIZE" default:"1000" description:"Maximum entries in the in-process image data-URI cache"`
	Debug               bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses configuration from environment variables and command-line
// flags. It returns (nil, nil) when the caller asked for --help.
func Load() (*Config, error) {
	var raw rawConfig

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &Config{
		DatabaseURL:         raw.DatabaseURL,
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		Port:                raw.Port,
		UserAgent:           raw.UserAgent,
		FetchTimeoutSeconds: raw.FetchTimeoutSeconds,
		ImageCacheSize:      raw.ImageCacheSize,
		Debug:               raw.Debug,
	}, nil
}

// ConnString builds a lib/pq connection string, preferring DatabaseURL when set.
func (c *Config) ConnString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
