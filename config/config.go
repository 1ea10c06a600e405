package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	GitHubToken  string
	CloneWorkers int
	HTTPTimeout  time.Duration
	CacheDSN     string
	LogLevel     string
}

// NewConfig creates a new Config instance
func NewConfig() *Config {
	return &Config{}
}

// HasToken reports whether a GitHub token is available. The token unlocks
// the received-events and private-events endpoints and raises rate limits.
func (c *Config) HasToken() bool {
	return c.GitHubToken != ""
}

// Load loads configuration from environment variables and an optional
// .env file in the working directory.
func (c *Config) Load() error {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Read .env file if it exists
	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// All fields are optional; without a token only public data is reachable.
	c.GitHubToken = viper.GetString("GH_TOKEN")

	c.CloneWorkers = viper.GetInt("WIWO_CLONE_WORKERS")
	if c.CloneWorkers <= 0 {
		c.CloneWorkers = 4
	}

	c.HTTPTimeout = viper.GetDuration("WIWO_HTTP_TIMEOUT")
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}

	c.CacheDSN = viper.GetString("WIWO_CACHE_DSN")

	c.LogLevel = viper.GetString("WIWO_LOG_LEVEL")
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}

	return nil
}
