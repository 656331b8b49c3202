// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jacentio/projects/project"
	"github.com/jacentio/projects/store"
)

// Config is the runtime configuration shared by the Lambda entry points.
type Config struct {
	TableName   string `env:"DYNAMO_TABLE,required,notEmpty"`
	ObjectIndex string `env:"OBJECT_ID_INDEX" envDefault:"Object-Id-Index"`

	PhotoBucket string        `env:"PHOTO_BUCKET" envDefault:"developer-bucket"`
	PhotoTTL    time.Duration `env:"PHOTO_URL_TTL" envDefault:"1h"`

	DefaultPageSize int32 `env:"DEFAULT_PAGE_SIZE" envDefault:"50"`
	MaxPageSize     int32 `env:"MAX_PAGE_SIZE" envDefault:"100"`

	BatchMaxAttempts int           `env:"BATCH_MAX_ATTEMPTS" envDefault:"5"`
	BatchBaseDelay   time.Duration `env:"BATCH_BASE_DELAY" envDefault:"50ms"`
	BatchMaxDelay    time.Duration `env:"BATCH_MAX_DELAY" envDefault:"2s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file from the working directory and then
// parses the environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the struct tags cannot express.
func (c *Config) Validate() error {
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", c.MaxPageSize)
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be in [1, %d], got %d", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.BatchMaxAttempts < 1 {
		return fmt.Errorf("BATCH_MAX_ATTEMPTS must be positive, got %d", c.BatchMaxAttempts)
	}
	return nil
}

// Store returns the data access settings.
func (c *Config) Store() store.Config {
	return store.Config{
		TableName:   c.TableName,
		ObjectIndex: c.ObjectIndex,
		MaxAttempts: c.BatchMaxAttempts,
		BaseDelay:   c.BatchBaseDelay,
		MaxDelay:    c.BatchMaxDelay,
	}
}

// Project returns the project service settings.
func (c *Config) Project() project.Config {
	return project.Config{
		ObjectIndex:     c.ObjectIndex,
		PhotoBucket:     c.PhotoBucket,
		PhotoTTL:        c.PhotoTTL,
		DefaultPageSize: c.DefaultPageSize,
		MaxPageSize:     c.MaxPageSize,
	}
}
