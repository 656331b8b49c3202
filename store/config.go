package store

import "time"

// Config holds configuration for the Store.
type Config struct {
	// TableName is the single table holding every row.
	TableName string

	// ObjectIndex is the GSI keyed by (item_id, object_id).
	// Default: "Object-Id-Index"
	ObjectIndex string

	// MaxAttempts bounds the tries for each batch chunk, the first one included.
	// Default: 5
	// Max: 10
	MaxAttempts int

	// BaseDelay is the first backoff interval between batch retries.
	// Default: 50ms
	BaseDelay time.Duration

	// MaxDelay caps a single backoff interval.
	// Default: 2s
	MaxDelay time.Duration
}

// DefaultConfig returns sensible defaults. TableName must still be set.
func DefaultConfig() Config {
	return Config{
		ObjectIndex: "Object-Id-Index",
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.ObjectIndex == "" {
		c.ObjectIndex = "Object-Id-Index"
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.MaxAttempts > 10 {
		c.MaxAttempts = 10
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 50 * time.Millisecond
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = 2 * time.Second
	}
}
