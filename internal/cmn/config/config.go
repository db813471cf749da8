package config

import (
	"fmt"
	"time"
)

// Config holds the overall configuration for the application.
type Config struct {
	// Root is the directory holding one subdirectory per scheduler instance.
	Root string
	// Debug enables debug logging with source locations.
	Debug bool
	// Quiet suppresses console logging.
	Quiet bool
	// LogFormat is "text" or "json".
	LogFormat string
	// LockRetryInterval is how often a blocked command retries an instance
	// lock.
	LockRetryInterval time.Duration
	// ConfigFileUsed is the resolved path of the config file read, if any.
	ConfigFileUsed string
	// Warnings collects non-fatal problems found while loading.
	Warnings []string
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root directory is not set")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: want text or json", c.LogFormat)
	}
	if c.LockRetryInterval <= 0 {
		return fmt.Errorf("lock retry interval must be positive, got %s", c.LockRetryInterval)
	}
	return nil
}
