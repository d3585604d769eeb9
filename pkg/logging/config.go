package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Env names the environment variables that override Config.
type Env struct {
	Level     string
	Format    string
	AddSource string
}

type Config struct {
	Level     Level  `toml:"level"`
	Format    Format `toml:"format"`
	AddSource bool   `toml:"add_source"`
}

// Finalize fills defaults, applies env overrides and validates.
func (c *Config) Finalize(env *Env) error {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatText
	}

	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}

	if err := c.Level.Validate(); err != nil {
		return err
	}
	return c.Format.Validate()
}

// Merge copies the set fields of overlay. AddSource can only be turned on.
func (c *Config) Merge(overlay *Config) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	c.AddSource = c.AddSource || overlay.AddSource
}

func (c *Config) loadEnv(env *Env) error {
	if v := os.Getenv(env.Level); v != "" {
		c.Level = Level(strings.ToLower(v))
	}
	if v := os.Getenv(env.Format); v != "" {
		c.Format = Format(strings.ToLower(v))
	}
	if env.AddSource == "" {
		return nil
	}
	if v := os.Getenv(env.AddSource); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.AddSource, err)
		}
		c.AddSource = b
	}
	return nil
}
