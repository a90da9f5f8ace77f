// Package config loads spawner settings from an optional YAML file and
// SPAWNPOOL_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	// Capacity is passed to every release; it bounds the inactive list.
	Capacity     int           `yaml:"capacity" env:"SPAWNPOOL_CAPACITY" env-default:"8"`
	Ticks        int           `yaml:"ticks" env:"SPAWNPOOL_TICKS" env-default:"100"`
	TickInterval time.Duration `yaml:"tick_interval" env:"SPAWNPOOL_TICK_INTERVAL" env-default:"0s"`
	Emitters     int           `yaml:"emitters" env:"SPAWNPOOL_EMITTERS" env-default:"2"`
	// SpawnRate is spawns per simulated second, per emitter.
	SpawnRate float64 `yaml:"spawn_rate" env:"SPAWNPOOL_SPAWN_RATE" env-default:"5"`
	Burst     int     `yaml:"burst" env:"SPAWNPOOL_BURST" env-default:"2"`
	// Lifetime is how many ticks a projectile lives before releasing itself.
	Lifetime    int    `yaml:"lifetime" env:"SPAWNPOOL_LIFETIME" env-default:"4"`
	Strict      bool   `yaml:"strict" env:"SPAWNPOOL_STRICT" env-default:"false"`
	LogLevel    string `yaml:"log_level" env:"SPAWNPOOL_LOG_LEVEL" env-default:"info"`
	LogEncoding string `yaml:"log_encoding" env:"SPAWNPOOL_LOG_ENCODING" env-default:"console"`
}

// Load reads path if it is not empty, then the environment. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Ticks < 0:
		return fmt.Errorf("config: ticks must not be negative, got %d", c.Ticks)
	case c.Emitters < 0:
		return fmt.Errorf("config: emitters must not be negative, got %d", c.Emitters)
	case c.SpawnRate < 0:
		return fmt.Errorf("config: spawn rate must not be negative, got %g", c.SpawnRate)
	case c.Lifetime < 1:
		return fmt.Errorf("config: lifetime must be at least 1 tick, got %d", c.Lifetime)
	case c.TickInterval < 0:
		return fmt.Errorf("config: tick interval must not be negative, got %s", c.TickInterval)
	}
	return nil
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
