package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageFile   = "file"
)

type StorageConfig struct {
	Type          string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL      string `env:"REDIS_URL"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisPrefix   string `env:"REDIS_PREFIX"`
	SessionFile   string `env:"SESSION_FILE" envDefault:"loto-sessions.json"`
}

func LoadStorage() (StorageConfig, error) {
	var cfg StorageConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected backend has what it needs
func (c StorageConfig) Validate() error {
	switch c.Type {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StorageFile:
		if c.SessionFile == "" {
			return errors.New("SESSION_FILE required when STORAGE_TYPE=file")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or file", c.Type)
	}
	return nil
}
