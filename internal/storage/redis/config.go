package redis

import "time"

// Config holds the Redis connection settings for the token store
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	PoolSize     int
	MinIdleConns int

	// DialTimeout bounds the connection check in New
	DialTimeout time.Duration

	// Namespace is prepended to every key so several deployments can share
	// one Redis database. Empty means keys are stored as given.
	Namespace string
}

func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
	}
}

func (c Config) key(k string) string {
	if c.Namespace == "" {
		return k
	}
	return c.Namespace + ":" + k
}
