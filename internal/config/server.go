package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host            string        `env:"HTTP_HOST"`
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// AllowedOrigins lists extra origins that may open player websockets
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
