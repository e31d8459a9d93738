package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// GameConfig holds the room timing rules
type GameConfig struct {
	WinWindow     time.Duration `env:"WIN_WINDOW" envDefault:"2s"`
	ClaimCooldown time.Duration `env:"CLAIM_COOLDOWN" envDefault:"5s"`
	AnnounceDelay time.Duration `env:"ANNOUNCE_DELAY" envDefault:"400ms"`
	BcryptCost    int           `env:"HOST_TOKEN_BCRYPT_COST" envDefault:"10"`
}

func LoadGame() (GameConfig, error) {
	var cfg GameConfig
	err := env.Parse(&cfg)
	return cfg, err
}
