package config

// AppConfig is everything the server reads from the environment
type AppConfig struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	Game    GameConfig
}

func Load() (AppConfig, error) {
	var cfg AppConfig
	var err error
	if cfg.Server, err = LoadServer(); err != nil {
		return cfg, err
	}
	if cfg.Log, err = LoadLog(); err != nil {
		return cfg, err
	}
	if cfg.Storage, err = LoadStorage(); err != nil {
		return cfg, err
	}
	if cfg.Game, err = LoadGame(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
