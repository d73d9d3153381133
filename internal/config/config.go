package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string  `env:"PORT" envDefault:"8080"`
	ProviderBaseURL string  `env:"PROVIDER_BASE_URL" envDefault:"https://image.pollinations.ai"`
	RoundSeconds    int     `env:"ROUND_SECONDS" envDefault:"60"`
	DiffThreshold   float64 `env:"DIFF_THRESHOLD" envDefault:"0.15"`
	AssetsDir       string  `env:"ASSETS_DIR" envDefault:"./assets/references"`
}

// FromEnv loads configuration from the environment, reading an optional
// .env file first.
func FromEnv() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
