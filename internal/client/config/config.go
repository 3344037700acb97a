package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the flagkeeper CLI.
type Config struct {
	ServerURL           string        `env:"FLAGKEEPER_SERVER_URL"`
	RequestTimeout      time.Duration `env:"FLAGKEEPER_REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"FLAGKEEPER_ONLINE_CHECK_INTERVAL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig builds a Config from defaults, the JSON file, FLAGKEEPER_*
// environment variables and flags, later sources winning.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
	parseFlags(cfg, args)
	return cfg
}
