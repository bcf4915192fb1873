package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL              string `yaml:"ttl"`
		CountdownSeconds int    `yaml:"countdown_seconds"`
		AdvanceDelay     string `yaml:"advance_delay"`
		DefaultTimeLimit int    `yaml:"default_time_limit"`
	} `yaml:"quiz"`
	Ranking struct {
		CacheTTL     string `yaml:"cache_ttl"`
		FinishAmount int    `yaml:"finish_amount"`
		MaxAmount    int    `yaml:"max_amount"`
	} `yaml:"ranking"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the settings used when a key is absent.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Quiz.TTL = "10m"
	cfg.Quiz.CountdownSeconds = 5
	cfg.Quiz.AdvanceDelay = "1500ms"
	cfg.Quiz.DefaultTimeLimit = 30
	cfg.Ranking.CacheTTL = "1m"
	cfg.Ranking.FinishAmount = 10
	cfg.Ranking.MaxAmount = 100
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
