package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	IdentityBaseURL string
	IdentityAPIKey  string
	IdentityTimeout int // seconds

	MatchTTLSec int
	QueueTTLSec int
}

// fileConfig mirrors AppConfig for the optional YAML file. File values
// seed the defaults; environment variables win.
type fileConfig struct {
	Listen      string `yaml:"listen"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	Identity    struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"identity"`
	MatchTTLSec int `yaml:"match_ttl_sec"`
	QueueTTLSec int `yaml:"queue_ttl_sec"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":8080",
		IdentityTimeout: 5,
		MatchTTLSec:     86400,
		QueueTTLSec:     300,
	}

	if path := strings.TrimSpace(os.Getenv("ARENA_CONFIG")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("ARENA_LISTEN")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("IDENTITY_BASE_URL")); v != "" {
		cfg.IdentityBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("IDENTITY_API_KEY")); v != "" {
		cfg.IdentityAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("IDENTITY_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.IdentityTimeout = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("QUEUE_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueTTLSec = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if v := strings.TrimSpace(fc.Listen); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(fc.RedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(fc.DatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(fc.Identity.BaseURL); v != "" {
		cfg.IdentityBaseURL = v
	}
	if v := strings.TrimSpace(fc.Identity.APIKey); v != "" {
		cfg.IdentityAPIKey = v
	}
	if fc.Identity.TimeoutSec > 0 {
		cfg.IdentityTimeout = fc.Identity.TimeoutSec
	}
	if fc.MatchTTLSec > 0 {
		cfg.MatchTTLSec = fc.MatchTTLSec
	}
	if fc.QueueTTLSec > 0 {
		cfg.QueueTTLSec = fc.QueueTTLSec
	}
	return nil
}
