package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML strings like "5m" or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is murmurd's YAML configuration.
type Config struct {
	Listen string `yaml:"listen"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Auth struct {
		TokenSecret string   `yaml:"token_secret"`
		APIKey      string   `yaml:"api_key"`
		Issuer      string   `yaml:"issuer"`
		TokenTTL    Duration `yaml:"token_ttl"`
		SessionTTL  Duration `yaml:"session_ttl"`
	} `yaml:"auth"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a config suitable for local development, minus the
// token secret, which has no sane default.
func DefaultConfig() Config {
	var cfg Config
	cfg.Listen = ":8080"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Auth.Issuer = "murmurd"
	cfg.RateLimit.RPS = 20
	cfg.RateLimit.Burst = 40
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads a YAML config from path, layered over the defaults. An
// empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address required")
	}
	if c.Redis.Addr == "" {
		return errors.New("config: redis address required")
	}
	if len(c.Auth.TokenSecret) < 32 {
		return errors.New("config: auth.token_secret must be at least 32 bytes")
	}
	return nil
}
