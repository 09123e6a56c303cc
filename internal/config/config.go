package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration, loaded from
// SHIPLOG_-prefixed environment variables.
type Config struct {
	Primary       Primary              `koanf:"primary"`
	AWS           *AWSConfig           `koanf:"aws" validate:"required"`
	Publish       PublishConfig        `koanf:"publish"`
	Server        ServerConfig         `koanf:"server"`
	Database      *DatabaseConfig      `koanf:"database"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env"`
}

// AWSConfig selects the CloudWatch Logs region and credentials. Empty
// keys fall back to the SDK default credential chain; Endpoint
// overrides the API endpoint for local stacks.
type AWSConfig struct {
	Region          string `koanf:"region" validate:"required"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	Endpoint        string `koanf:"endpoint"`
}

// PublishConfig holds publish defaults; the CLI and HTTP API may
// override group and stream per invocation.
type PublishConfig struct {
	Group       string `koanf:"group"`
	Stream      string `koanf:"stream"`
	MaxLineSize int    `koanf:"max_line_size"`
}

type ServerConfig struct {
	Port         string `koanf:"port"`
	ReadTimeout  int    `koanf:"read_timeout"`
	WriteTimeout int    `koanf:"write_timeout"`
}

// DatabaseConfig enables the run provenance store. Nil disables it;
// publishing works without a database.
type DatabaseConfig struct {
	URL string `koanf:"url" validate:"required"`
}

// Load reads configuration from the environment, applies defaults, and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider("SHIPLOG_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SHIPLOG_")), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	cfg.Observability.ServiceName = "shiplog"
	cfg.Observability.Environment = cfg.Primary.Env
	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("config: observability: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Primary.Env == "" {
		c.Primary.Env = "development"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
}
