package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the default configuration filename.
const DefaultConfigFilename = "simrun.yaml"

// Environment variables that override file values.
const (
	EnvHCloudToken = "HCLOUD_TOKEN"
	EnvProject     = "SIMRUN_PROJECT"
	EnvS3AccessKey = "S3_ACCESS_KEY"
	EnvS3SecretKey = "S3_SECRET_KEY"
	EnvS3Endpoint  = "S3_ENDPOINT"
	EnvNATSURL     = "SIMRUN_NATS_URL"
)

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses, completes and validates a configuration.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration built only from defaults and environment.
func Default() *Config {
	var cfg Config
	cfg.ApplyEnv()
	cfg.SetDefaults()
	return &cfg
}

// ApplyEnv overlays secrets and endpoints from the environment. Set
// variables win over file values.
func (c *Config) ApplyEnv() {
	overrideFromEnv(&c.Provider.Token, EnvHCloudToken)
	overrideFromEnv(&c.Provider.Project, EnvProject)
	overrideFromEnv(&c.Provider.Storage.AccessKey, EnvS3AccessKey)
	overrideFromEnv(&c.Provider.Storage.SecretKey, EnvS3SecretKey)
	overrideFromEnv(&c.Provider.Storage.Endpoint, EnvS3Endpoint)
	overrideFromEnv(&c.NATS.URL, EnvNATSURL)
}

func overrideFromEnv(field *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*field = v
	}
}
