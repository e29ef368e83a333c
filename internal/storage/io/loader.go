package io

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/dlsync/internal/model"
)

// ConfigYAMLRepository loads the client configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads a client configuration from a YAML file and returns a validated domain model.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.ClientConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.ClientConfig{}, ctx.Err()
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.ClientConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	mcfg, err := cfg.toModel()
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return mcfg, nil
}

// ClientConfig represents the YAML structure for the client configuration.
type ClientConfig struct {
	Backend      BackendConfig `yaml:"backend"`
	PollInterval string        `yaml:"poll_interval"`
	Journal      JournalConfig `yaml:"journal"`
	Watch        WatchConfig   `yaml:"watch"`
}

// BackendConfig represents the YAML structure for the task backend configuration.
type BackendConfig struct {
	URL     string      `yaml:"url"`
	Timeout string      `yaml:"timeout"`
	Retry   RetryConfig `yaml:"retry"`
}

// RetryConfig represents the YAML structure for the backend request retries.
type RetryConfig struct {
	Count int    `yaml:"count"`
	Wait  string `yaml:"wait"`
}

// JournalConfig represents the YAML structure for the operation journal.
type JournalConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// WatchConfig represents the YAML structure for the watch snapshot server.
type WatchConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func (c ClientConfig) toModel() (model.ClientConfig, error) {
	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return model.ClientConfig{}, fmt.Errorf("backend url must be an http or https URL, got: %q", c.Backend.URL)
		}
	}

	if c.Backend.Retry.Count < 0 {
		return model.ClientConfig{}, fmt.Errorf("backend retry count can't be negative, got: %d", c.Backend.Retry.Count)
	}

	timeout, err := parseDuration(c.Backend.Timeout)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("backend timeout: %w", err)
	}

	retryWait, err := parseDuration(c.Backend.Retry.Wait)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("backend retry wait: %w", err)
	}

	pollInterval, err := parseDuration(c.PollInterval)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("poll interval: %w", err)
	}

	return model.ClientConfig{
		BackendURL:       c.Backend.URL,
		BackendTimeout:   timeout,
		BackendRetries:   c.Backend.Retry.Count,
		BackendRetryWait: retryWait,
		PollInterval:     pollInterval,
		JournalPath:      c.Journal.Path,
		JournalDisabled:  c.Journal.Disabled,
		Listen:           c.Watch.Listen,
		AllowedOrigins:   c.Watch.AllowedOrigins,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be positive, got: %s", s)
	}

	return d, nil
}
