// Package config handles loading and validation of notion-push configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given. It may be
// absent, in which case defaults apply.
const DefaultPath = ".notion-push.yaml"

// RepositoryConfig describes the git repository holding the documents.
type RepositoryConfig struct {
	// Path is the working tree to read files and history from.
	Path string `yaml:"path"`
	// URL is the web URL used for "GitHub URL" links. When empty it is
	// derived from the CI environment or the origin remote.
	URL string `yaml:"url,omitempty"`
	// Base is the revision changed files are compared against. Defaults to
	// the first parent of the head commit.
	Base string `yaml:"base,omitempty"`
	// Paths limits change discovery to these path prefixes.
	Paths []string `yaml:"paths,omitempty"`
}

// PropertiesConfig names the Notion page properties the sync writes. The
// page title is always addressed as "title".
type PropertiesConfig struct {
	SyncStatus string `yaml:"sync_status"`
	Status     string `yaml:"status"`
	URL        string `yaml:"url"`
	Version    string `yaml:"version"`
}

// SyncConfig controls the batch runner.
type SyncConfig struct {
	// Attempts is how many times each file is tried before it is recorded
	// as a failure.
	Attempts int `yaml:"attempts"`
	// ListBatchSize is the page size used when listing existing blocks.
	ListBatchSize int `yaml:"list_batch_size"`
}

// RateLimitConfig tunes the Notion API token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// WatchConfig controls the local watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Config is the top-level configuration structure.
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`
	Properties PropertiesConfig `yaml:"properties"`
	Sync       SyncConfig       `yaml:"sync"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Watch      WatchConfig      `yaml:"watch"`

	// NotionToken is loaded from environment, not from config file.
	NotionToken string `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Path: ".",
		},
		Properties: PropertiesConfig{
			SyncStatus: "Sync status",
			Status:     "Status",
			URL:        "GitHub URL",
			Version:    "Version",
		},
		Sync: SyncConfig{
			Attempts:      2,
			ListBatchSize: 50,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 3.0,
			Burst:             10,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads configuration from a YAML file over the defaults, then
// NOTION_TOKEN from the environment. If a .env file exists in the current
// directory, it is loaded first. A missing file is only an error when path
// is not DefaultPath.
func Load(path string) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		// defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.NotionToken = strings.TrimSpace(os.Getenv("NOTION_TOKEN"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the settings are usable. It does not require a
// token; see RequireToken.
func (c *Config) Validate() error {
	var errs []error

	if c.Repository.Path == "" {
		errs = append(errs, errors.New("repository.path is required"))
	}

	props := []struct{ key, value string }{
		{"properties.sync_status", c.Properties.SyncStatus},
		{"properties.status", c.Properties.Status},
		{"properties.url", c.Properties.URL},
		{"properties.version", c.Properties.Version},
	}
	for _, p := range props {
		if strings.TrimSpace(p.value) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", p.key))
		}
	}

	if c.Sync.Attempts < 1 {
		errs = append(errs, fmt.Errorf("sync.attempts must be at least 1, got %d", c.Sync.Attempts))
	}

	if c.Sync.ListBatchSize < 1 || c.Sync.ListBatchSize > 100 {
		errs = append(errs, fmt.Errorf("sync.list_batch_size must be between 1 and 100, got %d", c.Sync.ListBatchSize))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be positive, got %v", c.RateLimit.RequestsPerSecond))
	}

	if c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1, got %d", c.RateLimit.Burst))
	}

	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireToken returns an error if NOTION_TOKEN was not set.
func (c *Config) RequireToken() error {
	if c.NotionToken == "" {
		return errors.New("NOTION_TOKEN environment variable is required")
	}
	return nil
}
