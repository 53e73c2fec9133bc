// Package config loads RecallQ configuration from YAML files and the
// environment. Precedence, lowest to highest: hardcoded defaults, the user
// config (~/.config/recallq/config.yaml), an explicit config file, and
// RECALLQ_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recallq/recallq/pkg/orchestrator"
)

// Config is the complete RecallQ configuration.
type Config struct {
	// Endpoint is the base URL of the recall service.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Limit is the maximum number of results per search.
	Limit int `yaml:"limit" json:"limit"`

	Query   QueryConfig   `yaml:"query" json:"query"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// QueryConfig tunes the query orchestrator. Pointer fields distinguish
// "not set" from an explicit zero so partial files merge cleanly.
type QueryConfig struct {
	// MinLength is the minimum normalized query length in runes.
	MinLength *int `yaml:"min_length" json:"min_length"`

	// DebounceMs is the input settle window in milliseconds.
	DebounceMs *int `yaml:"debounce_ms" json:"debounce_ms"`

	// CacheTTLMs is the result cache time-to-live in milliseconds.
	CacheTTLMs *int `yaml:"cache_ttl_ms" json:"cache_ttl_ms"`

	// UseCache enables result memoization.
	UseCache *bool `yaml:"use_cache" json:"use_cache"`

	// RefreshOnCache issues a live fetch even after a cache hit.
	RefreshOnCache *bool `yaml:"refresh_on_cache" json:"refresh_on_cache"`

	// CacheCapacity bounds the number of memoized queries.
	CacheCapacity int `yaml:"cache_capacity" json:"cache_capacity"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// NewConfig returns a configuration with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:9321",
		Limit:    10,
		Query: QueryConfig{
			CacheCapacity: orchestrator.DefaultCacheCapacity,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration. path may be empty, in which case
// only the user config and environment are consulted.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if userPath := userConfigPath(); userPath != "" {
		if _, err := os.Stat(userPath); err == nil {
			if err := cfg.loadYAML(userPath); err != nil {
				return nil, fmt.Errorf("failed to load user config: %w", err)
			}
		}
	}

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// userConfigPath returns the per-user config location, honoring
// XDG_CONFIG_HOME when set.
func userConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recallq", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "recallq", "config.yaml")
}

// loadYAML parses a YAML file and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges set values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Endpoint != "" {
		c.Endpoint = other.Endpoint
	}
	if other.Limit != 0 {
		c.Limit = other.Limit
	}

	if other.Query.MinLength != nil {
		c.Query.MinLength = other.Query.MinLength
	}
	if other.Query.DebounceMs != nil {
		c.Query.DebounceMs = other.Query.DebounceMs
	}
	if other.Query.CacheTTLMs != nil {
		c.Query.CacheTTLMs = other.Query.CacheTTLMs
	}
	if other.Query.UseCache != nil {
		c.Query.UseCache = other.Query.UseCache
	}
	if other.Query.RefreshOnCache != nil {
		c.Query.RefreshOnCache = other.Query.RefreshOnCache
	}
	if other.Query.CacheCapacity != 0 {
		c.Query.CacheCapacity = other.Query.CacheCapacity
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies RECALLQ_* environment variable overrides.
// Environment variables take precedence over all config files.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RECALLQ_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("RECALLQ_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limit = n
		}
	}
	if v := os.Getenv("RECALLQ_MIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.MinLength = &n
		}
	}
	if v := os.Getenv("RECALLQ_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.DebounceMs = &n
		}
	}
	if v := os.Getenv("RECALLQ_CACHE_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.CacheTTLMs = &n
		}
	}
	if v := os.Getenv("RECALLQ_USE_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Query.UseCache = &b
		}
	}
	if v := os.Getenv("RECALLQ_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RECALLQ_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.Query.MinLength != nil && *c.Query.MinLength < 1 {
		return fmt.Errorf("query.min_length must be at least 1, got %d", *c.Query.MinLength)
	}
	if c.Query.DebounceMs != nil && *c.Query.DebounceMs < 0 {
		return fmt.Errorf("query.debounce_ms must not be negative, got %d", *c.Query.DebounceMs)
	}
	if c.Query.CacheTTLMs != nil && *c.Query.CacheTTLMs < 0 {
		return fmt.Errorf("query.cache_ttl_ms must not be negative, got %d", *c.Query.CacheTTLMs)
	}
	if c.Query.CacheCapacity < 0 {
		return fmt.Errorf("query.cache_capacity must not be negative, got %d", c.Query.CacheCapacity)
	}
	return nil
}

// Patch converts the query section into an orchestrator option patch.
func (q QueryConfig) Patch() orchestrator.OptionPatch {
	p := orchestrator.OptionPatch{
		MinLength:      q.MinLength,
		UseCache:       q.UseCache,
		RefreshOnCache: q.RefreshOnCache,
	}
	if q.DebounceMs != nil {
		d := time.Duration(*q.DebounceMs) * time.Millisecond
		p.Debounce = &d
	}
	if q.CacheTTLMs != nil {
		d := time.Duration(*q.CacheTTLMs) * time.Millisecond
		p.CacheTTL = &d
	}
	return p
}

// Options returns the full orchestrator option set with the query section
// applied over the defaults.
func (q QueryConfig) Options() orchestrator.Options {
	opts := orchestrator.DefaultOptions()
	q.Patch().Apply(&opts)
	return opts
}
