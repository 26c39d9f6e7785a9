// Package config loads the run configuration for the migration engine:
// schema sources, document globs, extraction strategy, the query-name
// dictionary, and the confidence gates that decide which
// transformations may be applied automatically.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// SchemaSource represents a source for the target GraphQL schema.
type SchemaSource struct {
	Type     string            `yaml:"type,omitempty"`      // "file" | "url" | "introspection"
	Path     string            `yaml:"path,omitempty"`      // For file-based schemas
	URL      string            `yaml:"url,omitempty"`       // For remote schemas
	Headers  map[string]string `yaml:"headers,omitempty"`   // For authentication
	Timeout  string            `yaml:"timeout,omitempty"`   // HTTP timeout (e.g., "30s")
	Retries  int               `yaml:"retries,omitempty"`   // Number of retry attempts
	CacheTTL string            `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"` // Cache TTL (e.g., "5m")
}

// Documents defines where to find host files carrying embedded GraphQL.
type Documents struct {
	Include []string `yaml:"include"` // Glob patterns for files to include
	Exclude []string `yaml:"exclude"` // Glob patterns for files to exclude
}

// Thresholds holds the confidence-score cutoffs that separate automatic,
// semi-automatic, and manual transformations.
type Thresholds struct {
	Automatic     int `yaml:"automatic"`
	SemiAutomatic int `yaml:"semiAutomatic"`
}

// DefaultThresholds are the cutoffs used when a config omits its own.
func DefaultThresholds() Thresholds {
	return Thresholds{Automatic: 90, SemiAutomatic: 70}
}

// Config represents the full run configuration.
type Config struct {
	Schema     []SchemaSource    `yaml:"schema"`
	Documents  Documents         `yaml:"documents"`
	Strategy   string            `yaml:"strategy"` // "pluck" | "ast" | "hybrid"
	QueryNames map[string]string `yaml:"queryNames"`

	PreserveSourcePositions bool `yaml:"preserveSourcePositions"`
	ResolveFragments        bool `yaml:"resolveFragments"`
	DryRun                  bool `yaml:"dryRun"`
	ValidateAgainstSchema   bool `yaml:"validateAgainstSchema"`

	Thresholds    Thresholds `yaml:"thresholds"`
	MinConfidence int        `yaml:"minConfidence"`
	Concurrency   int        `yaml:"concurrency"`

	OnTypeConflict string `yaml:"onTypeConflict"` // "error" (default) | "useFirst" | "useLast"

	Verbose bool `yaml:"verbose"`
}

// LoadFile loads configuration from a file (YAML, TypeScript, or JavaScript).
func LoadFile(path string) (*Config, error) {
	registry := NewLoaderRegistry()
	return registry.Load(path)
}

// setDefaults fills in defaults the way the CLI would when a field is
// left unset in the config file.
func (c *Config) setDefaults() error {
	for i := range c.Schema {
		if c.Schema[i].Type == "" {
			if c.Schema[i].Path != "" {
				c.Schema[i].Type = "file"
			} else if c.Schema[i].URL != "" {
				c.Schema[i].Type = "url"
			}
		}
	}

	if len(c.Documents.Include) == 0 {
		c.Documents.Include = []string{
			"**/*.ts",
			"**/*.tsx",
			"**/*.js",
			"**/*.jsx",
		}
	}

	if c.Strategy == "" {
		c.Strategy = "hybrid"
	}

	if c.QueryNames == nil {
		c.QueryNames = make(map[string]string)
	}

	if c.Thresholds.Automatic == 0 && c.Thresholds.SemiAutomatic == 0 {
		c.Thresholds = DefaultThresholds()
	}

	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	return nil
}

// Validate checks if the configuration is usable before any I/O runs.
// A configuration error is fatal for the whole run.
func (c *Config) Validate() error {
	if len(c.Schema) == 0 {
		return fmt.Errorf("at least one schema source is required")
	}

	if err := ValidateConflictStrategy(c.OnTypeConflict); err != nil {
		return err
	}

	for i, source := range c.Schema {
		if source.Type == "" {
			return fmt.Errorf("schema[%d]: type is required", i)
		}

		switch source.Type {
		case "file":
			if source.Path == "" {
				return fmt.Errorf("schema[%d]: path is required for file type", i)
			}
		case "url", "introspection":
			if source.URL == "" {
				return fmt.Errorf("schema[%d]: url is required for %s type", i, source.Type)
			}
			if err := validateURL(source.URL); err != nil {
				return fmt.Errorf("schema[%d]: invalid URL: %w", i, err)
			}
			if source.Timeout != "" {
				if err := validateDuration(source.Timeout); err != nil {
					return fmt.Errorf("schema[%d]: invalid timeout: %w", i, err)
				}
			}
			if source.CacheTTL != "" {
				if err := validateDuration(source.CacheTTL); err != nil {
					return fmt.Errorf("schema[%d]: invalid cache_ttl: %w", i, err)
				}
			}
		default:
			return fmt.Errorf("schema[%d]: invalid type %q", i, source.Type)
		}
	}

	if len(c.Documents.Include) == 0 {
		return fmt.Errorf("documents.include cannot be empty")
	}

	switch c.Strategy {
	case "pluck", "ast", "hybrid":
	default:
		return fmt.Errorf("invalid strategy %q: must be pluck, ast, or hybrid", c.Strategy)
	}

	if c.Thresholds.Automatic < c.Thresholds.SemiAutomatic {
		return fmt.Errorf("thresholds.automatic (%d) must be >= thresholds.semiAutomatic (%d)", c.Thresholds.Automatic, c.Thresholds.SemiAutomatic)
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}

	return nil
}

func validateURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func validateDuration(duration string) error {
	_, err := time.ParseDuration(duration)
	return err
}

// ResolveRelativePaths resolves all relative paths in the config
// relative to the config file's directory.
func (c *Config) ResolveRelativePaths(configPath string) {
	baseDir := filepath.Dir(configPath)

	for i := range c.Schema {
		if c.Schema[i].Path != "" && !filepath.IsAbs(c.Schema[i].Path) {
			c.Schema[i].Path = filepath.Join(baseDir, c.Schema[i].Path)
		}
	}

	for i := range c.Documents.Include {
		if !filepath.IsAbs(c.Documents.Include[i]) {
			c.Documents.Include[i] = filepath.Join(baseDir, c.Documents.Include[i])
		}
	}
	for i := range c.Documents.Exclude {
		if !filepath.IsAbs(c.Documents.Exclude[i]) {
			c.Documents.Exclude[i] = filepath.Join(baseDir, c.Documents.Exclude[i])
		}
	}
}

// ExtendQueryNames registers additional dotted query-name dictionary
// keys at startup, merging over (not replacing) any already loaded.
func (c *Config) ExtendQueryNames(extra map[string]string) {
	if c.QueryNames == nil {
		c.QueryNames = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		c.QueryNames[k] = v
	}
}
