// Package config loads rbls configuration. The primary file is
// .rbls/config.json in the workspace root; a checked-in .rbls.yml at the
// root overlays it so a team can commit shared settings while keeping
// machine-local ones out of version control.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete rbls configuration (v1 schema)
type Config struct {
	Version       int    `json:"version" mapstructure:"version" yaml:"version"`
	WorkspaceRoot string `json:"workspaceRoot" mapstructure:"workspaceRoot" yaml:"workspaceRoot"`

	Index      IndexConfig      `json:"index" mapstructure:"index" yaml:"index"`
	Resolution ResolutionConfig `json:"resolution" mapstructure:"resolution" yaml:"resolution"`
	Search     SearchConfig     `json:"search" mapstructure:"search" yaml:"search"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache" yaml:"cache"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging" yaml:"logging"`
}

// IndexConfig controls file discovery and indexing.
type IndexConfig struct {
	// Workers is the indexing worker pool size. Zero means GOMAXPROCS.
	Workers int `json:"workers" mapstructure:"workers" yaml:"workers"`
	// ExcludeDirs are directory names skipped during discovery, in
	// addition to .gitignore rules.
	ExcludeDirs []string `json:"excludeDirs" mapstructure:"excludeDirs" yaml:"excludeDirs"`
	// MaxFileSizeBytes skips source files larger than this.
	MaxFileSizeBytes int `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes" yaml:"maxFileSizeBytes"`
	// FollowGitignore applies .gitignore rules during discovery.
	FollowGitignore bool `json:"followGitignore" mapstructure:"followGitignore" yaml:"followGitignore"`
}

// ResolutionConfig bounds name resolution.
type ResolutionConfig struct {
	// MaxMethodCandidates caps method lookup fan-out.
	MaxMethodCandidates int `json:"maxMethodCandidates" mapstructure:"maxMethodCandidates" yaml:"maxMethodCandidates"`
	// MaxAliasDepth caps alias-of-alias chains.
	MaxAliasDepth int `json:"maxAliasDepth" mapstructure:"maxAliasDepth" yaml:"maxAliasDepth"`
}

// SearchConfig controls fuzzy search defaults.
type SearchConfig struct {
	// DefaultLimit caps search results when the caller does not set one.
	DefaultLimit int `json:"defaultLimit" mapstructure:"defaultLimit" yaml:"defaultLimit"`
}

// CacheConfig controls the on-disk snapshot.
type CacheConfig struct {
	// Enabled persists per-file entry snapshots in .rbls/index.db.
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	// Path overrides the snapshot database location.
	Path string `json:"path" mapstructure:"path" yaml:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" yaml:"format"`
	Level  string `json:"level" mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		WorkspaceRoot: ".",
		Index: IndexConfig{
			Workers:          0,
			ExcludeDirs:      []string{".git", "vendor", "node_modules", "tmp", "log"},
			MaxFileSizeBytes: 1000000,
			FollowGitignore:  true,
		},
		Resolution: ResolutionConfig{
			MaxMethodCandidates: 10,
			MaxAliasDepth:       5,
		},
		Search: SearchConfig{
			DefaultLimit: 50,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration for a workspace: defaults, then
// .rbls/config.json, then a .rbls.yml overlay if present.
func LoadConfig(workspaceRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(workspaceRoot, ".rbls"))

	cfg := DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := applyOverlay(cfg, filepath.Join(workspaceRoot, ".rbls.yml")); err != nil {
		return nil, err
	}

	cfg.applyFloors()
	return cfg, nil
}

// applyOverlay merges the committed YAML overlay into cfg. A missing
// file is not an error.
func applyOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyFloors replaces zero or negative bounds with defaults so a
// partially written config file cannot disable the caps.
func (c *Config) applyFloors() {
	def := DefaultConfig()
	if c.Resolution.MaxMethodCandidates <= 0 {
		c.Resolution.MaxMethodCandidates = def.Resolution.MaxMethodCandidates
	}
	if c.Resolution.MaxAliasDepth <= 0 {
		c.Resolution.MaxAliasDepth = def.Resolution.MaxAliasDepth
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = def.Search.DefaultLimit
	}
	if c.Index.MaxFileSizeBytes <= 0 {
		c.Index.MaxFileSizeBytes = def.Index.MaxFileSizeBytes
	}
	if c.WorkspaceRoot == "" {
		c.WorkspaceRoot = "."
	}
}

// Save writes the configuration to .rbls/config.json
func (c *Config) Save(workspaceRoot string) error {
	dir := filepath.Join(workspaceRoot, ".rbls")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Index.Workers < 0 {
		return &ConfigError{Field: "index.workers", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
