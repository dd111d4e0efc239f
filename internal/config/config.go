// Package config loads runtime configuration for docomatic from an
// optional TOML file plus environment overrides.
//
// Precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full runtime configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
	GitHub   GitHubConfig   `toml:"github"`
	Backup   BackupConfig   `toml:"backup"`
}

type DatabaseConfig struct {
	Path             string `toml:"path"`                                 // SQLite file path (default: ~/.docomatic/docomatic.db)
	MaxSearchResults int    `toml:"max_search_results" validate:"gte=1"`  // Hard cap on search result limits
}

type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"` // Minimum log level
	Format string `toml:"format" validate:"oneof=console json"`               // Log output format
}

type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"` // Streamable HTTP listen address; empty means stdio only
}

type GitHubConfig struct {
	Token string `toml:"token"` // Export token; the GITHUB_TOKEN env var overrides
}

// BackupConfig drives the scheduled GitHub export. The backup is active
// when a schedule and a target repository are configured.
type BackupConfig struct {
	Schedule  string `toml:"schedule"`                                    // Cron expression; empty disables the backup
	RepoOwner string `toml:"repo_owner"`                                  // Target repository owner
	RepoName  string `toml:"repo_name"`                                   // Target repository name
	Branch    string `toml:"branch"`                                      // Target branch (default branch when empty)
	Format    string `toml:"format" validate:"omitempty,oneof=single multi"` // Export format
	BasePath  string `toml:"base_path"`                                   // Base directory in the repository
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{MaxSearchResults: 1000},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Backup:   BackupConfig{BasePath: "docs"},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docomatic", "config.toml")
}

// Load reads the configuration. An empty path falls back to DefaultPath;
// a missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case explicit || !os.IsNotExist(err):
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCOMATIC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DOCOMATIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCOMATIC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DOCOMATIC_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

// BackupEnabled reports whether the scheduled backup is fully configured.
func (c *Config) BackupEnabled() bool {
	return c.Backup.Schedule != "" && c.Backup.RepoOwner != "" && c.Backup.RepoName != ""
}
