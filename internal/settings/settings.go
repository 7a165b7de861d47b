// Package settings provides the persisted client-side stores: the process
// configuration loaded through viper, and the small UI state file that
// survives restarts (selected todo, view mode, unsaved drafts).
//
// Configuration is read once at startup and passed explicitly through the
// engine; nothing below the CLI boundary reads viper directly.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the process configuration.
type Config struct {
	// RootFolder is the directory inside the remote store that holds the
	// todo documents, e.g. "todos".
	RootFolder string `mapstructure:"root_folder"`

	// StoreBackend selects the remote store adapter: "git" or "memory".
	StoreBackend string `mapstructure:"store_backend"`

	// RepoPath is the local clone used by the git backend.
	RepoPath string `mapstructure:"repo_path"`

	// DraftsDir is the local directory watched for draft edits.
	DraftsDir string `mapstructure:"drafts_dir"`

	// CachePath is the SQLite snapshot used for offline listing.
	CachePath string `mapstructure:"cache_path"`

	// DashboardPort is the WebSocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`

	// LogPath is the rotated log file; empty logs to stderr only.
	LogPath string `mapstructure:"log_path"`

	// Model is the generation model used for plans and commit messages.
	Model string `mapstructure:"model"`
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gitodo"
	}
	return filepath.Join(home, ".gitodo")
}

// Load reads configuration from dir/config.yaml, falling back to defaults
// for anything unset. GITODO_* environment variables override file values.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("root_folder", "todos")
	v.SetDefault("store_backend", "git")
	v.SetDefault("repo_path", ".")
	v.SetDefault("drafts_dir", filepath.Join(dir, "drafts"))
	v.SetDefault("cache_path", filepath.Join(dir, "cache.db"))
	v.SetDefault("dashboard_port", 8090)
	v.SetDefault("log_path", filepath.Join(dir, "gitodo.log"))
	v.SetDefault("model", "claude-sonnet-4-5")

	v.SetEnvPrefix("GITODO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file means defaults; anything else is real.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to dir/config.yaml, creating the directory when needed.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("root_folder", cfg.RootFolder)
	v.Set("store_backend", cfg.StoreBackend)
	v.Set("repo_path", cfg.RepoPath)
	v.Set("drafts_dir", cfg.DraftsDir)
	v.Set("cache_path", cfg.CachePath)
	v.Set("dashboard_port", cfg.DashboardPort)
	v.Set("log_path", cfg.LogPath)
	v.Set("model", cfg.Model)

	path := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
