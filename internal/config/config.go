package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ClaudeRoot       string `toml:"claude_root"`
	ClaudeStats      string `toml:"claude_stats"`
	CodexRoot        string `toml:"codex_root"`
	CacheDB          string `toml:"cache_db"` // "" disables the metadata cache
	SessionCacheSize int    `toml:"session_cache_size"`
	PageSize         int    `toml:"page_size"`
	MaxResults       int    `toml:"max_results"`
	LogLevel         string `toml:"log_level"`
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "asv", "config.toml"), nil
}

func defaults(home string) *Config {
	return &Config{
		ClaudeRoot:       filepath.Join(home, ".claude", "projects"),
		ClaudeStats:      filepath.Join(home, ".claude", "stats-cache.json"),
		CodexRoot:        filepath.Join(home, ".codex", "sessions"),
		CacheDB:          filepath.Join(home, ".config", "asv", "meta.db"),
		SessionCacheSize: 20,
		PageSize:         50,
		MaxResults:       50,
		LogLevel:         "warn",
	}
}

// Load returns the defaults overlaid with the TOML file at cfgPath. An empty
// cfgPath means DefaultPath, which may be absent; an explicit path must exist.
func Load(cfgPath string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	cfg := defaults(home)

	explicit := cfgPath != ""
	if !explicit {
		cfgPath = filepath.Join(home, ".config", "asv", "config.toml")
	}
	cfgPath = expandHome(cfgPath, home)
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	// expand ~ in paths
	cfg.ClaudeRoot = expandHome(cfg.ClaudeRoot, home)
	cfg.ClaudeStats = expandHome(cfg.ClaudeStats, home)
	cfg.CodexRoot = expandHome(cfg.CodexRoot, home)
	cfg.CacheDB = expandHome(cfg.CacheDB, home)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionCacheSize < 0 {
		return fmt.Errorf("session_cache_size must be >= 0, got %d", c.SessionCacheSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0, got %d", c.PageSize)
	}
	return nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
