// Package config provides configuration for the dialogue store server and
// the authoring CLI.
//
// Config file locations (priority order):
//  1. $DIALOGUETREE_CONFIG
//  2. ./dialoguetree.yaml
//  3. $XDG_CONFIG_HOME/dialoguetree/config.yaml
//  4. ~/.config/dialoguetree/config.yaml
//  5. /etc/dialoguetree/config.yaml
//
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables override file values after defaults are applied.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"dialoguetree/internal/localslot"
	"dialoguetree/internal/remote"
)

// Environment overrides
const (
	EnvAddr      = "DIALOGUETREE_ADDR"
	EnvDatabase  = "DIALOGUETREE_DB"
	EnvRemoteURL = "DIALOGUETREE_REMOTE_URL"
	EnvLogLevel  = "DIALOGUETREE_LOG_LEVEL"
)

// Load finds and loads the config file, or returns defaults if none found.
// The returned path is empty when no file was used.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		_, err = toml.Decode(string(data), &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// Save writes config to the specified path in the format its extension names
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:     ":3001",
			Database: "./dialoguetree.db",
		},
		Client: ClientConfig{
			RemoteURL: "http://localhost:3001",
			Timeout:   10 * time.Second,
			Breaker:   remote.DefaultBreakerConfig(),
			SlotPath:  filepath.Join(DefaultDataDir(), "backup.db"),
			SlotKey:   localslot.DefaultKey,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Database == "" {
		c.Server.Database = d.Server.Database
	}
	if c.Client.RemoteURL == "" {
		c.Client.RemoteURL = d.Client.RemoteURL
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = d.Client.Timeout
	}
	if c.Client.Breaker == (remote.BreakerConfig{}) {
		c.Client.Breaker = d.Client.Breaker
	}
	if c.Client.SlotPath == "" {
		c.Client.SlotPath = d.Client.SlotPath
	}
	if c.Client.SlotKey == "" {
		c.Client.SlotKey = d.Client.SlotKey
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Server.Database = v
	}
	if v := os.Getenv(EnvRemoteURL); v != "" {
		c.Client.RemoteURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Server: %s (db %s)\n", c.Server.Addr, c.Server.Database)
	if c.Server.WatchFile != "" {
		summary += fmt.Sprintf("Watching: %s\n", c.Server.WatchFile)
	}
	summary += fmt.Sprintf("Remote: %s (timeout %s)\n", c.Client.RemoteURL, c.Client.Timeout)
	summary += fmt.Sprintf("Log: %s/%s", c.Log.Level, c.Log.Format)
	return summary
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
