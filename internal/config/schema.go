package config

import (
	"time"

	"dialoguetree/internal/remote"
)

// Config is the root configuration structure
type Config struct {
	Version int          `yaml:"version" toml:"version"`
	Server  ServerConfig `yaml:"server" toml:"server"`
	Client  ClientConfig `yaml:"client" toml:"client"`
	Log     LogConfig    `yaml:"log" toml:"log"`
}

// ServerConfig configures the remote entity store process
type ServerConfig struct {
	Addr        string   `yaml:"addr" toml:"addr"`
	Database    string   `yaml:"database" toml:"database"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" toml:"cors_origins"`
	// WatchFile, when set, is re-imported into the store whenever it changes
	WatchFile string `yaml:"watch_file,omitempty" toml:"watch_file"`
}

// ClientConfig configures the authoring CLI
type ClientConfig struct {
	RemoteURL string               `yaml:"remote_url" toml:"remote_url"`
	Timeout   time.Duration        `yaml:"timeout" toml:"timeout"`
	Breaker   remote.BreakerConfig `yaml:"breaker" toml:"breaker"`
	SlotPath  string               `yaml:"slot_path" toml:"slot_path"`
	SlotKey   string               `yaml:"slot_key" toml:"slot_key"`
}

// LogConfig selects the logger
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json or console
}
