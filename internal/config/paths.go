package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "DIALOGUETREE_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "dialoguetree.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "dialoguetree"
)

// FindConfigPath searches for config file in priority order:
// 1. $DIALOGUETREE_CONFIG (explicit path)
// 2. ./dialoguetree.yaml (working directory)
// 3. $XDG_CONFIG_HOME/dialoguetree/config.yaml
// 4. ~/.config/dialoguetree/config.yaml
// 5. /etc/dialoguetree/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	for _, dir := range userConfigDirs() {
		path := filepath.Join(dir, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	systemPath := filepath.Join("/etc", ConfigDirName, "config.yaml")
	if fileExists(systemPath) {
		return systemPath
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath() string {
	if dirs := userConfigDirs(); len(dirs) > 0 {
		return filepath.Join(dirs[0], ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// DefaultDataDir is where the CLI keeps its local backup slot
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDirName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", ConfigDirName)
	}
	return "."
}

// userConfigDirs lists $XDG_CONFIG_HOME then ~/.config, skipping unset ones
func userConfigDirs() []string {
	var dirs []string
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		dirs = append(dirs, xdgHome)
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config"))
	}
	return dirs
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
