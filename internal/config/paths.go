package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "TESIM_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "tesim.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "tesim"
)

// searchPaths lists config candidates in priority order
func searchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing config file:
// $TESIM_CONFIG, ./tesim.yaml, $XDG_CONFIG_HOME/tesim/config.yaml,
// ~/.config/tesim/config.yaml, /etc/tesim/config.yaml.
//
// Returns empty string if no config file found
func FindConfigPath() string {
	for _, path := range searchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// ResolvePath makes a relative path from the config file relative to the
// file's directory. Absolute paths, ":memory:" and an empty configPath
// are returned unchanged.
func ResolvePath(configPath, path string) string {
	if configPath == "" || path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(configPath), path)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
