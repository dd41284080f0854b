package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultConfigPath is the user config file location under XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "ailog", "config.json")
}

// DefaultDBPath is the index database location under XDG_STATE_HOME. The
// index is derived state, rebuildable from the source logs, so it does not
// belong in XDG_DATA_HOME.
func DefaultDBPath() string {
	return filepath.Join(xdg.StateHome, "ailog", "index.db")
}

// ResolveDBPath resolves the configured database path, falling back to the
// default.
func (c *Config) ResolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return DefaultDBPath()
}
