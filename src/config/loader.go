package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// EnvironmentPrefix namespaces the environment variable overrides.
const EnvironmentPrefix = "AILOG"

// Loader loads, merges and validates configuration.
type Loader struct {
	path      string
	validator *Validator
}

// NewLoader creates a loader reading from path, or the default user config
// location when path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultConfigPath()
	}
	return &Loader{
		path:      path,
		validator: NewValidator(),
	}
}

// Load builds the effective configuration: defaults, then the config file if
// it exists, then environment overrides, then validation.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if cfg, err := l.loadFile(l.path); err == nil {
		config = l.mergeConfigs(config, cfg)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.path, err)
	}

	l.applyEnvironmentOverrides(config)

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &config, nil
}

// SaveFile writes the configuration to a file, creating parent directories.
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// mergeConfigs merges two configurations with the second taking precedence.
func (l *Loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}
	if override.DBPath != "" {
		result.DBPath = override.DBPath
	}

	if len(override.Agents) > 0 {
		if result.Agents == nil {
			result.Agents = make(map[string]AgentConfig)
		}
		for k, v := range override.Agents {
			result.Agents[k] = v
		}
	}

	if override.Index.Workers != 0 {
		result.Index.Workers = override.Index.Workers
	}
	if override.Index.MaxFileSize != 0 {
		result.Index.MaxFileSize = override.Index.MaxFileSize
	}
	if override.Index.WatchIntervalSeconds != 0 {
		result.Index.WatchIntervalSeconds = override.Index.WatchIntervalSeconds
	}
	if override.Index.DebounceMillis != 0 {
		result.Index.DebounceMillis = override.Index.DebounceMillis
	}

	if override.Query.DefaultLimit != 0 {
		result.Query.DefaultLimit = override.Query.DefaultLimit
	}
	if override.Query.RecencyBoostDays != 0 {
		result.Query.RecencyBoostDays = override.Query.RecencyBoostDays
	}

	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}

	return &result
}

// applyEnvironmentOverrides applies AILOG_* environment variables on top of
// the merged file config.
func (l *Loader) applyEnvironmentOverrides(config *Config) {
	if dbPath := os.Getenv(EnvironmentPrefix + "_DB_PATH"); dbPath != "" {
		config.DBPath = dbPath
	}
	if level := os.Getenv(EnvironmentPrefix + "_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if workers := os.Getenv(EnvironmentPrefix + "_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Index.Workers = n
		}
	}
	if limit := os.Getenv(EnvironmentPrefix + "_DEFAULT_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Query.DefaultLimit = n
		}
	}

	// Per-agent data directory overrides, e.g. AILOG_CLAUDECODE_DIR.
	for _, agent := range []string{"claudecode", "codex", "cursor"} {
		env := EnvironmentPrefix + "_" + toEnvKey(agent) + "_DIR"
		if dir := os.Getenv(env); dir != "" {
			if config.Agents == nil {
				config.Agents = make(map[string]AgentConfig)
			}
			ac := config.Agents[agent]
			ac.DataDir = dir
			config.Agents[agent] = ac
		}
	}
}

func toEnvKey(agent string) string {
	out := make([]byte, len(agent))
	for i := 0; i < len(agent); i++ {
		c := agent[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
