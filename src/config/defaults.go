package config

// DefaultConfig returns the configuration used when no file exists. Every
// field here can be overridden by the config file or environment.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Agents:  map[string]AgentConfig{},
		Index: IndexConfig{
			Workers:              0, // one per CPU
			MaxFileSize:          10 * 1024 * 1024,
			WatchIntervalSeconds: 300,
			DebounceMillis:       2000,
		},
		Query: QueryConfig{
			DefaultLimit:     100,
			RecencyBoostDays: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
