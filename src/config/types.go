package config

// Config is the complete ailog configuration.
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// DBPath is the SQLite index location. Empty means the XDG default.
	DBPath string `json:"db_path,omitempty" validate:"omitempty,abs_path"`

	// Agents configures per-agent log discovery.
	Agents map[string]AgentConfig `json:"agents,omitempty" validate:"dive"`

	// Index configures ingestion behavior.
	Index IndexConfig `json:"index"`

	// Query configures defaults for list and search.
	Query QueryConfig `json:"query"`

	// Log configures diagnostic output.
	Log LogConfig `json:"log"`
}

// AgentConfig configures one source agent.
type AgentConfig struct {
	// Enabled controls whether this agent's logs are scanned. Agents are
	// enabled unless explicitly disabled.
	Enabled *bool `json:"enabled,omitempty"`

	// DataDir overrides the agent's default log directory.
	DataDir string `json:"data_dir,omitempty" validate:"omitempty,abs_path"`
}

// On reports whether the agent should be scanned.
func (a AgentConfig) On() bool {
	return a.Enabled == nil || *a.Enabled
}

// IndexConfig configures ingestion.
type IndexConfig struct {
	// Workers is the parse pool size. Zero means one per CPU.
	Workers int `json:"workers,omitempty" validate:"min=0,max=64"`

	// MaxFileSize caps how large a session file may be before it is
	// skipped, in bytes.
	MaxFileSize int64 `json:"max_file_size,omitempty" validate:"min=0"`

	// WatchIntervalSeconds is the periodic rescan interval for watch mode.
	WatchIntervalSeconds int `json:"watch_interval_seconds,omitempty" validate:"min=0,max=86400"`

	// DebounceMillis is how long watch mode waits after a filesystem event
	// before re-ingesting, batching bursts of writes.
	DebounceMillis int `json:"debounce_millis,omitempty" validate:"min=0,max=60000"`
}

// QueryConfig configures query defaults.
type QueryConfig struct {
	// DefaultLimit caps result counts when the caller gives none.
	DefaultLimit int `json:"default_limit,omitempty" validate:"min=0,max=10000"`

	// RecencyBoostDays is the window inside which newer sessions get a
	// ranking boost. Zero disables the boost.
	RecencyBoostDays int `json:"recency_boost_days,omitempty" validate:"min=0,max=3650"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" validate:"omitempty,log_level"`
}

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return "config field " + e.Field + ": " + e.Message
}
