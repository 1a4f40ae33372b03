package config

import "time"

// Config is the decoded form of bindsig.toml.
type Config struct {
	Version       int           `toml:"version"`
	Oracle        Oracle        `toml:"oracle"`
	Limits        Limits        `toml:"limits"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

// Oracle selects and tunes the expression syntax oracle.
type Oracle struct {
	Backend   string `toml:"backend"`
	Serialize *bool  `toml:"serialize"`
	CacheSize int    `toml:"cache_size"`
}

// SerializeCalls reports whether oracle calls run inside a critical section.
// Unset means true.
func (o Oracle) SerializeCalls() bool {
	return o.Serialize == nil || *o.Serialize
}

// Limits throttles batch checks. Zero ChecksPerSecond means unlimited.
type Limits struct {
	ChecksPerSecond float64 `toml:"checks_per_second"`
	Burst           int     `toml:"burst"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	Include     []string      `toml:"include"`
	ExcludeDirs []string      `toml:"exclude_dirs"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	TracingEnabled bool   `toml:"tracing_enabled"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
	Insecure       bool   `toml:"insecure"`
}

const (
	BackendBuiltin    = "builtin"
	BackendTreeSitter = "tree-sitter"
)

// DefaultConfig returns the configuration used when no bindsig.toml exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Oracle.CacheSize = defaultCacheSize
	return cfg
}
