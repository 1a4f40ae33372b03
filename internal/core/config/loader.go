package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultFile         = "bindsig.toml"
	defaultCacheSize    = 1024
	defaultBurst        = 16
	defaultDBPath       = "data/bindsig/history.db"
	defaultDebounce     = 300 * time.Millisecond
	defaultBusyTimeout  = 5 * time.Second
	defaultOTLPEndpoint = "127.0.0.1:4317"
	defaultServiceName  = "bindsig"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	// cache_size = 0 is meaningful; only fill it when the key is absent.
	cacheSet := md.IsDefined("oracle", "cache_size")

	applyDefaults(&cfg)
	if !cacheSet {
		cfg.Oracle.CacheSize = defaultCacheSize
	}
	ApplyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)
		return cfg, Validate(cfg)
	}
	return Load(path)
}

// Validate runs every section validator and returns the first failure.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateOracle,
		validateLimits,
		validateDatabase,
		validateWatch,
		validateObservability,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	cfg.Oracle.Backend = strings.ToLower(strings.TrimSpace(cfg.Oracle.Backend))
	if cfg.Oracle.Backend == "" {
		cfg.Oracle.Backend = BackendBuiltin
	}
	if cfg.Oracle.Serialize == nil {
		enabled := true
		cfg.Oracle.Serialize = &enabled
	}

	if cfg.Limits.Burst == 0 {
		cfg.Limits.Burst = defaultBurst
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = defaultDBPath
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = defaultBusyTimeout
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
	if len(cfg.Watch.Include) == 0 {
		cfg.Watch.Include = []string{"*.bind"}
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{".git", "node_modules"}
	}

	if strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		cfg.Observability.OTLPEndpoint = defaultOTLPEndpoint
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = defaultServiceName
	}
}
