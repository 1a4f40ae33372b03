package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	return nil
}

func validateOracle(cfg *Config) error {
	switch cfg.Oracle.Backend {
	case BackendBuiltin, BackendTreeSitter:
	default:
		return fmt.Errorf("oracle.backend must be %q or %q, got %q", BackendBuiltin, BackendTreeSitter, cfg.Oracle.Backend)
	}
	if cfg.Oracle.CacheSize < 0 {
		return fmt.Errorf("oracle.cache_size must be >= 0, got %d", cfg.Oracle.CacheSize)
	}
	return nil
}

func validateLimits(cfg *Config) error {
	if cfg.Limits.ChecksPerSecond < 0 {
		return fmt.Errorf("limits.checks_per_second must be >= 0, got %g", cfg.Limits.ChecksPerSecond)
	}
	if cfg.Limits.Burst < 1 {
		return fmt.Errorf("limits.burst must be >= 1, got %d", cfg.Limits.Burst)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	for _, pattern := range cfg.Watch.Include {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("watch.include contains an empty pattern")
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.include pattern %q: %w", pattern, err)
		}
	}
	for _, dir := range cfg.Watch.ExcludeDirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("watch.exclude_dirs contains an empty entry")
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if addr := strings.TrimSpace(obs.MetricsAddress); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("observability.metrics_address %q: %w", addr, err)
		}
	}
	if obs.TracingEnabled && strings.TrimSpace(obs.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint must be set when tracing is enabled")
	}
	return nil
}
