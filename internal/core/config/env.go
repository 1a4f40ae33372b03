package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: BINDSIG_[SECTION]_[KEY] (e.g., BINDSIG_ORACLE_BACKEND).
func ApplyEnvOverrides(cfg *Config) {
	// Oracle
	setEnvString(&cfg.Oracle.Backend, "BINDSIG_ORACLE_BACKEND")
	if val, ok := lookupBool("BINDSIG_ORACLE_SERIALIZE"); ok {
		cfg.Oracle.Serialize = &val
	}
	setEnvInt(&cfg.Oracle.CacheSize, "BINDSIG_ORACLE_CACHE_SIZE")

	// Limits
	setEnvFloat64(&cfg.Limits.ChecksPerSecond, "BINDSIG_LIMITS_CHECKS_PER_SECOND")
	setEnvInt(&cfg.Limits.Burst, "BINDSIG_LIMITS_BURST")

	// Database
	setEnvBool(&cfg.DB.Enabled, "BINDSIG_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "BINDSIG_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "BINDSIG_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "BINDSIG_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "BINDSIG_OBSERVABILITY_METRICS_ADDRESS")
	setEnvBool(&cfg.Observability.TracingEnabled, "BINDSIG_OBSERVABILITY_TRACING_ENABLED")
	setEnvString(&cfg.Observability.OTLPEndpoint, "BINDSIG_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "BINDSIG_OBSERVABILITY_SERVICE_NAME")

	cfg.Oracle.Backend = strings.ToLower(strings.TrimSpace(cfg.Oracle.Backend))
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func lookupBool(key string) (bool, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(val))
	if err != nil {
		return false, false
	}
	slog.Debug("applying env override", "key", key, "value", val)
	return b, true
}

func setEnvBool(target *bool, key string) {
	if b, ok := lookupBool(key); ok {
		*target = b
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
