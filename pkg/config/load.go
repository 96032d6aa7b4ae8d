package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "CBF_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Validate
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults. It does not
// validate the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Fields explicitly set to zero values fall back to their defaults
	ApplyDefaults(cfg)

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CBF_SECTION_FIELD (e.g., CBF_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		// First load from file (this already applies defaults)
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CBF_SECTION_FIELD. Values that fail to
// parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Firewall overrides
	envBool("FIREWALL_ENABLED", &cfg.Firewall.Enabled)
	envBool("FIREWALL_DESTROY_BLOCKED_COMMAND_BLOCKS", &cfg.Firewall.DestroyBlockedCommandBlocks)
	envList("FIREWALL_WHITELIST_COMMANDS", &cfg.Firewall.WhitelistCommands)
	envList("FIREWALL_SAFE_ITEMS", &cfg.Firewall.SafeItems)
	envList("FIREWALL_SAFE_ENTITIES", &cfg.Firewall.SafeEntities)
	envInt("FIREWALL_MAX_ITEM_QUANTITY", &cfg.Firewall.MaxItemQuantity)
	envBool("FIREWALL_ALLOW_CUSTOM_NAMESPACES", &cfg.Firewall.AllowCustomNamespaces)
	envFloat("FIREWALL_MAX_COORDINATE_RANGE", &cfg.Firewall.MaxCoordinateRange)
	envBool("FIREWALL_ALLOW_RELATIVE_COORDINATES", &cfg.Firewall.AllowRelativeCoordinates)
	envBool("FIREWALL_ALLOW_LOCAL_COORDINATES", &cfg.Firewall.AllowLocalCoordinates)
	envList("FIREWALL_ALLOWED_SELECTORS", &cfg.Firewall.AllowedSelectors)
	envFloat("FIREWALL_MAX_SELECTOR_RANGE", &cfg.Firewall.MaxSelectorRange)
	envBool("FIREWALL_ALLOW_PLAYER_NAMES", &cfg.Firewall.AllowPlayerNames)
	envInt("FIREWALL_MAX_TARGET_COUNT", &cfg.Firewall.MaxTargetCount)
	envInt("FIREWALL_MAX_EXECUTE_DEPTH", &cfg.Firewall.MaxExecuteDepth)
	envBool("FIREWALL_STRICT_EXECUTE", &cfg.Firewall.StrictExecute)
	envDuration("FIREWALL_SLOW_CHECK_THRESHOLD", &cfg.Firewall.SlowCheckThreshold)

	// Rules overrides
	envString("RULES_FILE", &cfg.Rules.File)
	envBool("RULES_WATCH", &cfg.Rules.Watch)
	envDuration("RULES_DEBOUNCE", &cfg.Rules.Debounce)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Audit overrides
	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envBool("AUDIT_RECORD_ALLOWED", &cfg.Audit.RecordAllowed)
	envInt("AUDIT_ASYNC_BUFFER", &cfg.Audit.AsyncBuffer)
	envDuration("AUDIT_WRITE_TIMEOUT", &cfg.Audit.WriteTimeout)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString("AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envInt("AUDIT_SQLITE_MAX_OPEN_CONNS", &cfg.Audit.SQLite.MaxOpenConns)
	envDuration("AUDIT_SQLITE_BUSY_TIMEOUT", &cfg.Audit.SQLite.BusyTimeout)
	envDuration("AUDIT_RETENTION_MAX_AGE", &cfg.Audit.Retention.MaxAge)
	envInt("AUDIT_RETENTION_MAX_RECORDS", &cfg.Audit.Retention.MaxRecords)
	envString("AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	envDuration("TELEMETRY_HEALTH_CHECK_TIMEOUT", &cfg.Telemetry.Health.CheckTimeout)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envList splits a comma-separated value, dropping empty entries.
func envList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
