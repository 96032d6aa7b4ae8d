package config

import "time"

// Config is the root configuration structure for the command firewall.
// It contains all configuration sections for the firewall rules, the HTTP
// decision server, audit storage and telemetry.
type Config struct {
	// Firewall contains the settings used to build the default rule set:
	// the command whitelist and the limits handed to every validator.
	Firewall FirewallConfig `yaml:"firewall"`

	// Rules contains the location of the rule file and its watch mode.
	Rules RulesConfig `yaml:"rules"`

	// Server contains HTTP decision server configuration including listen
	// address and timeouts.
	Server ServerConfig `yaml:"server"`

	// Audit contains configuration for the blocked-command log including
	// backend selection and retention.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// FirewallConfig contains the firewall toggle, the command whitelist and the
// validator limits.
type FirewallConfig struct {
	// Enabled controls whether commands are checked at all. When false every
	// command is allowed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// DestroyBlockedCommandBlocks asks the caller to remove a command block
	// whose command was blocked. The flag is returned with every blocked
	// decision; removing the block is left to the game-server hook.
	// Default: true
	DestroyBlockedCommandBlocks bool `yaml:"destroy_blocked_command_blocks"`

	// WhitelistCommands lists the command names that get a rule in the
	// default rule set. Names are given without the leading slash and without
	// the "minecraft:" namespace; both spellings are registered.
	// Default: DefaultWhitelistCommands
	WhitelistCommands []string `yaml:"whitelist_commands"`

	// SafeItems lists the item and entity identifiers accepted by item
	// validators of the default rule set. When empty the built-in list of
	// harmless blocks, tools and food is used.
	// Default: []
	SafeItems []string `yaml:"safe_items"`

	// SafeEntities lists the entity identifiers accepted by /summon. When
	// empty a built-in list of passive mobs and decorations is used.
	// Default: []
	SafeEntities []string `yaml:"safe_entities"`

	// MaxItemQuantity is the largest stack size accepted by /give.
	// Default: 64
	MaxItemQuantity int `yaml:"max_item_quantity"`

	// AllowCustomNamespaces accepts items outside the minecraft namespace.
	// Default: false
	AllowCustomNamespaces bool `yaml:"allow_custom_namespaces"`

	// MaxCoordinateRange is the largest absolute coordinate accepted.
	// Default: 1000
	MaxCoordinateRange float64 `yaml:"max_coordinate_range"`

	// AllowRelativeCoordinates accepts ~ coordinates.
	// Default: true
	AllowRelativeCoordinates bool `yaml:"allow_relative_coordinates"`

	// AllowLocalCoordinates accepts ^ coordinates.
	// Default: true
	AllowLocalCoordinates bool `yaml:"allow_local_coordinates"`

	// AllowedSelectors lists the target selectors accepted by selector
	// validators, with the leading "@".
	// Default: ["@s"]
	AllowedSelectors []string `yaml:"allowed_selectors"`

	// MaxSelectorRange is the largest distance accepted in a selector
	// "distance" argument.
	// Default: 100
	MaxSelectorRange float64 `yaml:"max_selector_range"`

	// AllowPlayerNames accepts bare player names where a selector is expected.
	// Default: true
	AllowPlayerNames bool `yaml:"allow_player_names"`

	// MaxTargetCount is the largest "limit" argument accepted in a selector.
	// Default: 1
	MaxTargetCount int `yaml:"max_target_count"`

	// MaxExecuteDepth is the maximum nesting of "execute ... run execute".
	// Default: 10
	MaxExecuteDepth int `yaml:"max_execute_depth"`

	// StrictExecute switches the execute rule to the strict preset: depth 3,
	// @s only, absolute coordinates within 100 blocks.
	// Default: false
	StrictExecute bool `yaml:"strict_execute"`

	// SlowCheckThreshold logs a warning for checks that take longer.
	// A negative value disables the warning.
	// Default: 100ms
	SlowCheckThreshold time.Duration `yaml:"slow_check_threshold"`
}

// RulesConfig contains the rule file settings.
type RulesConfig struct {
	// File is the path to a YAML rule file. When empty the default rule set
	// built from the firewall section is used.
	// Default: ""
	File string `yaml:"file"`

	// Watch reloads the rule file when it changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file event before reloading.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// ServerConfig contains configuration for the HTTP decision server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8765", "0.0.0.0:8765").
	// Default: "127.0.0.1:8765"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum time to wait for in-flight requests
	// during graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuditConfig contains configuration for the command audit log.
type AuditConfig struct {
	// Enabled controls whether decisions are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// RecordAllowed also records allowed commands. Blocked commands are
	// always recorded.
	// Default: false
	RecordAllowed bool `yaml:"record_allowed"`

	// AsyncBuffer is the size of the recorder queue. Records are dropped
	// when the queue is full.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains the pruning policy.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "cbfirewall-audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc.org/sqlite)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains audit retention settings.
type RetentionConfig struct {
	// MaxAge removes records older than this. A negative value keeps
	// records regardless of age.
	// Default: 720h (30 days)
	MaxAge time.Duration `yaml:"max_age"`

	// MaxRecords keeps at most this many of the newest records. Zero means
	// no limit.
	// Default: 0
	MaxRecords int `yaml:"max_records"`

	// Schedule is the cron expression for automatic pruning. The value
	// "off" disables the scheduler.
	// Default: "0 4 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "cbfirewall"
	Namespace string `yaml:"namespace"`

	// CheckDurationBuckets defines histogram buckets for command check
	// duration (seconds).
	// Default: [0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01]
	CheckDurationBuckets []float64 `yaml:"check_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1 (10%)
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "cbfirewall"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
