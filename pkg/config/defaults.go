package config

import "time"

// Default values for configuration fields.
const (
	// Firewall defaults
	DefaultFirewallEnabled          = true
	DefaultDestroyBlockedBlocks     = true
	DefaultMaxItemQuantity          = 64
	DefaultMaxCoordinateRange       = 1000.0
	DefaultAllowRelativeCoordinates = true
	DefaultAllowLocalCoordinates    = true
	DefaultMaxSelectorRange         = 100.0
	DefaultAllowPlayerNames         = true
	DefaultMaxTargetCount           = 1
	DefaultMaxExecuteDepth          = 10
	DefaultSlowCheckThreshold       = 100 * time.Millisecond

	// Rules defaults
	DefaultRulesDebounce = 100 * time.Millisecond

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8765"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Audit defaults
	DefaultAuditEnabled            = true
	DefaultAuditBackend            = "memory"
	DefaultAuditAsyncBuffer        = 1000
	DefaultAuditWriteTimeout       = 5 * time.Second
	DefaultAuditSQLitePath         = "cbfirewall-audit.db"
	DefaultAuditSQLiteDriver       = "sqlite"
	DefaultAuditSQLiteMaxOpenConns = 4
	DefaultAuditSQLiteBusyTimeout  = 5 * time.Second
	DefaultAuditRetentionMaxAge    = 30 * 24 * time.Hour
	DefaultAuditRetentionSchedule  = "0 4 * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "cbfirewall"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "cbfirewall"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthCheckTimeout = 2 * time.Second
)

// ScheduleOff disables the retention scheduler when used as the schedule.
const ScheduleOff = "off"

// DefaultWhitelistCommands is the command whitelist used when the firewall
// section does not set one.
var DefaultWhitelistCommands = []string{
	"say", "tell", "msg", "tellraw", "title", "playsound", "particle",
	"tp", "teleport",
	"give",
	"setblock", "fill",
	"summon",
	"time", "weather",
	"gamerule",
	"xp", "experience",
	"effect",
	"scoreboard",
	"execute",
}

// DefaultAllowedSelectors is the selector allow-list used when the firewall
// section does not set one.
var DefaultAllowedSelectors = []string{"@s"}

// DefaultCheckDurationBuckets are the histogram buckets for check duration.
var DefaultCheckDurationBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01}

// Default returns a configuration with every field set to its default,
// including the boolean fields that default to true.
//
// LoadConfig decodes YAML on top of this value, so a boolean that is absent
// from the file keeps its default while an explicit false is honoured.
func Default() *Config {
	cfg := &Config{}
	cfg.Firewall.Enabled = DefaultFirewallEnabled
	cfg.Firewall.DestroyBlockedCommandBlocks = DefaultDestroyBlockedBlocks
	cfg.Firewall.AllowRelativeCoordinates = DefaultAllowRelativeCoordinates
	cfg.Firewall.AllowLocalCoordinates = DefaultAllowLocalCoordinates
	cfg.Firewall.AllowPlayerNames = DefaultAllowPlayerNames
	cfg.Audit.Enabled = DefaultAuditEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any non-boolean fields that have zero values; boolean
// defaults are seeded by Default.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Firewall defaults
	if len(cfg.Firewall.WhitelistCommands) == 0 {
		cfg.Firewall.WhitelistCommands = append([]string(nil), DefaultWhitelistCommands...)
	}
	if cfg.Firewall.MaxItemQuantity == 0 {
		cfg.Firewall.MaxItemQuantity = DefaultMaxItemQuantity
	}
	if cfg.Firewall.MaxCoordinateRange == 0 {
		cfg.Firewall.MaxCoordinateRange = DefaultMaxCoordinateRange
	}
	if len(cfg.Firewall.AllowedSelectors) == 0 {
		cfg.Firewall.AllowedSelectors = append([]string(nil), DefaultAllowedSelectors...)
	}
	if cfg.Firewall.MaxSelectorRange == 0 {
		cfg.Firewall.MaxSelectorRange = DefaultMaxSelectorRange
	}
	if cfg.Firewall.MaxTargetCount == 0 {
		cfg.Firewall.MaxTargetCount = DefaultMaxTargetCount
	}
	if cfg.Firewall.MaxExecuteDepth == 0 {
		cfg.Firewall.MaxExecuteDepth = DefaultMaxExecuteDepth
	}
	if cfg.Firewall.SlowCheckThreshold == 0 {
		cfg.Firewall.SlowCheckThreshold = DefaultSlowCheckThreshold
	}

	// Rules defaults
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Retention.MaxAge == 0 {
		cfg.Audit.Retention.MaxAge = DefaultAuditRetentionMaxAge
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.CheckDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.CheckDurationBuckets = append([]float64(nil), DefaultCheckDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
