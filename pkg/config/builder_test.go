package config

import "time"

// ConfigBuilder builds Config values for tests.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig returns a builder seeded with the defaults.
func NewTestConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: Default()}
}

// MinimalConfig returns a valid configuration with every default applied.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithReadTimeout sets the server read timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.ReadTimeout = d
	return b
}

// WithWhitelist replaces the command whitelist.
func (b *ConfigBuilder) WithWhitelist(commands ...string) *ConfigBuilder {
	b.cfg.Firewall.WhitelistCommands = commands
	return b
}

// WithFirewallEnabled toggles the firewall.
func (b *ConfigBuilder) WithFirewallEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Firewall.Enabled = enabled
	return b
}

// WithRulesFile sets the rule file and watch mode.
func (b *ConfigBuilder) WithRulesFile(path string, watch bool) *ConfigBuilder {
	b.cfg.Rules.File = path
	b.cfg.Rules.Watch = watch
	return b
}

// WithAuditBackend sets the audit backend.
func (b *ConfigBuilder) WithAuditBackend(backend string) *ConfigBuilder {
	b.cfg.Audit.Backend = backend
	return b
}

// WithSQLite sets the SQLite path and driver and selects the sqlite backend.
func (b *ConfigBuilder) WithSQLite(path, driver string) *ConfigBuilder {
	b.cfg.Audit.Backend = "sqlite"
	b.cfg.Audit.SQLite.Path = path
	b.cfg.Audit.SQLite.Driver = driver
	return b
}

// WithRetentionSchedule sets the retention cron expression.
func (b *ConfigBuilder) WithRetentionSchedule(schedule string) *ConfigBuilder {
	b.cfg.Audit.Retention.Schedule = schedule
	return b
}

// WithLogging sets the logging level and format.
func (b *ConfigBuilder) WithLogging(level, format string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	b.cfg.Telemetry.Logging.Format = format
	return b
}

// WithTracing enables tracing against the given endpoint.
func (b *ConfigBuilder) WithTracing(endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}
