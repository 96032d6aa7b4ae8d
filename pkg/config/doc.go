// Package config provides configuration management for the command firewall.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("cbfirewall.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("cbfirewall.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CBF_SECTION_FIELD.
// For example:
//
//   - CBF_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CBF_FIREWALL_WHITELIST_COMMANDS overrides firewall.whitelist_commands (comma-separated)
//   - CBF_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Boolean fields that default to true are seeded before the YAML is decoded,
// so "enabled: false" in a file is kept as written.
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	if err := config.Initialize("cbfirewall.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// # Validation
//
// Validation errors include field paths:
//
//	configuration validation failed with 2 errors:
//	  - firewall.allowed_selectors[0]: invalid selector "@x": must be one of @s, @p, @a, @e, @r
//	  - audit.backend: invalid backend "postgres": must be 'memory' or 'sqlite'
//
// # Example Configuration
//
//	firewall:
//	  whitelist_commands: [say, tellraw, give, tp, execute]
//	  max_item_quantity: 16
//	  allowed_selectors: ["@s"]
//
//	rules:
//	  file: "rules.yaml"
//	  watch: true
//
//	audit:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "/var/lib/cbfirewall/audit.db"
package config
