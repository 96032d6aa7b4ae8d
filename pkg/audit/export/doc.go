// Package export writes audit records as JSON, JSON lines, CSV or YAML.
package export
