package export

import (
	"fmt"
	"strings"

	"newnan/cbfirewall/pkg/audit"
)

// Formats lists the names accepted by New.
var Formats = []string{"json", "jsonl", "csv", "yaml"}

// New returns the exporter for a format name.
func New(format string) (audit.Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(true), nil
	case "jsonl", "ndjson":
		return JSONLinesExporter{}, nil
	case "csv":
		return NewCSVExporter(true), nil
	case "yaml", "yml":
		return YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}
