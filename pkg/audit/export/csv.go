package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"newnan/cbfirewall/pkg/audit"
)

// csvHeader lists the CSV columns in output order.
var csvHeader = []string{
	"id", "timestamp", "source", "world", "x", "y", "z",
	"command", "allowed", "reason", "rule", "validator", "duration_us",
}

// CSVExporter exports audit records to CSV.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes one row per record. Position columns are empty when the
// position is unknown.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return audit.NewExportError("csv", i, err)
		}
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

func recordToRow(r *audit.Record) []string {
	var x, y, z string
	if r.Position != nil {
		x = formatFloat(r.Position.X)
		y = formatFloat(r.Position.Y)
		z = formatFloat(r.Position.Z)
	}
	return []string{
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Source,
		r.World,
		x, y, z,
		r.Command,
		strconv.FormatBool(r.Allowed),
		r.Reason,
		r.Rule,
		r.Validator,
		strconv.FormatInt(r.Duration.Microseconds(), 10),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
