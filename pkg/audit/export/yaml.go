package export

import (
	"context"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"newnan/cbfirewall/pkg/audit"
)

// yamlRecord is the YAML shape of a record. Durations are written as Go
// duration strings.
type yamlRecord struct {
	ID        string          `yaml:"id"`
	Timestamp time.Time       `yaml:"timestamp"`
	Source    string          `yaml:"source"`
	World     string          `yaml:"world,omitempty"`
	Position  *audit.Position `yaml:"position,omitempty,flow"`
	Command   string          `yaml:"command"`
	Allowed   bool            `yaml:"allowed"`
	Reason    string          `yaml:"reason"`
	Rule      string          `yaml:"rule,omitempty"`
	Validator string          `yaml:"validator,omitempty"`
	Duration  string          `yaml:"duration"`
}

// YAMLExporter exports audit records as a YAML sequence.
type YAMLExporter struct{}

// Export writes records to w as a YAML sequence.
func (YAMLExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return audit.NewExportError("yaml", len(records), err)
	}

	out := make([]yamlRecord, len(records))
	for i, r := range records {
		out[i] = yamlRecord{
			ID:        r.ID,
			Timestamp: r.Timestamp.UTC(),
			Source:    r.Source,
			World:     r.World,
			Position:  r.Position,
			Command:   r.Command,
			Allowed:   r.Allowed,
			Reason:    r.Reason,
			Rule:      r.Rule,
			Validator: r.Validator,
			Duration:  r.Duration.String(),
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return audit.NewExportError("yaml", len(records), err)
	}
	if err := enc.Close(); err != nil {
		return audit.NewExportError("yaml", len(records), err)
	}
	return nil
}
