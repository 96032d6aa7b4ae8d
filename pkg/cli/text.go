package cli

import (
	"fmt"
	"io"
	"time"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/firewall/engine"
	"newnan/cbfirewall/pkg/rules"
)

// TextFormatter formats output as styled text.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	return formatBytes(f, data)
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *engine.Decision:
		return writeDecision(w, v)
	case engine.Stats:
		return writeStats(w, &v)
	case *engine.Stats:
		return writeStats(w, v)
	case []rules.CaseResult:
		return writeCases(w, v)
	case []*audit.Record:
		if len(v) == 0 {
			_, err := fmt.Fprintln(w, MutedStyle.Render("No audit records found."))
			return err
		}
		return RecordsTable(v).Render(w)
	case *Table:
		return v.Render(w)
	case Table:
		return v.Render(w)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) printf(format string, args ...any) {
	if lw.err != nil {
		return
	}
	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}

func (lw *lineWriter) field(label, value string) {
	if value == "" {
		return
	}
	lw.printf("  %s %s\n", MutedStyle.Render(label+":"), value)
}

func writeDecision(w io.Writer, d *engine.Decision) error {
	lw := &lineWriter{w: w}
	lw.printf("%s %s\n", Verdict(d.Allowed), CommandStyle.Render(d.Command))
	lw.field("reason", d.Reason)
	lw.field("rule", d.Rule())
	lw.field("validator", d.Validator)
	lw.field("duration", formatMs(d.Duration))
	return lw.err
}

func writeStats(w io.Writer, s *engine.Stats) error {
	lw := &lineWriter{w: w}

	state := AllowedStyle.Render("enabled")
	if !s.Enabled {
		state = WarningStyle.Render("disabled")
	}
	lw.printf("%s %s\n", TitleStyle.Render("Firewall"), state)
	lw.field("source", s.Source)
	lw.field("rules", fmt.Sprint(s.Rules))
	lw.field("checked", fmt.Sprint(s.Checked))
	lw.field("allowed", fmt.Sprint(s.Allowed))
	lw.field("blocked", fmt.Sprint(s.Blocked))
	if s.Checked > 0 {
		lw.field("block rate", fmt.Sprintf("%.1f%%", s.BlockRate*100))
		lw.field("avg check", formatMs(s.AvgCheckDuration))
	}
	lw.field("reloads", fmt.Sprint(s.Reloads))
	if !s.LastReload.IsZero() {
		lw.field("last reload", s.LastReload.Format(time.RFC3339))
	}
	lw.field("trie nodes", fmt.Sprint(s.Trie.TreeSize))
	if lw.err != nil {
		return lw.err
	}

	if len(s.TopBlocked) > 0 {
		lw.printf("\n%s\n", TitleStyle.Render("Most blocked"))
		for _, c := range s.TopBlocked {
			lw.printf("  %-20s %d\n", c.Command, c.Count)
		}
	}
	if lw.err != nil {
		return lw.err
	}

	if len(s.Validators) > 0 {
		lw.printf("\n")
		t := NewTable("RULE", "VALIDATOR", "CHECKS", "ACCEPTED", "REJECTED")
		for _, v := range s.Validators {
			t.AddRow(v.Rule, v.Name,
				fmt.Sprint(v.ValidationCount),
				fmt.Sprint(v.AcceptCount),
				fmt.Sprint(v.RejectCount),
			)
		}
		return t.Render(w)
	}
	return lw.err
}

func writeCases(w io.Writer, results []rules.CaseResult) error {
	lw := &lineWriter{w: w}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
		name := r.Case.Name
		if name == "" {
			name = r.Case.Command
		}
		lw.printf("%s %s\n", PassFail(r.Passed), name)
		if !r.Passed {
			lw.field("command", CommandStyle.Render(r.Case.Command))
			lw.field("expected", r.Case.Expect)
			got := rules.ExpectBlock
			if r.Allowed {
				got = rules.ExpectAllow
			}
			lw.field("got", got)
			lw.field("error", r.Error)
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed", passed, len(results)-passed)
	if passed == len(results) {
		summary = AllowedStyle.Render(summary)
	} else {
		summary = BlockedStyle.Render(summary)
	}
	lw.printf("\n%s\n", summary)
	return lw.err
}

// Summary renders a one-line count summary such as "3 records".
func Summary(n int, noun string) string {
	if n != 1 {
		noun += "s"
	}
	return MutedStyle.Render(fmt.Sprintf("%d %s", n, noun))
}
