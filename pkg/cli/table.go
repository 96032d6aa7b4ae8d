package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/rules"
)

const columnGap = "  "

// Table is tabular command output.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable creates a table with the given column names.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow appends a row. Missing cells are left empty and extra cells dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Header))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Render writes the table with aligned columns and a styled header.
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	header := make([]string, len(t.Header))
	for i, h := range t.Header {
		header[i] = TitleStyle.Render(pad(h, widths[i]))
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(header, columnGap), " ")); err != nil {
		return err
	}

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(widths) {
				cell = pad(cell, widths[i])
			}
			cells[i] = cell
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, columnGap), " ")); err != nil {
			return err
		}
	}
	return nil
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// RecordsTable lays out audit records one per row.
func RecordsTable(records []*audit.Record) *Table {
	t := NewTable("TIME", "VERDICT", "SOURCE", "WORLD", "COMMAND", "REASON")
	for _, r := range records {
		verdict := "blocked"
		if r.Allowed {
			verdict = "allowed"
		}
		t.AddRow(
			r.Timestamp.UTC().Format(time.RFC3339),
			verdict,
			r.Source,
			r.World,
			r.Command,
			r.Reason,
		)
	}
	return t
}

// CasesTable lays out rule test results one per row.
func CasesTable(results []rules.CaseResult) *Table {
	t := NewTable("RESULT", "NAME", "COMMAND", "EXPECT", "GOT")
	for _, r := range results {
		result := "pass"
		if !r.Passed {
			result = "fail"
		}
		got := rules.ExpectBlock
		if r.Allowed {
			got = rules.ExpectAllow
		}
		if r.Error != "" {
			got = "error: " + r.Error
		}
		t.AddRow(result, r.Case.Name, r.Case.Command, r.Case.Expect, got)
	}
	return t
}

func formatMs(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64) + "ms"
}
