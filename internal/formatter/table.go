// Package formatter renders pipeline data as markdown tables for terminals.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps separators at least "---" wide.
const minColumnWidth = 3

// Table is a markdown table with a header row.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// Append adds a row. Missing cells render empty, extra cells widen the table.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// String renders the table with columns padded to their display width, so
// accented and wide characters line up.
func (t *Table) String() string {
	rows := make([][]string, 0, len(t.Rows)+1)
	rows = append(rows, t.Headers)
	rows = append(rows, t.Rows...)

	colCount := 0
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return ""
	}

	colWidths := make([]int, colCount)
	for i := range colWidths {
		colWidths[i] = minColumnWidth
	}

	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cellText(cell)); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderRow(rows[0], colWidths))
	lines = append(lines, renderSeparator(colWidths))

	for _, row := range rows[1:] {
		lines = append(lines, renderRow(row, colWidths))
	}

	return strings.Join(lines, "\n") + "\n"
}

func renderRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = cellText(row[j])
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		// Pad with spaces based on display width
		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// cellText trims a cell and escapes pipes.
func cellText(cell string) string {
	return strings.ReplaceAll(strings.TrimSpace(cell), "|", `\|`)
}

func renderSeparator(colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for _, width := range colWidths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", width))
		sb.WriteString(" |")
	}

	return sb.String()
}
