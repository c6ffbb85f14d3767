package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders left-aligned columns. Cells longer than the column limit are
// cut with an ellipsis so presigned URLs do not wrap the terminal.
type Table struct {
	out      io.Writer
	headers  []string
	rows     [][]string
	quiet    bool
	maxWidth int
}

func (p *Printer) Table(headers ...string) *Table {
	return NewTable(p.out, headers, p.quiet || p.json)
}

func NewTable(out io.Writer, headers []string, quiet bool) *Table {
	return &Table{
		out:      out,
		headers:  headers,
		quiet:    quiet,
		maxWidth: 80,
	}
}

func (t *Table) SetMaxWidth(width int) {
	t.maxWidth = width
}

func (t *Table) Append(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	if t.quiet {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i := range row {
			if i >= len(widths) {
				continue
			}
			row[i] = t.truncate(row[i])
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i < len(widths) {
				parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
			} else {
				parts[i] = cell
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	header := make([]string, len(t.headers))
	for i, h := range t.headers {
		header[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(t.out, color.HiBlackString(line(header)))
	for _, row := range t.rows {
		fmt.Fprintln(t.out, line(row))
	}
}

func (t *Table) truncate(s string) string {
	if t.maxWidth <= 3 || len(s) <= t.maxWidth {
		return s
	}
	return s[:t.maxWidth-3] + "..."
}
