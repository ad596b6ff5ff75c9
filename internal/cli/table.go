// pattern: Functional Core
package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = "  "

// table lays out cells in left-aligned columns. Cells may contain styled
// text; widths are measured in terminal cells.
type table struct {
	headers     []string
	rows        [][]string
	headerStyle lipgloss.Style
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// render writes the table. With plain set, escape sequences are stripped
// from every line.
func (t *table) render(w io.Writer, plain bool) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = displayWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], displayWidth(cell))
			}
		}
	}

	header := make([]string, len(t.headers))
	for i, h := range t.headers {
		header[i] = t.headerStyle.Render(h)
	}

	var sb strings.Builder
	writeLine(&sb, header, widths, plain)
	for _, row := range t.rows {
		writeLine(&sb, row, widths, plain)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeLine(sb *strings.Builder, cells []string, widths []int, plain bool) {
	var line strings.Builder
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i > 0 {
			line.WriteString(columnGap)
		}
		line.WriteString(cell)
		if i < len(cells)-1 {
			line.WriteString(strings.Repeat(" ", widths[i]-displayWidth(cell)))
		}
	}
	out := line.String()
	if plain {
		out = StripANSI(out)
	}
	sb.WriteString(strings.TrimRight(out, " "))
	sb.WriteByte('\n')
}
