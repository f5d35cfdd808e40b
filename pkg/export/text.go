package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/csvboard/pkg/view"
)

// TextOptions controls plain text rendering.
type TextOptions struct {
	// MaxCellWidth caps table cell width in terminal columns (0 = 32).
	MaxCellWidth int
}

// WriteText writes every rendered tab as aligned plain text.
func WriteText(w io.Writer, outputs []view.Output, opts TextOptions) error {
	if opts.MaxCellWidth <= 0 {
		opts.MaxCellWidth = 32
	}
	bw := bufio.NewWriter(w)

	for i, out := range outputs {
		if i > 0 {
			bw.WriteString("\n")
		}
		heading := fmt.Sprintf("%s [%s] %d rows", out.Title, out.Type, out.RowCount)
		fmt.Fprintf(bw, "%s\n%s\n", heading, strings.Repeat("=", runewidth.StringWidth(heading)))

		if out.Placeholder != "" {
			fmt.Fprintf(bw, "  %s\n", out.Placeholder)
		}
		for _, warning := range out.Warnings {
			fmt.Fprintf(bw, "  ! %s\n", warning)
		}

		switch {
		case out.Table != nil:
			writeTextGrid(bw, out.Table.Columns, tableRows(out.Table), nil, opts.MaxCellWidth)
		case out.Kanban != nil:
			for _, lane := range out.Kanban.Lanes() {
				fmt.Fprintf(bw, "[%s] (%d)\n", lane.Key, lane.Count)
				for _, c := range lane.Cards {
					fmt.Fprintf(bw, "  - %s%s\n", c.Title, textSuffix(fragmentsText(c.Indicators)))
				}
			}
		case out.Summary != nil:
			for _, sec := range out.Summary.Sections {
				fmt.Fprintf(bw, "%s (%d)\n", sec.Title, sec.Count)
				for _, it := range sec.Items {
					fmt.Fprintf(bw, "  - %s%s\n", it.Title, textSuffix(fragmentsText(it.Indicators)))
				}
				for _, sg := range sec.SubGroups {
					fmt.Fprintf(bw, "  %s\n", sg.Key)
					for _, it := range sg.Items {
						fmt.Fprintf(bw, "    - %s%s\n", it.Title, textSuffix(fragmentsText(it.Indicators)))
					}
				}
			}
		case out.Hierarchy != nil:
			rows := make([][]view.Cell, len(out.Hierarchy.Rows))
			depths := make([]int, len(out.Hierarchy.Rows))
			for i, r := range out.Hierarchy.Rows {
				rows[i] = r.Cells
				depths[i] = r.Depth
			}
			writeTextGrid(bw, out.Hierarchy.Columns, rows, depths, opts.MaxCellWidth)
			for _, c := range out.Hierarchy.Cycles {
				fmt.Fprintf(bw, "  cycle: %s\n", strings.Join(c, " -> "))
			}
		case out.Graph != nil:
			s := out.Graph.Stats
			fmt.Fprintf(bw, "nodes: %d primary, %d category\n", s.PrimaryNodes, s.CategoryNodes)
			fmt.Fprintf(bw, "edges: %d (%d distinct)\n", s.Edges, s.DistinctEdges)
			fmt.Fprintf(bw, "components: %d\n", s.Components)
			if s.TopHub != "" {
				fmt.Fprintf(bw, "top hub: %s (%d)\n", s.TopHub, s.TopHubDegree)
			}
		}
	}

	return bw.Flush()
}

// writeTextGrid aligns cells by display width. When depths is set the first
// column is indented two spaces per level.
func writeTextGrid(w io.Writer, columns []string, rows [][]view.Cell, depths []int, maxWidth int) {
	if len(columns) == 0 {
		return
	}
	texts := make([][]string, len(rows))
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(runewidth.Truncate(c, maxWidth, "…"))
	}
	for r, row := range rows {
		texts[r] = make([]string, len(columns))
		for i := range columns {
			if i >= len(row) {
				continue
			}
			text := strings.ReplaceAll(cellText(row[i]), "\n", " ")
			if i == 0 && depths != nil {
				text = strings.Repeat("  ", depths[r]) + text
			}
			text = runewidth.Truncate(text, maxWidth, "…")
			texts[r][i] = text
			if sw := runewidth.StringWidth(text); sw > widths[i] {
				widths[i] = sw
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = runewidth.FillRight(c, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, c := range columns {
		header[i] = runewidth.Truncate(c, maxWidth, "…")
		rule[i] = strings.Repeat("-", widths[i])
	}
	line(header)
	line(rule)
	for _, t := range texts {
		line(t)
	}
}

func textSuffix(s string) string {
	if s == "" {
		return ""
	}
	return "  " + s
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
