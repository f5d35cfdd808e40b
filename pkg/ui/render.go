package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/csvboard/pkg/view"
)

const (
	defaultMaxCellWidth = 30
	minCellWidth        = 3
	cellGap             = "  "
	laneGap             = 2
	minLaneWidth        = 22
	maxLaneWidth        = 40
)

// target is one selectable entry of a pane.
type target struct {
	Row   int // dataset row index
	Line  int // line within the pane content
	Lane  int // kanban lane ordinal, 0 elsewhere
	Cells []view.Cell
}

// pane is a rendered tab body plus the positions of its selectable rows.
type pane struct {
	content string
	columns []string
	targets []target
}

// gridRow is a table or hierarchy row ready for drawing.
type gridRow struct {
	Index  int
	Depth  int
	Branch bool
	Cells  []view.Cell
}

// renderGrid draws rows as aligned columns. The first column is indented by
// depth when indent is set.
func renderGrid(t Theme, columns []string, rows []gridRow, cursor, col, width, maxCell int, indent bool) pane {
	if maxCell <= 0 {
		maxCell = defaultMaxCellWidth
	}
	p := pane{columns: columns}
	if len(columns) == 0 {
		p.content = t.MutedText.Render("No columns to show.")
		return p
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c)
	}
	texts := make([][]string, len(rows))
	for r, row := range rows {
		texts[r] = make([]string, len(columns))
		for i := range columns {
			var s string
			if i < len(row.Cells) {
				s = cellText(row.Cells[i])
			}
			if i == 0 && indent {
				s = treePrefix(row.Depth, row.Branch) + s
			}
			texts[r][i] = s
			if w := runewidth.StringWidth(s); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] = clamp(widths[i], minCellWidth, maxCell)
	}

	first, last := visibleColumns(widths, col, width)

	var sb strings.Builder
	header := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		h := padRight(truncate(columns[i], widths[i]), widths[i])
		if i == col {
			h = t.LaneTitle.Render(h)
		} else {
			h = t.PrimaryBold.Render(h)
		}
		header = append(header, h)
	}
	sb.WriteString(strings.Join(header, cellGap))
	sb.WriteString("\n")
	sb.WriteString(RenderDivider(gridWidth(widths, first, last)))
	sb.WriteString("\n")
	line := 2

	if len(rows) == 0 {
		sb.WriteString(t.MutedText.Render("No rows match this view."))
		p.content = sb.String()
		return p
	}

	for r, row := range rows {
		selected := r == cursor
		parts := make([]string, 0, last-first+1)
		for i := first; i <= last; i++ {
			text := padRight(truncate(texts[r][i], widths[i]), widths[i])
			switch {
			case selected && i == col:
				text = t.Cursor.Render(text)
			case selected:
				text = t.Selected.Render(text)
			case i < len(row.Cells) && len(row.Cells[i].Fragments) > 0 && !(i == 0 && indent):
				styled := renderFragments(t, row.Cells[i].Fragments, widths[i])
				text = styled + strings.Repeat(" ", max(0, widths[i]-lipgloss.Width(styled)))
			}
			parts = append(parts, text)
		}
		sb.WriteString(strings.Join(parts, cellGap))
		sb.WriteString("\n")
		p.targets = append(p.targets, target{Row: row.Index, Line: line, Cells: row.Cells})
		line++
	}
	p.content = strings.TrimRight(sb.String(), "\n")
	return p
}

func treePrefix(depth int, branch bool) string {
	marker := "  "
	if branch {
		marker = "▾ "
	}
	return strings.Repeat("  ", depth) + marker
}

func gridWidth(widths []int, first, last int) int {
	total := 0
	for i := first; i <= last; i++ {
		total += widths[i]
	}
	return total + (last-first)*len(cellGap)
}

// visibleColumns returns the widest window of columns that fits width and
// contains col.
func visibleColumns(widths []int, col, width int) (int, int) {
	n := len(widths)
	col = clamp(col, 0, n-1)
	if width <= 0 {
		return 0, n - 1
	}
	first := 0
	for first < col && gridWidth(widths, first, col) > width {
		first++
	}
	last := col
	for last+1 < n && gridWidth(widths, first, last+1) <= width {
		last++
	}
	return first, last
}

func renderTable(t Theme, tbl *view.Table, cursor, col, width, maxCell int) pane {
	rows := make([]gridRow, len(tbl.Rows))
	for i, r := range tbl.Rows {
		rows[i] = gridRow{Index: r.Index, Cells: r.Cells}
	}
	return renderGrid(t, tbl.Columns, rows, cursor, col, width, maxCell, false)
}

func renderHierarchy(t Theme, h *view.Hierarchy, cursor, col, width, maxCell int) pane {
	rows := make([]gridRow, len(h.Rows))
	for i, r := range h.Rows {
		rows[i] = gridRow{Index: r.Index, Depth: r.Depth, Branch: r.HasChildren, Cells: r.Cells}
	}
	p := renderGrid(t, h.Columns, rows, cursor, col, width, maxCell, !h.Flat)

	var notes []string
	if h.Flat && len(h.Rows) > 0 {
		notes = append(notes, t.WarningText.Render("No root rows found; showing a flat list."))
	}
	for _, c := range h.Cycles {
		notes = append(notes, t.WarningText.Render("Cycle: "+strings.Join(c, " → ")))
	}
	if len(notes) > 0 {
		p.content += "\n\n" + strings.Join(notes, "\n")
	}
	return p
}

// renderKanban lays the board's display columns side by side. Each lane is
// a title line followed by one line per card.
func renderKanban(t Theme, k *view.Kanban, cursor, width int) pane {
	p := pane{}
	if len(k.Columns) == 0 {
		p.content = t.MutedText.Render("No rows match this view.")
		return p
	}

	n := len(k.Columns)
	laneWidth := maxLaneWidth
	if width > 0 {
		laneWidth = clamp((width-laneGap*(n-1))/n, minLaneWidth, maxLaneWidth)
	}

	type cardPos struct {
		column, line int
	}
	var positions []cardPos
	blocks := make([][]string, n)
	laneNo := 0
	for ci, col := range k.Columns {
		var lines []string
		for li, lane := range col {
			if li > 0 {
				lines = append(lines, "")
			}
			title := lane.Key
			if lane.NotFound {
				title += " ?"
			}
			head := t.LaneTitle.Render(truncate(title, laneWidth-6)) + " " + RenderCountBadge(t, lane.Count)
			lines = append(lines, head)
			for _, card := range lane.Cards {
				idx := len(positions)
				positions = append(positions, cardPos{column: ci, line: len(lines)})
				p.targets = append(p.targets, target{Row: card.Index, Lane: laneNo, Cells: []view.Cell{{Text: card.Title}}})
				lines = append(lines, renderCard(t, card, laneWidth, idx == cursor))
			}
			laneNo++
		}
		blocks[ci] = lines
	}

	first, last := 0, n-1
	if width > 0 {
		visible := max(1, (width+laneGap)/(laneWidth+laneGap))
		cur := 0
		if cursor >= 0 && cursor < len(positions) {
			cur = positions[cursor].column
		}
		first = max(0, cur-visible+1)
		last = min(n-1, first+visible-1)
	}

	height := 0
	for i := first; i <= last; i++ {
		height = max(height, len(blocks[i]))
	}
	var sb strings.Builder
	for l := 0; l < height; l++ {
		parts := make([]string, 0, last-first+1)
		for i := first; i <= last; i++ {
			s := ""
			if l < len(blocks[i]) {
				s = blocks[i][l]
			}
			parts = append(parts, s+strings.Repeat(" ", max(0, laneWidth-lipgloss.Width(s))))
		}
		sb.WriteString(strings.TrimRight(strings.Join(parts, strings.Repeat(" ", laneGap)), " "))
		if l < height-1 {
			sb.WriteString("\n")
		}
	}
	if first > 0 || last < n-1 {
		sb.WriteString("\n")
		sb.WriteString(t.MutedText.Render(fmt.Sprintf("columns %d-%d of %d", first+1, last+1, n)))
	}
	p.content = sb.String()

	for i, pos := range positions {
		p.targets[i].Line = pos.line
	}
	return p
}

func renderCard(t Theme, card view.Card, width int, selected bool) string {
	title := singleLine(card.Title)
	if title == "" {
		title = "(untitled)"
	}
	if selected {
		return t.Cursor.Render(padRight(truncate("▌ "+title, width), width))
	}
	line := "▌ " + truncate(title, width-2)
	room := width - runewidth.StringWidth(line) - 1
	if len(card.Indicators) > 0 && room > 2 {
		line += " " + renderFragments(t, card.Indicators, room)
	}
	return line
}

func renderGraphStats(t Theme, g *view.Graph) string {
	s := g.Stats
	var sb strings.Builder
	sb.WriteString(t.LaneTitle.Render("Graph"))
	sb.WriteString("\n\n")
	rows := [][2]string{
		{"Primary nodes", itoa(s.PrimaryNodes)},
		{"Category nodes", itoa(s.CategoryNodes)},
		{"Edges", itoa(s.Edges)},
		{"Distinct edges", itoa(s.DistinctEdges)},
		{"Components", itoa(s.Components)},
		{"Layout engine", string(g.LayoutEngine)},
	}
	if s.TopHub != "" {
		rows = append(rows, [2]string{"Top hub", fmt.Sprintf("%s (%d)", s.TopHub, s.TopHubDegree)})
	}
	for _, r := range rows {
		sb.WriteString(t.MutedText.Render(padRight(r[0], 16)))
		sb.WriteString(r[1])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(t.MutedText.Render("Export with -format dot|mermaid|svg|png or open the web view (-serve)."))
	return sb.String()
}
