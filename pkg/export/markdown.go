package export

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/style"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeMermaidID ensures an ID is valid for Mermaid diagrams.
// Mermaid node IDs must be alphanumeric with hyphens/underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	result := sb.String()
	if result == "" {
		return "node"
	}
	return result
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)

	// Remove any remaining control characters
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)

	return strings.TrimSpace(result)
}

// GenerateMarkdown creates a report with one section per rendered tab.
func GenerateMarkdown(outputs []view.Output, title string) string {
	var sb strings.Builder

	if strings.TrimSpace(title) == "" {
		title = "Dashboard"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", time.Now().UTC().Format(time.RFC3339)))

	slugCounts := make(map[string]int)
	slugs := make([]string, len(outputs))
	for i, out := range outputs {
		slugs[i] = uniqueSlug(createSlug(out.Title), slugCounts)
	}

	if len(outputs) > 1 {
		sb.WriteString("## Contents\n\n")
		for i, out := range outputs {
			sb.WriteString(fmt.Sprintf("- [%s](#%s) (%s)\n", escapeMarkdown(out.Title), slugs[i], out.Type))
		}
		sb.WriteString("\n")
	}

	for _, out := range outputs {
		sb.WriteString(fmt.Sprintf("## %s\n\n", out.Title))
		writeTabMarkdown(&sb, out)
	}

	return sb.String()
}

// TabMarkdown renders the body of a single tab without the report heading.
func TabMarkdown(out view.Output) string {
	var sb strings.Builder
	writeTabMarkdown(&sb, out)
	return sb.String()
}

func writeTabMarkdown(sb *strings.Builder, out view.Output) {
	if out.Placeholder != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", escapeMarkdown(out.Placeholder)))
	}
	if len(out.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("<details>\n<summary>%d warning(s)</summary>\n\n", len(out.Warnings)))
		for _, w := range out.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", escapeMarkdown(w)))
		}
		sb.WriteString("\n</details>\n\n")
	}

	switch {
	case out.Table != nil:
		writeTableMarkdown(sb, out.Table.Columns, tableRows(out.Table))
	case out.Kanban != nil:
		writeKanbanMarkdown(sb, out.Kanban)
	case out.Summary != nil:
		writeSummaryMarkdown(sb, out.Summary)
	case out.Hierarchy != nil:
		writeHierarchyMarkdown(sb, out.Hierarchy)
	case out.Graph != nil:
		writeGraphMarkdown(sb, out.Graph)
	}
}

func tableRows(t *view.Table) [][]view.Cell {
	rows := make([][]view.Cell, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Cells
	}
	return rows
}

func writeTableMarkdown(sb *strings.Builder, columns []string, rows [][]view.Cell) {
	if len(columns) == 0 {
		return
	}
	if len(rows) == 0 {
		sb.WriteString("*No rows.*\n\n")
		return
	}
	sb.WriteString("| ")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(escapeTableCell(c))
	}
	sb.WriteString(" |\n|")
	for range columns {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString("| ")
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(escapeTableCell(cellText(cell)))
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString("\n")
}

func writeKanbanMarkdown(sb *strings.Builder, k *view.Kanban) {
	for _, lane := range k.Lanes() {
		label := lane.Key
		if lane.NotFound {
			label += " (not found)"
		}
		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", escapeMarkdown(label), lane.Count))
		if len(lane.Cards) == 0 {
			sb.WriteString("*Empty.*\n\n")
			continue
		}
		for _, c := range lane.Cards {
			sb.WriteString(fmt.Sprintf("- %s%s\n", escapeMarkdown(c.Title), indicatorSuffix(c.Indicators)))
		}
		sb.WriteString("\n")
	}
}

func writeSummaryMarkdown(sb *strings.Builder, s *view.Summary) {
	for _, sec := range s.Sections {
		sb.WriteString(fmt.Sprintf("### %s (%d)\n\n", escapeMarkdown(sec.Title), sec.Count))
		if sec.Count == 0 {
			sb.WriteString("*Nothing here.*\n\n")
			continue
		}
		for _, it := range sec.Items {
			sb.WriteString(fmt.Sprintf("- %s%s\n", escapeMarkdown(it.Title), indicatorSuffix(it.Indicators)))
		}
		for _, sg := range sec.SubGroups {
			sb.WriteString(fmt.Sprintf("- **%s** (%d)\n", escapeMarkdown(sg.Key), len(sg.Items)))
			for _, it := range sg.Items {
				sb.WriteString(fmt.Sprintf("  - %s%s\n", escapeMarkdown(it.Title), indicatorSuffix(it.Indicators)))
			}
		}
		sb.WriteString("\n")
	}
}

func writeHierarchyMarkdown(sb *strings.Builder, h *view.Hierarchy) {
	if len(h.Cycles) > 0 {
		for _, c := range h.Cycles {
			sb.WriteString(fmt.Sprintf("> Cycle detected: %s\n", escapeMarkdown(strings.Join(c, " → "))))
		}
		sb.WriteString("\n")
	}
	if len(h.Rows) == 0 {
		sb.WriteString("*No rows.*\n\n")
		return
	}

	titleIdx := -1
	for i, c := range h.Columns {
		if c == h.TitleColumn {
			titleIdx = i
			break
		}
	}

	for _, r := range h.Rows {
		title := r.ID
		var rest []string
		for i, cell := range r.Cells {
			text := cellText(cell)
			if i == titleIdx {
				if text != "" {
					title = text
				}
				continue
			}
			if text != "" {
				rest = append(rest, fmt.Sprintf("%s: %s", cell.Column, text))
			}
		}
		line := escapeMarkdown(title)
		if len(rest) > 0 {
			line += " (" + escapeMarkdown(strings.Join(rest, ", ")) + ")"
		}
		sb.WriteString(fmt.Sprintf("%s- %s\n", strings.Repeat("  ", r.Depth), line))
	}
	sb.WriteString("\n")
}

func writeGraphMarkdown(sb *strings.Builder, g *view.Graph) {
	s := g.Stats
	sb.WriteString(fmt.Sprintf("%d primary nodes, %d category nodes, %d edges", s.PrimaryNodes, s.CategoryNodes, s.Edges))
	if s.DuplicateEdges > 0 {
		sb.WriteString(fmt.Sprintf(" (%d repeated)", s.DuplicateEdges))
	}
	sb.WriteString(".")
	if s.TopHub != "" {
		sb.WriteString(fmt.Sprintf(" Busiest hub: %s (%d).", escapeMarkdown(s.TopHub), s.TopHubDegree))
	}
	sb.WriteString("\n\n")

	if len(g.Nodes) == 0 {
		return
	}
	sb.WriteString("```mermaid\n")
	sb.WriteString(GenerateMermaidGraph(g.Model(), MermaidConfig{ShowNoLinksNode: true}))
	sb.WriteString("```\n\n")
}

// cellText renders styled cells as their fragment text and plain cells as
// their value.
func cellText(c view.Cell) string {
	if len(c.Fragments) == 0 {
		return c.Text
	}
	return fragmentsText(c.Fragments)
}

func fragmentsText(frags []style.Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if text := strings.TrimSpace(f.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func indicatorSuffix(frags []style.Fragment) string {
	text := fragmentsText(frags)
	if text == "" {
		return ""
	}
	return " · " + escapeMarkdown(text)
}

func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"\n", " ",
	)
	return replacer.Replace(s)
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	return slug
}

// SaveMarkdownToFile renders cfg against ds and writes the Markdown report.
func SaveMarkdownToFile(ds *model.Dataset, cfg *model.Config, filename string) error {
	content := GenerateMarkdown(view.RenderAll(ds, cfg), cfg.GeneralSettings.Title)
	return os.WriteFile(filename, []byte(content), 0644)
}
