package export

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
)

// MermaidConfig configures the Mermaid graph generation.
type MermaidConfig struct {
	Direction       string // "LR" (default) or "TD"
	ShowNoLinksNode bool   // If true, adds a "No Links" node when no edges exist
	MaxLabelLength  int    // Labels are truncated to this many runes (default 40)
}

// GenerateMermaidGraph generates a Mermaid flowchart for a graph model.
// Primary nodes are rounded, category nodes are boxes; repeated edges are
// drawn once with a count label.
func GenerateMermaidGraph(m graphmodel.Model, config MermaidConfig) string {
	var sb strings.Builder

	direction := config.Direction
	if direction == "" {
		direction = "LR"
	}
	maxLabel := config.MaxLabelLength
	if maxLabel <= 0 {
		maxLabel = 40
	}

	sb.WriteString("graph " + direction + "\n")
	sb.WriteString(fmt.Sprintf("    classDef primary fill:%s,stroke:#333,color:#000\n", graphmodel.DefaultColor))
	sb.WriteString(fmt.Sprintf("    classDef category fill:%s,stroke:#333,color:#000\n", graphmodel.CategoryColor))
	sb.WriteString("\n")

	// Build deterministic, collision-free Mermaid IDs
	safeIDMap := make(map[string]string)
	usedSafe := make(map[string]bool)

	getSafeID := func(orig string) string {
		if safe, ok := safeIDMap[orig]; ok {
			return safe
		}
		base := sanitizeMermaidID(orig)
		if base == "" {
			base = "node"
		}
		safe := base
		if usedSafe[safe] {
			// Collision: derive stable hash-based suffix
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		usedSafe[safe] = true
		safeIDMap[orig] = safe
		return safe
	}

	for _, n := range m.Nodes {
		getSafeID(n.ID)
	}

	for _, n := range m.Nodes {
		safeID := getSafeID(n.ID)
		label := sanitizeMermaidText(truncateRunes(n.Label, maxLabel))
		if n.Kind == graphmodel.KindCategory {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", safeID, label))
			sb.WriteString(fmt.Sprintf("    class %s category\n", safeID))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s(\"%s\")\n", safeID, label))
		sb.WriteString(fmt.Sprintf("    class %s primary\n", safeID))
		if n.Color != "" && !strings.EqualFold(n.Color, graphmodel.DefaultColor) && isCSSColorToken(n.Color) {
			sb.WriteString(fmt.Sprintf("    style %s fill:%s\n", safeID, n.Color))
		}
	}

	sb.WriteString("\n")

	link := "---"
	if isDirected(m) {
		link = "-->"
	}
	order, counts := collapseEdges(m.Edges)
	for _, k := range order {
		if c := counts[k]; c > 1 {
			sb.WriteString(fmt.Sprintf("    %s %s|%d| %s\n", getSafeID(k.from), link, c, getSafeID(k.to)))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", getSafeID(k.from), link, getSafeID(k.to)))
	}

	if config.ShowNoLinksNode && len(order) == 0 && len(m.Nodes) > 0 {
		sb.WriteString("    NoLinks[\"No Links\"]\n")
	}

	return sb.String()
}

// isCSSColorToken accepts hex colors and bare color names, which are safe
// inside a Mermaid style statement.
func isCSSColorToken(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '#' && i == 0:
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
