package export

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

// GraphExportFormat specifies the output format for graph export.
type GraphExportFormat string

const (
	GraphFormatJSON    GraphExportFormat = "json"
	GraphFormatDOT     GraphExportFormat = "dot"
	GraphFormatMermaid GraphExportFormat = "mermaid"
)

// GraphExportConfig configures graph export behavior.
type GraphExportConfig struct {
	Format   GraphExportFormat // Output format (json, dot, mermaid)
	Category string            // Keep only category nodes of this column
	Root     string            // Subgraph around a node id
	Depth    int               // Max hops from Root (0 = unlimited)
	DataHash string            // Hash of input data for provenance
}

// GraphExportResult contains the exported graph and metadata.
type GraphExportResult struct {
	Format         string            `json:"format"`
	Graph          string            `json:"graph,omitempty"`
	Nodes          int               `json:"nodes"`
	Edges          int               `json:"edges"`
	FiltersApplied map[string]string `json:"filters_applied,omitempty"`
	Explanation    GraphExplanation  `json:"explanation"`
	DataHash       string            `json:"data_hash,omitempty"`
	Adjacency      *AdjacencyGraph   `json:"adjacency,omitempty"`
}

// GraphExplanation says what the export holds and how to use it.
type GraphExplanation struct {
	What        string `json:"what"`
	HowToRender string `json:"how_to_render,omitempty"`
	WhenToUse   string `json:"when_to_use"`
}

// AdjacencyGraph is the JSON adjacency list representation.
type AdjacencyGraph struct {
	Directed bool            `json:"directed"`
	Nodes    []AdjacencyNode `json:"nodes"`
	Edges    []AdjacencyEdge `json:"edges"`
}

// AdjacencyNode represents a node in the adjacency graph.
type AdjacencyNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Group  string `json:"group,omitempty"`
	Color  string `json:"color,omitempty"`
	Degree int    `json:"degree"`
}

// AdjacencyEdge is a distinct (from, to) pair. Count is the number of rows
// that produced it.
type AdjacencyEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// ExportGraph exports a rendered graph view in the specified format.
func ExportGraph(g *view.Graph, config GraphExportConfig) (*GraphExportResult, error) {
	if g == nil {
		return nil, fmt.Errorf("no graph to export")
	}
	m := filterGraph(g.Model(), config)

	filtersApplied := make(map[string]string)
	if config.Category != "" {
		filtersApplied["category"] = config.Category
	}
	if config.Root != "" {
		filtersApplied["root"] = config.Root
	}
	if config.Depth > 0 {
		filtersApplied["depth"] = fmt.Sprintf("%d", config.Depth)
	}

	if len(m.Nodes) == 0 {
		return &GraphExportResult{
			Format:         string(config.Format),
			FiltersApplied: filtersApplied,
			DataHash:       config.DataHash,
			Explanation: GraphExplanation{
				What:      "Empty graph - no nodes match the filter criteria",
				WhenToUse: "Adjust filter parameters to include more nodes",
			},
		}, nil
	}

	result := &GraphExportResult{
		Format:         string(config.Format),
		Nodes:          len(m.Nodes),
		Edges:          len(m.Edges),
		FiltersApplied: filtersApplied,
		DataHash:       config.DataHash,
	}

	switch config.Format {
	case GraphFormatDOT:
		result.Graph = generateDOT(m)
		result.Explanation = GraphExplanation{
			What:        "Hub-and-spoke graph in Graphviz DOT format",
			HowToRender: "Save to file.dot, run: dot -Tpng file.dot -o graph.png",
			WhenToUse:   "When you need a printable overview of how rows share category values",
		}

	case GraphFormatMermaid:
		result.Graph = GenerateMermaidGraph(m, MermaidConfig{})
		result.Explanation = GraphExplanation{
			What:        "Hub-and-spoke graph in Mermaid diagram format",
			HowToRender: "Paste into any Markdown renderer that supports Mermaid, or use mermaid.live",
			WhenToUse:   "When you need an embeddable diagram for documentation",
		}

	case GraphFormatJSON:
		fallthrough
	default:
		result.Format = "json"
		result.Adjacency = generateAdjacency(m)
		result.Explanation = GraphExplanation{
			What:      "Hub-and-spoke graph as JSON adjacency list",
			WhenToUse: "When you need programmatic access to the graph structure",
		}
	}

	return result, nil
}

// filterGraph applies the category and root filters. Primary nodes left
// without edges by the category filter are dropped.
func filterGraph(m graphmodel.Model, config GraphExportConfig) graphmodel.Model {
	if config.Category != "" {
		keepCat := make(map[string]bool)
		for _, n := range m.Nodes {
			if n.Kind == graphmodel.KindCategory && n.Group == config.Category {
				keepCat[n.ID] = true
			}
		}
		var edges []graphmodel.Edge
		linked := make(map[string]bool)
		for _, e := range m.Edges {
			if keepCat[e.To] {
				edges = append(edges, e)
				linked[e.From] = true
			}
		}
		var nodes []graphmodel.Node
		for _, n := range m.Nodes {
			if keepCat[n.ID] || linked[n.ID] {
				nodes = append(nodes, n)
			}
		}
		m = graphmodel.Model{Nodes: nodes, Edges: edges}
	}

	if config.Root != "" {
		m = extractSubgraph(m, config.Root, config.Depth)
	}
	return m
}

// extractSubgraph keeps the nodes within maxDepth hops of rootID, following
// edges in both directions.
func extractSubgraph(m graphmodel.Model, rootID string, maxDepth int) graphmodel.Model {
	adj := make(map[string][]string)
	for _, e := range m.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}

	visited := make(map[string]bool)
	type item struct {
		id    string
		depth int
	}
	queue := []item{{rootID, 0}}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if visited[curr.id] {
			continue
		}
		if maxDepth > 0 && curr.depth > maxDepth {
			continue
		}
		visited[curr.id] = true
		for _, next := range adj[curr.id] {
			if !visited[next] {
				queue = append(queue, item{next, curr.depth + 1})
			}
		}
	}

	var out graphmodel.Model
	for _, n := range m.Nodes {
		if visited[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range m.Edges {
		if visited[e.From] && visited[e.To] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

type edgeKey struct{ from, to string }

// collapseEdges merges repeated edges, keeping first-seen order.
func collapseEdges(edges []graphmodel.Edge) ([]edgeKey, map[edgeKey]int) {
	counts := make(map[edgeKey]int)
	var order []edgeKey
	for _, e := range edges {
		k := edgeKey{e.From, e.To}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	return order, counts
}

func isDirected(m graphmodel.Model) bool {
	for _, e := range m.Edges {
		if e.Arrows != "to" {
			return false
		}
	}
	return true
}

// generateDOT creates a Graphviz DOT format graph.
func generateDOT(m graphmodel.Model) string {
	var sb strings.Builder

	directed := isDirected(m)
	arrow := "--"
	if directed {
		sb.WriteString("digraph G {\n")
		arrow = "->"
	} else {
		sb.WriteString("graph G {\n")
	}
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=10, style=filled];\n")
	sb.WriteString("    edge [color=\"#999999\"];\n")
	sb.WriteString("\n")

	for _, n := range m.Nodes {
		label := escapeDOTString(truncateRunes(n.Label, 30))
		shape := "ellipse"
		if n.Kind == graphmodel.KindCategory {
			shape = "box"
		}
		color := n.Color
		if color == "" {
			color = graphmodel.DefaultColor
		}
		attrs := fmt.Sprintf("label=\"%s\", shape=%s, fillcolor=\"%s\"", label, shape, escapeDOTString(color))
		if n.Title != "" {
			attrs += fmt.Sprintf(", tooltip=\"%s\"", escapeDOTString(n.Title))
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" [%s];\n", sanitizeDOTID(n.ID), attrs))
	}

	sb.WriteString("\n")

	order, counts := collapseEdges(m.Edges)
	for _, k := range order {
		attrs := ""
		if c := counts[k]; c > 1 {
			attrs = fmt.Sprintf(" [penwidth=%.1f, label=\"%d\"]", 1.0+float64(c-1)*0.5, c)
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" %s \"%s\"%s;\n", sanitizeDOTID(k.from), arrow, sanitizeDOTID(k.to), attrs))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// sanitizeDOTID ensures an ID is valid for DOT format.
func sanitizeDOTID(id string) string {
	return escapeDOTString(id)
}

func escapeDOTString(s string) string {
	// DOT string literals need backslashes and quotes escaped; normalize newlines.
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", " ",
		"\r", " ",
	)
	return replacer.Replace(s)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func generateAdjacency(m graphmodel.Model) *AdjacencyGraph {
	degree := make(map[string]int)
	for _, e := range m.Edges {
		degree[e.From]++
		degree[e.To]++
	}

	nodes := make([]AdjacencyNode, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		nodes = append(nodes, AdjacencyNode{
			ID:     n.ID,
			Label:  n.Label,
			Kind:   string(n.Kind),
			Group:  n.Group,
			Color:  n.Color,
			Degree: degree[n.ID],
		})
	}

	order, counts := collapseEdges(m.Edges)
	edges := make([]AdjacencyEdge, 0, len(order))
	for _, k := range order {
		edges = append(edges, AdjacencyEdge{From: k.from, To: k.to, Count: counts[k]})
	}

	return &AdjacencyGraph{
		Directed: isDirected(m),
		Nodes:    nodes,
		Edges:    edges,
	}
}

// JSON returns the result as indented JSON bytes.
func (r *GraphExportResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
