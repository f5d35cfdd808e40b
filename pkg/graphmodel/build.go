// Package graphmodel derives hub-and-spoke graphs from rows: one primary node
// per distinct id, one category node per (column, value) pair, and one edge
// from a primary node to a category node for every row that carries the value.
package graphmodel

import (
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/style"
)

const (
	// DefaultColor colors primary nodes without a styled color value.
	DefaultColor = "#97C2FC"
	// CategoryColor is the shared color of category nodes.
	CategoryColor = "#FFD27F"

	PrimaryShape  = "ellipse"
	CategoryShape = "box"
)

// NodeKind distinguishes primary from category nodes.
type NodeKind string

const (
	KindPrimary  NodeKind = "primary"
	KindCategory NodeKind = "category"
)

// Node is a graph vertex in the shape the browser graph library expects.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Title string   `json:"title,omitempty"`
	Color string   `json:"color,omitempty"`
	Shape string   `json:"shape,omitempty"`
	Group string   `json:"group,omitempty"`
	Kind  NodeKind `json:"kind"`
}

// Edge connects a primary node to a category node.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Arrows string `json:"arrows,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Model is a complete graph. Nodes appear in first-seen order.
type Model struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Options selects the columns a graph is built from.
type Options struct {
	PrimaryID      string
	PrimaryLabel   string
	Categories     []string
	ColorColumn    string
	TooltipColumns []string
	Directed       bool
}

// OptionsFrom converts a graph tab configuration.
func OptionsFrom(cfg *model.GraphConfig) Options {
	return Options{
		PrimaryID:      cfg.PrimaryIDColumn,
		PrimaryLabel:   cfg.PrimaryLabelColumn,
		Categories:     cfg.CategoryColumns,
		ColorColumn:    cfg.ColorColumn,
		TooltipColumns: cfg.TooltipColumns,
		Directed:       cfg.IsDirected(),
	}
}

// CategoryID returns the node id of a category value.
func CategoryID(column, value string) string {
	return column + "::" + value
}

// Build derives the graph for rows. Rows without a primary id are skipped with
// a warning. Repeated (primary, category) pairs from different rows produce
// repeated edges.
func Build(rows []*model.Row, opts Options, ctx *model.Context) Model {
	defer metrics.Timer(metrics.Graph)()

	m := Model{Nodes: []Node{}, Edges: []Edge{}}
	seen := make(map[string]bool)
	arrows := ""
	if opts.Directed {
		arrows = "to"
	}

	for _, r := range rows {
		id := r.Get(opts.PrimaryID).First()
		if id == "" {
			ctx.Warnf("graph: row %d has no value in %q, skipped", r.Index, opts.PrimaryID)
			continue
		}
		if !seen[id] {
			seen[id] = true
			m.Nodes = append(m.Nodes, primaryNode(r, id, opts, ctx))
		}

		for _, col := range opts.Categories {
			done := make(map[string]bool)
			for _, e := range r.Get(col).Elements() {
				if !e.Present || e.Text == "" || done[e.Text] {
					continue
				}
				done[e.Text] = true
				cid := CategoryID(col, e.Text)
				if !seen[cid] {
					seen[cid] = true
					m.Nodes = append(m.Nodes, Node{
						ID:    cid,
						Label: e.Text,
						Color: CategoryColor,
						Shape: CategoryShape,
						Group: col,
						Kind:  KindCategory,
					})
				}
				m.Edges = append(m.Edges, Edge{From: id, To: cid, Arrows: arrows})
			}
		}
	}
	return m
}

func primaryNode(r *model.Row, id string, opts Options, ctx *model.Context) Node {
	label := id
	if opts.PrimaryLabel != "" {
		if l := r.Text(opts.PrimaryLabel); l != "" {
			label = l
		}
	}

	var lines []string
	for _, col := range opts.TooltipColumns {
		if v := r.Text(col); v != "" {
			lines = append(lines, col+": "+v)
		}
	}

	color := DefaultColor
	if opts.ColorColumn != "" {
		if c := style.Color(r.Get(opts.ColorColumn).First(), opts.ColorColumn, ctx); c != "" {
			color = c
		}
	}

	return Node{
		ID:    id,
		Label: label,
		Title: strings.Join(lines, "\n"),
		Color: color,
		Shape: PrimaryShape,
		Kind:  KindPrimary,
	}
}
