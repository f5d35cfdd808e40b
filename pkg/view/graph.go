package view

import (
	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Graph is a hub-and-spoke graph plus the options for the browser graph
// library.
type Graph struct {
	Nodes        []graphmodel.Node  `json:"nodes"`
	Edges        []graphmodel.Edge  `json:"edges"`
	LayoutEngine model.LayoutEngine `json:"layoutEngine"`
	Options      map[string]any     `json:"options"`
	Stats        graphmodel.Stats   `json:"stats"`
}

// Model returns the graph as a graphmodel.Model.
func (g *Graph) Model() graphmodel.Model {
	return graphmodel.Model{Nodes: g.Nodes, Edges: g.Edges}
}

func renderGraph(rows []*model.Row, cfg *model.GraphConfig, ctx *model.Context) *Graph {
	m := graphmodel.Build(rows, graphmodel.OptionsFrom(cfg), ctx)
	engine := cfg.LayoutEngine
	if engine == "" {
		engine = model.LayoutForceDirected
	}
	return &Graph{
		Nodes:        m.Nodes,
		Edges:        m.Edges,
		LayoutEngine: engine,
		Options:      graphmodel.LibraryOptions(cfg),
		Stats:        m.Stats(),
	}
}
