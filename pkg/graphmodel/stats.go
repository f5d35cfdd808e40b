package graphmodel

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Stats summarises a graph model. DuplicateEdges counts edges that repeat an
// existing (from, to) pair; they are kept in the model as a frequency signal.
type Stats struct {
	PrimaryNodes   int    `json:"primaryNodes"`
	CategoryNodes  int    `json:"categoryNodes"`
	Edges          int    `json:"edges"`
	DistinctEdges  int    `json:"distinctEdges"`
	DuplicateEdges int    `json:"duplicateEdges"`
	Components     int    `json:"components"`
	TopHub         string `json:"topHub,omitempty"`
	TopHubDegree   int    `json:"topHubDegree,omitempty"`
}

// Stats computes summary figures with a gonum graph.
func (m Model) Stats() Stats {
	s := Stats{Edges: len(m.Edges)}
	ids := make(map[string]int64, len(m.Nodes))
	g := simple.NewDirectedGraph()
	u := simple.NewUndirectedGraph()
	for i, n := range m.Nodes {
		ids[n.ID] = int64(i)
		g.AddNode(simple.Node(i))
		u.AddNode(simple.Node(i))
		if n.Kind == KindCategory {
			s.CategoryNodes++
		} else {
			s.PrimaryNodes++
		}
	}
	for _, e := range m.Edges {
		from, ok1 := ids[e.From]
		to, ok2 := ids[e.To]
		if !ok1 || !ok2 || from == to {
			continue
		}
		if g.HasEdgeFromTo(from, to) {
			s.DuplicateEdges++
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		u.SetEdge(u.NewEdge(simple.Node(from), simple.Node(to)))
	}
	s.DistinctEdges = g.Edges().Len()
	s.Components = len(topo.ConnectedComponents(u))

	for i, n := range m.Nodes {
		if n.Kind != KindCategory {
			continue
		}
		if d := g.To(int64(i)).Len(); d > s.TopHubDegree {
			s.TopHub = n.ID
			s.TopHubDegree = d
		}
	}
	return s
}
