package graphmodel

import (
	"testing"

	"github.com/vanderheijden86/csvboard/pkg/model"
)

func fixture() (*model.Context, []*model.Row) {
	rows := []*model.Row{
		model.NewRow(0, map[string]model.Value{"ID": model.Scalar("s1"), "Name": model.Scalar("Search"), "Team": model.Scalar("core"), "Tags": model.Multi("go", "api"), "Owner": model.Scalar("ann")}),
		model.NewRow(1, map[string]model.Value{"ID": model.Scalar("s2"), "Team": model.Scalar("edge"), "Tags": model.Multi("go")}),
		model.NewRow(2, map[string]model.Value{"ID": model.Scalar("s1"), "Name": model.Scalar("Ignored"), "Team": model.Scalar("core")}),
		model.NewRow(3, map[string]model.Value{"Team": model.Scalar("core")}),
	}
	ds := model.NewDataset([]string{"ID", "Name", "Team", "Tags", "Owner"}, rows)
	cfg := &model.Config{IndicatorStyles: map[string]model.ColumnStyle{
		"Team": {Type: model.StyleTag, ValueMap: map[string]model.Style{"core": {Background: "#ff0000"}}},
	}}
	return model.NewContext(ds, cfg), ds.Rows
}

func TestBuildHubAndSpoke(t *testing.T) {
	ctx, rows := fixture()
	m := Build(rows, Options{
		PrimaryID:      "ID",
		PrimaryLabel:   "Name",
		Categories:     []string{"Team", "Tags"},
		ColorColumn:    "Team",
		TooltipColumns: []string{"Team", "Owner"},
		Directed:       true,
	}, ctx)

	nodes := make(map[string]Node)
	for _, n := range m.Nodes {
		nodes[n.ID] = n
	}
	if len(nodes) != len(m.Nodes) {
		t.Fatal("expected unique node ids")
	}
	s1 := nodes["s1"]
	if s1.Label != "Search" || s1.Color != "#ff0000" || s1.Title != "Team: core\nOwner: ann" {
		t.Errorf("expected first-seen attributes for s1, got %+v", s1)
	}
	if nodes["s2"].Label != "s2" || nodes["s2"].Color != DefaultColor {
		t.Errorf("expected id label and default color for s2, got %+v", nodes["s2"])
	}
	for _, id := range []string{"Team::core", "Team::edge", "Tags::go", "Tags::api"} {
		n, ok := nodes[id]
		if !ok {
			t.Fatalf("expected category node %s", id)
		}
		if n.Shape != CategoryShape || n.Kind != KindCategory {
			t.Errorf("expected category styling for %s, got %+v", id, n)
		}
	}
	if len(m.Edges) != 6 {
		t.Errorf("expected 6 edges including the repeated s1->Team::core, got %d", len(m.Edges))
	}
	if m.Edges[0].Arrows != "to" {
		t.Errorf("expected directed edges, got %+v", m.Edges[0])
	}
	if len(ctx.Warnings()) != 1 {
		t.Errorf("expected one warning for the row without id, got %v", ctx.Warnings())
	}
}

func TestCategoryIDsAreScopedByColumn(t *testing.T) {
	rows := []*model.Row{
		model.NewRow(0, map[string]model.Value{"ID": model.Scalar("x"), "A": model.Scalar("v"), "B": model.Scalar("v")}),
	}
	m := Build(rows, Options{PrimaryID: "ID", Categories: []string{"A", "B"}}, nil)
	if len(m.Nodes) != 3 || len(m.Edges) != 2 {
		t.Errorf("expected separate category nodes per column, got %d nodes %d edges", len(m.Nodes), len(m.Edges))
	}
	if m.Edges[0].Arrows != "" {
		t.Error("expected undirected edges without arrows")
	}
}

func TestStats(t *testing.T) {
	ctx, rows := fixture()
	m := Build(rows, Options{PrimaryID: "ID", Categories: []string{"Team", "Tags"}}, ctx)
	s := m.Stats()
	if s.PrimaryNodes != 2 || s.CategoryNodes != 4 {
		t.Errorf("expected 2 primary and 4 category nodes, got %+v", s)
	}
	if s.DuplicateEdges != 1 || s.DistinctEdges != 5 {
		t.Errorf("expected one duplicate edge, got %+v", s)
	}
	if s.Components != 1 {
		t.Errorf("expected one connected component, got %d", s.Components)
	}
	if s.TopHubDegree != 2 {
		t.Errorf("expected top hub degree 2, got %+v", s)
	}
}

func TestLibraryOptions(t *testing.T) {
	off := false
	opts := LibraryOptions(&model.GraphConfig{LayoutEngine: model.LayoutHierarchical, PhysicsEnabled: &off})
	layout := opts["layout"].(map[string]any)["hierarchical"].(map[string]any)
	if layout["enabled"] != true {
		t.Errorf("expected hierarchical layout, got %v", layout)
	}
	if opts["physics"].(map[string]any)["enabled"] != false {
		t.Error("expected physics disabled")
	}

	opts = LibraryOptions(&model.GraphConfig{})
	if opts["physics"].(map[string]any)["solver"] != "forceAtlas2Based" {
		t.Errorf("expected force-directed solver, got %v", opts["physics"])
	}
}
