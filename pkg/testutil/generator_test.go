package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/csvboard/pkg/hierarchy"
	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

func TestChain(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantNodes int
		wantEdges int
		wantDepth int
	}{
		{"chain_1", 1, 1, 0, 0},
		{"chain_2", 2, 2, 1, 1},
		{"chain_5", 5, 5, 4, 4},
		{"chain_10", 10, 10, 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Chain(tt.size)

			if len(gf.Nodes) != tt.wantNodes {
				t.Errorf("Chain(%d) nodes = %d, want %d", tt.size, len(gf.Nodes), tt.wantNodes)
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Chain(%d) edges = %d, want %d", tt.size, len(gf.Edges), tt.wantEdges)
			}
			if gf.Properties.HasCycles {
				t.Error("Chain should not have cycles")
			}
			if gf.Properties.ExpectedDepth != tt.wantDepth {
				t.Errorf("Chain(%d) depth = %d, want %d", tt.size, gf.Properties.ExpectedDepth, tt.wantDepth)
			}
			for i, e := range gf.Edges {
				if e[0] != i+1 || e[1] != i {
					t.Errorf("Edge %d: got [%d,%d], want [%d,%d]", i, e[0], e[1], i+1, i)
				}
			}
		})
	}
}

func TestTopologyShapes(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		gf        GraphFixture
		wantNodes int
		wantEdges int
	}{
		{"star", gen.Star(4), 5, 4},
		{"diamond", gen.Diamond(3), 5, 6},
		{"cycle", gen.Cycle(4), 4, 4},
		{"self_loop", gen.SelfLoop(), 1, 1},
		{"tree", gen.Tree(2, 3), 13, 12},
		{"disconnected", gen.Disconnected(3, 2), 6, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.gf.Nodes) != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", len(tt.gf.Nodes), tt.wantNodes)
			}
			if len(tt.gf.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(tt.gf.Edges), tt.wantEdges)
			}
			if tt.gf.Description == "" {
				t.Error("expected a description")
			}
		})
	}
}

// The generated Parent column must produce exactly the tree each fixture
// claims when run through the hierarchy builder.
func TestFixturesMatchHierarchy(t *testing.T) {
	gen := NewDefault()

	fixtures := []GraphFixture{
		gen.Chain(6),
		gen.Star(5),
		gen.Diamond(2),
		gen.Cycle(3),
		gen.SelfLoop(),
		gen.Tree(3, 2),
		gen.Disconnected(4, 3),
	}

	for _, gf := range fixtures {
		t.Run(gf.Description, func(t *testing.T) {
			ds := gen.ToDataset(gf)
			ctx := model.NewContext(ds, gen.Dashboard())
			tree := hierarchy.Build(ds.Rows, ColID, ColParent, ctx)

			if len(tree.Roots) != gf.Properties.Roots {
				t.Errorf("expected %d roots, got %d", gf.Properties.Roots, len(tree.Roots))
			}
			if gotCycles := len(tree.Cycles) > 0; gotCycles != gf.Properties.HasCycles {
				t.Errorf("expected cycles=%v, got %v", gf.Properties.HasCycles, tree.Cycles)
			}

			depth := 0
			entries := tree.Flatten(nil, ctx)
			for _, e := range entries {
				depth = max(depth, e.Depth)
			}
			if depth != gf.Properties.ExpectedDepth {
				t.Errorf("expected depth %d, got %d", gf.Properties.ExpectedDepth, depth)
			}
			if len(entries) != len(gf.Nodes) {
				t.Errorf("expected every row visited once, got %d of %d", len(entries), len(gf.Nodes))
			}
		})
	}
}

func TestRandomForestIsDeterministic(t *testing.T) {
	a := New(GeneratorConfig{Seed: 7}).RandomForest(50, 0.6)
	b := New(GeneratorConfig{Seed: 7}).RandomForest(50, 0.6)

	if len(a.Edges) != len(b.Edges) {
		t.Fatalf("expected identical edge counts, got %d and %d", len(a.Edges), len(b.Edges))
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Errorf("edge %d differs: %v vs %v", i, a.Edges[i], b.Edges[i])
		}
	}
	if a.Properties.Roots+len(a.Edges) != 50 {
		t.Errorf("expected roots plus edges to cover every node, got %d+%d", a.Properties.Roots, len(a.Edges))
	}
	for _, e := range a.Edges {
		if e[1] >= e[0] {
			t.Errorf("expected parent before child, got %v", e)
		}
	}
}

func TestToDataset(t *testing.T) {
	gen := NewDefault()
	ds := gen.ToDataset(gen.Diamond(2))

	AssertHeaders(t, ds, Headers...)
	AssertRowCount(t, ds, 4)
	AssertNoDuplicateIDs(t, ds, ColID)
	AssertColumnValues(t, ds, ColParent, "", "R-0", "R-0", "R-1")

	sink := FindRow(ds, ColID, "R-3")
	if sink == nil {
		t.Fatal("expected sink row R-3")
	}
	links := sink.Get(ColLinks).Items()
	if strings.Join(links, ",") != "R-1,R-2" {
		t.Errorf("expected links [R-1 R-2], got %v", links)
	}
	if !sink.Get(ColLinks).IsMulti() {
		t.Error("expected Links to be multi-valued")
	}

	total := 0
	for status, n := range CountBy(ds, ColStatus) {
		switch status {
		case "todo", "doing", "done":
		default:
			t.Errorf("unexpected status %q", status)
		}
		total += n
	}
	if total != 4 {
		t.Errorf("expected 4 rows counted, got %d", total)
	}
}

func TestToCSVLoadsBack(t *testing.T) {
	gen := New(GeneratorConfig{Seed: 3, Separator: ";", TagPool: []string{"a", "b", "c"}, MaxTags: 3})
	ds := gen.ToDataset(gen.Tree(2, 2))
	text := gen.ToCSV(ds)

	back, err := loader.ParseCSV(strings.NewReader(text), loader.ParseOptions{
		MultiValueColumns: []string{ColLinks, ColTags},
		Separator:         ";",
		WarningHandler:    func(msg string) { t.Errorf("unexpected warning: %s", msg) },
	})
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	AssertRowCount(t, back, ds.Len())
	for i, r := range ds.Rows {
		for _, col := range Headers {
			if got, want := back.Rows[i].Text(col), r.Text(col); got != want {
				t.Errorf("row %d %s: expected %q, got %q", i, col, want, got)
			}
		}
	}
}

func TestDashboardValidates(t *testing.T) {
	gen := NewDefault()
	ds := gen.ToDataset(gen.Chain(3))
	cfg := gen.Dashboard()

	if err := cfg.Validate(ds.HasColumn); err != nil {
		t.Errorf("expected fixture dashboard to validate, got %v", err)
	}
	if len(cfg.EnabledTabs()) != 5 {
		t.Errorf("expected 5 tabs, got %d", len(cfg.EnabledTabs()))
	}
}

func TestQuickHelpers(t *testing.T) {
	AssertRowCount(t, QuickChain(4), 4)
	AssertRowCount(t, QuickTree(1, 3), 4)
	AssertRowCount(t, QuickCycle(3), 3)
	AssertRowCount(t, Single(), 1)
	AssertRowCount(t, Empty(), 0)
	AssertHeaders(t, Empty(), Headers...)
}

func TestGoldenFile(t *testing.T) {
	dir := t.TempDir()
	WriteFile(t, dir, "chain.csv", QuickChain(1).Headers[0]+"\n")

	g := NewGoldenFile(t, dir, "chain.csv")
	if g.Path() == "" {
		t.Fatal("expected a golden path")
	}
	g.Assert("ID\n")
}

func TestWriteDataset(t *testing.T) {
	dir := t.TempDir()
	path := WriteDataset(t, dir, "rows.csv", QuickChain(2))

	ds, err := loader.LoadCSV(path, loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	AssertColumnValues(t, ds, ColID, "R-0", "R-1")
	AssertColumnValues(t, ds, ColParent, "", "R-0")
}
