// Package testutil provides dataset fixtures with known shapes and the
// assertions the engine tests share. All generators are deterministic for a
// given seed.
package testutil

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Column names of generated datasets.
const (
	ColID     = "ID"
	ColTitle  = "Title"
	ColStatus = "Status"
	ColParent = "Parent"
	ColLinks  = "Links"
	ColTags   = "Tags"
)

// Headers is the header row of every generated dataset.
var Headers = []string{ColID, ColTitle, ColStatus, ColParent, ColLinks, ColTags}

// GraphFixture is an abstract parent/link graph.
type GraphFixture struct {
	Description string
	Nodes       []string
	Edges       [][2]int // [child, parent]
	Properties  Properties
}

// Properties holds what a fixture is known to satisfy.
type Properties struct {
	HasCycles     bool
	IsConnected   bool
	ExpectedDepth int
	Roots         int
}

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed      int64    // Random seed (0 = use 42)
	IDPrefix  string   // Prefix for row IDs (default: "R")
	Statuses  []string // Status values drawn per row (default: todo only)
	TagPool   []string // Tags drawn per row; empty disables tags
	MaxTags   int      // Upper bound of tags per row
	Separator string   // Multi-value separator (default: ",")
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		IDPrefix:  "R",
		Statuses:  []string{"todo", "doing", "done"},
		TagPool:   []string{"api", "ui", "db", "ops"},
		MaxTags:   2,
		Separator: ",",
	}
}

// Generator creates datasets with various parent topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "R"
	}
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = []string{"todo"}
	}
	if cfg.Separator == "" {
		cfg.Separator = model.DefaultSeparator
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Topologies
// ============================================================================

// Chain creates n0 <- n1 <- ... <- n{size-1}: every node's parent is the
// node before it.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := names(size)
	var edges [][2]int
	for i := 1; i < size; i++ {
		edges = append(edges, [2]int{i, i - 1})
	}
	return GraphFixture{
		Description: fmt.Sprintf("chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: max(0, size-1), Roots: min(1, size)},
	}
}

// Star creates a hub with spokes children.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := names(spokes + 1)
	var edges [][2]int
	for i := 1; i <= spokes; i++ {
		edges = append(edges, [2]int{i, 0})
	}
	return GraphFixture{
		Description: fmt.Sprintf("star with %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: min(1, spokes), Roots: 1},
	}
}

// Diamond creates a root, width middle nodes and a sink linked to every
// middle node. Only the first link becomes the sink's parent.
func (g *Generator) Diamond(width int) GraphFixture {
	nodes := names(width + 2)
	sink := width + 1
	var edges [][2]int
	for i := 1; i <= width; i++ {
		edges = append(edges, [2]int{i, 0})
	}
	for i := 1; i <= width; i++ {
		edges = append(edges, [2]int{sink, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("diamond of width %d", width),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: 2, Roots: 1},
	}
}

// Cycle creates n0 <- n1 <- ... <- n{size-1} <- n0.
func (g *Generator) Cycle(size int) GraphFixture {
	nodes := names(size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		edges = append(edges, [2]int{i, (i + size - 1) % size})
	}
	return GraphFixture{
		Description: fmt.Sprintf("cycle of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: true, IsConnected: true, ExpectedDepth: max(0, size-1), Roots: 1},
	}
}

// SelfLoop creates one node that is its own parent. A self reference is a
// root, not a cycle.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "self loop",
		Nodes:       names(1),
		Edges:       [][2]int{{0, 0}},
		Properties:  Properties{IsConnected: true, Roots: 1},
	}
}

// Tree creates a complete tree with the given depth and branching factor.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	nodes := []string{"n0"}
	var edges [][2]int
	level := []int{0}
	for d := 0; d < depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				idx := len(nodes)
				nodes = append(nodes, fmt.Sprintf("n%d", idx))
				edges = append(edges, [2]int{idx, parent})
				next = append(next, idx)
			}
		}
		level = next
	}
	expected := depth
	if breadth == 0 {
		expected = 0
	}
	return GraphFixture{
		Description: fmt.Sprintf("tree depth %d breadth %d", depth, breadth),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: expected, Roots: 1},
	}
}

// Disconnected creates several independent chains.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	nodes := names(components * componentSize)
	var edges [][2]int
	for c := 0; c < components; c++ {
		base := c * componentSize
		for i := 1; i < componentSize; i++ {
			edges = append(edges, [2]int{base + i, base + i - 1})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			IsConnected:   components <= 1,
			ExpectedDepth: max(0, componentSize-1),
			Roots:         components,
		},
	}
}

// RandomForest gives every node after the first a parent chosen among the
// earlier nodes with probability density; the rest are roots.
func (g *Generator) RandomForest(size int, density float64) GraphFixture {
	nodes := names(size)
	var edges [][2]int
	roots := min(1, size)
	for i := 1; i < size; i++ {
		if g.rng.Float64() < density {
			edges = append(edges, [2]int{i, g.rng.Intn(i)})
		} else {
			roots++
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("random forest of %d nodes (density %.2f)", size, density),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{Roots: roots},
	}
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("n%d", i)
	}
	return out
}

// ============================================================================
// Conversion
// ============================================================================

// ToDataset turns a fixture into rows. The first edge out of a node sets its
// Parent; every edge is also listed in the multi-value Links column.
func (g *Generator) ToDataset(gf GraphFixture) *model.Dataset {
	parents := make(map[int]int)
	links := make(map[int][]string)
	for _, e := range gf.Edges {
		if _, ok := parents[e[0]]; !ok {
			parents[e[0]] = e[1]
		}
		links[e[0]] = append(links[e[0]], g.id(e[1]))
	}

	rows := make([]*model.Row, len(gf.Nodes))
	for i, name := range gf.Nodes {
		parent := ""
		if p, ok := parents[i]; ok {
			parent = g.id(p)
		}
		rows[i] = model.NewRow(i, map[string]model.Value{
			ColID:     model.Scalar(g.id(i)),
			ColTitle:  model.Scalar("Node " + name),
			ColStatus: model.Scalar(g.pickStatus()),
			ColParent: model.Scalar(parent),
			ColLinks:  model.Multi(links[i]...),
			ColTags:   model.Multi(g.pickTags()...),
		})
	}
	return model.NewDataset(append([]string(nil), Headers...), rows)
}

// ToCSV serialises ds with the generator's separator.
func (g *Generator) ToCSV(ds *model.Dataset) string {
	var buf bytes.Buffer
	if err := loader.WriteCSV(&buf, ds, loader.WriteOptions{Separator: g.cfg.Separator}); err != nil {
		panic(fmt.Sprintf("testutil: write csv: %v", err))
	}
	return buf.String()
}

// Dashboard returns a configuration with one tab per view type over the
// generated columns.
func (g *Generator) Dashboard() *model.Config {
	return &model.Config{
		GeneralSettings: model.GeneralSettings{
			Title:               "Fixture",
			MultiValueColumns:   []string{ColLinks, ColTags},
			MultiValueSeparator: g.cfg.Separator,
		},
		Tabs: []model.Tab{
			model.NewTab("all", "All rows", &model.TableConfig{}),
			model.NewTab("board", "Board", &model.KanbanConfig{
				GroupByColumn:   ColStatus,
				CardTitleColumn: ColTitle,
				GroupOrder:      &model.GroupOrder{Mode: model.OrderList, Values: g.cfg.Statuses},
			}),
			model.NewTab("summary", "Summary", &model.SummaryConfig{
				ItemTitleColumn: ColTitle,
				Sections: []model.SummarySection{
					{Title: "Roots", Column: ColParent, FilterType: model.FilterValueIsEmpty},
					{Title: "Everything else", FilterType: model.FilterCatchAll},
				},
			}),
			model.NewTab("tree", "Tree", &model.HierarchyConfig{IDColumn: ColID, ParentColumn: ColParent, TitleColumn: ColTitle}),
			model.NewTab("graph", "Graph", &model.GraphConfig{
				PrimaryIDColumn:    ColID,
				PrimaryLabelColumn: ColTitle,
				CategoryColumns:    []string{ColTags},
			}),
		},
	}
}

func (g *Generator) id(i int) string {
	return RowID(g.cfg.IDPrefix, i)
}

func (g *Generator) pickStatus() string {
	return g.cfg.Statuses[g.rng.Intn(len(g.cfg.Statuses))]
}

func (g *Generator) pickTags() []string {
	if len(g.cfg.TagPool) == 0 || g.cfg.MaxTags <= 0 {
		return nil
	}
	n := g.rng.Intn(g.cfg.MaxTags + 1)
	seen := make(map[string]bool)
	var out []string
	for len(out) < n && len(seen) < len(g.cfg.TagPool) {
		tag := g.cfg.TagPool[g.rng.Intn(len(g.cfg.TagPool))]
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// ============================================================================
// Quick helpers
// ============================================================================

// QuickChain returns a chain dataset with default settings.
func QuickChain(size int) *model.Dataset {
	g := NewDefault()
	return g.ToDataset(g.Chain(size))
}

// QuickTree returns a tree dataset with default settings.
func QuickTree(depth, breadth int) *model.Dataset {
	g := NewDefault()
	return g.ToDataset(g.Tree(depth, breadth))
}

// QuickCycle returns a cyclic dataset with default settings.
func QuickCycle(size int) *model.Dataset {
	g := NewDefault()
	return g.ToDataset(g.Cycle(size))
}

// Empty returns a dataset with the standard headers and no rows.
func Empty() *model.Dataset {
	return model.NewDataset(append([]string(nil), Headers...), nil)
}

// Single returns a dataset with one root row.
func Single() *model.Dataset {
	return QuickChain(1)
}
