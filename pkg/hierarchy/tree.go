// Package hierarchy rebuilds parent/child trees from flat rows.
package hierarchy

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
)

// Node is a row plus its children, in input order.
type Node struct {
	Row      *model.Row
	ID       string
	ParentID string
	Children []*Node
}

// Tree is the result of Build. It is derived per render and never cached.
type Tree struct {
	Roots []*Node
	// Index maps ids to the first row carrying them.
	Index map[string]*Node
	// Cycles lists parent-id cycles that were broken, each in input order.
	Cycles [][]string

	nodes []*Node
	byRow map[*model.Row]*Node
}

// Empty reports whether the tree has no roots. Callers fall back to a flat
// list in that case.
func (t *Tree) Empty() bool {
	return t == nil || len(t.Roots) == 0
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Build links rows by idColumn and parentColumn. Rows without an id are never
// parents. A row whose parent id does not resolve, or that names itself,
// becomes a root. Parent-id cycles are broken by promoting the cycle member
// that comes first in input order to a root.
func Build(rows []*model.Row, idColumn, parentColumn string, ctx *model.Context) *Tree {
	defer metrics.Timer(metrics.Tree)()

	t := &Tree{
		Index: make(map[string]*Node, len(rows)),
		nodes: make([]*Node, len(rows)),
		byRow: make(map[*model.Row]*Node, len(rows)),
	}
	for i, r := range rows {
		n := &Node{Row: r, ID: r.Get(idColumn).First()}
		t.nodes[i] = n
		t.byRow[r] = n
		if n.ID == "" {
			continue
		}
		if _, dup := t.Index[n.ID]; dup {
			ctx.Warnf("hierarchy: duplicate id %q in column %q, keeping the first row", n.ID, idColumn)
			continue
		}
		t.Index[n.ID] = n
	}

	pos := make(map[*Node]int, len(rows))
	for i, n := range t.nodes {
		pos[n] = i
	}
	parent := make([]int, len(rows))
	for i, n := range t.nodes {
		parent[i] = -1
		n.ParentID = parentID(n.Row.Get(parentColumn))
		if n.ParentID == "" {
			continue
		}
		p, ok := t.Index[n.ParentID]
		if !ok || p == n {
			continue
		}
		parent[i] = pos[p]
	}

	t.breakCycles(parent)

	for i, n := range t.nodes {
		if parent[i] < 0 {
			t.Roots = append(t.Roots, n)
			continue
		}
		p := t.nodes[parent[i]]
		p.Children = append(p.Children, n)
	}
	for _, c := range t.Cycles {
		ctx.Warnf("hierarchy: parent cycle %v broken at %q", c, c[0])
	}
	return t
}

// parentID returns the first element of a multi-value cell or the scalar.
func parentID(v model.Value) string {
	elems := v.Elements()
	if len(elems) == 0 || !elems[0].Present {
		return ""
	}
	return elems[0].Text
}

// breakCycles finds strongly connected components of the child->parent graph.
// Every row has at most one parent, so each component larger than one node is
// a simple cycle and dropping one edge breaks it.
func (t *Tree) breakCycles(parent []int) {
	g := simple.NewDirectedGraph()
	for i := range parent {
		g.AddNode(simple.Node(int64(i)))
	}
	for i, p := range parent {
		if p >= 0 {
			g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(p))))
		}
	}
	type cycle struct {
		first int
		ids   []string
	}
	var found []cycle
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		members := make([]int, len(scc))
		for i, n := range scc {
			members[i] = int(n.ID())
		}
		sort.Ints(members)
		parent[members[0]] = -1

		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = t.nodes[m].ID
		}
		found = append(found, cycle{first: members[0], ids: ids})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].first < found[j].first })
	for _, c := range found {
		t.Cycles = append(t.Cycles, c.ids)
	}
}

// Entry is one visited node with its depth (roots are depth 0).
type Entry struct {
	Node  *Node
	Depth int
}

// Walk visits the tree depth-first. Roots and the children of every node are
// ordered by spec at visit time. A node is never visited twice.
func (t *Tree) Walk(spec model.SortSpec, ctx *model.Context, fn func(Entry)) {
	if t == nil {
		return
	}
	visited := make(map[*Node]bool, len(t.nodes))
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range t.sorted(nodes, spec, ctx) {
			if visited[n] {
				ctx.Warnf("hierarchy: node %q reached twice, skipping", n.ID)
				continue
			}
			visited[n] = true
			fn(Entry{Node: n, Depth: depth})
			visit(n.Children, depth+1)
		}
	}
	visit(t.Roots, 0)
}

// Flatten returns the entries in Walk order.
func (t *Tree) Flatten(spec model.SortSpec, ctx *model.Context) []Entry {
	var out []Entry
	t.Walk(spec, ctx, func(e Entry) {
		out = append(out, e)
	})
	return out
}

func (t *Tree) sorted(nodes []*Node, spec model.SortSpec, ctx *model.Context) []*Node {
	if len(spec) == 0 || len(nodes) < 2 {
		return nodes
	}
	rows := make([]*model.Row, len(nodes))
	for i, n := range nodes {
		rows[i] = n.Row
	}
	rows = sorting.Rows(rows, spec, ctx)
	out := make([]*Node, len(rows))
	for i, r := range rows {
		out[i] = t.byRow[r]
	}
	return out
}
