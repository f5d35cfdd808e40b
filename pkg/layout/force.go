package layout

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	gonumlayout "gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
)

// forceSeed seeds the initial placement so identical models produce
// identical layouts.
const forceSeed = 0x637362

// ForceDirected is an Eades spring layout with Barnes-Hut repulsion.
// Positions are scaled into the configured canvas.
type ForceDirected struct {
	mu        sync.Mutex
	opts      Options
	ids       []string
	eades     *gonumlayout.EadesR2
	optimizer gonumlayout.OptimizerR2
	pos       []Point
	destroyed bool
}

// orderedGraph iterates nodes by id. The seeded initial placement and the
// force sums depend on iteration order.
type orderedGraph struct {
	*simple.UndirectedGraph
}

func (g orderedGraph) Nodes() graph.Nodes {
	return sortedNodes(g.UndirectedGraph.Nodes())
}

func (g orderedGraph) From(id int64) graph.Nodes {
	return sortedNodes(g.UndirectedGraph.From(id))
}

func sortedNodes(it graph.Nodes) graph.Nodes {
	nodes := graph.NodesOf(it)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return iterator.NewOrderedNodes(nodes)
}

// NewForceDirected prepares a force-directed layout of m.
func NewForceDirected(m graphmodel.Model, opts Options) *ForceDirected {
	opts = opts.withDefaults()
	f := &ForceDirected{opts: opts}

	g := simple.NewUndirectedGraph()
	index := make(map[string]int64, len(m.Nodes))
	for _, n := range m.Nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		id := int64(len(f.ids))
		index[n.ID] = id
		f.ids = append(f.ids, n.ID)
		g.AddNode(simple.Node(id))
	}
	for _, e := range m.Edges {
		a, ok1 := index[e.From]
		b, ok2 := index[e.To]
		if ok1 && ok2 && a != b {
			g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
		}
	}

	f.eades = &gonumlayout.EadesR2{
		Repulsion: 1,
		Rate:      0.05,
		Theta:     0.2,
		Src:       rand.NewPCG(forceSeed, forceSeed),
	}
	f.optimizer = gonumlayout.NewOptimizerR2(orderedGraph{g}, f.eades.Update)
	f.pos = make([]Point, len(f.ids))
	f.scale()
	return f
}

// Stabilize runs up to the configured number of updates. It stops early
// once the layout no longer moves.
func (f *ForceDirected) Stabilize(ctx context.Context, progress func(Progress)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return ErrDestroyed
	}
	total := f.opts.Iterations
	if len(f.ids) < 2 {
		f.scale()
		if progress != nil {
			progress(Progress{Iterations: total, Total: total})
		}
		return nil
	}

	f.eades.Updates = total
	for it := 1; it <= total; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		moved := f.optimizer.Update()
		if progress != nil && (!moved || it%f.opts.ProgressEvery == 0 || it == total) {
			progress(Progress{Iterations: it, Total: total})
		}
		if !moved {
			break
		}
	}
	f.scale()
	return nil
}

// scale maps the optimizer's coordinates into the canvas, keeping a margin.
// Degenerate extents are centred.
func (f *ForceDirected) scale() {
	if len(f.ids) == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range f.ids {
		c := f.optimizer.Coord2(int64(i))
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}
	const margin = 0.05
	w, h := f.opts.Width, f.opts.Height
	axis := func(v, lo, hi, size float64) float64 {
		if hi-lo < 1e-9 {
			return size / 2
		}
		return size*margin + (v-lo)/(hi-lo)*size*(1-2*margin)
	}
	for i := range f.ids {
		c := f.optimizer.Coord2(int64(i))
		f.pos[i] = Point{X: axis(c.X, minX, maxX, w), Y: axis(c.Y, minY, maxY, h)}
	}
}

// Fit returns the viewport around all nodes.
func (f *ForceDirected) Fit() Viewport {
	return fit(f.Positions(), f.opts.Width, f.opts.Height)
}

// Positions returns a copy of the current node positions.
func (f *ForceDirected) Positions() map[string]Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Point, len(f.ids))
	if f.destroyed {
		return out
	}
	for i, id := range f.ids {
		out[id] = f.pos[i]
	}
	return out
}

// Destroy releases the engine's state.
func (f *ForceDirected) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	f.ids, f.pos, f.eades = nil, nil, nil
	f.optimizer = gonumlayout.OptimizerR2{}
}
