package layout

import (
	"context"
	"sync"

	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
)

// Hierarchical places primary nodes on the top layer and category hubs on
// the layer below, each layer in model order.
type Hierarchical struct {
	mu        sync.Mutex
	opts      Options
	model     graphmodel.Model
	pos       map[string]Point
	destroyed bool
}

// NewHierarchical prepares a layered layout of m.
func NewHierarchical(m graphmodel.Model, opts Options) *Hierarchical {
	return &Hierarchical{opts: opts.withDefaults(), model: m}
}

// Stabilize computes the layers in a single pass.
func (h *Hierarchical) Stabilize(ctx context.Context, progress func(Progress)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var layers [2][]string
	for _, n := range h.model.Nodes {
		if n.Kind == graphmodel.KindCategory {
			layers[1] = append(layers[1], n.ID)
		} else {
			layers[0] = append(layers[0], n.ID)
		}
	}
	h.pos = make(map[string]Point, len(h.model.Nodes))
	gap := h.opts.Height / 3
	for depth, ids := range layers {
		step := h.opts.Width / float64(len(ids)+1)
		for i, id := range ids {
			h.pos[id] = Point{X: step * float64(i+1), Y: gap * float64(depth+1)}
		}
	}
	if progress != nil {
		progress(Progress{Iterations: 1, Total: 1})
	}
	return nil
}

// Fit returns the viewport around all nodes.
func (h *Hierarchical) Fit() Viewport {
	return fit(h.Positions(), h.opts.Width, h.opts.Height)
}

// Positions returns a copy of the computed positions.
func (h *Hierarchical) Positions() map[string]Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyPositions(h.pos)
}

// Destroy releases the engine's state.
func (h *Hierarchical) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
	h.pos = nil
	h.model = graphmodel.Model{}
}
