// Package layout positions graph models. An Engine is stabilised, then fitted
// to a viewport; a Session owns the engine of one graph tab and destroys it
// before installing a replacement.
package layout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// ErrDestroyed is returned by engines used after Destroy.
var ErrDestroyed = errors.New("layout engine destroyed")

// Point is a node position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the fitted view: the bounding box of all positions and the
// scale that maps it into the engine's canvas.
type Viewport struct {
	MinX  float64 `json:"minX"`
	MinY  float64 `json:"minY"`
	MaxX  float64 `json:"maxX"`
	MaxY  float64 `json:"maxY"`
	Scale float64 `json:"scale"`
}

// Width returns the viewport width before scaling.
func (v Viewport) Width() float64 { return v.MaxX - v.MinX }

// Height returns the viewport height before scaling.
func (v Viewport) Height() float64 { return v.MaxY - v.MinY }

// Progress reports stabilisation progress.
type Progress struct {
	Iterations int `json:"iterations"`
	Total      int `json:"total"`
}

// Engine is a graph layout engine.
type Engine interface {
	// Stabilize runs the layout until it settles, reporting progress.
	Stabilize(ctx context.Context, progress func(Progress)) error
	// Fit returns the viewport containing every node. Only valid after
	// Stabilize returned.
	Fit() Viewport
	Positions() map[string]Point
	Destroy()
}

// Options configures the built-in engines.
type Options struct {
	Width, Height float64
	Iterations    int
	// ProgressEvery controls how often the force-directed engine reports.
	ProgressEvery int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	if o.Iterations <= 0 {
		o.Iterations = 300
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 25
	}
	return o
}

// New returns the engine named by kind for m.
func New(m graphmodel.Model, kind model.LayoutEngine, opts Options) Engine {
	opts = opts.withDefaults()
	if kind == model.LayoutHierarchical {
		return NewHierarchical(m, opts)
	}
	return NewForceDirected(m, opts)
}

// Result is a stabilised and fitted layout.
type Result struct {
	Positions map[string]Point `json:"positions"`
	Viewport  Viewport         `json:"viewport"`
}

// Run requests stabilisation, waits for it to complete and then fits the
// view.
func Run(ctx context.Context, e Engine, progress func(Progress)) (Result, error) {
	defer metrics.Timer(metrics.Layout)()

	if err := e.Stabilize(ctx, progress); err != nil {
		return Result{}, fmt.Errorf("stabilize layout: %w", err)
	}
	return Result{Positions: e.Positions(), Viewport: e.Fit()}, nil
}

// Session owns the current engine of one graph view. It is safe for
// concurrent use.
type Session struct {
	mu      sync.Mutex
	current Engine
}

// Replace destroys the current engine, if any, and installs e.
func (s *Session) Replace(e Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Destroy()
		debug.Log("layout: destroyed previous engine")
	}
	s.current = e
}

// Close destroys the current engine.
func (s *Session) Close() {
	s.Replace(nil)
}

func fit(pos map[string]Point, width, height float64) Viewport {
	if len(pos) == 0 {
		return Viewport{Scale: 1}
	}
	v := Viewport{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range pos {
		v.MinX = math.Min(v.MinX, p.X)
		v.MinY = math.Min(v.MinY, p.Y)
		v.MaxX = math.Max(v.MaxX, p.X)
		v.MaxY = math.Max(v.MaxY, p.Y)
	}
	const pad = 40
	v.MinX -= pad
	v.MinY -= pad
	v.MaxX += pad
	v.MaxY += pad
	v.Scale = math.Min(width/v.Width(), height/v.Height())
	return v
}

func copyPositions(pos map[string]Point) map[string]Point {
	out := make(map[string]Point, len(pos))
	for k, v := range pos {
		out[k] = v
	}
	return out
}
