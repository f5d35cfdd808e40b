package export

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
	"github.com/vanderheijden86/csvboard/pkg/layout"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

// GraphSnapshotOptions controls graph snapshot export behaviour.
type GraphSnapshotOptions struct {
	Path     string         // Output path; format inferred from extension when Format empty
	Format   string         // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title    string         // Optional title rendered in summary block
	Preset   string         // Canvas preset: "compact" (default) or "roomy"
	Graph    *view.Graph    // Rendered graph view
	Layout   *layout.Result // Precomputed positions; computed when nil
	DataHash string         // Hash of the input data for provenance
}

// SaveGraphSnapshot renders a static graph snapshot (SVG or PNG) with a
// short summary block.
func SaveGraphSnapshot(ctx context.Context, opts GraphSnapshotOptions) error {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := WriteGraphSnapshot(ctx, file, format, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteGraphSnapshot renders the snapshot in format ("svg" or "png") to w.
func WriteGraphSnapshot(ctx context.Context, w io.Writer, format string, opts GraphSnapshotOptions) error {
	if opts.Graph == nil {
		return fmt.Errorf("no graph to export")
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}

	res := opts.Layout
	if res == nil {
		computed, err := ComputeLayout(ctx, opts.Graph, presetOptions(opts.Preset))
		if err != nil {
			return err
		}
		res = &computed
	}
	lr := buildLayout(opts, *res)

	if format == "png" {
		return renderPNG(w, lr)
	}
	return renderSVGToWriter(w, lr)
}

// ComputeLayout stabilises the graph with the engine configured for the view
// and releases the engine afterwards.
func ComputeLayout(ctx context.Context, g *view.Graph, opts layout.Options) (layout.Result, error) {
	engine := layout.New(g.Model(), g.LayoutEngine, opts)
	defer engine.Destroy()
	return layout.Run(ctx, engine, nil)
}

func presetOptions(preset string) layout.Options {
	if strings.EqualFold(preset, "roomy") {
		return layout.Options{Width: 1600, Height: 1100}
	}
	return layout.Options{Width: 1100, Height: 720}
}

// --- layout computation ----------------------------------------------------

type layoutNode struct {
	ID      string
	Label   string
	Kind    graphmodel.NodeKind
	Fill    color.RGBA
	FillCSS string
	X, Y    float64 // center
	NodeW   float64
	NodeH   float64
}

type layoutEdge struct {
	From     string
	To       string
	Directed bool
}

type layoutResult struct {
	Nodes   []layoutNode
	Edges   []layoutEdge
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title      string
	DataHash   string
	Primaries  int
	Categories int
	EdgeCount  int
	Duplicates int
	TopHub     string
}

func buildLayout(opts GraphSnapshotOptions, res layout.Result) layoutResult {
	const (
		padding      = 36.0
		headerHeight = 120.0
		nodeH        = 26.0
		charW        = 7.0
	)

	vp := res.Viewport
	scale := vp.Scale
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		scale = 1
	}

	var nodes []layoutNode
	for _, n := range opts.Graph.Nodes {
		p, ok := res.Positions[n.ID]
		if !ok {
			continue
		}
		label := truncate(n.Label, 28)
		w := math.Max(60, float64(len([]rune(label)))*charW+16)
		fill, fillCSS := nodeColor(n)
		nodes = append(nodes, layoutNode{
			ID:      n.ID,
			Label:   label,
			Kind:    n.Kind,
			Fill:    fill,
			FillCSS: fillCSS,
			X:       padding + (p.X-vp.MinX)*scale,
			Y:       padding + headerHeight + (p.Y-vp.MinY)*scale,
			NodeW:   w,
			NodeH:   nodeH,
		})
	}

	width := int(padding*2 + vp.Width()*scale)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + vp.Height()*scale)
	if height < 480 {
		height = 480
	}

	var edges []layoutEdge
	for _, e := range opts.Graph.Edges {
		edges = append(edges, layoutEdge{From: e.From, To: e.To, Directed: e.Arrows == "to"})
	}

	stats := opts.Graph.Stats
	topHub := "n/a"
	if stats.TopHub != "" {
		topHub = fmt.Sprintf("%s (%d)", stats.TopHub, stats.TopHubDegree)
	}
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Graph Snapshot"
	}

	return layoutResult{
		Nodes:  nodes,
		Edges:  edges,
		Width:  width,
		Height: height,
		Header: headerHeight,
		Summary: summaryInfo{
			Title:      title,
			DataHash:   opts.DataHash,
			Primaries:  stats.PrimaryNodes,
			Categories: stats.CategoryNodes,
			EdgeCount:  stats.Edges,
			Duplicates: stats.DuplicateEdges,
			TopHub:     topHub,
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorPrimary   = hexColor(graphmodel.DefaultColor, color.RGBA{0x97, 0xc2, 0xfc, 0xff})
	colorCategory  = hexColor(graphmodel.CategoryColor, color.RGBA{0xff, 0xd2, 0x7f, 0xff})
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge      = color.RGBA{0x9e, 0x9e, 0x9e, 0xff}
	colorEdgeArrow = color.RGBA{0x75, 0x75, 0x75, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG  = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// nodeColor resolves the node's CSS color. Hex values and CSS color names
// are supported; anything else falls back to the kind's default.
func nodeColor(n graphmodel.Node) (color.RGBA, string) {
	fallback := colorPrimary
	if n.Kind == graphmodel.KindCategory {
		fallback = colorCategory
	}
	c := parseColor(n.Color, fallback)
	return c, css(c)
}

func parseColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return fallback
	}
	if strings.HasPrefix(s, "#") {
		return hexColor(s, fallback)
	}
	if c, ok := colornames.Map[s]; ok {
		return c
	}
	return fallback
}

func hexColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return fallback
	}
	return color.RGBA{r, g, b, 0xff}
}

func renderPNG(w io.Writer, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)

	nodePos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}
	dc.SetLineWidth(1.5)
	for _, e := range layout.Edges {
		from, okFrom := nodePos[e.From]
		to, okTo := nodePos[e.To]
		if !okFrom || !okTo {
			continue
		}
		dc.SetColor(colorEdge)
		dc.DrawLine(from.X, from.Y, to.X, to.Y)
		dc.Stroke()
		if e.Directed {
			ax, ay, dx, dy := arrowAt(from, to)
			drawArrow(dc, ax, ay, dx, dy)
		}
	}

	for _, n := range layout.Nodes {
		drawNode(dc, n)
	}

	return dc.EncodePNG(w)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, layout)
	drawLegendSVG(canvas, layout)

	nodePos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}

	for _, e := range layout.Edges {
		from, okFrom := nodePos[e.From]
		to, okTo := nodePos[e.To]
		if !okFrom || !okTo {
			continue
		}
		canvas.Line(int(from.X), int(from.Y), int(to.X), int(to.Y), fmt.Sprintf("stroke:%s;stroke-width:1.5", css(colorEdge)))
		if e.Directed {
			ax, ay, dx, dy := arrowAt(from, to)
			xs, ys := arrowPolygon(ax, ay, dx, dy)
			canvas.Polygon(xs, ys, fmt.Sprintf("fill:%s", css(colorEdgeArrow)))
		}
	}

	for _, n := range layout.Nodes {
		x := int(n.X - n.NodeW/2)
		y := int(n.Y - n.NodeH/2)
		style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", n.FillCSS, css(colorStroke))
		if n.Kind == graphmodel.KindCategory {
			canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 4, 4, style)
		} else {
			canvas.Ellipse(int(n.X), int(n.Y), int(n.NodeW/2), int(n.NodeH/2), style)
		}
		canvas.Text(int(n.X), int(n.Y)+4, n.Label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:middle", css(colorText)))
	}

	canvas.End()
	return nil
}

// arrowAt returns the arrow tip on the target's boundary and the unit
// direction pointing back along the edge.
func arrowAt(from, to layoutNode) (x, y, dx, dy float64) {
	vx, vy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(vx, vy)
	if length == 0 {
		return to.X, to.Y, -1, 0
	}
	ux, uy := vx/length, vy/length
	// distance from the center to the node boundary along the edge
	r := math.Min(math.Abs(to.NodeW/2/ux), math.Abs(to.NodeH/2/uy))
	if math.IsInf(r, 0) || math.IsNaN(r) {
		r = to.NodeH / 2
	}
	return to.X - ux*r, to.Y - uy*r, -ux, -uy
}

func arrowPolygon(x, y, dx, dy float64) ([]int, []int) {
	const size, half = 9.0, 4.0
	bx, by := x+dx*size, y+dy*size
	px, py := -dy*half, dx*half
	return []int{int(x), int(bx + px), int(bx - px)}, []int{int(y), int(by + py), int(by - py)}
}

func drawNode(dc *gg.Context, n layoutNode) {
	dc.SetColor(n.Fill)
	if n.Kind == graphmodel.KindCategory {
		dc.DrawRoundedRectangle(n.X-n.NodeW/2, n.Y-n.NodeH/2, n.NodeW, n.NodeH, 4)
	} else {
		dc.DrawEllipse(n.X, n.Y, n.NodeW/2, n.NodeH/2)
	}
	dc.FillPreserve()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1.2)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(n.Label, n.X, n.Y, 0.5, 0.35)
}

func drawArrow(dc *gg.Context, x, y, dx, dy float64) {
	xs, ys := arrowPolygon(x, y, dx, dy)
	dc.SetColor(colorEdgeArrow)
	dc.NewSubPath()
	dc.MoveTo(float64(xs[0]), float64(ys[0]))
	dc.LineTo(float64(xs[1]), float64(ys[1]))
	dc.LineTo(float64(xs[2]), float64(ys[2]))
	dc.ClosePath()
	dc.Fill()
}

func summaryLines(s summaryInfo) []string {
	lines := []string{
		fmt.Sprintf("nodes: %d primary, %d category  edges: %d (%d repeated)", s.Primaries, s.Categories, s.EdgeCount, s.Duplicates),
		fmt.Sprintf("top hub: %s", s.TopHub),
	}
	if s.DataHash != "" {
		lines = append([]string{fmt.Sprintf("data_hash: %s", s.DataHash)}, lines...)
	}
	return lines
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(layout.Summary) {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW := 160.0
	boxH := 64.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	drawLegendRow(dc, x+12, y+36, colorPrimary, "Primary")
	drawLegendRow(dc, x+12, y+52, colorCategory, "Category")
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func drawSummaryBlockSVG(canvas *svg.SVG, layout layoutResult) {
	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(layout.Summary) {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	boxW := 160
	boxH := 64
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	drawLegendRowSVG(canvas, x+12, y+36, colorPrimary, "Primary")
	drawLegendRowSVG(canvas, x+12, y+52, colorCategory, "Category")
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, c color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(colorStroke)))
	canvas.Text(x+20, y, label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
