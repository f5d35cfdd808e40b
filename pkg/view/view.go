// Package view composes the engines into renderable view models. Every
// function here returns plain data; the web UI, the terminal UI and the
// exporters decide how to draw it.
package view

import (
	"fmt"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/filter"
	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/style"
)

// Output is one rendered tab. Exactly one of the view fields is set unless
// Placeholder explains why the tab could not be rendered.
type Output struct {
	TabID       string         `json:"tabId"`
	Title       string         `json:"title"`
	Type        model.ViewType `json:"type"`
	Placeholder string         `json:"placeholder,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	RowCount    int            `json:"rowCount"`

	Table     *Table     `json:"table,omitempty"`
	Kanban    *Kanban    `json:"kanban,omitempty"`
	Summary   *Summary   `json:"summary,omitempty"`
	Hierarchy *Hierarchy `json:"hierarchy,omitempty"`
	Graph     *Graph     `json:"graph,omitempty"`
}

// Cell is one displayed value. Fragments are set for styled columns.
type Cell struct {
	Column    string           `json:"column"`
	Text      string           `json:"text"`
	Fragments []style.Fragment `json:"fragments,omitempty"`
}

// Option configures rendering.
type Option func(*options)

type options struct {
	warn func(string)
}

// WithWarningHandler receives every warning raised while rendering.
func WithWarningHandler(fn func(string)) Option {
	return func(o *options) {
		o.warn = fn
	}
}

// Render renders one tab of cfg against ds. Configuration errors produce a
// placeholder instead of an error; rendering never panics.
func Render(ds *model.Dataset, cfg *model.Config, tab *model.Tab, opts ...Option) (out Output) {
	defer metrics.Timer(metrics.Render)()

	o := options{warn: func(msg string) { debug.Log("%s", msg) }}
	for _, opt := range opts {
		opt(&o)
	}

	out = Output{TabID: tab.ID, Title: tab.Label(), Type: tab.Type}
	ctx := model.NewContext(ds, cfg, model.WithWarningHandler(o.warn))
	defer func() {
		if r := recover(); r != nil {
			out = Output{TabID: tab.ID, Title: tab.Label(), Type: tab.Type}
			out.Placeholder = fmt.Sprintf("This view failed to render: %v", r)
			debug.Log("view: tab %q panicked: %v", tab.ID, r)
		}
		out.Warnings = ctx.TakeWarnings()
	}()

	if ds == nil {
		out.Placeholder = "No data loaded."
		return out
	}
	if err := tab.Validate(ds.HasColumn); err != nil {
		out.Placeholder = fmt.Sprintf("This view is misconfigured: %v", err)
		return out
	}

	rows := filter.Apply(ds.Rows, tab.Filter, ctx)
	out.RowCount = len(rows)
	settings := ctx.Settings

	switch v := tab.View.(type) {
	case *model.TableConfig:
		out.Table = renderTable(rows, v, settings, ctx)
	case *model.KanbanConfig:
		out.Kanban = renderKanban(rows, v, settings, ctx)
	case *model.SummaryConfig:
		out.Summary = renderSummary(rows, v, settings, ctx)
	case *model.HierarchyConfig:
		out.Hierarchy = renderHierarchy(rows, v, settings, ctx)
	case *model.GraphConfig:
		out.Graph = renderGraph(rows, v, ctx)
	default:
		out.Placeholder = fmt.Sprintf("Unsupported view type %q.", tab.Type)
	}
	return out
}

// RenderAll renders every enabled tab in declaration order.
func RenderAll(ds *model.Dataset, cfg *model.Config, opts ...Option) []Output {
	tabs := cfg.EnabledTabs()
	out := make([]Output, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, Render(ds, cfg, t, opts...))
	}
	return out
}

func cells(row *model.Row, columns []string, ctx *model.Context) []Cell {
	out := make([]Cell, len(columns))
	for i, col := range columns {
		out[i] = Cell{Column: col, Text: row.Text(col)}
		if cs, ok := ctx.Style(col); ok {
			out[i].Fragments = style.FormatIndicator(row, col, cs, ctx)
		}
	}
	return out
}

func orDefault(columns, fallback []string) []string {
	if len(columns) == 0 {
		return fallback
	}
	return columns
}

// titleColumn picks the configured column or the first header that is not
// excluded.
func titleColumn(configured string, headers []string, exclude string) string {
	if configured != "" {
		return configured
	}
	for _, h := range headers {
		if h != exclude {
			return h
		}
	}
	return exclude
}
