package view

import (
	"github.com/vanderheijden86/csvboard/pkg/hierarchy"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
)

// Hierarchy is an indented table. Flat is set when no tree could be built and
// the rows are listed without nesting.
type Hierarchy struct {
	Columns     []string   `json:"columns"`
	TitleColumn string     `json:"titleColumn"`
	Flat        bool       `json:"flat,omitempty"`
	Rows        []TreeRow  `json:"rows"`
	Cycles      [][]string `json:"cycles,omitempty"`
}

// TreeRow is one row with its nesting depth.
type TreeRow struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Depth       int    `json:"depth"`
	HasChildren bool   `json:"hasChildren,omitempty"`
	Cells       []Cell `json:"cells"`
}

func renderHierarchy(rows []*model.Row, cfg *model.HierarchyConfig, settings model.GeneralSettings, ctx *model.Context) *Hierarchy {
	columns := orDefault(cfg.Columns, ctx.Dataset.Headers)
	spec := cfg.Sort.Or(settings.DefaultSort)
	h := &Hierarchy{Columns: columns, TitleColumn: titleColumn(cfg.TitleColumn, nil, cfg.IDColumn), Rows: []TreeRow{}}

	tree := hierarchy.Build(rows, cfg.IDColumn, cfg.ParentColumn, ctx)
	h.Cycles = tree.Cycles
	if tree.Empty() {
		if len(rows) > 0 {
			ctx.Warnf("hierarchy: no root rows found, showing a flat list")
		}
		h.Flat = true
		for _, r := range sorting.Rows(rows, spec, ctx) {
			h.Rows = append(h.Rows, TreeRow{Index: r.Index, ID: r.Get(cfg.IDColumn).First(), Cells: cells(r, columns, ctx)})
		}
		return h
	}

	tree.Walk(spec, ctx, func(e hierarchy.Entry) {
		h.Rows = append(h.Rows, TreeRow{
			Index:       e.Node.Row.Index,
			ID:          e.Node.ID,
			Depth:       e.Depth,
			HasChildren: len(e.Node.Children) > 0,
			Cells:       cells(e.Node.Row, columns, ctx),
		})
	})
	return h
}
