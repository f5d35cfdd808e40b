package view

import (
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
)

// Table is a sorted grid of rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// TableRow is one rendered row; Index points back into the dataset.
type TableRow struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

func renderTable(rows []*model.Row, cfg *model.TableConfig, settings model.GeneralSettings, ctx *model.Context) *Table {
	columns := orDefault(cfg.Columns, ctx.Dataset.Headers)
	sorted := sorting.Rows(rows, cfg.Sort.Or(settings.DefaultSort), ctx)

	t := &Table{Columns: columns, Rows: make([]TableRow, len(sorted))}
	for i, r := range sorted {
		t.Rows[i] = TableRow{Index: r.Index, Cells: cells(r, columns, ctx)}
	}
	return t
}
