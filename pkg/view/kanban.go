package view

import (
	"github.com/vanderheijden86/csvboard/pkg/grouping"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
	"github.com/vanderheijden86/csvboard/pkg/style"
)

// Kanban is a board of lanes packed into display columns.
type Kanban struct {
	GroupBy string   `json:"groupBy"`
	Columns [][]Lane `json:"columns"`
}

// Lane is one group of cards.
type Lane struct {
	Key      string `json:"key"`
	Count    int    `json:"count"`
	TopLevel bool   `json:"topLevel,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
	Cards    []Card `json:"cards"`
}

// Card is one row on the board.
type Card struct {
	Index      int              `json:"index"`
	Title      string           `json:"title"`
	Indicators []style.Fragment `json:"indicators,omitempty"`
}

// Lanes returns every lane in display order.
func (k *Kanban) Lanes() []Lane {
	var out []Lane
	for _, col := range k.Columns {
		out = append(out, col...)
	}
	return out
}

func renderKanban(rows []*model.Row, cfg *model.KanbanConfig, settings model.GeneralSettings, ctx *model.Context) *Kanban {
	groups := grouping.Rows(rows, grouping.Options{
		Column:       cfg.GroupByColumn,
		Lookup:       cfg.Lookup,
		Order:        cfg.GroupOrder,
		IncludeEmpty: cfg.ShowEmptyGroups,
	}, ctx)

	spec := cfg.Sort.Or(settings.DefaultSort)
	title := titleColumn(cfg.CardTitleColumn, ctx.Dataset.Headers, cfg.GroupByColumn)
	indicators := orDefault(cfg.CardIndicators, settings.DefaultCardIndicators)

	for i := range groups {
		groups[i].Rows = sorting.Rows(groups[i].Rows, spec, ctx)
	}

	k := &Kanban{GroupBy: cfg.GroupByColumn}
	for _, col := range grouping.Pack(groups, cfg.MaxGroupsPerColumn, cfg.LargeGroupThreshold) {
		lanes := make([]Lane, len(col))
		for i, g := range col {
			lanes[i] = Lane{Key: g.Key, Count: len(g.Rows), TopLevel: g.TopLevel, NotFound: g.NotFound, Cards: make([]Card, len(g.Rows))}
			for j, r := range g.Rows {
				lanes[i].Cards[j] = Card{
					Index:      r.Index,
					Title:      r.Text(title),
					Indicators: style.Indicators(r, indicators, ctx),
				}
			}
		}
		k.Columns = append(k.Columns, lanes)
	}
	return k
}
