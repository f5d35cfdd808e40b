package view

import (
	"github.com/vanderheijden86/csvboard/pkg/filter"
	"github.com/vanderheijden86/csvboard/pkg/grouping"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
	"github.com/vanderheijden86/csvboard/pkg/style"
)

// Summary is a list of titled sections.
type Summary struct {
	Sections []Section `json:"sections"`
}

// Section holds either a flat item list or sub-groups.
type Section struct {
	Title     string     `json:"title"`
	CatchAll  bool       `json:"catchAll,omitempty"`
	Count     int        `json:"count"`
	Items     []Item     `json:"items,omitempty"`
	SubGroups []SubGroup `json:"subGroups,omitempty"`
}

// SubGroup is a group of items inside a section.
type SubGroup struct {
	Key   string `json:"key"`
	Items []Item `json:"items"`
}

// Item is one row in a summary section.
type Item struct {
	Index      int              `json:"index"`
	Title      string           `json:"title"`
	Indicators []style.Fragment `json:"indicators,omitempty"`
}

func renderSummary(rows []*model.Row, cfg *model.SummaryConfig, settings model.GeneralSettings, ctx *model.Context) *Summary {
	specs := make([]filter.SectionSpec, len(cfg.Sections))
	for i, s := range cfg.Sections {
		specs[i] = filter.SectionSpec{Title: s.Title, Condition: s.Condition()}
	}
	parts := filter.PartitionSections(rows, specs, ctx)

	title := titleColumn(cfg.ItemTitleColumn, ctx.Dataset.Headers, "")
	indicators := orDefault(cfg.Indicators, settings.DefaultCardIndicators)
	item := func(r *model.Row) Item {
		return Item{Index: r.Index, Title: r.Text(title), Indicators: style.Indicators(r, indicators, ctx)}
	}

	out := &Summary{}
	for i, part := range parts {
		sec := cfg.Sections[i]
		if cfg.HideEmptySections && len(part.Rows) == 0 {
			continue
		}
		spec := sec.Sort.Or(cfg.Sort).Or(settings.DefaultSort)
		s := Section{Title: part.Title, CatchAll: part.CatchAll, Count: len(part.Rows)}

		sub := sec.SubGroupBy
		if sub == "" {
			sub = cfg.SubGroupBy
		}
		if sub == "" {
			for _, r := range sorting.Rows(part.Rows, spec, ctx) {
				s.Items = append(s.Items, item(r))
			}
			out.Sections = append(out.Sections, s)
			continue
		}
		for _, g := range grouping.Rows(part.Rows, grouping.Options{Column: sub}, ctx) {
			sg := SubGroup{Key: g.Key}
			for _, r := range sorting.Rows(g.Rows, spec, ctx) {
				sg.Items = append(sg.Items, item(r))
			}
			s.SubGroups = append(s.SubGroups, sg)
		}
		out.Sections = append(out.Sections, s)
	}
	return out
}
