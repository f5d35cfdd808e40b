package filter

import (
	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Matches reports whether row passes group. A nil or empty group matches
// every row; unknown logic is treated as AND.
func Matches(row *model.Row, group *model.FilterGroup, ctx *model.Context) bool {
	if group.IsEmpty() {
		return true
	}
	switch group.Logic {
	case model.LogicOr:
		for _, c := range group.Conditions {
			if Evaluate(row, c, ctx) {
				return true
			}
		}
		return false
	case model.LogicAnd, "":
	default:
		ctx.Warnf("filter: unknown logic %q, using AND", group.Logic)
	}
	for _, c := range group.Conditions {
		if !Evaluate(row, c, ctx) {
			return false
		}
	}
	return true
}

// Apply returns the rows that pass group, in input order. The input slice is
// never modified.
func Apply(rows []*model.Row, group *model.FilterGroup, ctx *model.Context) []*model.Row {
	defer metrics.Timer(metrics.Filter)()

	out := make([]*model.Row, 0, len(rows))
	for _, r := range rows {
		if Matches(r, group, ctx) {
			out = append(out, r)
		}
	}
	return out
}

// Section is one named partition of a row set.
type Section struct {
	Title    string
	CatchAll bool
	Rows     []*model.Row
}

// SectionSpec is a single-condition section descriptor.
type SectionSpec struct {
	Title     string
	Condition model.Condition
}

// PartitionSections evaluates sections in declaration order. A row is claimed
// as soon as it matches a named section and may appear in several named
// sections. Catch-all sections are filled last with every unclaimed row.
func PartitionSections(rows []*model.Row, sections []SectionSpec, ctx *model.Context) []Section {
	defer metrics.Timer(metrics.Filter)()

	out := make([]Section, len(sections))
	claimed := make(map[*model.Row]bool, len(rows))
	for i, s := range sections {
		out[i].Title = s.Title
		if s.Condition.FilterType == model.FilterCatchAll {
			out[i].CatchAll = true
			continue
		}
		for _, r := range rows {
			if Evaluate(r, s.Condition, ctx) {
				out[i].Rows = append(out[i].Rows, r)
				claimed[r] = true
			}
		}
	}

	var remainder []*model.Row
	for _, r := range rows {
		if !claimed[r] {
			remainder = append(remainder, r)
		}
	}
	for i := range out {
		if out[i].CatchAll {
			out[i].Rows = append([]*model.Row(nil), remainder...)
		}
	}
	return out
}
