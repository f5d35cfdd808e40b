// Package wizard generates a starter dashboard configuration from a data
// file. Suggest guesses the interesting columns; Wizard lets the user
// confirm them in a form before the config is written.
package wizard

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
)

// maxGroupValues bounds the cardinality of a column proposed for grouping.
const maxGroupValues = 12

// Suggestion is the set of columns a starter dashboard is built around.
// Empty fields mean no good candidate was found.
type Suggestion struct {
	IDColumn          string
	ParentColumn      string
	TitleColumn       string
	GroupColumn       string
	CategoryColumns   []string
	MultiValueColumns []string
	Separator         string
}

var (
	idNames     = []string{"id", "key", "code", "ref", "identifier"}
	parentNames = []string{"parent", "parent id", "parentid", "parent_id", "reports to", "manager", "epic"}
	titleNames  = []string{"title", "name", "summary", "label", "subject", "description"}
	groupNames  = []string{"status", "state", "stage", "phase", "category", "type", "priority", "team"}
)

type columnStats struct {
	name     string
	nonEmpty int
	distinct map[string]int
	multi    int // cells that contain the separator
	maxLen   int
}

func collect(ds *model.Dataset, sep string) []columnStats {
	stats := make([]columnStats, len(ds.Headers))
	for i, h := range ds.Headers {
		st := columnStats{name: h, distinct: make(map[string]int)}
		for _, r := range ds.Rows {
			s := strings.TrimSpace(r.Get(h).String())
			if s == "" {
				continue
			}
			st.nonEmpty++
			st.distinct[s]++
			if len(s) > st.maxLen {
				st.maxLen = len(s)
			}
			if strings.Contains(s, sep) {
				st.multi++
			}
		}
		stats[i] = st
	}
	return stats
}

func nameIn(name string, names []string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, c := range names {
		if n == c {
			return true
		}
	}
	return false
}

func (st columnStats) unique() bool {
	return st.nonEmpty > 0 && len(st.distinct) == st.nonEmpty
}

// Suggest inspects headers and values. Well-known header names win; value
// shape is the fallback.
func Suggest(ds *model.Dataset, sep string) Suggestion {
	if sep == "" {
		sep = model.DefaultSeparator
	}
	s := Suggestion{Separator: sep}
	if ds == nil || len(ds.Headers) == 0 {
		return s
	}
	stats := collect(ds, sep)

	for _, name := range idNames {
		for _, st := range stats {
			if s.IDColumn == "" && nameIn(st.name, []string{name}) && st.unique() {
				s.IDColumn = st.name
			}
		}
	}
	if s.IDColumn == "" {
		for _, st := range stats {
			if st.unique() && st.nonEmpty == ds.Len() {
				s.IDColumn = st.name
				break
			}
		}
	}

	for _, st := range stats {
		if st.name == s.IDColumn || st.multi == 0 || st.maxLen > 80 {
			continue
		}
		// a third of the filled cells hold a list
		if st.multi*3 >= st.nonEmpty {
			s.MultiValueColumns = append(s.MultiValueColumns, st.name)
		}
	}
	isMulti := func(name string) bool {
		for _, m := range s.MultiValueColumns {
			if m == name {
				return true
			}
		}
		return false
	}

	if s.IDColumn != "" {
		var ids map[string]int
		for _, st := range stats {
			if st.name == s.IDColumn {
				ids = st.distinct
			}
		}
		for _, st := range stats {
			if st.name == s.IDColumn || isMulti(st.name) || st.nonEmpty == 0 {
				continue
			}
			// roots leave the parent empty
			if nameIn(st.name, parentNames) || (subset(st.distinct, ids) && st.nonEmpty < ds.Len()) {
				s.ParentColumn = st.name
				break
			}
		}
	}

	for _, st := range stats {
		if nameIn(st.name, titleNames) && st.name != s.IDColumn {
			s.TitleColumn = st.name
			break
		}
	}
	if s.TitleColumn == "" {
		best := -1
		for _, st := range stats {
			if st.name == s.IDColumn || st.name == s.ParentColumn || isMulti(st.name) {
				continue
			}
			if len(st.distinct) > best {
				best = len(st.distinct)
				s.TitleColumn = st.name
			}
		}
	}

	var candidates []columnStats
	for _, st := range stats {
		switch st.name {
		case s.IDColumn, s.ParentColumn, s.TitleColumn:
			continue
		}
		if isMulti(st.name) || len(st.distinct) < 2 || len(st.distinct) > maxGroupValues {
			continue
		}
		candidates = append(candidates, st)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ni, nj := nameIn(candidates[i].name, groupNames), nameIn(candidates[j].name, groupNames)
		if ni != nj {
			return ni
		}
		return len(candidates[i].distinct) < len(candidates[j].distinct)
	})
	if len(candidates) > 0 {
		s.GroupColumn = candidates[0].name
	}

	s.CategoryColumns = append(s.CategoryColumns, s.MultiValueColumns...)
	if len(s.CategoryColumns) == 0 && s.GroupColumn != "" {
		s.CategoryColumns = []string{s.GroupColumn}
	}
	return s
}

// subset reports whether every value is a key of ids. Self-references are
// allowed; an empty set is not a subset.
func subset(values, ids map[string]int) bool {
	if len(values) == 0 || len(ids) == 0 {
		return false
	}
	for v := range values {
		if _, ok := ids[v]; !ok {
			return false
		}
	}
	return true
}

// BuildConfig assembles a dashboard with one tab per view type the
// suggestion supports. A table tab is always present.
func BuildConfig(ds *model.Dataset, s Suggestion, title, dataFile string) *model.Config {
	cfg := &model.Config{
		GeneralSettings: model.GeneralSettings{
			Title:             title,
			DataFile:          dataFile,
			MultiValueColumns: s.MultiValueColumns,
		},
	}
	if s.Separator != "" && s.Separator != model.DefaultSeparator {
		cfg.GeneralSettings.MultiValueSeparator = s.Separator
	}
	if s.IDColumn != "" {
		cfg.GeneralSettings.DefaultSort = model.SortSpec{{Column: s.IDColumn, Direction: model.Ascending}}
	}

	cfg.Tabs = append(cfg.Tabs, model.NewTab("all", "All rows", &model.TableConfig{}))

	if s.GroupColumn != "" {
		cfg.Tabs = append(cfg.Tabs, model.NewTab("board", "By "+s.GroupColumn, &model.KanbanConfig{
			GroupByColumn:      s.GroupColumn,
			CardTitleColumn:    s.TitleColumn,
			MaxGroupsPerColumn: 1,
		}))
		cfg.Tabs = append(cfg.Tabs, model.NewTab("summary", s.GroupColumn+" summary", &model.SummaryConfig{
			Sections:        summarySections(ds, s.GroupColumn),
			ItemTitleColumn: s.TitleColumn,
		}))
	}

	if s.IDColumn != "" && s.ParentColumn != "" {
		cfg.Tabs = append(cfg.Tabs, model.NewTab("tree", "Hierarchy", &model.HierarchyConfig{
			IDColumn:     s.IDColumn,
			ParentColumn: s.ParentColumn,
			TitleColumn:  s.TitleColumn,
		}))
	}

	if s.IDColumn != "" && len(s.CategoryColumns) > 0 {
		cfg.Tabs = append(cfg.Tabs, model.NewTab("graph", "Graph", &model.GraphConfig{
			PrimaryIDColumn:    s.IDColumn,
			PrimaryLabelColumn: s.TitleColumn,
			CategoryColumns:    s.CategoryColumns,
		}))
	}
	return cfg
}

// summarySections makes one section per distinct value, most frequent
// first, and a catch-all for the rest.
func summarySections(ds *model.Dataset, column string) []model.SummarySection {
	counts := make(map[string]int)
	for _, r := range ds.Rows {
		if v := strings.TrimSpace(r.Get(column).First()); v != "" {
			counts[v]++
		}
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return sorting.Values(values[i], values[j]) < 0
	})
	if len(values) > maxGroupValues {
		values = values[:maxGroupValues]
	}

	sections := make([]model.SummarySection, 0, len(values)+1)
	for _, v := range values {
		sections = append(sections, model.SummarySection{
			Title:       v,
			Column:      column,
			FilterType:  model.FilterValueEquals,
			FilterValue: model.ScalarFilter(v),
		})
	}
	sections = append(sections, model.SummarySection{Title: "Other", FilterType: model.FilterCatchAll})
	return sections
}
