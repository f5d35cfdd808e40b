// Package grouping partitions row sets into ordered, named groups and packs
// groups into kanban columns.
package grouping

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
)

// Uncategorized collects rows whose group column is empty.
const Uncategorized = "Uncategorized"

// Group is one named bucket. A row may appear in several groups.
type Group struct {
	Key      string       `json:"key"`
	Rows     []*model.Row `json:"-"`
	TopLevel bool         `json:"topLevel,omitempty"`
	NotFound bool         `json:"notFound,omitempty"`
}

// Options selects the grouping column and mode.
type Options struct {
	Column string
	// Lookup switches to lookup mode: the column holds ids of other rows and
	// groups are named after those rows.
	Lookup *model.GroupLookup
	Order  *model.GroupOrder
	// IncludeEmpty adds empty groups for list-ordered keys that have no rows.
	IncludeEmpty bool
}

type builder struct {
	groups map[string]*Group
	order  []string
}

func (b *builder) add(key string, row *model.Row) *Group {
	g, ok := b.groups[key]
	if !ok {
		g = &Group{Key: key}
		b.groups[key] = g
		b.order = append(b.order, key)
	}
	if n := len(g.Rows); n == 0 || g.Rows[n-1] != row {
		g.Rows = append(g.Rows, row)
	}
	return g
}

// Rows groups rows by opts.Column and returns the groups in display order.
// Rows keep their input order inside each group.
func Rows(rows []*model.Row, opts Options, ctx *model.Context) []Group {
	defer metrics.Timer(metrics.Group)()

	b := &builder{groups: make(map[string]*Group)}
	for _, r := range rows {
		if opts.Lookup != nil {
			addLookup(b, r, opts, ctx)
			continue
		}
		added := false
		for _, v := range distinct(r.Get(opts.Column)) {
			b.add(v, r)
			added = true
		}
		if !added {
			b.add(Uncategorized, r)
		}
	}

	if opts.IncludeEmpty && opts.Order != nil && opts.Order.Mode == model.OrderList {
		for _, v := range opts.Order.Values {
			if _, ok := findKey(b.groups, v); !ok {
				b.groups[v] = &Group{Key: v}
				b.order = append(b.order, v)
			}
		}
	}

	out := make([]Group, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, *b.groups[k])
	}
	orderGroups(out, opts.Order)
	return out
}

func addLookup(b *builder, r *model.Row, opts Options, ctx *model.Context) {
	ids := distinct(r.Get(opts.Column))
	if len(ids) == 0 {
		b.add(opts.Lookup.TopLevel(), r).TopLevel = true
		return
	}
	for _, id := range ids {
		parent, ok := ctx.LookupRow(opts.Lookup.IDColumn, id)
		if !ok {
			ctx.Warnf("grouping: %q references unknown id %q", opts.Column, id)
			b.add(model.NotFoundLabel(id), r).NotFound = true
			continue
		}
		name := parent.Text(opts.Lookup.NameColumn)
		if name == "" {
			name = id
		}
		b.add(name, r)
	}
}

// distinct returns the non-empty elements of v without duplicates.
func distinct(v model.Value) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range v.Elements() {
		if !e.Present || e.Text == "" || seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		out = append(out, e.Text)
	}
	return out
}

func findKey(groups map[string]*Group, v string) (string, bool) {
	if _, ok := groups[v]; ok {
		return v, true
	}
	for k := range groups {
		if strings.EqualFold(k, v) {
			return k, true
		}
	}
	return "", false
}

func alphabetical(a, b Group) int {
	if c := strings.Compare(strings.ToLower(a.Key), strings.ToLower(b.Key)); c != 0 {
		return c
	}
	return strings.Compare(a.Key, b.Key)
}

func orderGroups(groups []Group, order *model.GroupOrder) {
	mode := model.OrderAlphabetical
	if order != nil && order.Mode != "" {
		mode = order.Mode
	}

	var rank map[string]int
	if mode == model.OrderList {
		rank = make(map[string]int, len(order.Values))
		for i, v := range order.Values {
			if _, dup := rank[strings.ToLower(v)]; !dup {
				rank[strings.ToLower(v)] = i
			}
		}
	}

	cmp := func(a, b Group) int {
		if rank != nil {
			ra, aok := rank[strings.ToLower(a.Key)]
			rb, bok := rank[strings.ToLower(b.Key)]
			switch {
			case aok && bok:
				return ra - rb
			case aok:
				if b.TopLevel {
					return 1
				}
				return -1
			case bok:
				if a.TopLevel {
					return -1
				}
				return 1
			}
		}
		if a.TopLevel != b.TopLevel {
			if a.TopLevel {
				return -1
			}
			return 1
		}
		switch mode {
		case model.OrderCountAsc:
			if c := len(a.Rows) - len(b.Rows); c != 0 {
				return c
			}
		case model.OrderCountDesc:
			if c := len(b.Rows) - len(a.Rows); c != 0 {
				return c
			}
		case model.OrderKeyAsc:
			if c := sorting.Values(a.Key, b.Key); c != 0 {
				return c
			}
		case model.OrderKeyDesc:
			if c := sorting.Values(b.Key, a.Key); c != 0 {
				return c
			}
		}
		return alphabetical(a, b)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return cmp(groups[i], groups[j]) < 0
	})
}

// Pack distributes groups over columns of at most maxPerColumn groups. A group
// with more than largeThreshold rows gets a column of its own. A threshold of
// zero or less disables the large-group rule.
func Pack(groups []Group, maxPerColumn, largeThreshold int) [][]Group {
	if maxPerColumn <= 0 {
		maxPerColumn = 1
	}
	var cols [][]Group
	var cur []Group
	flush := func() {
		if len(cur) > 0 {
			cols = append(cols, cur)
			cur = nil
		}
	}
	for _, g := range groups {
		if largeThreshold > 0 && len(g.Rows) > largeThreshold {
			flush()
			cols = append(cols, []Group{g})
			continue
		}
		if len(cur) >= maxPerColumn {
			flush()
		}
		cur = append(cur, g)
	}
	flush()
	return cols
}
