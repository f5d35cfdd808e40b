// Package sorting orders row sets by a multi-key sort spec.
//
// Values compare numerically when both sides parse as numbers (NaN excluded) and
// case-insensitively as strings otherwise. Empty values always sort last,
// whatever the direction. Multi-value cells compare by their first non-empty
// element. The sort is stable: rows that compare equal on every key keep
// their input order.
package sorting

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/metrics"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Rows returns a new slice holding rows ordered by spec. The input slice is
// not modified.
func Rows(rows []*model.Row, spec model.SortSpec, ctx *model.Context) []*model.Row {
	defer metrics.Timer(metrics.Sort)()

	out := make([]*model.Row, len(rows))
	copy(out, rows)
	if len(spec) == 0 || len(out) < 2 {
		return out
	}
	keys := compile(spec)
	sort.SliceStable(out, func(i, j int) bool {
		return compareKeys(out[i], out[j], keys, ctx) < 0
	})
	return out
}

// Compare compares a and b under spec and returns -1, 0 or 1.
func Compare(a, b *model.Row, spec model.SortSpec, ctx *model.Context) int {
	return compareKeys(a, b, compile(spec), ctx)
}

// Values compares two cell texts in ascending order with empty values last.
// The grouping engine uses it to order group keys.
func Values(a, b string) int {
	return compareAsc(a, b)
}

type key struct {
	column    string
	direction model.Direction
	rank      map[string]int
}

func compile(spec model.SortSpec) []key {
	keys := make([]key, len(spec))
	for i, k := range spec {
		keys[i] = key{column: k.Column, direction: k.Direction}
		if k.Direction == model.Custom {
			keys[i].rank = make(map[string]int, len(k.Order))
			for pos, v := range k.Order {
				lv := strings.ToLower(v)
				if _, dup := keys[i].rank[lv]; !dup {
					keys[i].rank[lv] = pos
				}
			}
		}
	}
	return keys
}

func compareKeys(a, b *model.Row, keys []key, ctx *model.Context) int {
	for _, k := range keys {
		if c := compareKey(a, b, k, ctx); c != 0 {
			return c
		}
	}
	return 0
}

// compareKey treats a panicking comparison as equal so the stable input
// order decides.
func compareKey(a, b *model.Row, k key, ctx *model.Context) (c int) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Warnf("sort: comparing column %q failed: %v", k.column, r)
			c = 0
		}
	}()

	av := a.Get(k.column).First()
	bv := b.Get(k.column).First()
	switch k.direction {
	case model.Descending:
		return compareDesc(av, bv)
	case model.Custom:
		return compareCustom(av, bv, k.rank)
	case model.Ascending, "":
		return compareAsc(av, bv)
	default:
		ctx.Warnf("sort: unknown direction %q on column %q, using asc", k.direction, k.column)
		return compareAsc(av, bv)
	}
}

func compareAsc(a, b string) int {
	if c, done := compareEmpty(a, b); done {
		return c
	}
	return compareText(a, b)
}

func compareDesc(a, b string) int {
	if c, done := compareEmpty(a, b); done {
		return c
	}
	return -compareText(a, b)
}

func compareCustom(a, b string, rank map[string]int) int {
	if c, done := compareEmpty(a, b); done {
		return c
	}
	ra, aok := rank[strings.ToLower(a)]
	rb, bok := rank[strings.ToLower(b)]
	switch {
	case aok && bok:
		return cmpInt(ra, rb)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return compareText(a, b)
	}
}

// compareEmpty orders empty values after everything else.
func compareEmpty(a, b string) (int, bool) {
	switch {
	case a == "" && b == "":
		return 0, true
	case a == "":
		return 1, true
	case b == "":
		return -1, true
	}
	return 0, false
}

func compareText(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	// NaN is unordered, so "nan" cells compare as text.
	if errA == nil && errB == nil && !math.IsNaN(fa) && !math.IsNaN(fb) {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
