// Package filter evaluates filter conditions against rows and applies filter
// groups and summary sections to row sets.
package filter

import (
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Evaluate reports whether row satisfies cond. It fails closed: unknown
// columns, unknown filter types and any internal failure yield false.
func Evaluate(row *model.Row, cond model.Condition, ctx *model.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Warnf("filter: condition %s on %q failed: %v", cond.FilterType, cond.Column, r)
			ok = false
		}
	}()

	if cond.FilterType == model.FilterCatchAll {
		return false
	}
	pred, known := predicates[cond.FilterType]
	if !known {
		ctx.Warnf("filter: unknown filter type %q on column %q", cond.FilterType, cond.Column)
		return false
	}
	if !ctx.HasColumn(cond.Column) {
		return false
	}
	return pred(row.Get(cond.Column).Elements(), cond.FilterValue, ctx)
}

type predicate func(elems []model.Element, fv model.FilterValue, ctx *model.Context) bool

var predicates = map[model.FilterType]predicate{
	model.FilterValueEquals: func(elems []model.Element, fv model.FilterValue, _ *model.Context) bool {
		want := fv.Scalar()
		return some(elems, func(e model.Element) bool {
			return e.Present && strings.EqualFold(e.Text, want)
		})
	},
	model.FilterValueIsNot: func(elems []model.Element, fv model.FilterValue, _ *model.Context) bool {
		want := fv.Scalar()
		return every(elems, func(e model.Element) bool {
			return !e.Present || !strings.EqualFold(e.Text, want)
		})
	},
	model.FilterValueInList: func(elems []model.Element, fv model.FilterValue, _ *model.Context) bool {
		list := fv.List()
		if len(list) == 0 {
			return false
		}
		return some(elems, func(e model.Element) bool {
			return e.Present && inList(e.Text, list)
		})
	},
	model.FilterValueNotInList: func(elems []model.Element, fv model.FilterValue, _ *model.Context) bool {
		list := fv.List()
		if len(list) == 0 {
			return true
		}
		return every(elems, func(e model.Element) bool {
			return !e.Present || !inList(e.Text, list)
		})
	},
	model.FilterValueNotEmpty: func(elems []model.Element, _ model.FilterValue, _ *model.Context) bool {
		return some(elems, func(e model.Element) bool { return e.Present && e.Text != "" })
	},
	model.FilterValueIsEmpty: func(elems []model.Element, _ model.FilterValue, _ *model.Context) bool {
		return every(elems, func(e model.Element) bool { return !e.Present || e.Text == "" })
	},
	model.FilterBooleanTrue: func(elems []model.Element, _ model.FilterValue, ctx *model.Context) bool {
		return some(elems, func(e model.Element) bool { return e.Present && ctx.IsTrue(e.Text) })
	},
	model.FilterBooleanFalse: func(elems []model.Element, _ model.FilterValue, ctx *model.Context) bool {
		return every(elems, func(e model.Element) bool { return !e.Present || !ctx.IsTrue(e.Text) })
	},
	model.FilterContains: func(elems []model.Element, fv model.FilterValue, _ *model.Context) bool {
		term := strings.ToLower(fv.Scalar())
		if term == "" {
			return false
		}
		return some(elems, func(e model.Element) bool {
			return e.Present && strings.Contains(strings.ToLower(e.Text), term)
		})
	},
	model.FilterDoesNotContain: func(elems []model.Element, fv model.FilterValue, _ *model.Context) bool {
		term := strings.ToLower(fv.Scalar())
		if term == "" {
			return true
		}
		return every(elems, func(e model.Element) bool {
			return !e.Present || !strings.Contains(strings.ToLower(e.Text), term)
		})
	},
}

func inList(s string, list []string) bool {
	for _, item := range list {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}

func some(elems []model.Element, fn func(model.Element) bool) bool {
	for _, e := range elems {
		if fn(e) {
			return true
		}
	}
	return false
}

func every(elems []model.Element, fn func(model.Element) bool) bool {
	for _, e := range elems {
		if !fn(e) {
			return false
		}
	}
	return true
}
