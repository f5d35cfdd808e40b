// Package style maps cell values to visual style descriptors.
//
// Resolution is an ordered pipeline of strategies; the first strategy that
// produces a result wins:
//
//  1. style rules (exact or regex) with the column's defaultStyle as fallback
//  2. value map (exact key, lowercase key, case-folded key, "default")
//  3. icon true-condition (falsy values are hidden)
//  4. lookup through the full dataset
//
// Resolve never mutates the configuration and never panics.
package style

import (
	"sort"
	"strings"

	"github.com/vanderheijden86/csvboard/pkg/model"
)

// Outcome classifies a resolution.
type Outcome int

const (
	// NoMatch means no strategy applied; callers render plain text or nothing.
	NoMatch Outcome = iota
	// Matched means Style holds the descriptor to render.
	Matched
	// Hidden means the value must not be rendered at all (falsy icon).
	Hidden
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Hidden:
		return "hidden"
	default:
		return "no-match"
	}
}

// DefaultIcon is the text of a truthy icon without explicit text.
const DefaultIcon = "✓"

// Resolution is the result of resolving one value.
type Resolution struct {
	Style   model.Style
	Outcome Outcome
}

type strategy func(value string, cs model.ColumnStyle, ctx *model.Context) (Resolution, bool)

var pipeline = []strategy{
	resolveRules,
	resolveValueMap,
	resolveIcon,
	resolveLookup,
}

// Resolve maps value of column to a style descriptor using cs. A matched
// descriptor always carries display text, defaulting to the raw value.
func Resolve(value, column string, cs model.ColumnStyle, ctx *model.Context) (res Resolution) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Warnf("style: resolving %q in column %q failed: %v", value, column, r)
			res = Resolution{}
		}
	}()

	if cs.Type == model.StyleNone {
		return Resolution{}
	}
	for _, s := range pipeline {
		r, ok := s(value, cs, ctx)
		if !ok {
			continue
		}
		if r.Outcome == Matched && r.Style.Text == "" {
			r.Style.Text = value
		}
		return r
	}
	return Resolution{}
}

func matched(s model.Style) (Resolution, bool) {
	return Resolution{Style: s, Outcome: Matched}, true
}

func resolveRules(value string, cs model.ColumnStyle, ctx *model.Context) (Resolution, bool) {
	if cs.Type == model.StyleLookup || len(cs.StyleRules) == 0 {
		return Resolution{}, false
	}
	for _, rule := range cs.StyleRules {
		switch rule.Type {
		case model.MatchExact:
			if value == rule.Expr() {
				return matched(rule.Style)
			}
		case model.MatchRegex:
			re, err := ctx.Regexp(rule.Expr())
			if err != nil {
				ctx.Warnf("style: invalid pattern %q: %v", rule.Expr(), err)
				continue
			}
			if re.MatchString(value) {
				return matched(rule.Style)
			}
		default:
			ctx.Warnf("style: unknown rule type %q", rule.Type)
		}
	}
	if cs.DefaultStyle != nil {
		return matched(*cs.DefaultStyle)
	}
	return Resolution{}, false
}

type keyResolver func(value string, m map[string]model.Style) (model.Style, bool)

var keyResolvers = []keyResolver{
	func(value string, m map[string]model.Style) (model.Style, bool) {
		s, ok := m[value]
		return s, ok
	},
	func(value string, m map[string]model.Style) (model.Style, bool) {
		s, ok := m[strings.ToLower(value)]
		return s, ok
	},
	func(value string, m map[string]model.Style) (model.Style, bool) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.EqualFold(k, value) {
				return m[k], true
			}
		}
		return model.Style{}, false
	},
	func(_ string, m map[string]model.Style) (model.Style, bool) {
		s, ok := m["default"]
		return s, ok
	},
}

func resolveValueMap(value string, cs model.ColumnStyle, _ *model.Context) (Resolution, bool) {
	if cs.Type == model.StyleLookup || len(cs.ValueMap) == 0 {
		return Resolution{}, false
	}
	for _, kr := range keyResolvers {
		if s, ok := kr(value, cs.ValueMap); ok {
			return matched(s)
		}
	}
	return Resolution{}, false
}

func resolveIcon(value string, cs model.ColumnStyle, ctx *model.Context) (Resolution, bool) {
	if cs.Type != model.StyleIcon {
		return Resolution{}, false
	}
	if !ctx.IsTrue(value) {
		return Resolution{Outcome: Hidden}, true
	}
	s := model.Style{Text: DefaultIcon}
	if cs.TrueCondition != nil {
		s = *cs.TrueCondition
		if s.Text == "" {
			s.Text = DefaultIcon
		}
	}
	return matched(s)
}

func resolveLookup(value string, cs model.ColumnStyle, ctx *model.Context) (Resolution, bool) {
	if cs.Type != model.StyleLookup || cs.Lookup == nil || value == "" {
		return Resolution{}, false
	}
	if row, ok := ctx.LookupRow(cs.Lookup.IDColumn, value); ok {
		s := model.Style{}
		if cs.DefaultStyle != nil {
			s = *cs.DefaultStyle
		}
		s.Text = row.Text(cs.Lookup.DisplayColumn)
		return matched(s)
	}
	ctx.Warnf("style: lookup id %q not found in column %q", value, cs.Lookup.IDColumn)
	s := model.Style{}
	switch {
	case cs.FallbackStyle != nil:
		s = *cs.FallbackStyle
	case cs.DefaultStyle != nil:
		s = *cs.DefaultStyle
	}
	s.Text = model.NotFoundLabel(value)
	return matched(s)
}
