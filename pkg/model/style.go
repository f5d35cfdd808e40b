package model

import (
	"fmt"
	"regexp"
)

// StyleKind selects how a column's values are decorated.
type StyleKind string

const (
	StyleNone   StyleKind = "none"
	StyleIcon   StyleKind = "icon"
	StyleTag    StyleKind = "tag"
	StyleLookup StyleKind = "lookup"
)

// MatchKind selects how a style rule matches a value.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchRegex MatchKind = "regex"
)

// Style is a visual descriptor. Empty Text means "show the raw value".
type Style struct {
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Background  string `json:"background,omitempty" yaml:"background,omitempty"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
	Border      string `json:"border,omitempty" yaml:"border,omitempty"`
	TitlePrefix string `json:"titlePrefix,omitempty" yaml:"titlePrefix,omitempty"`
	Layout      string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// StyleRule matches a value by exact equality or regular expression.
// Pattern is preferred for regex rules; Value is accepted for either kind.
type StyleRule struct {
	Type    MatchKind `json:"type" yaml:"type"`
	Value   string    `json:"value,omitempty" yaml:"value,omitempty"`
	Pattern string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Style   Style     `json:"style" yaml:"style"`
}

// Expr returns the text the rule matches against.
func (r StyleRule) Expr() string {
	if r.Type == MatchRegex && r.Pattern != "" {
		return r.Pattern
	}
	if r.Value != "" {
		return r.Value
	}
	return r.Pattern
}

// LookupSource names the id column to match and the column to display.
type LookupSource struct {
	IDColumn      string `json:"idColumn" yaml:"idColumn"`
	DisplayColumn string `json:"displayColumn" yaml:"displayColumn"`
}

// ColumnStyle is the indicator configuration of one column.
type ColumnStyle struct {
	Type          StyleKind        `json:"type" yaml:"type"`
	StyleRules    []StyleRule      `json:"styleRules,omitempty" yaml:"styleRules,omitempty"`
	ValueMap      map[string]Style `json:"valueMap,omitempty" yaml:"valueMap,omitempty"`
	DefaultStyle  *Style           `json:"defaultStyle,omitempty" yaml:"defaultStyle,omitempty"`
	TrueCondition *Style           `json:"trueCondition,omitempty" yaml:"trueCondition,omitempty"`
	Lookup        *LookupSource    `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	FallbackStyle *Style           `json:"fallbackStyle,omitempty" yaml:"fallbackStyle,omitempty"`
	Layout        string           `json:"layout,omitempty" yaml:"layout,omitempty"`
	TitlePrefix   string           `json:"titlePrefix,omitempty" yaml:"titlePrefix,omitempty"`
}

// Validate checks the descriptor's structure. Regex patterns must compile and
// lookup styles must name both columns.
func (cs ColumnStyle) Validate() error {
	switch cs.Type {
	case "", StyleNone, StyleIcon, StyleTag:
	case StyleLookup:
		if cs.Lookup == nil || cs.Lookup.IDColumn == "" || cs.Lookup.DisplayColumn == "" {
			return fmt.Errorf("lookup style requires lookup.idColumn and lookup.displayColumn")
		}
	default:
		return fmt.Errorf("unknown style type %q", cs.Type)
	}
	for i, r := range cs.StyleRules {
		switch r.Type {
		case MatchExact:
		case MatchRegex:
			if _, err := regexp.Compile(r.Expr()); err != nil {
				return fmt.Errorf("style rule %d: %w", i, err)
			}
		default:
			return fmt.Errorf("style rule %d: unknown match type %q", i, r.Type)
		}
	}
	return nil
}
