package model

import (
	"fmt"
	"regexp"

	"github.com/vanderheijden86/csvboard/pkg/debug"
)

// Context is the explicit evaluation context passed to every engine call. It
// carries the authoritative header set, the recognised true-values, the full
// unfiltered dataset for lookups, the indicator styles and a warning sink.
//
// A Context belongs to one render pass and is not safe for concurrent use.
type Context struct {
	Dataset  *Dataset
	Settings GeneralSettings
	Styles   map[string]ColumnStyle

	columns    map[string]struct{}
	trueValues map[string]struct{}
	warn       func(string)
	warnings   []string
	seen       map[string]struct{}
	lookups    map[string]map[string]*Row
	patterns   map[string]compiledPattern
}

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithWarningHandler routes warnings to fn in addition to collecting them.
func WithWarningHandler(fn func(string)) ContextOption {
	return func(c *Context) {
		c.warn = fn
	}
}

// NewContext builds the context for rendering ds with cfg. Either may be nil.
func NewContext(ds *Dataset, cfg *Config, opts ...ContextOption) *Context {
	c := &Context{
		Dataset: ds,
		columns: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
		warn:    func(msg string) { debug.Log("%s", msg) },
	}
	if cfg != nil {
		c.Settings = cfg.GeneralSettings
		c.Styles = cfg.IndicatorStyles
	}
	if ds != nil {
		for _, h := range ds.Headers {
			c.columns[h] = struct{}{}
		}
	}
	tv := c.Settings.EffectiveTrueValues()
	c.trueValues = make(map[string]struct{}, len(tv))
	for _, v := range tv {
		c.trueValues[v] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasColumn reports whether column is one of the dataset headers.
func (c *Context) HasColumn(column string) bool {
	if c == nil {
		return false
	}
	_, ok := c.columns[column]
	return ok
}

// IsTrue reports whether s is a recognised true-value (case-sensitive).
func (c *Context) IsTrue(s string) bool {
	if c == nil {
		_, ok := defaultTrue[s]
		return ok
	}
	_, ok := c.trueValues[s]
	return ok
}

var defaultTrue = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, v := range DefaultTrueValues() {
		m[v] = struct{}{}
	}
	return m
}()

// Style returns the indicator style configured for column.
func (c *Context) Style(column string) (ColumnStyle, bool) {
	if c == nil || c.Styles == nil {
		return ColumnStyle{}, false
	}
	cs, ok := c.Styles[column]
	return cs, ok
}

// Rows returns every row of the full dataset.
func (c *Context) Rows() []*Row {
	if c == nil || c.Dataset == nil {
		return nil
	}
	return c.Dataset.Rows
}

// LookupRow finds the first row of the full dataset whose idColumn equals id.
// The index for each id column is built on first use.
func (c *Context) LookupRow(idColumn, id string) (*Row, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	if c.lookups == nil {
		c.lookups = make(map[string]map[string]*Row)
	}
	idx, ok := c.lookups[idColumn]
	if !ok {
		idx = make(map[string]*Row)
		for _, r := range c.Rows() {
			key := r.Get(idColumn).First()
			if key == "" {
				continue
			}
			if _, dup := idx[key]; !dup {
				idx[key] = r
			}
		}
		c.lookups[idColumn] = idx
	}
	r, ok := idx[id]
	return r, ok
}

// Regexp compiles expr once per context. Invalid patterns keep their error.
func (c *Context) Regexp(expr string) (*regexp.Regexp, error) {
	if c == nil {
		return regexp.Compile(expr)
	}
	if p, ok := c.patterns[expr]; ok {
		return p.re, p.err
	}
	if c.patterns == nil {
		c.patterns = make(map[string]compiledPattern)
	}
	re, err := regexp.Compile(expr)
	c.patterns[expr] = compiledPattern{re: re, err: err}
	return re, err
}

// Warnf records a data-shape or configuration warning. Identical messages are
// reported once per context.
func (c *Context) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c == nil {
		debug.Log("%s", msg)
		return
	}
	if _, ok := c.seen[msg]; ok {
		return
	}
	c.seen[msg] = struct{}{}
	c.warnings = append(c.warnings, msg)
	if c.warn != nil {
		c.warn(msg)
	}
}

// Warnings returns the warnings recorded so far.
func (c *Context) Warnings() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// TakeWarnings returns the recorded warnings and clears the list, so each
// rendered tab reports only its own.
func (c *Context) TakeWarnings() []string {
	if c == nil {
		return nil
	}
	out := c.warnings
	c.warnings = nil
	c.seen = make(map[string]struct{})
	return out
}

// NotFoundLabel marks a foreign id that did not resolve to any row.
func NotFoundLabel(id string) string {
	return id + " (not found)"
}
