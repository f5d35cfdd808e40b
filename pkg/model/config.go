package model

import (
	"errors"
	"fmt"
)

// DefaultSeparator splits multi-value cells when none is configured.
const DefaultSeparator = ","

// DefaultTrueValues are the strings judged truthy when a dashboard does not
// configure its own list. Matching is case-sensitive.
func DefaultTrueValues() []string {
	return []string{"true", "TRUE", "True", "yes", "Yes", "YES", "1", "✓", "✔", "x", "X", "on"}
}

// GeneralSettings holds dashboard-wide options.
type GeneralSettings struct {
	Title                 string   `json:"title,omitempty" yaml:"title,omitempty"`
	DataFile              string   `json:"dataFile,omitempty" yaml:"dataFile,omitempty"`
	TrueValues            []string `json:"trueValues,omitempty" yaml:"trueValues,omitempty"`
	MultiValueColumns     []string `json:"multiValueColumns,omitempty" yaml:"multiValueColumns,omitempty"`
	MultiValueSeparator   string   `json:"multiValueSeparator,omitempty" yaml:"multiValueSeparator,omitempty"`
	DefaultSort           SortSpec `json:"defaultSort,omitempty" yaml:"defaultSort,omitempty"`
	DefaultCardIndicators []string `json:"defaultCardIndicators,omitempty" yaml:"defaultCardIndicators,omitempty"`
}

// Separator returns the multi-value separator, defaulting to a comma.
func (g GeneralSettings) Separator() string {
	if g.MultiValueSeparator == "" {
		return DefaultSeparator
	}
	return g.MultiValueSeparator
}

// EffectiveTrueValues returns the configured true-values or the defaults.
func (g GeneralSettings) EffectiveTrueValues() []string {
	if len(g.TrueValues) == 0 {
		return DefaultTrueValues()
	}
	return g.TrueValues
}

// IsMultiValue reports whether column is declared multi-value.
func (g GeneralSettings) IsMultiValue(column string) bool {
	for _, c := range g.MultiValueColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Config is a complete dashboard definition. It is read-only input to the
// render engines.
type Config struct {
	GeneralSettings GeneralSettings        `json:"generalSettings" yaml:"generalSettings"`
	IndicatorStyles map[string]ColumnStyle `json:"indicatorStyles,omitempty" yaml:"indicatorStyles,omitempty"`
	Tabs            []Tab                  `json:"tabs" yaml:"tabs"`
}

// Tab returns the tab with the given id.
func (c *Config) Tab(id string) (*Tab, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Tabs {
		if c.Tabs[i].ID == id {
			return &c.Tabs[i], true
		}
	}
	return nil, false
}

// EnabledTabs returns the tabs that are not disabled, in declaration order.
func (c *Config) EnabledTabs() []*Tab {
	if c == nil {
		return nil
	}
	var out []*Tab
	for i := range c.Tabs {
		if c.Tabs[i].IsEnabled() {
			out = append(out, &c.Tabs[i])
		}
	}
	return out
}

// Validate reports every structural problem in the configuration. When has is
// non-nil, column references are also checked against it.
func (c *Config) Validate(has func(string) bool) error {
	if c == nil {
		return errors.New("no configuration")
	}
	var errs []error
	if err := c.GeneralSettings.DefaultSort.validate(has); err != nil {
		errs = append(errs, fmt.Errorf("generalSettings.defaultSort: %w", err))
	}
	for col, cs := range c.IndicatorStyles {
		if err := cs.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("indicatorStyles[%s]: %w", col, err))
		}
	}
	seen := make(map[string]bool, len(c.Tabs))
	for i := range c.Tabs {
		t := &c.Tabs[i]
		if t.ID != "" && seen[t.ID] {
			errs = append(errs, fmt.Errorf("tab %q: duplicate id", t.ID))
		}
		seen[t.ID] = true
		if err := t.Validate(has); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
