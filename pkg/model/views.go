package model

import (
	"errors"
	"fmt"
)

// TableConfig renders rows as a sorted table.
type TableConfig struct {
	// Columns limits and orders the displayed columns; empty shows every header.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Sort    SortSpec `json:"sort,omitempty" yaml:"sort,omitempty"`
}

func (*TableConfig) Kind() ViewType { return ViewTable }

func (c *TableConfig) Validate(has func(string) bool) error {
	if err := columnList("column", c.Columns, has); err != nil {
		return err
	}
	return c.Sort.validate(has)
}

// GroupOrderMode selects how groups are ordered.
type GroupOrderMode string

const (
	OrderAlphabetical GroupOrderMode = "alphabetical"
	OrderList         GroupOrderMode = "list"
	OrderCountAsc     GroupOrderMode = "countAsc"
	OrderCountDesc    GroupOrderMode = "countDesc"
	OrderKeyAsc       GroupOrderMode = "keyAsc"
	OrderKeyDesc      GroupOrderMode = "keyDesc"
)

// GroupOrder overrides the default alphabetical group ordering.
type GroupOrder struct {
	Mode   GroupOrderMode `json:"mode" yaml:"mode"`
	Values []string       `json:"values,omitempty" yaml:"values,omitempty"`
}

func (o *GroupOrder) validate() error {
	if o == nil {
		return nil
	}
	switch o.Mode {
	case "", OrderAlphabetical, OrderCountAsc, OrderCountDesc, OrderKeyAsc, OrderKeyDesc:
	case OrderList:
		if len(o.Values) == 0 {
			return errors.New("groupOrder list mode requires values")
		}
	default:
		return fmt.Errorf("unknown groupOrder mode %q", o.Mode)
	}
	return nil
}

// DefaultTopLevelLabel names the group of rows that have no parent id.
const DefaultTopLevelLabel = "Top Level"

// GroupLookup groups rows by the name of the row their group column points at.
type GroupLookup struct {
	IDColumn      string `json:"idColumn" yaml:"idColumn"`
	NameColumn    string `json:"nameColumn" yaml:"nameColumn"`
	TopLevelLabel string `json:"topLevelLabel,omitempty" yaml:"topLevelLabel,omitempty"`
}

// TopLevel returns the label of the group of parentless rows.
func (l *GroupLookup) TopLevel() string {
	if l == nil || l.TopLevelLabel == "" {
		return DefaultTopLevelLabel
	}
	return l.TopLevelLabel
}

func (l *GroupLookup) validate(has func(string) bool) error {
	if l == nil {
		return nil
	}
	if err := requireColumn("lookup.idColumn", l.IDColumn, has); err != nil {
		return err
	}
	return requireColumn("lookup.nameColumn", l.NameColumn, has)
}

// KanbanConfig groups rows into columns of cards.
type KanbanConfig struct {
	GroupByColumn       string       `json:"groupByColumn" yaml:"groupByColumn"`
	Lookup              *GroupLookup `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	GroupOrder          *GroupOrder  `json:"groupOrder,omitempty" yaml:"groupOrder,omitempty"`
	Sort                SortSpec     `json:"sort,omitempty" yaml:"sort,omitempty"`
	CardTitleColumn     string       `json:"cardTitleColumn,omitempty" yaml:"cardTitleColumn,omitempty"`
	CardIndicators      []string     `json:"cardIndicators,omitempty" yaml:"cardIndicators,omitempty"`
	MaxGroupsPerColumn  int          `json:"maxGroupsPerColumn,omitempty" yaml:"maxGroupsPerColumn,omitempty"`
	LargeGroupThreshold int          `json:"largeGroupThreshold,omitempty" yaml:"largeGroupThreshold,omitempty"`
	ShowEmptyGroups     bool         `json:"showEmptyGroups,omitempty" yaml:"showEmptyGroups,omitempty"`
}

func (*KanbanConfig) Kind() ViewType { return ViewKanban }

func (c *KanbanConfig) Validate(has func(string) bool) error {
	if err := requireColumn("groupByColumn", c.GroupByColumn, has); err != nil {
		return err
	}
	if err := c.Lookup.validate(has); err != nil {
		return err
	}
	if err := c.GroupOrder.validate(); err != nil {
		return err
	}
	if err := optionalColumn("cardTitleColumn", c.CardTitleColumn, has); err != nil {
		return err
	}
	if err := columnList("cardIndicators column", c.CardIndicators, has); err != nil {
		return err
	}
	return c.Sort.validate(has)
}

// SummarySection is one titled block of a summary view. A section with
// filterType catchAll collects the rows no named section claimed.
type SummarySection struct {
	Title       string      `json:"title" yaml:"title"`
	Column      string      `json:"column,omitempty" yaml:"column,omitempty"`
	FilterType  FilterType  `json:"filterType" yaml:"filterType"`
	FilterValue FilterValue `json:"filterValue,omitempty" yaml:"filterValue,omitempty"`
	SubGroupBy  string      `json:"subGroupBy,omitempty" yaml:"subGroupBy,omitempty"`
	Sort        SortSpec    `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// IsCatchAll reports whether the section collects unclaimed rows.
func (s SummarySection) IsCatchAll() bool { return s.FilterType == FilterCatchAll }

// Condition returns the section as a single-condition descriptor.
func (s SummarySection) Condition() Condition {
	return Condition{Column: s.Column, FilterType: s.FilterType, FilterValue: s.FilterValue}
}

// SummaryConfig partitions rows into titled sections.
type SummaryConfig struct {
	Sections          []SummarySection `json:"sections" yaml:"sections"`
	ItemTitleColumn   string           `json:"itemTitleColumn,omitempty" yaml:"itemTitleColumn,omitempty"`
	Indicators        []string         `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Sort              SortSpec         `json:"sort,omitempty" yaml:"sort,omitempty"`
	SubGroupBy        string           `json:"subGroupBy,omitempty" yaml:"subGroupBy,omitempty"`
	HideEmptySections bool             `json:"hideEmptySections,omitempty" yaml:"hideEmptySections,omitempty"`
}

func (*SummaryConfig) Kind() ViewType { return ViewSummary }

func (c *SummaryConfig) Validate(has func(string) bool) error {
	if len(c.Sections) == 0 {
		return errors.New("sections are required")
	}
	for i, s := range c.Sections {
		if s.Title == "" {
			return fmt.Errorf("section %d: title is required", i)
		}
		if !s.IsCatchAll() && s.Column == "" {
			return fmt.Errorf("section %q: column is required", s.Title)
		}
		if err := optionalColumn("subGroupBy", s.SubGroupBy, has); err != nil {
			return fmt.Errorf("section %q: %w", s.Title, err)
		}
		if err := s.Sort.validate(has); err != nil {
			return fmt.Errorf("section %q: %w", s.Title, err)
		}
	}
	if err := optionalColumn("itemTitleColumn", c.ItemTitleColumn, has); err != nil {
		return err
	}
	if err := optionalColumn("subGroupBy", c.SubGroupBy, has); err != nil {
		return err
	}
	if err := columnList("indicators column", c.Indicators, has); err != nil {
		return err
	}
	return c.Sort.validate(has)
}

// HierarchyConfig renders a parent/child tree as an indented table.
type HierarchyConfig struct {
	IDColumn     string   `json:"idColumn" yaml:"idColumn"`
	ParentColumn string   `json:"parentColumn" yaml:"parentColumn"`
	TitleColumn  string   `json:"titleColumn,omitempty" yaml:"titleColumn,omitempty"`
	Columns      []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Sort         SortSpec `json:"sort,omitempty" yaml:"sort,omitempty"`
}

func (*HierarchyConfig) Kind() ViewType { return ViewHierarchy }

func (c *HierarchyConfig) Validate(has func(string) bool) error {
	if err := requireColumn("idColumn", c.IDColumn, has); err != nil {
		return err
	}
	if err := requireColumn("parentColumn", c.ParentColumn, has); err != nil {
		return err
	}
	if err := optionalColumn("titleColumn", c.TitleColumn, has); err != nil {
		return err
	}
	if err := columnList("column", c.Columns, has); err != nil {
		return err
	}
	return c.Sort.validate(has)
}

// LayoutEngine names a graph layout strategy.
type LayoutEngine string

const (
	LayoutForceDirected LayoutEngine = "forceDirected"
	LayoutHierarchical  LayoutEngine = "hierarchical"
)

// GraphConfig renders a hub-and-spoke graph of primary and category nodes.
type GraphConfig struct {
	PrimaryIDColumn    string       `json:"primaryIdColumn" yaml:"primaryIdColumn"`
	PrimaryLabelColumn string       `json:"primaryLabelColumn,omitempty" yaml:"primaryLabelColumn,omitempty"`
	CategoryColumns    []string     `json:"categoryColumns" yaml:"categoryColumns"`
	ColorColumn        string       `json:"colorColumn,omitempty" yaml:"colorColumn,omitempty"`
	TooltipColumns     []string     `json:"tooltipColumns,omitempty" yaml:"tooltipColumns,omitempty"`
	LayoutEngine       LayoutEngine `json:"layoutEngine,omitempty" yaml:"layoutEngine,omitempty"`
	PhysicsEnabled     *bool        `json:"physicsEnabled,omitempty" yaml:"physicsEnabled,omitempty"`
	Directed           *bool        `json:"directed,omitempty" yaml:"directed,omitempty"`
}

func (*GraphConfig) Kind() ViewType { return ViewGraph }

// Physics reports whether physics simulation is enabled (default true).
func (c *GraphConfig) Physics() bool {
	return c.PhysicsEnabled == nil || *c.PhysicsEnabled
}

// IsDirected reports whether edges carry arrows (default true).
func (c *GraphConfig) IsDirected() bool {
	return c.Directed == nil || *c.Directed
}

func (c *GraphConfig) Validate(has func(string) bool) error {
	if err := requireColumn("primaryIdColumn", c.PrimaryIDColumn, has); err != nil {
		return err
	}
	if len(c.CategoryColumns) == 0 {
		return errors.New("categoryColumns are required")
	}
	if err := columnList("categoryColumns column", c.CategoryColumns, has); err != nil {
		return err
	}
	if err := optionalColumn("primaryLabelColumn", c.PrimaryLabelColumn, has); err != nil {
		return err
	}
	if err := optionalColumn("colorColumn", c.ColorColumn, has); err != nil {
		return err
	}
	if err := columnList("tooltipColumns column", c.TooltipColumns, has); err != nil {
		return err
	}
	switch c.LayoutEngine {
	case "", LayoutForceDirected, LayoutHierarchical:
	default:
		return fmt.Errorf("unknown layoutEngine %q", c.LayoutEngine)
	}
	return nil
}
