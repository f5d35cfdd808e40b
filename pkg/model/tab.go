package model

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// ViewType tags a tab's view variant.
type ViewType string

const (
	ViewTable     ViewType = "table"
	ViewKanban    ViewType = "kanban"
	ViewSummary   ViewType = "summary"
	ViewHierarchy ViewType = "hierarchy"
	ViewGraph     ViewType = "graph"
)

// ViewConfig is implemented by each view-specific configuration block.
type ViewConfig interface {
	Kind() ViewType
	// Validate checks required fields. When has is non-nil, referenced
	// columns must satisfy it.
	Validate(has func(string) bool) error
}

// ErrUnknownViewType is reported for tabs whose type tag is not recognised.
var ErrUnknownViewType = errors.New("unknown view type")

// Tab is one named view instance.
type Tab struct {
	ID      string
	Title   string
	Type    ViewType
	Enabled *bool
	Filter  *FilterGroup
	View    ViewConfig

	// decodeErr keeps a malformed config block local to its tab so the
	// remaining tabs still load.
	decodeErr error
}

// NewTab builds an enabled tab for view.
func NewTab(id, title string, view ViewConfig) Tab {
	t := Tab{ID: id, Title: title, View: view}
	if view != nil {
		t.Type = view.Kind()
	}
	return t
}

// IsEnabled reports whether the tab should be shown. Tabs are enabled unless
// explicitly disabled.
func (t *Tab) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Label returns the tab title, falling back to its id.
func (t *Tab) Label() string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}

// Validate reports the tab's configuration error, if any.
func (t *Tab) Validate(has func(string) bool) error {
	name := t.ID
	if name == "" {
		name = t.Title
	}
	if t.decodeErr != nil {
		return fmt.Errorf("tab %q: %w", name, t.decodeErr)
	}
	if t.ID == "" {
		return fmt.Errorf("tab %q: id is required", name)
	}
	if t.View == nil {
		return fmt.Errorf("tab %q: %w %q", name, ErrUnknownViewType, t.Type)
	}
	if err := t.View.Validate(has); err != nil {
		return fmt.Errorf("tab %q: %w", name, err)
	}
	return nil
}

type tabDoc struct {
	ID      string          `json:"id"`
	Title   string          `json:"title,omitempty"`
	Type    ViewType        `json:"type"`
	Enabled *bool           `json:"enabled,omitempty"`
	Filter  *FilterGroup    `json:"filter,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

type tabOut struct {
	ID      string       `json:"id" yaml:"id"`
	Title   string       `json:"title,omitempty" yaml:"title,omitempty"`
	Type    ViewType     `json:"type" yaml:"type"`
	Enabled *bool        `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Filter  *FilterGroup `json:"filter,omitempty" yaml:"filter,omitempty"`
	Config  ViewConfig   `json:"config,omitempty" yaml:"config,omitempty"`
}

// UnmarshalJSON decodes the common tab fields and then the config block into
// the variant selected by type. Unknown fields are rejected at both levels.
func (t *Tab) UnmarshalJSON(data []byte) error {
	var doc tabDoc
	if err := strictDecode(data, &doc); err != nil {
		return fmt.Errorf("tab: %w", err)
	}
	*t = Tab{ID: doc.ID, Title: doc.Title, Type: doc.Type, Enabled: doc.Enabled, Filter: doc.Filter}

	var view ViewConfig
	switch doc.Type {
	case ViewTable:
		view = &TableConfig{}
	case ViewKanban:
		view = &KanbanConfig{}
	case ViewSummary:
		view = &SummaryConfig{}
	case ViewHierarchy, "tree":
		t.Type = ViewHierarchy
		view = &HierarchyConfig{}
	case ViewGraph:
		view = &GraphConfig{}
	default:
		return nil
	}
	if len(doc.Config) > 0 && !bytes.Equal(bytes.TrimSpace(doc.Config), []byte("null")) {
		if err := strictDecode(doc.Config, view); err != nil {
			t.decodeErr = fmt.Errorf("config: %w", err)
			return nil
		}
	}
	t.View = view
	return nil
}

// MarshalJSON encodes the tab in the same shape it is read from.
func (t Tab) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.out())
}

// MarshalYAML encodes the tab for generated configuration files.
func (t Tab) MarshalYAML() (any, error) {
	return t.out(), nil
}

func (t Tab) out() tabOut {
	return tabOut{ID: t.ID, Title: t.Title, Type: t.Type, Enabled: t.Enabled, Filter: t.Filter, Config: t.View}
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func requireColumn(label, column string, has func(string) bool) error {
	if column == "" {
		return fmt.Errorf("%s is required", label)
	}
	if has != nil && !has(column) {
		return fmt.Errorf("%s %q not found in headers", label, column)
	}
	return nil
}

func optionalColumn(label, column string, has func(string) bool) error {
	if column == "" {
		return nil
	}
	return requireColumn(label, column, has)
}

func columnList(label string, columns []string, has func(string) bool) error {
	for _, c := range columns {
		if err := requireColumn(label, c, has); err != nil {
			return err
		}
	}
	return nil
}
