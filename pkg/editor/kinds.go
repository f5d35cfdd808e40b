package editor

import (
	"sort"

	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/sorting"
)

// ColumnKind selects the input widget for a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindBoolean
	KindMulti
	KindLookup
)

func (k ColumnKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindMulti:
		return "multi"
	case KindLookup:
		return "lookup"
	default:
		return "text"
	}
}

// MarshalText encodes the kind by name for JSON responses.
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Choice is one entry offered by a picker. Label is what the user sees,
// Value what is stored in the cell.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Lookup names the rows a lookup column refers to.
type Lookup struct {
	IDColumn    string
	LabelColumn string
}

// ColumnInfo describes one column for editing surfaces.
type ColumnInfo struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Columns lists the columns in header order with their kinds.
func (e *Editor) Columns() []ColumnInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ColumnInfo, len(e.ds.Headers))
	for i, h := range e.ds.Headers {
		out[i] = ColumnInfo{Name: h, Kind: e.kind(h)}
	}
	return out
}

// Kind returns the kind of column.
func (e *Editor) Kind(column string) ColumnKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind(column)
}

// kind is decided by configuration only: a lookup source wins, then a
// true-condition style, then a multi-value declaration.
func (e *Editor) kind(column string) ColumnKind {
	if _, ok := e.lookup(column); ok {
		return KindLookup
	}
	if cs, ok := e.cfg.IndicatorStyles[column]; ok && cs.TrueCondition != nil {
		return KindBoolean
	}
	if e.cfg.GeneralSettings.IsMultiValue(column) {
		return KindMulti
	}
	return KindText
}

// lookup finds the id/label columns a column's values point at. Indicator
// lookups come first, then kanban group lookups, then hierarchy parents.
func (e *Editor) lookup(column string) (Lookup, bool) {
	if cs, ok := e.cfg.IndicatorStyles[column]; ok && cs.Lookup != nil {
		return Lookup{IDColumn: cs.Lookup.IDColumn, LabelColumn: cs.Lookup.DisplayColumn}, true
	}
	for i := range e.cfg.Tabs {
		switch v := e.cfg.Tabs[i].View.(type) {
		case *model.KanbanConfig:
			if v.GroupByColumn == column && v.Lookup != nil {
				return Lookup{IDColumn: v.Lookup.IDColumn, LabelColumn: v.Lookup.NameColumn}, true
			}
		case *model.HierarchyConfig:
			if v.ParentColumn == column {
				return Lookup{IDColumn: v.IDColumn, LabelColumn: v.TitleColumn}, true
			}
		}
	}
	return Lookup{}, false
}

// Choices returns picker choices for column: id/label pairs for lookups,
// the true and false spellings for booleans, and the distinct non-empty
// values (items, for multi-value columns) otherwise.
func (e *Editor) Choices(column string) []Choice {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ds.HasColumn(column) {
		return nil
	}
	switch e.kind(column) {
	case KindLookup:
		lk, _ := e.lookup(column)
		return e.lookupChoices(lk)
	case KindBoolean:
		t := e.cfg.GeneralSettings.EffectiveTrueValues()[0]
		f := e.falseValue(column)
		label := f
		if label == "" {
			label = "(empty)"
		}
		return []Choice{{Value: t, Label: t}, {Value: f, Label: label}}
	}
	return e.distinct(column)
}

func (e *Editor) lookupChoices(lk Lookup) []Choice {
	var out []Choice
	seen := make(map[string]bool)
	for _, r := range e.ds.Rows {
		id := r.Get(lk.IDColumn).First()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		label := id
		if lk.LabelColumn != "" {
			if l := r.Text(lk.LabelColumn); l != "" {
				label = l
			}
		}
		out = append(out, Choice{Value: id, Label: label})
	}
	return out
}

func (e *Editor) distinct(column string) []Choice {
	seen := make(map[string]bool)
	var values []string
	for _, r := range e.ds.Rows {
		for _, item := range r.Get(column).Items() {
			if item == "" || seen[item] {
				continue
			}
			seen[item] = true
			values = append(values, item)
		}
	}
	sort.SliceStable(values, func(i, j int) bool {
		return sorting.Values(values[i], values[j]) < 0
	})
	out := make([]Choice, len(values))
	for i, v := range values {
		out[i] = Choice{Value: v, Label: v}
	}
	return out
}
