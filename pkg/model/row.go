// Package model defines the data and configuration types shared by the csvboard
// render engines: rows and cell values, the dashboard configuration with its
// per-view tagged variants, and the evaluation Context passed to every engine.
package model

import (
	"strings"

	json "github.com/goccy/go-json"
)

// Element is one entry of a normalised cell. Present is false for a null
// (absent) scalar.
type Element struct {
	Text    string
	Present bool
}

// Value is a single cell. It is either a scalar string, a null scalar, or an
// ordered list of strings for columns declared multi-value.
type Value struct {
	items []string
	multi bool
	set   bool
}

// Scalar returns a scalar cell.
func Scalar(s string) Value {
	return Value{items: []string{s}, set: true}
}

// Null returns an absent cell.
func Null() Value {
	return Value{}
}

// Multi returns a multi-value cell holding items in order.
func Multi(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{items: cp, multi: true, set: true}
}

// IsNull reports whether the cell is absent.
func (v Value) IsNull() bool { return !v.set }

// IsMulti reports whether the cell holds a multi-value list.
func (v Value) IsMulti() bool { return v.multi }

// Items returns a copy of the cell's strings. A null cell has none.
func (v Value) Items() []string {
	if !v.set {
		return nil
	}
	cp := make([]string, len(v.items))
	copy(cp, v.items)
	return cp
}

// Elements normalises the cell into a sequence: a multi-value list stays as
// is, a scalar (including null) becomes a single element.
func (v Value) Elements() []Element {
	if !v.set {
		return []Element{{}}
	}
	if !v.multi {
		return []Element{{Text: v.items[0], Present: true}}
	}
	out := make([]Element, len(v.items))
	for i, s := range v.items {
		out[i] = Element{Text: s, Present: true}
	}
	return out
}

// First returns the first non-empty element, or "" when every element is
// empty or null. Sorting compares multi-value cells by this value.
func (v Value) First() string {
	for _, s := range v.items {
		if s != "" {
			return s
		}
	}
	return ""
}

// IsEmpty reports whether every element is null or the empty string.
func (v Value) IsEmpty() bool {
	return v.First() == ""
}

// String renders the cell as display text; multi-value items are joined with
// ", ".
func (v Value) String() string {
	if !v.set {
		return ""
	}
	if !v.multi {
		return v.items[0]
	}
	return strings.Join(v.items, ", ")
}

// Equal reports whether two cells hold the same shape and content.
func (v Value) Equal(o Value) bool {
	if v.set != o.set || v.multi != o.multi || len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a scalar as a string, a list as an array and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.set:
		return []byte("null"), nil
	case v.multi:
		return json.Marshal(v.items)
	default:
		return json.Marshal(v.items[0])
	}
}

// UnmarshalJSON accepts a string, an array of strings or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*v = Null()
		return nil
	case strings.HasPrefix(trimmed, "["):
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = Multi(items...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Scalar(s)
		return nil
	}
}

// Row is one record of the dataset. Index is the row's position in the loaded
// dataset and serves as its identity for editing and section claiming.
type Row struct {
	Index  int              `json:"index"`
	Values map[string]Value `json:"values"`
}

// NewRow creates a row at the given dataset position.
func NewRow(index int, values map[string]Value) *Row {
	if values == nil {
		values = make(map[string]Value)
	}
	return &Row{Index: index, Values: values}
}

// Get returns the cell for column, or a null cell.
func (r *Row) Get(column string) Value {
	if r == nil || r.Values == nil {
		return Null()
	}
	v, ok := r.Values[column]
	if !ok {
		return Null()
	}
	return v
}

// Text returns the display text of a cell.
func (r *Row) Text(column string) string {
	return r.Get(column).String()
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	if r == nil {
		return nil
	}
	values := make(map[string]Value, len(r.Values))
	for k, v := range r.Values {
		values[k] = Value{items: v.Items(), multi: v.multi, set: v.set}
	}
	return &Row{Index: r.Index, Values: values}
}

// Dataset is the loaded table. Headers are the authoritative column list.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []*Row   `json:"rows"`
}

// NewDataset builds a dataset and renumbers row indexes to match positions.
func NewDataset(headers []string, rows []*Row) *Dataset {
	for i, r := range rows {
		r.Index = i
	}
	return &Dataset{Headers: headers, Rows: rows}
}

// HasColumn reports whether name is one of the headers.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	headers := make([]string, len(d.Headers))
	copy(headers, d.Headers)
	rows := make([]*Row, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = r.Clone()
	}
	return &Dataset{Headers: headers, Rows: rows}
}
