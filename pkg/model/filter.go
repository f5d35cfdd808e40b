package model

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// FilterType names a condition predicate.
type FilterType string

const (
	FilterValueEquals    FilterType = "valueEquals"
	FilterValueIsNot     FilterType = "valueIsNot"
	FilterValueInList    FilterType = "valueInList"
	FilterValueNotInList FilterType = "valueNotInList"
	FilterValueNotEmpty  FilterType = "valueNotEmpty"
	FilterValueIsEmpty   FilterType = "valueIsEmpty"
	FilterBooleanTrue    FilterType = "booleanTrue"
	FilterBooleanFalse   FilterType = "booleanFalse"
	FilterContains       FilterType = "contains"
	FilterDoesNotContain FilterType = "doesNotContain"
	FilterCatchAll       FilterType = "catchAll"
)

// FilterTypes lists every recognised filter type in declaration order.
func FilterTypes() []FilterType {
	return []FilterType{
		FilterValueEquals, FilterValueIsNot, FilterValueInList, FilterValueNotInList,
		FilterValueNotEmpty, FilterValueIsEmpty, FilterBooleanTrue, FilterBooleanFalse,
		FilterContains, FilterDoesNotContain, FilterCatchAll,
	}
}

// IsKnown reports whether t is a recognised filter type.
func (t FilterType) IsKnown() bool {
	for _, k := range FilterTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// FilterValue is the operand of a condition: a scalar, a list, or absent.
type FilterValue struct {
	items []string
	list  bool
	set   bool
}

// ScalarFilter returns a scalar operand.
func ScalarFilter(s string) FilterValue {
	return FilterValue{items: []string{s}, set: true}
}

// ListFilter returns a list operand.
func ListFilter(items ...string) FilterValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return FilterValue{items: cp, list: true, set: true}
}

// IsSet reports whether an operand was given.
func (f FilterValue) IsSet() bool { return f.set }

// IsList reports whether the operand was written as a list.
func (f FilterValue) IsList() bool { return f.list }

// Scalar returns the scalar operand. A list yields its first entry.
func (f FilterValue) Scalar() string {
	if len(f.items) == 0 {
		return ""
	}
	return f.items[0]
}

// List returns the operand as a list; a scalar becomes a one-entry list.
func (f FilterValue) List() []string {
	cp := make([]string, len(f.items))
	copy(cp, f.items)
	return cp
}

// MarshalJSON encodes the operand in the shape it was declared.
func (f FilterValue) MarshalJSON() ([]byte, error) {
	switch {
	case !f.set:
		return []byte("null"), nil
	case f.list:
		return json.Marshal(f.items)
	default:
		return json.Marshal(f.items[0])
	}
}

// UnmarshalJSON accepts a string, number, boolean, array or null.
func (f *FilterValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = FilterValue{}
	case []any:
		items := make([]string, 0, len(v))
		for i, item := range v {
			s, err := scalarText(item)
			if err != nil {
				return fmt.Errorf("filterValue[%d]: %w", i, err)
			}
			items = append(items, s)
		}
		*f = ListFilter(items...)
	default:
		s, err := scalarText(v)
		if err != nil {
			return fmt.Errorf("filterValue: %w", err)
		}
		*f = ScalarFilter(s)
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON for generated configuration files.
func (f FilterValue) MarshalYAML() (any, error) {
	switch {
	case !f.set:
		return nil, nil
	case f.list:
		return f.items, nil
	default:
		return f.items[0], nil
	}
}

func scalarText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case json.Number:
		return t.String(), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}

// Condition is a single predicate against one column.
type Condition struct {
	Column      string      `json:"column" yaml:"column"`
	FilterType  FilterType  `json:"filterType" yaml:"filterType"`
	FilterValue FilterValue `json:"filterValue,omitempty" yaml:"filterValue,omitempty"`
}

// Logic combines the conditions of a FilterGroup.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// FilterGroup combines conditions. A nil or empty group matches every row.
type FilterGroup struct {
	Logic      Logic       `json:"logic,omitempty" yaml:"logic,omitempty"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// IsEmpty reports whether the group matches everything.
func (g *FilterGroup) IsEmpty() bool {
	return g == nil || len(g.Conditions) == 0
}
