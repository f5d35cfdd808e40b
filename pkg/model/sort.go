package model

import "fmt"

// Direction is the ordering applied by one sort key.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
	Custom     Direction = "custom"
)

// SortKey orders rows by one column. Order is only used by Custom.
type SortKey struct {
	Column    string    `json:"column" yaml:"column"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
	Order     []string  `json:"order,omitempty" yaml:"order,omitempty"`
}

// SortSpec is an ordered list of keys; earlier keys take precedence.
type SortSpec []SortKey

// Or returns s, or fallback when s is empty.
func (s SortSpec) Or(fallback SortSpec) SortSpec {
	if len(s) == 0 {
		return fallback
	}
	return s
}

func (s SortSpec) validate(has func(string) bool) error {
	for i, k := range s {
		switch k.Direction {
		case "", Ascending, Descending, Custom:
		default:
			return fmt.Errorf("sort key %d: unknown direction %q", i, k.Direction)
		}
		if err := requireColumn(fmt.Sprintf("sort key %d column", i), k.Column, has); err != nil {
			return err
		}
	}
	return nil
}
