package model

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestValueElements(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  []Element
	}{
		{"null", Null(), []Element{{}}},
		{"scalar", Scalar("a"), []Element{{Text: "a", Present: true}}},
		{"multi", Multi("a", "b"), []Element{{Text: "a", Present: true}, {Text: "b", Present: true}}},
		{"empty multi", Multi(), []Element{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.value.Elements()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d elements, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("element %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestValueFirstSkipsEmpty(t *testing.T) {
	if got := Multi("", "b", "c").First(); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if !Multi("", "").IsEmpty() {
		t.Error("expected all-empty list to be empty")
	}
}

func TestValueJSONShapes(t *testing.T) {
	row := NewRow(0, map[string]Value{"a": Scalar("x"), "b": Multi("1", "2"), "c": Null()})
	data, err := json.Marshal(row.Values)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for k, v := range row.Values {
		if !back[k].Equal(v) {
			t.Errorf("column %s: expected %v, got %v", k, v, back[k])
		}
	}
}

func TestFilterValueDecoding(t *testing.T) {
	var c Condition
	if err := json.Unmarshal([]byte(`{"column":"Size","filterType":"valueEquals","filterValue":3}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.FilterValue.Scalar() != "3" || c.FilterValue.IsList() {
		t.Errorf("expected scalar 3, got %+v", c.FilterValue)
	}

	if err := json.Unmarshal([]byte(`{"column":"Tags","filterType":"valueInList","filterValue":["a","b"]}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := c.FilterValue.List(); len(got) != 2 || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestTabDecodesVariantByType(t *testing.T) {
	input := `{"generalSettings":{},"tabs":[
		{"id":"board","type":"kanban","config":{"groupByColumn":"Status"}},
		{"id":"tree","type":"tree","config":{"idColumn":"ID","parentColumn":"Parent"}},
		{"id":"odd","type":"pie"},
		{"id":"typo","type":"table","config":{"colums":["a"]}}
	]}`
	var cfg Config
	if err := json.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cfg.Tabs) != 4 {
		t.Fatalf("expected 4 tabs, got %d", len(cfg.Tabs))
	}
	if k, ok := cfg.Tabs[0].View.(*KanbanConfig); !ok || k.GroupByColumn != "Status" {
		t.Errorf("expected kanban config, got %#v", cfg.Tabs[0].View)
	}
	if cfg.Tabs[1].Type != ViewHierarchy {
		t.Errorf("expected tree alias to become hierarchy, got %s", cfg.Tabs[1].Type)
	}
	if err := cfg.Tabs[2].Validate(nil); !errors.Is(err, ErrUnknownViewType) {
		t.Errorf("expected unknown view type error, got %v", err)
	}
	if err := cfg.Tabs[3].Validate(nil); err == nil || !strings.Contains(err.Error(), "colums") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestConfigValidateAgainstHeaders(t *testing.T) {
	cfg := &Config{Tabs: []Tab{
		NewTab("board", "Board", &KanbanConfig{}),
		NewTab("graph", "Graph", &GraphConfig{PrimaryIDColumn: "ID", CategoryColumns: []string{"Owner"}}),
	}}
	has := func(c string) bool { return c == "ID" }
	err := cfg.Validate(has)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "groupByColumn is required") {
		t.Errorf("expected missing groupByColumn, got %q", msg)
	}
	if !strings.Contains(msg, `"Owner" not found in headers`) {
		t.Errorf("expected missing Owner header, got %q", msg)
	}
}

func TestConfigValidateRejectsBadRegex(t *testing.T) {
	cfg := &Config{IndicatorStyles: map[string]ColumnStyle{
		"Version": {Type: StyleTag, StyleRules: []StyleRule{{Type: MatchRegex, Pattern: "(unclosed"}}},
	}}
	if err := cfg.Validate(nil); err == nil {
		t.Error("expected regex compile error")
	}
}

func TestEnabledTabs(t *testing.T) {
	off := false
	cfg := &Config{Tabs: []Tab{NewTab("a", "", &TableConfig{}), NewTab("b", "", &TableConfig{})}}
	cfg.Tabs[1].Enabled = &off
	tabs := cfg.EnabledTabs()
	if len(tabs) != 1 || tabs[0].ID != "a" {
		t.Errorf("expected only tab a, got %v", tabs)
	}
}

func TestContextLookupAndWarnings(t *testing.T) {
	ds := NewDataset([]string{"ID", "Name"}, []*Row{
		NewRow(0, map[string]Value{"ID": Scalar("1"), "Name": Scalar("first")}),
		NewRow(0, map[string]Value{"ID": Scalar("1"), "Name": Scalar("dup")}),
	})
	var handled []string
	ctx := NewContext(ds, nil, WithWarningHandler(func(s string) { handled = append(handled, s) }))

	r, ok := ctx.LookupRow("ID", "1")
	if !ok || r.Text("Name") != "first" {
		t.Errorf("expected first row to win, got %v", r)
	}
	if _, ok := ctx.LookupRow("ID", "2"); ok {
		t.Error("expected missing id to be unresolved")
	}

	ctx.Warnf("row %d skipped", 3)
	ctx.Warnf("row %d skipped", 3)
	if len(handled) != 1 || len(ctx.Warnings()) != 1 {
		t.Errorf("expected one deduplicated warning, got %v", handled)
	}
	if got := ctx.TakeWarnings(); len(got) != 1 || len(ctx.Warnings()) != 0 {
		t.Errorf("expected TakeWarnings to drain, got %v", got)
	}
}

func TestContextRegexpCachedPerContext(t *testing.T) {
	ctx := NewContext(nil, nil)
	a, err := ctx.Regexp("^P[0-9]$")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, _ := ctx.Regexp("^P[0-9]$")
	if a != b {
		t.Error("expected the compiled pattern to be reused within a context")
	}
	if _, err := ctx.Regexp("("); err == nil {
		t.Error("expected an error for an invalid pattern")
	}
	if _, err := ctx.Regexp("("); err == nil {
		t.Error("expected the cached error to be returned again")
	}

	other, _ := NewContext(nil, nil).Regexp("^P[0-9]$")
	if other == a {
		t.Error("expected a fresh context to compile its own pattern")
	}
	var none *Context
	if re, err := none.Regexp("x+"); err != nil || !re.MatchString("xx") {
		t.Errorf("expected a nil context to compile without caching, got %v", err)
	}
}

func TestContextTrueValuesCaseSensitive(t *testing.T) {
	ctx := NewContext(nil, &Config{GeneralSettings: GeneralSettings{TrueValues: []string{"yes"}}})
	if !ctx.IsTrue("yes") || ctx.IsTrue("YES") {
		t.Error("expected case-sensitive true-value matching")
	}
}
