package wizard

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/csvboard/pkg/config"
	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

const people = `Key,Full name,Team,Reports to,Skills,Notes
1,Ada,Core,,"go, sql",founder
2,Brian,Core,1,go,
3,Chen,Web,1,"js, css",remote
4,Dana,Web,3,"css, go",
5,Eve,Core,2,,part time
`

func parse(t *testing.T, content string) *model.Dataset {
	t.Helper()
	ds, err := loader.ParseCSV(strings.NewReader(content), loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestSuggest(t *testing.T) {
	s := Suggest(parse(t, people), ",")

	checks := []struct {
		name, got, want string
	}{
		{"id", s.IDColumn, "Key"},
		{"parent", s.ParentColumn, "Reports to"},
		{"group", s.GroupColumn, "Team"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, c.got)
		}
	}
	if s.TitleColumn != "Full name" {
		t.Errorf("expected most distinct text column as title, got %q", s.TitleColumn)
	}
	if len(s.MultiValueColumns) != 1 || s.MultiValueColumns[0] != "Skills" {
		t.Errorf("expected Skills as multi-value, got %v", s.MultiValueColumns)
	}
	if len(s.CategoryColumns) != 1 || s.CategoryColumns[0] != "Skills" {
		t.Errorf("expected Skills as category, got %v", s.CategoryColumns)
	}
}

func TestSuggest_NamedColumnsWin(t *testing.T) {
	ds := parse(t, "Code,ID,Title,Status,Parent\nb,1,One,open,\na,2,Two,closed,1\n")
	s := Suggest(ds, ",")
	if s.IDColumn != "ID" {
		t.Errorf("expected header named ID, got %q", s.IDColumn)
	}
	if s.TitleColumn != "Title" || s.ParentColumn != "Parent" || s.GroupColumn != "Status" {
		t.Errorf("unexpected suggestion %+v", s)
	}
}

func TestSuggest_NoIDWithoutUniqueColumn(t *testing.T) {
	ds := parse(t, "Colour,Size\nred,S\nred,M\nblue,M\n")
	s := Suggest(ds, ",")
	if s.IDColumn != "" || s.ParentColumn != "" {
		t.Errorf("expected no id/parent, got %+v", s)
	}
	if s.GroupColumn == "" {
		t.Error("expected a low-cardinality group column")
	}
	if len(s.CategoryColumns) != 1 || s.CategoryColumns[0] != s.GroupColumn {
		t.Errorf("expected group column as graph category, got %v", s.CategoryColumns)
	}
}

func TestSuggest_Empty(t *testing.T) {
	s := Suggest(nil, "")
	if s.Separator != model.DefaultSeparator || s.IDColumn != "" {
		t.Errorf("expected empty suggestion, got %+v", s)
	}
}

func TestBuildConfig_OneTabPerView(t *testing.T) {
	ds := parse(t, people)
	cfg := BuildConfig(ds, Suggest(ds, ","), "People", "people.csv")

	var kinds []string
	for _, tab := range cfg.Tabs {
		kinds = append(kinds, string(tab.Type))
	}
	if got := strings.Join(kinds, ","); got != "table,kanban,summary,hierarchy,graph" {
		t.Errorf("expected one tab per view type, got %s", got)
	}
	if err := cfg.Validate(ds.HasColumn); err != nil {
		t.Errorf("expected generated config to validate, got %v", err)
	}

	tab, _ := cfg.Tab("summary")
	sections := tab.View.(*model.SummaryConfig).Sections
	if len(sections) != 3 || sections[0].Title != "Core" || !sections[2].IsCatchAll() {
		t.Errorf("expected Core, Web, Other sections, got %+v", sections)
	}
}

func TestBuildConfig_TableOnly(t *testing.T) {
	ds := parse(t, "A\nx\nx\n")
	cfg := BuildConfig(ds, Suggest(ds, ","), "", "")
	if len(cfg.Tabs) != 1 || cfg.Tabs[0].Type != model.ViewTable {
		t.Errorf("expected a single table tab, got %+v", cfg.Tabs)
	}
}

func TestBuildConfig_RoundTripsAndRenders(t *testing.T) {
	raw := parse(t, people)
	cfg := BuildConfig(raw, Suggest(raw, ","), "People", "people.csv")

	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := config.SaveDashboard(cfg, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := config.LoadDashboard(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}

	ds, err := loader.ParseCSV(strings.NewReader(people), loader.OptionsFor(loaded.GeneralSettings))
	if err != nil {
		t.Fatal(err)
	}
	for _, out := range view.RenderAll(ds, loaded) {
		if out.Placeholder != "" {
			t.Errorf("tab %s rendered a placeholder: %s", out.TabID, out.Placeholder)
		}
	}
}

func TestDefaultTitle(t *testing.T) {
	if got := defaultTitle("/data/team_roster.csv"); got != "team roster" {
		t.Errorf("expected team roster, got %q", got)
	}
	if got := defaultTitle(""); got != "Dashboard" {
		t.Errorf("expected Dashboard, got %q", got)
	}
}

func TestRelativeDataPath(t *testing.T) {
	w := &Wizard{dataPath: "/srv/boards/data/people.csv", outputPath: "/srv/boards/people.yaml"}
	if got := w.relativeDataPath(); got != filepath.Join("data", "people.csv") {
		t.Errorf("expected data/people.csv, got %q", got)
	}
}
