package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/csvboard/internal/datasource"
	"github.com/vanderheijden86/csvboard/pkg/config"
	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/export"
	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/watcher"
)

func TestMain(m *testing.M) {
	debug.SetEnabled(false)
	os.Exit(m.Run())
}

const rowsCSV = `ID,Name,Status,Parent,Tags
1,Alpha,todo,,"api,ui"
2,Beta,done,1,api
3,Gamma,todo,1,
`

const dashboardYAML = `
generalSettings:
  title: Team board
  dataFile: rows.csv
  multiValueColumns: [Tags]
tabs:
  - id: all
    title: All
    type: table
  - id: board
    title: Board
    type: kanban
    config:
      groupByColumn: Status
      cardTitleColumn: Name
  - id: graph
    title: Graph
    type: graph
    config:
      primaryIdColumn: ID
      primaryLabelColumn: Name
      categoryColumns: [Tags]
`

// setup writes the fixture files and points the preferences, data and state
// dirs into the temp dir.
func setup(t *testing.T) (dir, data, dash string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "xdg-data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "xdg-state"))
	data = filepath.Join(dir, "rows.csv")
	dash = filepath.Join(dir, "board.yaml")
	if err := os.WriteFile(data, []byte(rowsCSV), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dash, []byte(dashboardYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, data, dash
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(out, "csvboard ") {
		t.Errorf("expected version line, got %q", out)
	}
}

func TestHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "-h")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stderr, "Usage: csvboard") {
		t.Errorf("expected usage text, got %q", stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	dir, data, _ := setup(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no data", nil, "no data file"},
		{"unknown format", []string{"-data", data, "-format", "xml"}, "unknown format"},
		{"serve and format", []string{"-data", data, "-serve", "-format", "json"}, "mutually exclusive"},
		{"stray argument", []string{"-data", data, "extra"}, "unexpected argument"},
		{"unknown dashboard", []string{"-dashboard", "nope"}, "no registered dashboard"},
		{"favorite out of range", []string{"-dashboard", "team", "-favorite", "12"}, "between 1 and 9"},
		{"favorite without dashboard", []string{"-data", data, "-favorite", "2"}, "needs -dashboard"},
		{"unassigned favorite", []string{"-dashboard", "4"}, "no dashboard assigned to favorite 4"},
		{"init without data", []string{"-init"}, "-init needs -data"},
		{"missing file", []string{"-data", filepath.Join(dir, "nope.csv")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			if code == 0 {
				t.Fatalf("expected a failure exit, got 0")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("expected stderr to mention %q, got %q", tt.want, stderr)
			}
		})
	}
}

func TestTextOutputWhenNotATerminal(t *testing.T) {
	_, _, dash := setup(t)
	code, out, stderr := runCLI(t, "-config", dash)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	for _, want := range []string{"All", "Board", "Alpha", "Gamma"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	_, data, dash := setup(t)
	code, out, stderr := runCLI(t, "-data", data, "-config", dash, "-format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	var outputs []struct {
		TabID    string `json:"tabId"`
		RowCount int    `json:"rowCount"`
	}
	if err := json.Unmarshal([]byte(out), &outputs); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(outputs) != 3 {
		t.Fatalf("expected 3 tabs, got %d", len(outputs))
	}
	if outputs[0].TabID != "all" || outputs[0].RowCount != 3 {
		t.Errorf("unexpected first tab %+v", outputs[0])
	}
}

func TestSingleTab(t *testing.T) {
	_, _, dash := setup(t)
	code, out, stderr := runCLI(t, "-config", dash, "-format", "json", "-tab", "board")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if strings.Contains(out, `"tabId": "all"`) || !strings.Contains(out, `"tabId": "board"`) {
		t.Errorf("expected only the board tab, got:\n%s", out)
	}

	code, _, stderr = runCLI(t, "-config", dash, "-format", "json", "-tab", "nope")
	if code != 2 || !strings.Contains(stderr, "unknown tab") {
		t.Errorf("expected usage error for unknown tab, got %d: %s", code, stderr)
	}
}

func TestMarkdownToFile(t *testing.T) {
	dir, _, dash := setup(t)
	out := filepath.Join(dir, "board.md")
	code, stdout, stderr := runCLI(t, "-config", dash, "-format", "md", "-o", out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", stdout)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Team board") {
		t.Errorf("expected the dashboard title, got:\n%s", b)
	}
}

func TestGraphFormats(t *testing.T) {
	_, _, dash := setup(t)

	tests := []struct {
		format string
		want   string
	}{
		{"dot", "digraph G {"},
		{"mermaid", "graph "},
		{"svg", "<svg"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			code, out, stderr := runCLI(t, "-config", dash, "-format", tt.format)
			if code != 0 {
				t.Fatalf("expected exit 0, got %d: %s", code, stderr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in output, got:\n%.300s", tt.want, out)
			}
		})
	}

	code, _, stderr := runCLI(t, "-config", dash, "-format", "dot", "-tab", "board")
	if code != 2 || !strings.Contains(stderr, "no graph tab") {
		t.Errorf("expected a usage error for a non-graph tab, got %d: %s", code, stderr)
	}
}

func TestSnapshotToFile(t *testing.T) {
	dir, _, dash := setup(t)
	out := filepath.Join(dir, "graph.png")
	code, _, stderr := runCLI(t, "-config", dash, "-format", "png", "-o", out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("expected a png file, got %d bytes", len(b))
	}
}

func TestSQLiteExport(t *testing.T) {
	dir, _, dash := setup(t)
	out := filepath.Join(dir, "out", "board.db")
	code, _, stderr := runCLI(t, "-config", dash, "-format", "sqlite", "-o", out)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	db, err := sql.Open("sqlite", out)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + export.DatasetTable).Scan(&n); err != nil {
		t.Fatalf("query rows: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}
}

func TestSQLiteExportDefaultsToDataDir(t *testing.T) {
	dir, _, dash := setup(t)
	code, out, stderr := runCLI(t, "-config", dash, "-format", "sqlite")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	want := filepath.Join(dir, "xdg-data", "csvboard", "team-board.sqlite")
	if strings.TrimSpace(out) != want {
		t.Errorf("expected %q, got %q", want, out)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected the export on disk: %v", err)
	}
}

func TestExportName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Team board", "team-board"},
		{"Q3/Roadmap", "q3-roadmap"},
		{"  ", "dashboard"},
		{"!!", "dashboard"},
	}
	for _, tt := range tests {
		if got := exportName(tt.in); got != tt.want {
			t.Errorf("exportName(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestDerivedDashboard(t *testing.T) {
	_, data, _ := setup(t)
	code, out, stderr := runCLI(t, "-data", data, "-format", "json")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(out, `"tabId"`) || !strings.Contains(out, "Alpha") {
		t.Errorf("expected a derived dashboard, got:\n%.300s", out)
	}
}

func TestRegisteredDashboard(t *testing.T) {
	_, data, dash := setup(t)
	prefs := config.DefaultConfig()
	prefs.Register(config.Dashboard{Name: "team", Data: data, Config: dash})
	if err := config.Save(prefs); err != nil {
		t.Fatal(err)
	}

	code, out, stderr := runCLI(t, "-dashboard", "team", "-format", "md")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(out, "Team board") {
		t.Errorf("expected the registered dashboard, got:\n%s", out)
	}
}

func TestFavoriteDashboard(t *testing.T) {
	_, data, dash := setup(t)
	prefs := config.DefaultConfig()
	prefs.Register(config.Dashboard{Name: "team", Data: data, Config: dash})
	if err := config.Save(prefs); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "-dashboard", "team", "-favorite", "3", "-format", "md")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stderr, `Favorite 3 now opens "team"`) {
		t.Errorf("expected the favorite to be confirmed, got %q", stderr)
	}

	code, out, stderr := runCLI(t, "-dashboard", "3", "-format", "md")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(out, "Team board") {
		t.Errorf("expected favorite 3 to open the team dashboard, got:\n%s", out)
	}
}

func TestReopensLastDashboard(t *testing.T) {
	_, data, dash := setup(t)
	prefs := config.DefaultConfig()
	prefs.Register(config.Dashboard{Name: "team", Data: data, Config: dash})
	if err := config.Save(prefs); err != nil {
		t.Fatal(err)
	}

	if code, _, stderr := runCLI(t, "-dashboard", "team", "-format", "md"); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if got := config.LastDashboard(); got != "team" {
		t.Fatalf("expected team to be remembered, got %q", got)
	}
	code, out, stderr := runCLI(t, "-format", "md")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(out, "Team board") {
		t.Errorf("expected the last dashboard to reopen, got:\n%s", out)
	}
}

func TestValidationWarningsGoToStderr(t *testing.T) {
	dir, data, _ := setup(t)
	dash := filepath.Join(dir, "broken.yaml")
	doc := "tabs:\n  - id: board\n    type: kanban\n    config:\n      groupByColumn: Missing\n"
	if err := os.WriteFile(dash, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runCLI(t, "-data", data, "-config", dash, "-format", "text")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stderr, "Missing") {
		t.Errorf("expected a warning naming the column, got %q", stderr)
	}
}

func TestEditRejectsSQLite(t *testing.T) {
	dir, _, dash := setup(t)
	db := filepath.Join(dir, "rows.db")
	if code, _, stderr := runCLI(t, "-config", dash, "-format", "sqlite", "-o", db); code != 0 {
		t.Fatalf("export failed: %s", stderr)
	}
	code, _, stderr := runCLI(t, "-data", db, "-edit", "-format", "text")
	if code != 2 || !strings.Contains(stderr, "-edit needs a csv or tsv file") {
		t.Errorf("expected a usage error, got %d: %s", code, stderr)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	_, data, dash := setup(t)
	s := &session{dataPath: data, configPath: dash, warn: func(string) {}}
	ds, cfg, src, err := s.load()
	if err != nil {
		t.Fatal(err)
	}
	if src.Type != datasource.SourceTypeCSV {
		t.Errorf("expected a csv source, got %s", src)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stderr bytes.Buffer
	o := cliOptions{serve: true, addr: "127.0.0.1:0"}
	if err := runServe(ctx, s, src, ds, cfg, config.DefaultConfig(), o, &stderr); err != nil {
		t.Fatalf("expected a clean shutdown, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Serving") {
		t.Errorf("expected a serving banner, got %q", stderr.String())
	}
}

func TestServeWatchFailureStartsNothing(t *testing.T) {
	ds, cfg := model.NewDataset(nil, nil), &model.Config{}
	s := &session{warn: func(string) {}}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	var stderr bytes.Buffer
	o := cliOptions{serve: true, watch: true, addr: addr}
	err = runServe(context.Background(), s, datasource.DataSource{}, ds, cfg, config.DefaultConfig(), o, &stderr)
	if !errors.Is(err, watcher.ErrNoPaths) {
		t.Fatalf("expected ErrNoPaths, got %v", err)
	}
	if strings.Contains(stderr.String(), "Serving") {
		t.Errorf("expected no serving banner, got %q", stderr.String())
	}
	l, err = net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("expected %s to stay free: %v", addr, err)
	}
	l.Close()
}

func TestSessionReloadPicksUpChanges(t *testing.T) {
	_, data, dash := setup(t)
	s := &session{configPath: dash, warn: func(string) {}}
	ds, _, err := s.reload()
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if s.dataPath != data {
		t.Errorf("expected data path from the dashboard, got %q", s.dataPath)
	}

	if err := os.WriteFile(data, []byte(rowsCSV+"4,Delta,todo,,\n"), 0644); err != nil {
		t.Fatal(err)
	}
	ds, _, err = s.reload()
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 4 {
		t.Errorf("expected 4 rows after reload, got %d", ds.Len())
	}
	if got := s.watchPaths(datasource.DataSource{Path: data}); len(got) != 2 || got[1] != dash {
		t.Errorf("expected data and dashboard watched, got %v", got)
	}
}

func TestTitleFor(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/tmp/team_tasks.csv", "team tasks"},
		{"rows.tsv", "rows"},
		{"", "Dashboard"},
	}
	for _, tt := range tests {
		if got := titleFor(tt.in); got != tt.want {
			t.Errorf("titleFor(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
