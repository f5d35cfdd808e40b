package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/graphmodel"
	"github.com/vanderheijden86/csvboard/pkg/layout"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

func TestMain(m *testing.M) {
	debug.SetEnabled(false)
	os.Exit(m.Run())
}

func fixture() (*model.Dataset, *model.Config) {
	rows := []*model.Row{
		model.NewRow(0, map[string]model.Value{"ID": model.Scalar("1"), "Name": model.Scalar("Alpha"), "Status": model.Scalar("todo"), "Tags": model.Multi("x", "y")}),
		model.NewRow(1, map[string]model.Value{"ID": model.Scalar("2"), "Name": model.Scalar("Beta"), "Status": model.Scalar("done"), "Tags": model.Multi("y")}),
	}
	ds := model.NewDataset([]string{"ID", "Name", "Status", "Tags"}, rows)
	off := false
	cfg := &model.Config{
		GeneralSettings: model.GeneralSettings{Title: "Board", MultiValueColumns: []string{"Tags"}},
		Tabs: []model.Tab{
			model.NewTab("all", "All", &model.TableConfig{}),
			model.NewTab("board", "Board", &model.KanbanConfig{GroupByColumn: "Status"}),
			model.NewTab("graph", "Graph", &model.GraphConfig{PrimaryIDColumn: "ID", PrimaryLabelColumn: "Name", CategoryColumns: []string{"Tags"}}),
			model.NewTab("hidden", "Hidden", &model.TableConfig{}),
		},
	}
	cfg.Tabs[3].Enabled = &off
	return ds, cfg
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	ds, cfg := fixture()
	s := New(ds, cfg, opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp, out
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), "/api/dashboard") {
		t.Errorf("expected SPA page, got %d", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, body := do(t, http.MethodGet, ts.URL+"/api/dashboard", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["title"] != "Board" {
		t.Errorf("expected title Board, got %v", body["title"])
	}
	tabs := body["tabs"].([]any)
	if len(tabs) != 3 {
		t.Errorf("expected 3 enabled tabs, got %d", len(tabs))
	}
	if body["rows"].(float64) != 2 {
		t.Errorf("expected 2 rows, got %v", body["rows"])
	}
}

func TestTab_TableAndUnknown(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/api/tabs/all", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["tabId"] != "all" || body["table"] == nil {
		t.Errorf("expected table output, got %v", body)
	}

	for _, id := range []string{"nope", "hidden"} {
		resp, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/"+id, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", id, resp.StatusCode)
		}
	}
}

func TestTab_GraphIncludesLayout(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	_, body := do(t, http.MethodGet, ts.URL+"/api/tabs/graph", nil)

	if body["graph"] == nil {
		t.Fatalf("expected graph output, got %v", body)
	}
	lay, ok := body["layout"].(map[string]any)
	if !ok {
		t.Fatalf("expected layout, got %v", body["layout"])
	}
	positions := lay["positions"].(map[string]any)
	if len(positions) != 4 {
		t.Errorf("expected 4 positioned nodes, got %d", len(positions))
	}
	if _, ok := body["graph"].(map[string]any)["options"]; !ok {
		t.Error("expected vis options on graph output")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/api/tabs/graph/snapshot.svg")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("expected svg, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("expected svg document")
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/graph/snapshot.gif", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for gif, got %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/all/snapshot.png", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-graph tab, got %d", resp.StatusCode)
	}
}

func TestEditFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	s, ts := newTestServer(t, Options{DataPath: path})
	gen := s.Generation()

	resp, body := do(t, http.MethodPost, ts.URL+"/api/data/cells", map[string]any{"row": 0, "column": "Status", "value": "done"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if body["dirty"] != true {
		t.Error("expected dirty after edit")
	}
	if s.Generation() <= gen {
		t.Error("expected a new snapshot after edit")
	}
	if got := s.Snapshot().Dataset.Rows[0].Text("Status"); got != "done" {
		t.Errorf("expected edit in served snapshot, got %q", got)
	}

	// edits show up in rendered views
	_, board := do(t, http.MethodGet, ts.URL+"/api/tabs/board", nil)
	lanes := board["kanban"].(map[string]any)["columns"].([]any)[0].([]any)
	if len(lanes) != 1 || lanes[0].(map[string]any)["count"].(float64) != 2 {
		t.Errorf("expected a single lane of 2 cards, got %v", lanes)
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/api/data/rows", map[string]any{"values": map[string]string{"ID": "3", "Tags": "z"}})
	if resp.StatusCode != http.StatusCreated || body["index"].(float64) != 2 {
		t.Fatalf("expected row appended at 2, got %d %v", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/data/rows/0", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	if s.Snapshot().Dataset.Len() != 2 {
		t.Errorf("expected 2 rows after delete, got %d", s.Snapshot().Dataset.Len())
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/data/undo", nil)
	if resp.StatusCode != http.StatusOK || s.Snapshot().Dataset.Len() != 3 {
		t.Errorf("expected undo to restore the row, got %d rows", s.Snapshot().Dataset.Len())
	}

	resp, body = do(t, http.MethodPost, ts.URL+"/api/data/save", nil)
	if resp.StatusCode != http.StatusOK || body["dirty"] != false {
		t.Fatalf("expected clean save, got %d %v", resp.StatusCode, body)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "3,,,z") {
		t.Errorf("expected appended row in saved file, got:\n%s", data)
	}

	_, got := do(t, http.MethodGet, ts.URL+"/api/data?options=Tags", nil)
	opts := got["options"].(map[string]any)["Tags"].([]any)
	if len(opts) != 3 {
		t.Errorf("expected tag options x,y,z, got %v", opts)
	}
}

func TestEditErrors(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	cases := []struct {
		method string
		path   string
		body   any
		status int
	}{
		{http.MethodPost, "/api/data/cells", map[string]any{"row": 9, "column": "Name", "value": "x"}, http.StatusNotFound},
		{http.MethodPost, "/api/data/cells", map[string]any{"row": 0, "column": "Nope", "value": "x"}, http.StatusNotFound},
		{http.MethodPost, "/api/data/cells", map[string]any{"row": 0, "column": "Name", "toggle": true}, http.StatusBadRequest},
		{http.MethodDelete, "/api/data/rows/abc", nil, http.StatusBadRequest},
		{http.MethodPost, "/api/data/undo", nil, http.StatusConflict},
		{http.MethodPost, "/api/data/save", nil, http.StatusConflict},
	}
	for _, tc := range cases {
		resp, _ := do(t, tc.method, ts.URL+tc.path, tc.body)
		if resp.StatusCode != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/data/cells", strings.NewReader("{"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestReadOnly(t *testing.T) {
	s, ts := newTestServer(t, Options{ReadOnly: true})
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/data/cells", map[string]any{"row": 0, "column": "Name", "value": "x"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
	if s.Snapshot().Dataset.Rows[0].Text("Name") != "Alpha" {
		t.Error("expected data untouched")
	}
	resp, _ = do(t, http.MethodGet, ts.URL+"/api/data", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected reads to be allowed, got %d", resp.StatusCode)
	}
}

func TestSwapReplacesSnapshot(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	before := s.Snapshot()

	ds, cfg := fixture()
	ds.Rows = ds.Rows[:1]
	cfg.GeneralSettings.Title = "Reloaded"
	s.Swap(ds, cfg)

	if s.Snapshot() == before {
		t.Fatal("expected a new snapshot")
	}
	if before.Dataset.Len() != 2 {
		t.Error("expected the old snapshot to stay intact")
	}
	_, body := do(t, http.MethodGet, ts.URL+"/api/dashboard", nil)
	if body["title"] != "Reloaded" || body["rows"].(float64) != 1 {
		t.Errorf("expected reloaded dashboard, got %v", body)
	}
}

type trackedEngine struct {
	layout.Engine
	destroyed atomic.Bool
}

func (e *trackedEngine) Destroy() {
	e.destroyed.Store(true)
	e.Engine.Destroy()
}

func TestGraphRerenderDestroysPreviousEngine(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	var mu sync.Mutex
	var made []*trackedEngine
	s.newEngine = func(m graphmodel.Model, kind model.LayoutEngine, opts layout.Options) layout.Engine {
		mu.Lock()
		defer mu.Unlock()
		e := &trackedEngine{Engine: layout.New(m, kind, opts)}
		made = append(made, e)
		return e
	}
	built := func() []*trackedEngine {
		mu.Lock()
		defer mu.Unlock()
		return append([]*trackedEngine(nil), made...)
	}

	_, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/graph", nil)
	_, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/graph", nil)
	engines := built()
	if len(engines) != 1 {
		t.Fatalf("expected the cached layout to be reused, got %d engines", len(engines))
	}
	if engines[0].destroyed.Load() {
		t.Error("expected the live engine to be kept")
	}

	ds, cfg := fixture()
	s.Swap(ds, cfg)
	_, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/graph", nil)
	engines = built()
	if len(engines) != 2 {
		t.Fatalf("expected a new engine after swap, got %d", len(engines))
	}
	if !engines[0].destroyed.Load() || engines[1].destroyed.Load() {
		t.Errorf("expected only the first engine destroyed, got %v/%v", engines[0].destroyed.Load(), engines[1].destroyed.Load())
	}

	s.closeLayouts()
	if !engines[1].destroyed.Load() {
		t.Error("expected shutdown to destroy the live engine")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	_, _ = do(t, http.MethodGet, ts.URL+"/api/tabs/all", nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/api/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, ok := body["enabled"]; !ok {
		t.Errorf("expected enabled flag, got %v", body)
	}
}
