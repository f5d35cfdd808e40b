package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/csvboard/pkg/loader"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

// AssertRowCount verifies the expected number of rows.
func AssertRowCount(t *testing.T, ds *model.Dataset, expected int) {
	t.Helper()
	if got := ds.Len(); got != expected {
		t.Errorf("expected %d rows, got %d", expected, got)
	}
}

// AssertNoDuplicateIDs verifies the values of column are unique among
// non-empty cells.
func AssertNoDuplicateIDs(t *testing.T, ds *model.Dataset, column string) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range ds.Rows {
		id := r.Text(column)
		if id == "" {
			continue
		}
		if seen[id] {
			t.Errorf("duplicate %s: %s", column, id)
		}
		seen[id] = true
	}
}

// AssertHeaders verifies the dataset headers in order.
func AssertHeaders(t *testing.T, ds *model.Dataset, expected ...string) {
	t.Helper()
	if strings.Join(ds.Headers, "|") != strings.Join(expected, "|") {
		t.Errorf("expected headers %v, got %v", expected, ds.Headers)
	}
}

// AssertColumnValues verifies the text of column row by row.
func AssertColumnValues(t *testing.T, ds *model.Dataset, column string, expected ...string) {
	t.Helper()
	got := ColumnValues(ds, column)
	if strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %s values %q, got %q", column, expected, got)
	}
}

// AssertContains verifies that s contains every substring.
func AssertContains(t *testing.T, s string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			t.Errorf("expected output to contain %q, got:\n%s", sub, s)
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// AssertJSON compares actual value as JSON against the golden file.
func (g *GoldenFile) AssertJSON(actual interface{}) {
	g.t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}

	g.Assert(string(data))
}

// File helpers

// WriteFile writes content under dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// WriteDataset saves ds as a CSV file in dir and returns the path.
func WriteDataset(t *testing.T, dir, name string, ds *model.Dataset) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := loader.SaveCSV(path, ds, loader.WriteOptions{}); err != nil {
		t.Fatalf("failed to save dataset: %v", err)
	}
	return path
}

// Lookup helpers

// FindRow returns the first row whose column equals value, or nil.
func FindRow(ds *model.Dataset, column, value string) *model.Row {
	for _, r := range ds.Rows {
		if r.Text(column) == value {
			return r
		}
	}
	return nil
}

// ColumnValues returns the text of column for every row.
func ColumnValues(ds *model.Dataset, column string) []string {
	out := make([]string, len(ds.Rows))
	for i, r := range ds.Rows {
		out[i] = r.Text(column)
	}
	return out
}

// CountBy tallies rows by the text of column.
func CountBy(ds *model.Dataset, column string) map[string]int {
	counts := make(map[string]int)
	for _, r := range ds.Rows {
		counts[r.Text(column)]++
	}
	return counts
}

// RowID generates a standard test row id with the given index.
func RowID(prefix string, index int) string {
	if prefix == "" {
		prefix = "R"
	}
	return fmt.Sprintf("%s-%d", prefix, index)
}
