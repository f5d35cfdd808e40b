package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/csvboard/pkg/model"
	"github.com/vanderheijden86/csvboard/pkg/view"
)

func renderFixture() []view.Output {
	ds, cfg := fixture()
	return view.RenderAll(ds, cfg)
}

func TestGenerateMarkdown_AllViews(t *testing.T) {
	md := GenerateMarkdown(renderFixture(), "Board")

	checks := []string{
		"# Board",
		"## Contents",
		"- [All rows](#all-rows) (table)",
		"## All rows",
		"| ID | Name | Status | Parent | Tags |",
		"| 4 | Delta\\|pipe | doing | 2 |  |",
		"### todo (2)",
		"- Alpha",
		"### Done (1)",
		"### Everything else (3)",
		"- Alpha",
		"    - Delta|pipe (ID: 4, Status: doing, Parent: 2)",
		"```mermaid",
		"4 primary nodes, 2 category nodes, 3 edges.",
	}
	for _, want := range checks {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
}

func TestGenerateMarkdown_Placeholder(t *testing.T) {
	ds, cfg := fixture()
	cfg.Tabs = []model.Tab{
		model.NewTab("bad", "Broken", &model.KanbanConfig{GroupByColumn: "Missing"}),
	}
	md := GenerateMarkdown(view.RenderAll(ds, cfg), "")

	if !strings.HasPrefix(md, "# Dashboard\n") {
		t.Errorf("expected default title, got %q", strings.SplitN(md, "\n", 2)[0])
	}
	if !strings.Contains(md, "> This view is misconfigured") {
		t.Errorf("expected placeholder quote, got:\n%s", md)
	}
	if strings.Contains(md, "## Contents") {
		t.Error("expected no table of contents for a single tab")
	}
}

func TestGenerateMarkdown_Warnings(t *testing.T) {
	out := view.Output{TabID: "t", Title: "T", Type: model.ViewTable, Warnings: []string{"row 3 skipped"}}
	md := GenerateMarkdown([]view.Output{out}, "W")
	if !strings.Contains(md, "<summary>1 warning(s)</summary>") || !strings.Contains(md, "- row 3 skipped") {
		t.Errorf("expected warnings block, got:\n%s", md)
	}
}

func TestTabMarkdown(t *testing.T) {
	for _, out := range renderFixture() {
		if out.Summary == nil {
			continue
		}
		md := TabMarkdown(out)
		if strings.HasPrefix(md, "#") && !strings.HasPrefix(md, "### ") {
			t.Errorf("expected no report heading, got:\n%s", md)
		}
		if !strings.Contains(md, "### Everything else (3)") {
			t.Errorf("expected summary sections, got:\n%s", md)
		}
		return
	}
	t.Fatal("fixture has no summary tab")
}

func TestUniqueSlug(t *testing.T) {
	counts := map[string]int{}
	got := []string{
		uniqueSlug(createSlug("Open Work"), counts),
		uniqueSlug(createSlug("Open work!"), counts),
		uniqueSlug(createSlug("???"), counts),
	}
	want := []string{"open-work", "open-work-1", "section"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slug %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSanitizeMermaidText(t *testing.T) {
	got := sanitizeMermaidText("a [b] \"c\" <d>\n")
	want := "a (b) 'c' &lt;d&gt;"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if sanitizeMermaidID("::") != "node" {
		t.Error("expected fallback id for empty sanitized id")
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	ds, cfg := fixture()
	path := filepath.Join(t.TempDir(), "board.md")
	if err := SaveMarkdownToFile(ds, cfg, path); err != nil {
		t.Fatalf("SaveMarkdownToFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Board\n") {
		t.Errorf("expected configured title, got %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, renderFixture(), TextOptions{MaxCellWidth: 8}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	text := buf.String()

	checks := []string{
		"All rows [table] 4 rows",
		"[todo] (2)",
		"Done (1)",
		"Delta|p…",
		"top hub: Tags::y (2)",
	}
	for _, want := range checks {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q\n%s", want, text)
		}
	}

	// hierarchy rows are indented by depth
	if !strings.Contains(text, "\n    4") {
		t.Errorf("expected depth-2 row to be indented, got:\n%s", text)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, renderFixture()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"tabId": "board"`) {
		t.Errorf("expected indented JSON with tab ids, got:\n%s", buf.String())
	}
}
