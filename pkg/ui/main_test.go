package ui

import (
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/csvboard/pkg/debug"
	"github.com/vanderheijden86/csvboard/pkg/model"
)

func TestMain(m *testing.M) {
	debug.SetEnabled(false)
	os.Exit(m.Run())
}

// fixture is three rows with a boolean Done column, a parent hierarchy and a
// dashboard whose last tab points at a column that does not exist.
func fixture() (*model.Dataset, *model.Config) {
	rows := []*model.Row{
		model.NewRow(0, map[string]model.Value{
			"ID": model.Scalar("1"), "Name": model.Scalar("Alpha"), "Status": model.Scalar("todo"),
			"Done": model.Scalar("no"), "Parent": model.Scalar(""), "Tags": model.Multi("x", "y"),
		}),
		model.NewRow(1, map[string]model.Value{
			"ID": model.Scalar("2"), "Name": model.Scalar("Beta"), "Status": model.Scalar("done"),
			"Done": model.Scalar("true"), "Parent": model.Scalar("1"), "Tags": model.Multi("y"),
		}),
		model.NewRow(2, map[string]model.Value{
			"ID": model.Scalar("3"), "Name": model.Scalar("Gamma"), "Status": model.Scalar("todo"),
			"Done": model.Scalar(""), "Parent": model.Scalar("1"), "Tags": model.Multi(),
		}),
	}
	ds := model.NewDataset([]string{"ID", "Name", "Status", "Done", "Parent", "Tags"}, rows)

	cfg := &model.Config{
		GeneralSettings: model.GeneralSettings{
			Title:             "Team board",
			MultiValueColumns: []string{"Tags"},
		},
		IndicatorStyles: map[string]model.ColumnStyle{
			"Done": {Type: model.StyleIcon, TrueCondition: &model.Style{Text: "✓"}},
		},
		Tabs: []model.Tab{
			model.NewTab("all", "All", &model.TableConfig{}),
			model.NewTab("board", "Board", &model.KanbanConfig{GroupByColumn: "Status", CardTitleColumn: "Name"}),
			model.NewTab("summary", "Summary", &model.SummaryConfig{
				ItemTitleColumn: "Name",
				Sections: []model.SummarySection{
					{Title: "Finished", Column: "Done", FilterType: model.FilterBooleanTrue},
					{Title: "Open", FilterType: model.FilterCatchAll},
				},
			}),
			model.NewTab("tree", "Tree", &model.HierarchyConfig{IDColumn: "ID", ParentColumn: "Parent", TitleColumn: "Name"}),
			model.NewTab("graph", "Graph", &model.GraphConfig{PrimaryIDColumn: "ID", PrimaryLabelColumn: "Name", CategoryColumns: []string{"Tags"}}),
			model.NewTab("broken", "Broken", &model.KanbanConfig{GroupByColumn: "Missing"}),
		},
	}
	return ds, cfg
}

// keyMsg builds the message bubbletea sends for a key name.
func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press feeds keys to m in order and returns the final model and the last
// command.
func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}
